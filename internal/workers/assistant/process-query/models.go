// internal/workers/assistant/process-query/models.go
package processquery

import "bank-assistant/internal/models"

type Input struct {
	Query     string `json:"query"`
	RequestID string `json:"requestId"`
}

type Output struct {
	Response *models.ResponseEnvelope `json:"response"`
}

// Customer-facing messages.
const (
	MsgEmptyQuery      = "Por favor, ingresa una consulta válida."
	MsgSystemError     = "Lo sentimos, el servicio se encuentra temporalmente caído. Por favor, intenta más tarde."
	MsgBalanceGeneric  = "No se pudo resolver la consulta. Por favor, verifica el número de cédula en formato V-XXXXXXXX e intenta nuevamente."
	MsgKBNoInformation = "No se encontró información relevante sobre tu consulta. Por favor, reformula tu pregunta o contacta a un representante."
	MsgKBGeneration    = "Error al generar la respuesta. Por favor, intenta nuevamente."
	MsgGeneralFailure  = "Lo sentimos, no pudimos procesar tu consulta. Por favor, intenta reformularla."
)
