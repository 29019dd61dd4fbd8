package classifyintent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "bank-assistant/internal/common/errors"
	"bank-assistant/internal/common/metrics"
	"bank-assistant/internal/genai"
	"bank-assistant/internal/models"
)

const (
	TaskType = "classify-intent"
)

const promptTemplate = `Eres un clasificador de consultas para un sistema bancario. 

Analiza la siguiente consulta del usuario y clasifícala en UNA de estas categorías:

1. "balance" - Si el usuario pregunta por saldo, balance, dinero en cuenta, o menciona un número de cédula/identificación
   Ejemplos: "¿Cuál es mi saldo?", "Saldo de V-12345678", "¿Cuánto dinero tengo?"

2. "knowledge_base" - Si pregunta sobre procedimientos bancarios como abrir cuentas, solicitar tarjetas, hacer transferencias, requisitos, pasos, etc.
   Ejemplos: "¿Cómo abro una cuenta?", "Requisitos para tarjeta de crédito", "¿Cómo hago una transferencia?"

3. "general" - Cualquier otra pregunta general, saludos, o temas no relacionados directamente con balance o procedimientos
   Ejemplos: "¿Qué es la inflación?", "Hola", "¿Qué hora es?", "Explícame qué es un interés compuesto"

Consulta del usuario: %s

Responde ÚNICAMENTE con una de estas palabras: balance, knowledge_base, general

Clasificación:`

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Handler maps a query onto an Intent with one generation call. Backend errors and
// unrecognised output both fall back to general with Success false.
type Handler struct {
	config    *Config
	generator genai.Generator
	reporter  *apperrors.JobReporter
	logger    Logger
}

// NewHandler expects a generator built without retries.
func NewHandler(config *Config, generator genai.Generator, log Logger) *Handler {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:    config,
		generator: generator,
		reporter:  apperrors.NewJobReporter(logger),
		logger:    logger,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.reporter.Fail(context.Background(), client, job, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.reporter.Fail(context.Background(), client, job, err)
		return
	}

	h.reporter.Complete(context.Background(), client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, apperrors.NewInvalidRequestError("query is required")
	}

	result := h.Classify(ctx, input.Query)
	return &Output{
		Intent:         result.Intent,
		Classification: result,
	}, nil
}

// Classify always returns a usable intent.
func (h *Handler) Classify(ctx context.Context, query string) models.ClassificationResult {
	raw, err := h.generator.Generate(ctx, BuildPrompt(query), genai.GenerateOptions{
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
	})
	if err != nil {
		metrics.ClassificationFallbacks.WithLabelValues("backend_error").Inc()
		h.logger.Warn("classification failed, defaulting to general", map[string]interface{}{
			"error": err.Error(),
		})
		return models.ClassificationResult{
			Success: false,
			Intent:  models.IntentGeneral,
			Error:   err.Error(),
		}
	}

	normalized := strings.ToLower(strings.TrimSpace(raw))
	intent, matched := models.ParseIntent(normalized)
	if !matched {
		metrics.ClassificationFallbacks.WithLabelValues("unmatched_output").Inc()
		h.logger.Warn("unrecognised classifier output, defaulting to general", map[string]interface{}{
			"rawOutput": normalized,
		})
		return models.ClassificationResult{
			Success:        false,
			Intent:         models.IntentGeneral,
			RawModelOutput: normalized,
			Error:          fmt.Sprintf("unrecognised classifier output: %q", normalized),
		}
	}

	h.logger.Info("query classified", map[string]interface{}{
		"intent": intent,
	})

	return models.ClassificationResult{
		Success:        true,
		Intent:         intent,
		RawModelOutput: normalized,
	}
}

func BuildPrompt(query string) string {
	return fmt.Sprintf(promptTemplate, query)
}
