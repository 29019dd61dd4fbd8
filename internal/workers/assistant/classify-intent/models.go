// internal/workers/assistant/classify-intent/models.go
package classifyintent

import "bank-assistant/internal/models"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	Intent         models.Intent               `json:"intent"`
	Classification models.ClassificationResult `json:"classification"`
}
