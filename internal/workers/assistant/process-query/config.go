// internal/workers/assistant/process-query/config.go
package processquery

import (
	"time"

	"bank-assistant/internal/common/config"
)

type Config struct {
	TopK    int
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	llmBudget := config.GetDuration(cfg.LLM.Timeout) * time.Duration(cfg.LLM.MaxRetries+1)
	return &Config{
		TopK: cfg.Assistant.TopK,
		// classification plus one answer, with room for the embedding call
		Timeout: config.GetDuration(cfg.LLM.Timeout) + 2*llmBudget,
	}
}
