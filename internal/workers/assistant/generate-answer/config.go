// internal/workers/assistant/generate-answer/config.go
package generateanswer

import (
	"time"

	"bank-assistant/internal/common/config"
)

type Config struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func LoadConfig(cfg config.LLMConfig) *Config {
	return &Config{
		Temperature: cfg.AnswerTemperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     config.GetDuration(cfg.Timeout) * time.Duration(cfg.MaxRetries+1),
	}
}
