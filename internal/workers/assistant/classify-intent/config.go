// internal/workers/assistant/classify-intent/config.go
package classifyintent

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
		Temperature: cfg.ClassifierTemperature,
		MaxTokens:   16,
		Timeout:     config.GetDuration(cfg.Timeout),
	}
}
