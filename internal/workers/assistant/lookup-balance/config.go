// internal/workers/assistant/lookup-balance/config.go
package lookupbalance

import (
	"time"

	"bank-assistant/internal/common/config"
)

type Config struct {
	Source  string
	CSVPath string
	Table   string
	Timeout time.Duration
}

func LoadConfig(cfg config.AssistantConfig) *Config {
	return &Config{
		Source:  cfg.AccountSource,
		CSVPath: cfg.DataCSVPath,
		Table:   cfg.AccountTable,
		Timeout: 10 * time.Second,
	}
}
