// cmd/bankctl/root.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bank-assistant/internal/app"
	"bank-assistant/internal/common/config"
	"bank-assistant/internal/common/logger"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "bankctl",
	Short:         "Operate the BANCO HENRY customer assistant",
	Long:          `bankctl runs queries against the assistant, rebuilds the knowledge base index and exposes the assistant over MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config YAML file (default: configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// openAssistant builds the full assistant. Logs go to stderr so that stdout stays machine readable.
func openAssistant(cmd *cobra.Command) (*app.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	cfg.Logging.Level = logLevel
	cfg.Logging.Output = "stderr"
	zapLog, err := logger.NewFromConfig(cfg.Logging)
	if err != nil {
		zapLog = zap.NewNop()
	}

	assistant, err := app.New(cmd.Context(), cfg, logger.NewZapAdapter(zapLog), app.Options{})
	if err != nil {
		_ = zapLog.Sync()
		return nil, nil, err
	}

	return assistant, func() {
		assistant.Close()
		_ = zapLog.Sync()
	}, nil
}
