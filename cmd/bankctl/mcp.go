// cmd/bankctl/mcp.go
package main

import (
	"github.com/spf13/cobra"

	"bank-assistant/internal/app"
	"bank-assistant/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant over MCP (stdio)",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing the tools
process_query, rebuild_knowledge_base, compound_interest and annuity_payment.

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "bank-assistant": {
        "command": "/path/to/bankctl",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	assistant, closeFn, err := openAssistant(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	version := assistant.Config.App.Version
	if version == "" {
		version = "dev"
	}

	s := mcpserver.New(assistant.Orchestrator, version, app.MCPLogger(assistant.Logger))
	return mcpserver.ServeStdio(s)
}
