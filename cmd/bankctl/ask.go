// cmd/bankctl/ask.go
package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Answer one customer query",
	Long:  `Classifies the query, dispatches it to the balance lookup, the knowledge base or the general assistant, and prints the response envelope as JSON.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	assistant, closeFn, err := openAssistant(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	env := assistant.Orchestrator.Process(cmd.Context(), strings.Join(args, " "))

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
