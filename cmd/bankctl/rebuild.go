// cmd/bankctl/rebuild.go
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the knowledge base index",
	Long:  `Re-reads every document under the knowledge base path, re-embeds all chunks and atomically replaces the live index.`,
	Args:  cobra.NoArgs,
	RunE:  runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	assistant, closeFn, err := openAssistant(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	start := time.Now()
	if err := assistant.Orchestrator.RebuildKnowledgeBase(cmd.Context()); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Index rebuilt: %d chunks in %s\n", assistant.Retriever.Size(), time.Since(start).Round(time.Millisecond))
	return nil
}
