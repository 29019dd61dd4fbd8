// cmd/bankctl/balances.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bank-assistant/internal/models"
)

var balancesJSON bool

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "List every account in the balance table",
	Args:  cobra.NoArgs,
	RunE:  runBalances,
}

func init() {
	balancesCmd.Flags().BoolVar(&balancesJSON, "json", false, "output accounts as JSON")
	rootCmd.AddCommand(balancesCmd)
}

func runBalances(cmd *cobra.Command, _ []string) error {
	assistant, closeFn, err := openAssistant(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	return writeBalances(cmd.OutOrStdout(), assistant.Balances.AllBalances(), balancesJSON)
}

func writeBalances(out io.Writer, accounts []models.AccountRecord, asJSON bool) error {
	if asJSON {
		rows := make([]map[string]interface{}, 0, len(accounts))
		for _, acc := range accounts {
			rows = append(rows, acc.ToData())
		}
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal accounts: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	if len(accounts) == 0 {
		_, err := fmt.Fprintln(out, "No accounts found.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CÉDULA\tTITULAR\tSALDO")
	for _, acc := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t$%s\n", acc.Identifier, acc.HolderName, acc.Balance.StringFixed(2))
	}
	return tw.Flush()
}
