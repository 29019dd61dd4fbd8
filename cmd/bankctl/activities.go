// cmd/bankctl/activities.go
package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bank-assistant/pkg/registry"
)

var activitiesRegistryPath string

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List the job types served by the assistant workers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg := registry.Default()
		if activitiesRegistryPath != "" {
			loaded, err := registry.LoadRegistry(activitiesRegistryPath)
			if err != nil {
				return err
			}
			reg = loaded
		}
		return writeActivities(cmd.OutOrStdout(), reg)
	},
}

func init() {
	activitiesCmd.Flags().StringVar(&activitiesRegistryPath, "registry", "", "activity registry JSON file (default: built-in)")
	rootCmd.AddCommand(activitiesCmd)
}

func writeActivities(out io.Writer, reg *registry.ActivityRegistry) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK TYPE\tCATEGORY\tTIMEOUT\tRETRIES\tERROR CODES")
	for _, a := range reg.Activities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", a.TaskType, a.Category, a.Timeout, a.Retries, strings.Join(a.ErrorCodes, ","))
	}
	return tw.Flush()
}
