// cmd/history.go
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stridr-dev/stridr/internal/observability"
	"github.com/stridr-dev/stridr/internal/reporting"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the local history store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.History.Enabled {
			return fmt.Errorf("run history is disabled in configuration")
		}

		hist, err := reporting.OpenHistory(observability.GetLogger(), cfg.History.Path)
		if err != nil {
			return err
		}
		defer hist.Close()

		records, err := hist.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tTEST CASE\tSTATUS\tSTEPS\tFAILED\tSTARTED")
		for _, rec := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				rec.RunID, rec.TestCase, rec.Status, rec.Steps, rec.FailedSteps,
				rec.StartedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to list")
}
