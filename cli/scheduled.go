package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/desto-project/desto/common/atjobs"
	"github.com/spf13/cobra"
)

var scheduledCmd = &cobra.Command{
	Use:   "scheduled",
	Short: "Show the pending at(1) queue",
	RunE:  runScheduled,
}

func init() {
	rootCmd.AddCommand(scheduledCmd)
}

func runScheduled(cmd *cobra.Command, args []string) error {
	pending, listErr := atjobs.NewAtScheduler().List()
	if listErr != nil {
		return listErr
	}
	if len(pending) == 0 {
		fmt.Println("Nothing in the schedule queue")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "AT JOB\tRUNS AT\tQUEUE\tUSER")
	for _, entry := range pending {
		runAt := "-"
		if !entry.RunAt.IsZero() {
			runAt = entry.RunAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", entry.Id, runAt, entry.Queue, entry.Username)
	}
	return writer.Flush()
}
