package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/desto-project/desto/common/models"
	"github.com/desto-project/desto/orchestrator"
	"github.com/spf13/cobra"
)

var (
	listStatus string
	listLimit  int64
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked jobs, newest first",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listStatus, "status", "", "only jobs in this state (scheduled, running, finished, failed, killed, unknown)")
	listCmd.Flags().Int64Var(&listLimit, "limit", 50, "maximum number of jobs to show")
}

var statusByName = map[string]models.JobStatus{
	"scheduled": models.JOB_SCHEDULED,
	"running":   models.JOB_RUNNING,
	"finished":  models.JOB_FINISHED,
	"failed":    models.JOB_FAILED,
	"killed":    models.JOB_KILLED,
	"unknown":   models.JOB_UNKNOWN,
}

func runList(cmd *cobra.Command, args []string) error {
	filter := orchestrator.JobFilter{Limit: listLimit}
	if listStatus != "" {
		status, known := statusByName[listStatus]
		if !known {
			return fmt.Errorf("'%s' is not a recognised status", listStatus)
		}
		filter.Status = &status
	}

	jobs := engine.List(filter)
	if len(jobs) == 0 {
		fmt.Println("No jobs to show")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSESSION\tSTATUS\tCREATED\tENDED\tEXIT")
	for _, job := range jobs {
		ended := "-"
		if job.EndedAt != nil {
			ended = job.EndedAt.Format("2006-01-02 15:04:05")
		}
		exitCode := "-"
		if job.ExitCode != nil {
			exitCode = fmt.Sprintf("%d", *job.ExitCode)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			job.Id,
			job.SessionName,
			job.Status,
			job.CreatedAt.Format("2006-01-02 15:04:05"),
			ended,
			exitCode,
		)
	}
	return writer.Flush()
}
