package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsLines  int
)

var logsCmd = &cobra.Command{
	Use:   "logs <jobId>",
	Short: "Show the captured log output of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "stream new lines as the job writes them")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 0, "only show this many trailing lines")
}

func runLogs(cmd *cobra.Command, args []string) error {
	jobId, parseErr := uuid.Parse(args[0])
	if parseErr != nil {
		return fmt.Errorf("'%s' is not a valid job id", args[0])
	}

	if !logsFollow {
		window, windowErr := engine.LogWindow(jobId, logsLines)
		if windowErr != nil {
			return windowErr
		}
		for _, line := range window {
			fmt.Println(line)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt)
	go func() {
		<-interrupted
		cancel()
	}()

	lines, tailErr := engine.Tail(ctx, jobId)
	if tailErr != nil {
		return tailErr
	}
	for line := range lines {
		fmt.Println(line)
	}
	return nil
}
