package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var killAll bool

var killCmd = &cobra.Command{
	Use:   "kill [jobId]",
	Short: "Kill a running or scheduled job",
	RunE:  runKill,
}

func init() {
	rootCmd.AddCommand(killCmd)
	killCmd.Flags().BoolVar(&killAll, "all", false, "kill every running and scheduled job")
}

func runKill(cmd *cobra.Command, args []string) error {
	if killAll {
		killed, errorList := engine.KillAll()
		for _, killErr := range errorList {
			fmt.Println("ERROR: ", killErr)
		}
		fmt.Printf("Killed %d job(s)\n", killed)
		if len(errorList) != 0 {
			return errors.New("some jobs could not be killed")
		}
		return nil
	}

	if len(args) != 1 {
		return errors.New("give exactly one job id, or --all")
	}
	jobId, parseErr := uuid.Parse(args[0])
	if parseErr != nil {
		return fmt.Errorf("'%s' is not a valid job id", args[0])
	}

	if killErr := engine.Kill(jobId); killErr != nil {
		return killErr
	}
	fmt.Printf("Killed job %s\n", jobId)
	return nil
}
