package main

import (
	"fmt"
	"time"

	"github.com/desto-project/desto/common/models"
	"github.com/desto-project/desto/orchestrator"
	"github.com/spf13/cobra"
)

var (
	launchName      string
	launchKeepAlive bool
	launchOnError   string
	launchAt        string
)

var launchCmd = &cobra.Command{
	Use:   "launch <script> [script...]",
	Short: "Run a script chain in a new tmux session",
	Long: `Launch one or more scripts as a chain inside a detached tmux session.
Bare script names are resolved in the configured scripts directory.

Examples:
  desto launch backup --name nightly-backup
  desto launch fetch.sh process.py --name pipeline --on-error continue
  desto launch backup --name nightly --at "2026-09-01 03:00"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)
	launchCmd.Flags().StringVarP(&launchName, "name", "n", "", "session name (required)")
	launchCmd.Flags().BoolVar(&launchKeepAlive, "keep-alive", false, "keep the session open after the chain completes")
	launchCmd.Flags().StringVar(&launchOnError, "on-error", "", "chain behaviour when a script fails: stop or continue (defaults to the configured chainPolicy)")
	launchCmd.Flags().StringVar(&launchAt, "at", "", "defer the launch until this time (2006-01-02 15:04)")
	launchCmd.MarkFlagRequired("name")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	chain, chainErr := ResolveChain(appConfig.Dirs.Scripts, args)
	if chainErr != nil {
		return chainErr
	}

	policyName := launchOnError
	if policyName == "" {
		policyName = appConfig.ChainPolicy
	}
	var policy models.ChainPolicy
	switch policyName {
	case "", "stop", "stop_on_error":
		policy = models.CHAIN_STOP_ON_ERROR
	case "continue", "run_regardless":
		policy = models.CHAIN_RUN_REGARDLESS
	default:
		return fmt.Errorf("--on-error must be 'stop' or 'continue', not '%s'", policyName)
	}

	spec := orchestrator.JobSpec{
		SessionName: launchName,
		ScriptChain: chain,
		ChainPolicy: policy,
		KeepAlive:   launchKeepAlive,
	}

	if launchAt != "" {
		runAt, parseErr := time.ParseInLocation("2006-01-02 15:04", launchAt, time.Local)
		if parseErr != nil {
			return fmt.Errorf("could not understand the --at time '%s': %s", launchAt, parseErr)
		}
		spec.ScheduleTime = &runAt
	}

	job, submitErr := engine.Submit(spec)
	if submitErr != nil {
		return submitErr
	}

	if job.Status == models.JOB_SCHEDULED {
		fmt.Printf("Scheduled job %s as session '%s' for %s\n", job.Id, job.SessionName, job.ScheduleTime.Format("2006-01-02 15:04"))
	} else {
		fmt.Printf("Started job %s in session '%s', logging to %s\n", job.Id, job.SessionName, job.LogPath)
	}
	return nil
}
