package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:   "attach <session-name|jobId>",
	Short: "Attach the terminal to a job's tmux session",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	sessionName := args[0]

	//a job id is accepted too and resolved to its session name
	if jobId, parseErr := uuid.Parse(args[0]); parseErr == nil {
		job, getErr := engine.Get(jobId)
		if getErr != nil {
			return getErr
		}
		sessionName = job.SessionName
	}

	fmt.Printf("Attaching to session '%s' (detach with ctrl-b d)\n", sessionName)
	attach := exec.Command("tmux", "attach-session", "-t", sessionName)
	attach.Stdin = os.Stdin
	attach.Stdout = os.Stdout
	attach.Stderr = os.Stderr
	return attach.Run()
}
