package tmux

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"os/exec"
	"strings"
	"time"
)

// Common errors
var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotAvailable    = errors.New("tmux could not be invoked")
)

/*
*
commandRunner invokes one external process and captures its output. exitCode is
-1 when the process could not be started or did not run to completion; runErr is
only set in that case. A non-zero exit from the process itself is reported
through exitCode with runErr nil.
*/
type commandRunner func(timeout time.Duration, name string, args ...string) (stdout []byte, stderr []byte, exitCode int, runErr error)

/*
*
run the given command synchronously and capture output, bounded by the timeout.
*/
func runCommand(timeout time.Duration, name string, args ...string) ([]byte, []byte, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	outPipe, _ := cmd.StdoutPipe()
	errPipe, _ := cmd.StderrPipe()

	startErr := cmd.Start()
	if startErr != nil {
		log.Print("Could not start command: ", startErr)
		return nil, nil, -1, startErr
	}

	outContent, _ := ioutil.ReadAll(outPipe)
	errContent, _ := ioutil.ReadAll(errPipe)

	completeErr := cmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		log.Printf("Command %s timed out after %s", name, timeout)
		return outContent, errContent, -1, ctx.Err()
	}
	if completeErr != nil {
		exitErr, isExitError := completeErr.(*exec.ExitError)
		if isExitError {
			return outContent, errContent, exitErr.ExitCode(), nil
		}
		log.Print("Could not run subprocess: ", completeErr)
		return outContent, errContent, -1, completeErr
	}

	return outContent, errContent, 0, nil
}

// Tmux wraps the tmux cli. It owns no state; every method is one synchronous
// subprocess invocation with a parsed result.
type Tmux struct {
	Timeout time.Duration
	run     commandRunner
}

func NewTmux() *Tmux {
	return &Tmux{
		Timeout: 10 * time.Second,
		run:     runCommand,
	}
}

// SessionSet is a set of tmux session names.
type SessionSet struct {
	Names map[string]bool
}

func (s *SessionSet) Has(name string) bool {
	if s == nil || s.Names == nil {
		return false
	}
	return s.Names[name]
}

/*
*
NewSessionWithCommand creates a detached session with the given name, running
the given command line under bash. Fails with ErrSessionExists if the name is
taken and ErrNotAvailable if tmux can't be run.
*/
func (t *Tmux) NewSessionWithCommand(name string, commandLine string) error {
	_, stderr, exitCode, runErr := t.run(t.Timeout, "tmux", "new-session", "-d", "-s", name, "bash", "-c", commandLine)
	if runErr != nil {
		return fmt.Errorf("%w: %s", ErrNotAvailable, runErr)
	}
	if exitCode != 0 {
		if strings.Contains(string(stderr), "duplicate session") {
			return ErrSessionExists
		}
		return fmt.Errorf("tmux new-session exited %d: %s", exitCode, strings.TrimSpace(string(stderr)))
	}
	return nil
}

/*
*
ListSessions returns the names of all sessions the server knows about.
"no server running" is not an error, it just means there are no sessions.
*/
func (t *Tmux) ListSessions() ([]string, error) {
	stdout, stderr, exitCode, runErr := t.run(t.Timeout, "tmux", "list-sessions", "-F", "#{session_name}")
	if runErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAvailable, runErr)
	}
	if exitCode != 0 {
		stderrStr := string(stderr)
		if strings.Contains(stderrStr, "no server running") || strings.Contains(stderrStr, "No such file or directory") {
			return []string{}, nil
		}
		return nil, fmt.Errorf("tmux list-sessions exited %d: %s", exitCode, strings.TrimSpace(stderrStr))
	}

	names := make([]string, 0)
	for _, line := range strings.Split(string(stdout), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names, nil
}

func (t *Tmux) GetSessionSet() (*SessionSet, error) {
	names, err := t.ListSessions()
	if err != nil {
		return nil, err
	}
	set := &SessionSet{Names: make(map[string]bool, len(names))}
	for _, name := range names {
		set.Names[name] = true
	}
	return set, nil
}

func (t *Tmux) HasSession(name string) (bool, error) {
	_, stderr, exitCode, runErr := t.run(t.Timeout, "tmux", "has-session", "-t", name)
	if runErr != nil {
		return false, fmt.Errorf("%w: %s", ErrNotAvailable, runErr)
	}
	if exitCode != 0 {
		stderrStr := string(stderr)
		if strings.Contains(stderrStr, "no server running") || strings.Contains(stderrStr, "can't find session") || strings.Contains(stderrStr, "session not found") {
			return false, nil
		}
		return false, fmt.Errorf("tmux has-session exited %d: %s", exitCode, strings.TrimSpace(stderrStr))
	}
	return true, nil
}

/*
*
KillSession terminates the named session. Killing a session that is already
gone reports ErrSessionNotFound; callers that only care that the session is
gone may treat that as success.
*/
func (t *Tmux) KillSession(name string) error {
	_, stderr, exitCode, runErr := t.run(t.Timeout, "tmux", "kill-session", "-t", name)
	if runErr != nil {
		return fmt.Errorf("%w: %s", ErrNotAvailable, runErr)
	}
	if exitCode != 0 {
		stderrStr := string(stderr)
		if strings.Contains(stderrStr, "no server running") || strings.Contains(stderrStr, "can't find session") || strings.Contains(stderrStr, "session not found") {
			return ErrSessionNotFound
		}
		return fmt.Errorf("tmux kill-session exited %d: %s", exitCode, strings.TrimSpace(stderrStr))
	}
	return nil
}

/*
*
SendKeys types the given literal text into the session, followed by Enter.
*/
func (t *Tmux) SendKeys(session string, keys string) error {
	_, stderr, exitCode, runErr := t.run(t.Timeout, "tmux", "send-keys", "-t", session, keys, "Enter")
	if runErr != nil {
		return fmt.Errorf("%w: %s", ErrNotAvailable, runErr)
	}
	if exitCode != 0 {
		stderrStr := string(stderr)
		if strings.Contains(stderrStr, "can't find session") || strings.Contains(stderrStr, "session not found") {
			return ErrSessionNotFound
		}
		return fmt.Errorf("tmux send-keys exited %d: %s", exitCode, strings.TrimSpace(stderrStr))
	}
	return nil
}
