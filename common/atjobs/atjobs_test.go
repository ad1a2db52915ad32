package atjobs

import (
	"errors"
	"testing"
	"time"
)

type fakeRunner struct {
	stdout   string
	stderr   string
	exitCode int
	runErr   error
	gotStdin string
	gotArgs  []string
}

func (f *fakeRunner) run(timeout time.Duration, stdin string, name string, args ...string) ([]byte, []byte, int, error) {
	f.gotStdin = stdin
	f.gotArgs = append([]string{name}, args...)
	return []byte(f.stdout), []byte(f.stderr), f.exitCode, f.runErr
}

func testScheduler(f *fakeRunner) *AtScheduler {
	return &AtScheduler{Timeout: time.Second, run: f.run}
}

func TestSubmit(t *testing.T) {
	f := &fakeRunner{stderr: "warning: commands will be executed using /bin/sh\njob 42 at Sat Jul 20 12:00:00 2025"}
	jobId, err := testScheduler(f).Submit(time.Now().Add(time.Hour), "tmux new-session -d -s nightly 'bash -c run.sh'")
	if err != nil {
		t.Fatal("Submit failed unexpectedly: ", err)
	}
	if jobId != "42" {
		t.Errorf("wrong job id parsed, expected 42 got '%s'", jobId)
	}
	if f.gotArgs[0] != "at" || f.gotArgs[1] != "-t" {
		t.Errorf("wrong at invocation: %v", f.gotArgs)
	}
	if f.gotStdin != "tmux new-session -d -s nightly 'bash -c run.sh'\n" {
		t.Errorf("command line was not piped to stdin, got '%s'", f.gotStdin)
	}
}

func TestSubmitPastTime(t *testing.T) {
	f := &fakeRunner{}
	_, err := testScheduler(f).Submit(time.Now().Add(-time.Minute), "echo hello")
	if !errors.Is(err, ErrPastTime) {
		t.Errorf("expected ErrPastTime, got %v", err)
	}
	if f.gotArgs != nil {
		t.Error("at should not have been invoked for a past time")
	}
}

func TestSubmitNotInstalled(t *testing.T) {
	f := &fakeRunner{exitCode: -1, runErr: errors.New("exec: \"at\": executable file not found in $PATH")}
	_, err := testScheduler(f).Submit(time.Now().Add(time.Hour), "echo hello")
	if !errors.Is(err, ErrNotAvailable) {
		t.Errorf("expected ErrNotAvailable, got %v", err)
	}
}

func TestSubmitUnparseableOutput(t *testing.T) {
	f := &fakeRunner{stderr: "something unexpected"}
	_, err := testScheduler(f).Submit(time.Now().Add(time.Hour), "echo hello")
	if err == nil {
		t.Error("expected an error when no job id is present in the output")
	}
}

func TestCancel(t *testing.T) {
	f := &fakeRunner{}
	err := testScheduler(f).Cancel("42")
	if err != nil {
		t.Error("Cancel failed unexpectedly: ", err)
	}
	if len(f.gotArgs) != 2 || f.gotArgs[0] != "atrm" || f.gotArgs[1] != "42" {
		t.Errorf("wrong atrm invocation: %v", f.gotArgs)
	}
}

func TestCancelAlreadyFired(t *testing.T) {
	f := &fakeRunner{stderr: "Cannot find jobid 42", exitCode: 1}
	err := testScheduler(f).Cancel("42")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	f := &fakeRunner{stdout: "42\tSat Jul 20 12:00:00 2025 a alice\n43\tSun Jul 21 09:30:00 2025 a bob\n"}
	jobs, err := testScheduler(f).List()
	if err != nil {
		t.Fatal("List failed unexpectedly: ", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 pending jobs, got %d", len(jobs))
	}
	if jobs[0].Id != "42" || jobs[0].Queue != "a" || jobs[0].Username != "alice" {
		t.Errorf("first entry parsed wrongly: %+v", jobs[0])
	}
	if jobs[0].RunAt.IsZero() {
		t.Error("run time should have been parsed for the first entry")
	}
	if jobs[0].RunAt.Year() != 2025 || jobs[0].RunAt.Hour() != 12 {
		t.Errorf("wrong run time parsed: %s", jobs[0].RunAt)
	}
}

func TestListEmpty(t *testing.T) {
	f := &fakeRunner{stdout: ""}
	jobs, err := testScheduler(f).List()
	if err != nil {
		t.Fatal("List failed unexpectedly: ", err)
	}
	if len(jobs) != 0 {
		t.Errorf("expected an empty queue, got %d entries", len(jobs))
	}
}
