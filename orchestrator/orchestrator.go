// Package orchestrator is the job lifecycle engine: it turns a job
// specification into backend calls, tracks per-job status in the history
// store and reconciles that status against what the terminal multiplexer
// actually reports.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"sync"
	"time"

	"github.com/desto-project/desto/common/atjobs"
	"github.com/desto-project/desto/common/logtail"
	"github.com/desto-project/desto/common/models"
	"github.com/desto-project/desto/common/notify"
	"github.com/desto-project/desto/common/tmux"
	"github.com/google/uuid"
)

// Validation errors, always caller-fixable
var (
	ErrDuplicateName = errors.New("an active job already uses that session name")
	ErrEmptyChain    = errors.New("the script chain is empty")
	ErrEmptyName     = errors.New("a session name is required")
	ErrJobNotFound   = errors.New("no job with that id")
)

// SessionBackend is the slice of the tmux wrapper the engine depends on.
type SessionBackend interface {
	NewSessionWithCommand(name string, commandLine string) error
	ListSessions() ([]string, error)
	GetSessionSet() (*tmux.SessionSet, error)
	KillSession(name string) error
}

// Scheduler is the slice of the at wrapper the engine depends on.
type Scheduler interface {
	Submit(runAt time.Time, commandLine string) (string, error)
	Cancel(jobId string) error
	List() ([]atjobs.PendingJob, error)
}

// JobSpec is what a front end submits. Script references have already been
// resolved to executable command lines by the caller.
type JobSpec struct {
	SessionName  string             `json:"session_name"`
	ScriptChain  []string           `json:"script_chain"`
	ChainPolicy  models.ChainPolicy `json:"chain_policy"`
	KeepAlive    bool               `json:"keep_alive"`
	ScheduleTime *time.Time         `json:"schedule_time"`
}

type Engine struct {
	backend       SessionBackend
	scheduler     Scheduler
	store         *JobStore
	dispatcher    *notify.Dispatcher
	tailer        *logtail.Tailer
	logDir        string
	scheduleGrace time.Duration

	//serialises submissions per session name, so a race between two submits
	//for the same name resolves into a deterministic DuplicateName failure.
	//entries are refcounted and dropped once the last holder releases, so the
	//map does not accumulate an entry per session name ever seen.
	nameGuards map[string]*nameGuard
	guardLock  sync.Mutex
}

type nameGuard struct {
	sync.Mutex
	refs int
}

func NewEngine(backend SessionBackend, scheduler Scheduler, store *JobStore, dispatcher *notify.Dispatcher, tailer *logtail.Tailer, logDir string, scheduleGrace time.Duration) *Engine {
	return &Engine{
		backend:       backend,
		scheduler:     scheduler,
		store:         store,
		dispatcher:    dispatcher,
		tailer:        tailer,
		logDir:        logDir,
		scheduleGrace: scheduleGrace,
		nameGuards:    make(map[string]*nameGuard),
	}
}

func (e *Engine) lockName(sessionName string) *nameGuard {
	e.guardLock.Lock()
	guard, present := e.nameGuards[sessionName]
	if !present {
		guard = &nameGuard{}
		e.nameGuards[sessionName] = guard
	}
	guard.refs++
	e.guardLock.Unlock()

	guard.Lock()
	return guard
}

func (e *Engine) unlockName(sessionName string, guard *nameGuard) {
	guard.Unlock()

	e.guardLock.Lock()
	guard.refs--
	if guard.refs == 0 {
		delete(e.nameGuards, sessionName)
	}
	e.guardLock.Unlock()
}

func (e *Engine) logPathFor(sessionName string) string {
	return path.Join(e.logDir, sessionName+".log")
}

/*
*
Submit validates the given JobSpec, hands the job to the backend (immediately, or via
the deferred-execution facility when a schedule time is given) and persists
the tracked record. Nothing is persisted when the backend or scheduler call
fails.
*/
func (e *Engine) Submit(spec JobSpec) (*models.Job, error) {
	if spec.SessionName == "" {
		return nil, ErrEmptyName
	}
	if len(spec.ScriptChain) == 0 {
		return nil, ErrEmptyChain
	}

	guard := e.lockName(spec.SessionName)
	defer e.unlockName(spec.SessionName, guard)

	if ownerId := e.store.ActiveIdForName(spec.SessionName); ownerId != nil {
		log.Printf("Session name '%s' is held by active job %s", spec.SessionName, *ownerId)
		return nil, ErrDuplicateName
	}

	job := &models.Job{
		Id:           uuid.New(),
		SessionName:  spec.SessionName,
		ScriptChain:  spec.ScriptChain,
		ChainPolicy:  spec.ChainPolicy,
		KeepAlive:    spec.KeepAlive,
		ScheduleTime: spec.ScheduleTime,
		CreatedAt:    time.Now(),
		LogPath:      e.logPathFor(spec.SessionName),
	}

	appendMode := false
	if _, statErr := os.Stat(job.LogPath); statErr == nil {
		appendMode = true
	}

	if spec.ScheduleTime != nil {
		schedulerRef, submitErr := e.scheduler.Submit(*spec.ScheduleTime, BuildScheduledCommandLine(job, appendMode))
		if submitErr != nil {
			log.Printf("Could not schedule job for session '%s': %s", spec.SessionName, submitErr)
			return nil, submitErr
		}
		job.Status = models.JOB_SCHEDULED
		job.SchedulerRef = schedulerRef
		e.store.Put(job)
		log.Printf("Scheduled job %s for session '%s' at %s (at job %s)", job.Id, job.SessionName, spec.ScheduleTime, schedulerRef)
		return job, nil
	}

	createErr := e.backend.NewSessionWithCommand(spec.SessionName, BuildCommandLine(job, appendMode))
	if createErr != nil {
		if errors.Is(createErr, tmux.ErrSessionExists) {
			return nil, ErrDuplicateName
		}
		log.Printf("Could not create backend session '%s': %s", spec.SessionName, createErr)
		return nil, createErr
	}
	job.SetRunning(time.Now())
	e.store.Put(job)
	log.Printf("Started job %s in session '%s'", job.Id, job.SessionName)
	return job, nil
}

func (e *Engine) Get(forId uuid.UUID) (*models.Job, error) {
	return e.store.Get(forId)
}

func (e *Engine) List(filter JobFilter) []models.Job {
	return e.store.List(filter)
}

func (e *Engine) Events(forId uuid.UUID) []models.JobEvent {
	return e.store.EventsFor(forId)
}

/*
*
Kill terminates a job: a scheduled job has its pending submission cancelled, a
running job has its backend session killed. Killing a job that is already in
a terminal state (or unknown) is a no-op that reports success.
*/
func (e *Engine) Kill(forId uuid.UUID) error {
	job, getErr := e.store.Get(forId)
	if getErr != nil {
		return getErr
	}

	switch job.Status {
	case models.JOB_SCHEDULED:
		cancelErr := e.scheduler.Cancel(job.SchedulerRef)
		if cancelErr != nil && !errors.Is(cancelErr, atjobs.ErrJobNotFound) {
			return cancelErr
		}
		if errors.Is(cancelErr, atjobs.ErrJobNotFound) {
			//benign race: the submission fired or was cancelled elsewhere.
			//if it did fire, take the session down too.
			log.Printf("at job %s for job %s was already gone when cancelling", job.SchedulerRef, job.Id)
			if killErr := e.backend.KillSession(job.SessionName); killErr != nil && !errors.Is(killErr, tmux.ErrSessionNotFound) {
				return killErr
			}
		}
		job.SetKilled(time.Now())
		e.recordTerminal(job, "cancelled before the schedule fired")
		return nil
	case models.JOB_RUNNING:
		killErr := e.backend.KillSession(job.SessionName)
		if killErr != nil && !errors.Is(killErr, tmux.ErrSessionNotFound) {
			return killErr
		}
		job.SetKilled(time.Now())
		e.recordTerminal(job, "backend session killed on request")
		return nil
	default:
		log.Printf("Kill of job %s in state %s is a no-op", job.Id, job.Status)
		return nil
	}
}

/*
*
KillAll terminates every scheduled and running job. Failures are collected
per job so one stuck session doesn't leave the rest untouched.
*/
func (e *Engine) KillAll() (int, []error) {
	errorList := make([]error, 0)
	killed := 0

	for _, status := range []models.JobStatus{models.JOB_SCHEDULED, models.JOB_RUNNING} {
		statusCopy := status
		for _, job := range e.store.List(JobFilter{Status: &statusCopy}) {
			if killErr := e.Kill(job.Id); killErr != nil {
				errorList = append(errorList, fmt.Errorf("could not kill job %s (session '%s'): %w", job.Id, job.SessionName, killErr))
			} else {
				killed++
			}
		}
	}
	return killed, errorList
}

/*
*
Tail opens a live line sequence over the job's captured log. The sequence ends
once the log stops growing for the tailer's debounce interval, or when the
context is cancelled.
*/
func (e *Engine) Tail(ctx context.Context, forId uuid.UUID) (chan string, error) {
	job, getErr := e.store.Get(forId)
	if getErr != nil {
		return nil, getErr
	}
	return e.tailer.Open(ctx, job.LogPath)
}

/*
*
LogWindow returns the last `lines` lines of the job's log in one shot
*/
func (e *Engine) LogWindow(forId uuid.UUID, lines int) ([]string, error) {
	job, getErr := e.store.Get(forId)
	if getErr != nil {
		return nil, getErr
	}
	return logtail.LastLines(job.LogPath, lines)
}

/*
*
record a terminal transition: persist, append the completion event and fire
the notification hook. Notification failures never propagate.
*/
func (e *Engine) recordTerminal(job *models.Job, detail string) {
	e.store.Put(job)
	endTime := time.Now()
	if job.EndedAt != nil {
		endTime = *job.EndedAt
	}
	e.store.AppendEvent(models.NewJobEvent(job, detail, endTime))
	e.dispatcher.Notify(job, detail)
	log.Printf("Job %s (session '%s') reached %s: %s", job.Id, job.SessionName, job.Status, detail)
}
