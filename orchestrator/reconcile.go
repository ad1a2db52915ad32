package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/davecgh/go-spew/spew"
	mapset "github.com/deckarep/golang-set"
	"github.com/desto-project/desto/common/models"
)

/*
*
Reconcile walks every scheduled and running job and lines the tracked state up
with what the backend actually reports. It is safe to run concurrently with
submissions and repeatedly: a pass over an already-consistent store changes
nothing.

Transitions applied:
  - Scheduled and the session has appeared: the deferred submission fired,
    the job becomes Running.
  - Scheduled, overdue past the grace window, no session and the submission
    no longer pending: the job becomes Failed.
  - Running and the session is gone: the exit marker in the log decides
    Finished or Failed; a log without a marker means the session died
    without completing, which is Unknown.
  - Running, session still up, but the marker is already in the log: a
    keep-alive job whose chain completed. It becomes Finished or Failed
    while the session stays around for inspection.
*/
func (e *Engine) Reconcile() error {
	sessionNames, listErr := e.backend.ListSessions()
	if listErr != nil {
		log.Printf("ERROR: Reconcile could not list backend sessions: %s", listErr)
		return listErr
	}
	liveSessions := mapset.NewSet()
	for _, name := range sessionNames {
		liveSessions.Add(name)
	}

	pendingRefs := mapset.NewSet()
	if pending, pendingErr := e.scheduler.List(); pendingErr == nil {
		for _, entry := range pending {
			pendingRefs.Add(entry.Id)
		}
	} else {
		log.Printf("WARNING: Reconcile could not list the pending schedule queue: %s", pendingErr)
	}

	now := time.Now()

	scheduledStatus := models.JOB_SCHEDULED
	for _, job := range e.store.List(JobFilter{Status: &scheduledStatus}) {
		jobCopy := job
		e.reconcileScheduled(&jobCopy, liveSessions, pendingRefs, now)
	}

	runningStatus := models.JOB_RUNNING
	for _, job := range e.store.List(JobFilter{Status: &runningStatus}) {
		jobCopy := job
		e.reconcileRunning(&jobCopy, liveSessions, now)
	}
	return nil
}

func (e *Engine) reconcileScheduled(job *models.Job, liveSessions mapset.Set, pendingRefs mapset.Set, now time.Time) {
	if liveSessions.Contains(job.SessionName) {
		job.SetRunning(now)
		e.store.Put(job)
		log.Printf("Scheduled job %s fired, session '%s' is up", job.Id, job.SessionName)
		return
	}
	if job.ScheduleTime == nil {
		log.Printf("ERROR: Scheduled job without a schedule time: %s", spew.Sdump(*job))
		job.SetUnknown("scheduled job record has no schedule time")
		e.store.Put(job)
		return
	}
	overdue := now.Sub(*job.ScheduleTime)
	if overdue > e.scheduleGrace && !pendingRefs.Contains(job.SchedulerRef) {
		job.SetFailed(now, "the scheduled time passed but no session ever appeared", nil)
		e.recordTerminal(job, "the scheduled time passed but no session ever appeared")
	}
}

func (e *Engine) reconcileRunning(job *models.Job, liveSessions mapset.Set, now time.Time) {
	exitCode := ParseExitMarker(job.LogPath)
	sessionUp := liveSessions.Contains(job.SessionName)

	if sessionUp && exitCode == nil {
		return //still running, nothing to do
	}

	if exitCode != nil {
		if *exitCode == 0 {
			job.SetFinished(now, 0)
			e.recordTerminal(job, "script chain completed")
		} else {
			job.SetFailed(now, "script chain exited non-zero", exitCode)
			e.recordTerminal(job, "script chain exited non-zero")
		}
		return
	}

	//session is gone and the log carries no completion marker
	job.SetUnknown("the session disappeared without a completion marker")
	e.store.Put(job)
	e.store.AppendEvent(models.NewJobEvent(job, "the session disappeared without a completion marker", now))
	log.Printf("WARNING: Job %s (session '%s') vanished without completing", job.Id, job.SessionName)
}

/*
*
RunReconcileLoop runs Reconcile on a fixed ticker until the context is
cancelled. Individual pass failures are logged and the loop carries on.
*/
func (e *Engine) RunReconcileLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Print("Reconcile loop shutting down")
			return
		case <-ticker.C:
			if reconcileErr := e.Reconcile(); reconcileErr != nil {
				log.Printf("ERROR: Reconcile pass failed: %s", reconcileErr)
			}
		}
	}
}
