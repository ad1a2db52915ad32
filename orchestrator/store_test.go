package orchestrator

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/desto-project/desto/common/models"
	"github.com/go-redis/redis/v7"
	"github.com/google/uuid"
)

func storeWithRedis(t *testing.T) (*JobStore, *miniredis.Miniredis) {
	s, startErr := miniredis.Run()
	if startErr != nil {
		t.Fatal("could not start test redis: ", startErr)
	}
	t.Cleanup(s.Close)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewJobStore(client), s
}

func storedJob(name string, status models.JobStatus, createdAt time.Time) *models.Job {
	return &models.Job{
		Id:          uuid.New(),
		SessionName: name,
		ScriptChain: []string{"/opt/scripts/run.sh"},
		Status:      status,
		CreatedAt:   createdAt,
		LogPath:     "/var/log/desto/" + name + ".log",
	}
}

func TestStorePutGetRedis(t *testing.T) {
	store, _ := storeWithRedis(t)
	job := storedJob("persisted", models.JOB_RUNNING, time.Now())
	store.Put(job)

	retrieved, getErr := store.Get(job.Id)
	if getErr != nil {
		t.Fatal("Get failed: ", getErr)
	}
	if retrieved.SessionName != "persisted" || retrieved.Status != models.JOB_RUNNING {
		t.Errorf("retrieved record does not match: %v", retrieved)
	}
}

func TestStoreGetSurvivesRedisOutage(t *testing.T) {
	store, mr := storeWithRedis(t)
	job := storedJob("survivor", models.JOB_RUNNING, time.Now())
	store.Put(job)

	mr.Close()

	retrieved, getErr := store.Get(job.Id)
	if getErr != nil {
		t.Fatal("the in-memory mirror should answer during an outage: ", getErr)
	}
	if retrieved.Id != job.Id {
		t.Error("mirror returned the wrong record")
	}
}

func TestStorePutDuringOutageDoesNotError(t *testing.T) {
	store, mr := storeWithRedis(t)
	mr.Close()

	job := storedJob("outage", models.JOB_RUNNING, time.Now())
	store.Put(job)

	if _, getErr := store.Get(job.Id); getErr != nil {
		t.Error("a write during an outage should still be readable: ", getErr)
	}
}

func TestStoreActiveIdForName(t *testing.T) {
	store, _ := storeWithRedis(t)
	running := storedJob("held", models.JOB_RUNNING, time.Now())
	store.Put(running)

	ownerId := store.ActiveIdForName("held")
	if ownerId == nil || *ownerId != running.Id {
		t.Error("the active name index did not report the holder")
	}
	if store.ActiveIdForName("free") != nil {
		t.Error("an unused name should report no holder")
	}

	running.SetKilled(time.Now())
	store.Put(running)
	if store.ActiveIdForName("held") != nil {
		t.Error("a terminal job should release its name")
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store, _ := storeWithRedis(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		store.Put(storedJob("job"+string(rune('a'+i)), models.JOB_RUNNING, base.Add(time.Duration(i)*time.Minute)))
	}

	listed := store.List(JobFilter{})
	if len(listed) != 5 {
		t.Fatalf("expected 5 jobs, got %d", len(listed))
	}
	for i := 1; i < len(listed); i++ {
		if listed[i].CreatedAt.After(listed[i-1].CreatedAt) {
			t.Error("listing is not newest-first")
		}
	}

	limited := store.List(JobFilter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("expected 2 jobs with a limit of 2, got %d", len(limited))
	}
	if limited[0].SessionName != "jobe" {
		t.Errorf("limited listing should start with the newest, got %s", limited[0].SessionName)
	}
}

func TestStoreListByStatus(t *testing.T) {
	store, _ := storeWithRedis(t)
	store.Put(storedJob("r1", models.JOB_RUNNING, time.Now()))
	store.Put(storedJob("r2", models.JOB_RUNNING, time.Now()))
	store.Put(storedJob("f1", models.JOB_FINISHED, time.Now()))

	runningStatus := models.JOB_RUNNING
	running := store.List(JobFilter{Status: &runningStatus})
	if len(running) != 2 {
		t.Errorf("expected 2 running jobs, got %d", len(running))
	}
	finishedStatus := models.JOB_FINISHED
	finished := store.List(JobFilter{Status: &finishedStatus})
	if len(finished) != 1 || finished[0].SessionName != "f1" {
		t.Errorf("unexpected finished listing %v", finished)
	}
}

func TestStoreDegradedListAndFilter(t *testing.T) {
	store := NewJobStore(nil)
	store.Put(storedJob("m1", models.JOB_RUNNING, time.Now().Add(-2*time.Minute)))
	store.Put(storedJob("m2", models.JOB_FINISHED, time.Now().Add(-time.Minute)))
	store.Put(storedJob("m3", models.JOB_RUNNING, time.Now()))

	all := store.List(JobFilter{})
	if len(all) != 3 || all[0].SessionName != "m3" {
		t.Errorf("unexpected degraded listing %v", all)
	}
	runningStatus := models.JOB_RUNNING
	running := store.List(JobFilter{Status: &runningStatus, Limit: 1})
	if len(running) != 1 || running[0].SessionName != "m3" {
		t.Errorf("unexpected filtered degraded listing %v", running)
	}
}

func TestStoreEventsRoundtrip(t *testing.T) {
	store, _ := storeWithRedis(t)
	job := storedJob("evented", models.JOB_FINISHED, time.Now())
	store.Put(job)
	store.AppendEvent(models.NewJobEvent(job, "script chain completed", time.Now()))

	events := store.EventsFor(job.Id)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Detail != "script chain completed" {
		t.Errorf("unexpected event detail %s", events[0].Detail)
	}

	if removeErr := store.Remove(job); removeErr != nil {
		t.Fatal("Remove failed: ", removeErr)
	}
	if len(store.EventsFor(job.Id)) != 0 {
		t.Error("events should go with their job")
	}
	if _, getErr := store.Get(job.Id); getErr != ErrJobNotFound {
		t.Error("expected ErrJobNotFound after removal, got ", getErr)
	}
}
