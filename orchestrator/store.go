package orchestrator

import (
	"log"
	"sort"
	"sync"

	"github.com/desto-project/desto/common/models"
	"github.com/go-redis/redis/v7"
	"github.com/google/uuid"
)

type JobFilter struct {
	Status *models.JobStatus
	Limit  int64 //0 means no limit
}

/*
*
JobStore wraps the redis history persistence with an in-memory mirror. Every
write lands in the mirror first, then in redis best-effort: if the datastore
is unreachable the engine keeps operating on the mirror alone and history from
the outage window is simply shorter, never an error. The mirror is scoped to
the process lifetime.
*/
type JobStore struct {
	redisClient *redis.Client //may be nil, which means permanent degraded mode
	memory      map[uuid.UUID]*models.Job
	mutex       sync.RWMutex
}

func NewJobStore(redisClient *redis.Client) *JobStore {
	return &JobStore{
		redisClient: redisClient,
		memory:      make(map[uuid.UUID]*models.Job),
	}
}

func (s *JobStore) Put(job *models.Job) {
	s.mutex.Lock()
	jobCopy := *job
	s.memory[job.Id] = &jobCopy
	s.mutex.Unlock()

	if s.redisClient == nil {
		return
	}
	if storeErr := job.Store(s.redisClient); storeErr != nil {
		log.Printf("WARNING: history store unreachable, tracking job %s in memory only: %s", job.Id, storeErr)
	}
}

func (s *JobStore) Get(forId uuid.UUID) (*models.Job, error) {
	if s.redisClient != nil {
		job, getErr := models.JobForId(forId, s.redisClient)
		if getErr == nil {
			return job, nil
		}
		if getErr != redis.Nil {
			log.Printf("WARNING: history store unreachable, falling back to the in-memory mirror: %s", getErr)
		}
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if job, present := s.memory[forId]; present {
		jobCopy := *job
		return &jobCopy, nil
	}
	return nil, ErrJobNotFound
}

/*
*
returns the id of the active job holding the given session name, or nil if the
name is free. Consults the datastore index first (that is the cross-process
source of truth) and the in-memory mirror when degraded.
*/
func (s *JobStore) ActiveIdForName(sessionName string) *uuid.UUID {
	if s.redisClient != nil {
		ownerId, lookupErr := models.ActiveJobIdForName(sessionName, s.redisClient)
		if lookupErr == nil {
			return ownerId
		}
		log.Printf("WARNING: could not consult the active name index, falling back to the in-memory mirror: %s", lookupErr)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, job := range s.memory {
		if job.SessionName == sessionName && job.Status.IsActive() {
			idCopy := job.Id
			return &idCopy
		}
	}
	return nil
}

/*
*
List returns jobs newest-first, optionally filtered by status
*/
func (s *JobStore) List(filter JobFilter) []models.Job {
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}

	if s.redisClient != nil {
		//ListJobs takes an inclusive stop index rather than a count
		stopIndex := limit
		if stopIndex > 0 {
			stopIndex = limit - 1
		}
		jobs, _, listErr := models.ListJobs(0, stopIndex, s.redisClient, models.SORT_CTIME, filter.Status)
		if listErr == nil {
			return *jobs
		}
		log.Printf("WARNING: could not list jobs from the history store, falling back to the in-memory mirror: %s", listErr)
	}

	s.mutex.RLock()
	rtn := make([]models.Job, 0, len(s.memory))
	for _, job := range s.memory {
		if filter.Status != nil && job.Status != *filter.Status {
			continue
		}
		rtn = append(rtn, *job)
	}
	s.mutex.RUnlock()

	sort.Slice(rtn, func(i, j int) bool {
		return rtn[i].CreatedAt.After(rtn[j].CreatedAt)
	})
	if limit > 0 && int64(len(rtn)) > limit {
		rtn = rtn[:limit]
	}
	return rtn
}

func (s *JobStore) AppendEvent(event models.JobEvent) {
	if s.redisClient == nil {
		return
	}
	if storeErr := event.Store(s.redisClient); storeErr != nil {
		log.Printf("WARNING: could not record completion event for job %s: %s", event.JobId, storeErr)
	}
}

func (s *JobStore) EventsFor(forId uuid.UUID) []models.JobEvent {
	if s.redisClient == nil {
		return []models.JobEvent{}
	}
	events, getErr := models.EventsForJob(forId, s.redisClient)
	if getErr != nil {
		log.Printf("WARNING: could not read completion events for job %s: %s", forId, getErr)
		return []models.JobEvent{}
	}
	return events
}

func (s *JobStore) Remove(job *models.Job) error {
	s.mutex.Lock()
	delete(s.memory, job.Id)
	s.mutex.Unlock()

	if s.redisClient == nil {
		return nil
	}
	if removeErr := models.RemoveEventsFor(job.Id, s.redisClient); removeErr != nil {
		return removeErr
	}
	return job.Remove(s.redisClient)
}
