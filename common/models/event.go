package models

import (
	"fmt"
	"github.com/go-redis/redis/v7"
	"github.com/google/uuid"
	"log"
	"time"
)

/*
*
a JobEvent records one terminal-state transition observed for a job. Events are
stored as individual redis hashes, linked from a per-job list so that history
reads back in transition order.
*/
type JobEvent struct {
	Id        uuid.UUID `json:"id" mapstructure:"id"`
	JobId     uuid.UUID `json:"job_id" mapstructure:"job_id"`
	Status    JobStatus `json:"status" mapstructure:"status"`
	Timestamp time.Time `json:"timestamp" mapstructure:"timestamp"`
	Detail    string    `json:"detail" mapstructure:"detail"`
}

func NewJobEvent(forJob *Job, detail string, atTime time.Time) JobEvent {
	return JobEvent{
		Id:        uuid.New(),
		JobId:     forJob.Id,
		Status:    forJob.Status,
		Timestamp: atTime,
		Detail:    detail,
	}
}

func eventDbKey(forId uuid.UUID) string {
	return fmt.Sprintf("desto:jobevent:%s", forId)
}

func eventListKey(forJob uuid.UUID) string {
	return fmt.Sprintf("desto:events:%s", forJob)
}

func (ev JobEvent) Store(redisClient redis.Cmdable) error {
	p := redisClient.Pipeline()
	dbKey := eventDbKey(ev.Id)
	p.HSet(dbKey, "id", ev.Id.String())
	p.HSet(dbKey, "job_id", ev.JobId.String())
	p.HSet(dbKey, "status", int(ev.Status))
	p.HSet(dbKey, "timestamp", ev.Timestamp.Format(time.RFC3339))
	p.HSet(dbKey, "detail", ev.Detail)
	p.RPush(eventListKey(ev.JobId), ev.Id.String())
	_, err := p.Exec()
	if err != nil {
		log.Printf("Could not store event %s for job %s: %s", ev.Id, ev.JobId, err)
	}
	return err
}

func jobEventFromMap(content map[string]string) (*JobEvent, error) {
	var ev JobEvent
	decodeErr := CustomisedMapStructureDecode(content, &ev)
	if decodeErr != nil {
		return nil, decodeErr
	}
	return &ev, nil
}

/*
*
retrieve the events recorded for the given job, oldest first
*/
func EventsForJob(forJob uuid.UUID, redisClient redis.Cmdable) ([]JobEvent, error) {
	eventIds, rangeErr := redisClient.LRange(eventListKey(forJob), 0, -1).Result()
	if rangeErr != nil {
		log.Printf("Could not range the event list for job %s: %s", forJob, rangeErr)
		return nil, rangeErr
	}

	pipe := redisClient.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(eventIds))
	for i, eventId := range eventIds {
		cmds[i] = pipe.HGetAll(fmt.Sprintf("desto:jobevent:%s", eventId))
	}
	_, execErr := pipe.Exec()
	if execErr != nil {
		log.Printf("Could not retrieve event data for job %s: %s", forJob, execErr)
		return nil, execErr
	}

	rtn := make([]JobEvent, 0, len(cmds))
	for _, cmd := range cmds {
		content, getErr := cmd.Result()
		if getErr != nil || len(content) == 0 {
			log.Printf("WARNING: missing event data referenced by the event list for job %s", forJob)
			continue
		}
		ev, decodeErr := jobEventFromMap(content)
		if decodeErr != nil {
			log.Printf("Could not decode event data for job %s: %s. Offending data was %v.", forJob, decodeErr, content)
			return nil, decodeErr
		}
		rtn = append(rtn, *ev)
	}
	return rtn, nil
}

/*
*
remove all events recorded for the given job, e.g. when its record is reaped
*/
func RemoveEventsFor(forJob uuid.UUID, redisClient redis.Cmdable) error {
	eventIds, rangeErr := redisClient.LRange(eventListKey(forJob), 0, -1).Result()
	if rangeErr != nil {
		return rangeErr
	}

	p := redisClient.Pipeline()
	for _, eventId := range eventIds {
		p.Del(fmt.Sprintf("desto:jobevent:%s", eventId))
	}
	p.Del(eventListKey(forJob))
	_, err := p.Exec()
	return err
}
