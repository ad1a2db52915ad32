package models

import (
	"encoding/json"
	"fmt"
	"github.com/go-redis/redis/v7"
	"github.com/google/uuid"
	"log"
	"time"
)

type JobStatus int

const (
	JOB_SCHEDULED JobStatus = iota
	JOB_RUNNING
	JOB_FINISHED
	JOB_FAILED
	JOB_KILLED
	JOB_UNKNOWN
)

/*
*
a job is "active" while it still owns its session name
*/
func (s JobStatus) IsActive() bool {
	return s == JOB_SCHEDULED || s == JOB_RUNNING
}

func (s JobStatus) IsTerminal() bool {
	return s == JOB_FINISHED || s == JOB_FAILED || s == JOB_KILLED
}

func (s JobStatus) String() string {
	switch s {
	case JOB_SCHEDULED:
		return "scheduled"
	case JOB_RUNNING:
		return "running"
	case JOB_FINISHED:
		return "finished"
	case JOB_FAILED:
		return "failed"
	case JOB_KILLED:
		return "killed"
	case JOB_UNKNOWN:
		return "unknown"
	default:
		return fmt.Sprintf("invalid (%d)", int(s))
	}
}

type ChainPolicy int

const (
	CHAIN_STOP_ON_ERROR ChainPolicy = iota
	CHAIN_RUN_REGARDLESS
)

type JobSort int

const (
	SORT_NONE JobSort = iota
	SORT_CTIME
	SORT_CTIME_OLDEST
)

const (
	REDIDX_CTIME      = "desto:job:ctimeindex"
	JOBIDX_STATUS     = "desto:job:statusindex"
	JOBIDX_ACTIVENAME = "desto:job:activename" //hash-table index. Key is the session name, value the id of the job that currently owns it
)

// jobs are built by the orchestrator's submission path, so there is no New function
type Job struct {
	Id           uuid.UUID   `json:"id"`
	SessionName  string      `json:"session_name"`
	ScriptChain  []string    `json:"script_chain"`
	ChainPolicy  ChainPolicy `json:"chain_policy"`
	KeepAlive    bool        `json:"keep_alive"`
	ScheduleTime *time.Time  `json:"schedule_time"`
	Status       JobStatus   `json:"status"`
	SchedulerRef string      `json:"scheduler_ref"`
	CreatedAt    time.Time   `json:"created_at"`
	StartedAt    *time.Time  `json:"started_at"`
	EndedAt      *time.Time  `json:"ended_at"`
	LogPath      string      `json:"log_path"`
	ErrorMessage string      `json:"error_message"`
	ExitCode     *int        `json:"exit_code"`
}

/** -----------------
status transitions. These are the only places that set StartedAt/EndedAt,
so the "EndedAt is set iff the status is terminal" rule holds everywhere.
----------------
*/

func (j *Job) SetRunning(atTime time.Time) {
	j.Status = JOB_RUNNING
	j.SchedulerRef = ""
	startCopy := atTime
	j.StartedAt = &startCopy
}

func (j *Job) SetFinished(atTime time.Time, exitCode int) {
	j.Status = JOB_FINISHED
	endCopy := atTime
	j.EndedAt = &endCopy
	codeCopy := exitCode
	j.ExitCode = &codeCopy
}

func (j *Job) SetFailed(atTime time.Time, message string, exitCode *int) {
	j.Status = JOB_FAILED
	j.SchedulerRef = ""
	endCopy := atTime
	j.EndedAt = &endCopy
	j.ErrorMessage = message
	if exitCode != nil {
		codeCopy := *exitCode
		j.ExitCode = &codeCopy
	}
}

func (j *Job) SetKilled(atTime time.Time) {
	j.Status = JOB_KILLED
	j.SchedulerRef = ""
	endCopy := atTime
	j.EndedAt = &endCopy
}

func (j *Job) SetUnknown(message string) {
	j.Status = JOB_UNKNOWN
	j.SchedulerRef = ""
	j.ErrorMessage = message
}

/** -----------------
datastore access
----------------
*/

func jobDbKey(forId uuid.UUID) string {
	return fmt.Sprintf("desto:job:%s", forId)
}

func (j Job) Store(redisClient redis.Cmdable) error {
	content, marshalErr := json.Marshal(j)
	if marshalErr != nil {
		log.Printf("Could not marshal data for job %s: %s", j.Id, marshalErr)
		return marshalErr
	}

	_, saveErr := redisClient.Set(jobDbKey(j.Id), string(content), -1).Result()
	if saveErr != nil {
		log.Printf("Could not save data for job %s: %s", j.Id, saveErr)
		return saveErr
	}
	idxErr := indexSingleEntry(&j, redisClient)
	if idxErr != nil {
		log.Printf("Could not store index data for job %s: %s", j.Id, idxErr)
		return idxErr
	}
	return nil
}

/*
*
remove this record and its index entries from the datastore.
callers are expected to remove the job's events first via RemoveEventsFor.
*/
func (j Job) Remove(redisClient redis.Cmdable) error {
	_, err := redisClient.Del(jobDbKey(j.Id)).Result()
	if err == nil {
		return removeFromIndex(&j, redisClient)
	}
	return err
}

func JobForId(forId uuid.UUID, redisClient redis.Cmdable) (*Job, error) {
	content, getErr := redisClient.Get(jobDbKey(forId)).Result()
	if getErr != nil {
		return nil, getErr
	}

	var j Job
	marshalErr := json.Unmarshal([]byte(content), &j)
	if marshalErr != nil {
		log.Printf("Could not unmarshal data from store: %s. Offending data was: %s", marshalErr, content)
		return nil, marshalErr
	}
	return &j, nil
}

/*
*
look up the id of the active (scheduled or running) job that currently owns the
given session name. Returns nil, nil if no active job owns it.
*/
func ActiveJobIdForName(sessionName string, redisClient redis.Cmdable) (*uuid.UUID, error) {
	idStr, getErr := redisClient.HGet(JOBIDX_ACTIVENAME, sessionName).Result()
	if getErr == redis.Nil {
		return nil, nil
	}
	if getErr != nil {
		return nil, getErr
	}

	jobId, parseErr := uuid.Parse(idStr)
	if parseErr != nil {
		log.Printf("WARNING: invalid job id '%s' in the active name index for '%s': %s", idStr, sessionName, parseErr)
		return nil, parseErr
	}
	return &jobId, nil
}

/*
*
claim or release the active-name index entry for this job via a lua script on
the redis datastore, so that a release by a stale writer can't clobber a name
that has since been claimed by a different job.
*/
func indexLuaActiveName(ent *Job, client redis.Cmdable) error {
	/**
	luaScript expects to be called with 4 arguments:
	- ARGV[1] - name of the index
	- ARGV[2] - session name
	- ARGV[3] - id of the job
	- ARGV[4] - "1" to claim the name, "0" to release it
	*/
	luaScript := `local currentValue = redis.call("hget",ARGV[1],ARGV[2])
if currentValue == false then currentValue = "" end
if ARGV[4] == "1" then
	redis.call("hset",ARGV[1],ARGV[2],ARGV[3])
	return ARGV[3]
end
if currentValue == ARGV[3] then
	redis.call("hdel",ARGV[1],ARGV[2])
end
return currentValue
`
	claimFlag := "0"
	if ent.Status.IsActive() {
		claimFlag = "1"
	}
	_, err := client.Eval(luaScript, []string{}, JOBIDX_ACTIVENAME, ent.SessionName, ent.Id.String(), claimFlag).Result()
	return err
}

/*
*
adds a single entry to the ctime, status and active-name indices. The entry is
removed from every other status index first, since a store usually follows a
status transition.
*/
func indexSingleEntry(ent *Job, client redis.Cmdable) error {
	p := client.Pipeline()

	p.ZAdd(REDIDX_CTIME, &redis.Z{
		Score:  float64(ent.CreatedAt.UnixNano()),
		Member: ent.Id.String(),
	})

	for status := JOB_SCHEDULED; status <= JOB_UNKNOWN; status++ {
		statusKey := fmt.Sprintf("%s:%d", JOBIDX_STATUS, status)
		if status == ent.Status {
			p.ZAdd(statusKey, &redis.Z{
				Score:  float64(ent.CreatedAt.UnixNano()),
				Member: ent.Id.String(),
			})
		} else {
			p.ZRem(statusKey, ent.Id.String())
		}
	}

	indexLuaActiveName(ent, p) //no point checking error as we don't execute until p.Exec()
	_, err := p.Exec()
	return err
}

func removeFromIndex(ent *Job, client redis.Cmdable) error {
	p := client.Pipeline()

	p.ZRem(REDIDX_CTIME, ent.Id.String())
	for status := JOB_SCHEDULED; status <= JOB_UNKNOWN; status++ {
		p.ZRem(fmt.Sprintf("%s:%d", JOBIDX_STATUS, status), ent.Id.String())
	}
	released := *ent
	released.Status = JOB_KILLED //any non-active status releases the name claim
	indexLuaActiveName(&released, p)
	_, err := p.Exec()
	return err
}

/*
*
scans for job records and retrieves up to `limit` records starting from `cursor`.
returns a pointer to an array of jobs (if successful), a new cursor to continue
iterating (if successful) and an error (if failed).

parameters:
- cursor - for SORT_NONE the iteration cursor, for the ctime sorts the first item index to get. 0 for "from the top".
- limit - for SORT_NONE the scan count hint, for the ctime sorts the last item index to get. -1 for "everything".
*/
func ListJobs(cursor uint64, limit int64, redisclient *redis.Client, sort JobSort, maybeStatus *JobStatus) (*[]Job, uint64, error) {
	var keys []string
	var nextCursor uint64
	var scanErr error

	var indexName string
	if maybeStatus == nil {
		indexName = REDIDX_CTIME
	} else {
		indexName = fmt.Sprintf("%s:%d", JOBIDX_STATUS, *maybeStatus)
	}

	switch sort {
	case SORT_NONE:
		keys, nextCursor, scanErr = redisclient.Scan(cursor, "desto:job:*", limit).Result()
	case SORT_CTIME:
		jobIdList, err := redisclient.ZRevRange(indexName, int64(cursor), limit).Result()
		scanErr = err
		if err == nil {
			keys = make([]string, len(jobIdList))
			for i, jobId := range jobIdList {
				keys[i] = "desto:job:" + jobId
			}
		}
	case SORT_CTIME_OLDEST:
		jobIdList, err := redisclient.ZRange(indexName, int64(cursor), limit).Result()
		scanErr = err
		if err == nil {
			keys = make([]string, len(jobIdList))
			for i, jobId := range jobIdList {
				keys[i] = "desto:job:" + jobId
			}
		}
	default:
		scanErr = fmt.Errorf("unknown JobSort value %d", sort)
	}

	if scanErr != nil {
		log.Printf("Could not scan job records: %s", scanErr)
		return nil, 0, scanErr
	}

	pipe := redisclient.Pipeline()
	defer pipe.Close()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(key)
	}

	results, _ := pipe.Exec()

	rtn := make([]Job, 0)
	for _, r := range results {
		cmd := r.(*redis.StringCmd)

		content, getErr := cmd.Result()
		if getErr != nil {
			log.Printf("could not %s: %s", cmd.String(), getErr)
			continue
		}
		if content == "" {
			continue
		}
		var j Job
		marshalErr := json.Unmarshal([]byte(content), &j)
		if marshalErr != nil {
			log.Printf("Could not unmarshal job record: %s. Offending data was %s.", marshalErr, content)
			return nil, 0, marshalErr
		}
		rtn = append(rtn, j)
	}
	return &rtn, nextCursor, nil
}

/*
*
JobStatusSummary returns the number of jobs currently in each status, straight
from the status index cardinalities.
*/
func JobStatusSummary(redisClient redis.Cmdable) (*map[JobStatus]int64, error) {
	pipe := redisClient.Pipeline()
	defer pipe.Close()

	cmds := make(map[JobStatus]*redis.IntCmd)
	for status := JOB_SCHEDULED; status <= JOB_UNKNOWN; status++ {
		cmds[status] = pipe.ZCard(fmt.Sprintf("%s:%d", JOBIDX_STATUS, status))
	}

	_, execErr := pipe.Exec()
	if execErr != nil {
		log.Print("ERROR: Could not get status summary: ", execErr)
		return nil, execErr
	}

	rtn := make(map[JobStatus]int64, len(cmds))
	for status, cmd := range cmds {
		rtn[status] = cmd.Val()
	}
	return &rtn, nil
}
