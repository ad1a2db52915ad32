package main

import (
	"errors"
	"flag"
	"log"
	"time"

	"github.com/desto-project/desto/common/helpers"
	"github.com/desto-project/desto/common/models"
	"github.com/desto-project/desto/common/tmux"
	"github.com/go-redis/redis/v7"
)

func SetupRedis(config *helpers.Config) (*redis.Client, error) {
	log.Printf("Connecting to Redis on %s", config.Redis.Address)
	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Address,
		Password: config.Redis.Password,
		DB:       config.Redis.DBNum,
	})

	_, err := client.Ping().Result()
	if err != nil {
		log.Printf("Could not contact Redis: %s", err)
		return nil, err
	}
	log.Printf("Done.")
	return client, nil
}

/*
*
kill the session a keep-alive job left behind for inspection. A session that
already went away is fine.
*/
func KillLeftoverSession(job *models.Job, sessionBackend *tmux.Tmux, liveSessions *tmux.SessionSet, dryRun bool) error {
	if !job.KeepAlive || !liveSessions.Has(job.SessionName) {
		return nil
	}
	log.Printf("Killing leftover keep-alive session '%s' for job %s", job.SessionName, job.Id)
	if dryRun {
		return nil
	}
	killErr := sessionBackend.KillSession(job.SessionName)
	if killErr != nil && !errors.Is(killErr, tmux.ErrSessionNotFound) {
		return killErr
	}
	return nil
}

/*
*
remove the given job if it is terminal and completed before the cutoff.
Returns true if the record was deleted from the datastore.
*/
func ProcessJob(job *models.Job, cutoffTime time.Time, dryRun bool, sessionBackend *tmux.Tmux, liveSessions *tmux.SessionSet, redisClient *redis.Client) (bool, error) {
	if !job.Status.IsTerminal() {
		return false, nil
	}
	if job.EndedAt == nil || !job.EndedAt.Before(cutoffTime) {
		return false, nil
	}

	if killErr := KillLeftoverSession(job, sessionBackend, liveSessions, dryRun); killErr != nil {
		log.Printf("ERROR: Could not kill leftover session for job %s: %s", job.Id, killErr)
		return false, killErr
	}

	log.Printf("Removing old job with id %s", job.Id)
	if dryRun {
		return false, nil
	}
	if removeErr := models.RemoveEventsFor(job.Id, redisClient); removeErr != nil {
		log.Printf("ERROR: Could not remove events for job %s: %s", job.Id, removeErr)
		//not a fatal error, the record removal still frees the indexes
	}
	return true, job.Remove(redisClient)
}

func main() {
	maxAgeHours := flag.Int64("maxage", 36, "delete job records that completed longer than this many hours ago")
	pageSize := flag.Int64("pagesize", 100, "pull this many jobs from the database at once")
	dryRun := flag.Bool("dryrun", true, "don't actually delete anything")

	flag.Parse()

	log.Printf("Reading config from serverconfig.yaml")
	config, configReadErr := helpers.ReadConfig("config/serverconfig.yaml")
	log.Print("Done.")

	if configReadErr != nil {
		log.Fatal("No configuration, can't continue")
	}

	log.Printf("Dryrun is %t", *dryRun)
	redisClient, redisErr := SetupRedis(config)
	if redisErr != nil {
		log.Fatal("Could not connect to redis")
	}

	sessionBackend := tmux.NewTmux()
	liveSessions, sessionErr := sessionBackend.GetSessionSet()
	if sessionErr != nil {
		log.Fatalf("Could not list live sessions: %s", sessionErr)
	}

	startTime := time.Now()

	log.Printf("Reaping of old data starting at %s", startTime)

	cutoffTime := time.Now().Add(-time.Duration(*maxAgeHours) * time.Hour)
	log.Printf("Cutoff time is %s", cutoffTime)

	var startIndex int64 = 0
	for {
		jobs, _, err := models.ListJobs(uint64(startIndex), startIndex+*pageSize-1, redisClient, models.SORT_CTIME_OLDEST, nil)

		if err != nil {
			log.Fatalf("ERROR: Could not retrieve page of jobs: %s", err)
		}

		var removedCount int64 = 0
		for _, j := range *jobs {
			removed, procErr := ProcessJob(&j, cutoffTime, *dryRun, sessionBackend, liveSessions, redisClient)
			if procErr != nil {
				log.Fatal(procErr)
			}
			if removed {
				removedCount++
			}
		}

		if int64(len(*jobs)) < *pageSize {
			break
		}
		//removed records shift the index down, so only step past the survivors
		startIndex += *pageSize - removedCount
	}

	endTime := time.Now()

	log.Printf("Reaping run completed at %s and took %d seconds", endTime, endTime.Unix()-startTime.Unix())

}
