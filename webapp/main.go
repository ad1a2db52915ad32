package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/desto-project/desto/common/atjobs"
	"github.com/desto-project/desto/common/helpers"
	"github.com/desto-project/desto/common/logtail"
	"github.com/desto-project/desto/common/notify"
	"github.com/desto-project/desto/common/tmux"
	"github.com/desto-project/desto/orchestrator"
	"github.com/desto-project/desto/webapp/sessions"
	"github.com/go-redis/redis/v7"
)

type MyHttpApp struct {
	healthcheck HealthcheckHandler
	sessions    sessions.SessionsEndpoints
}

/*
*
SetupRedis connects to the configured history store. A connection failure is
not fatal here: the caller gets nil back and the engine runs on its in-memory
mirror until the next restart.
*/
func SetupRedis(config *helpers.Config) *redis.Client {
	log.Printf("Connecting to Redis on %s", config.Redis.Address)
	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Address,
		Password: config.Redis.Password,
		DB:       config.Redis.DBNum,
	})

	_, err := client.Ping().Result()
	if err != nil {
		log.Printf("WARNING: Could not contact Redis, session history will not survive a restart: %s", err)
		client.Close()
		return nil
	}
	log.Printf("Done.")
	return client
}

func main() {
	var app MyHttpApp

	/*
		read in config and establish connection to persistence layer
	*/
	log.Printf("Reading config from serverconfig.yaml")
	config, configReadErr := helpers.ReadConfig("config/serverconfig.yaml")
	log.Print("Done.")

	if configReadErr != nil {
		log.Fatal("No configuration, can't continue")
	}

	redisClient := SetupRedis(config)

	store := orchestrator.NewJobStore(redisClient)
	dispatcher := notify.NewDispatcher(config.Notifications.WebhookUrl, time.Duration(config.Notifications.TimeoutSeconds)*time.Second)
	tailer := logtail.NewTailer(
		time.Duration(config.Tail.PollMillis)*time.Millisecond,
		time.Duration(config.Tail.DebounceMillis)*time.Millisecond,
	)
	engine := orchestrator.NewEngine(
		tmux.NewTmux(),
		atjobs.NewAtScheduler(),
		store,
		dispatcher,
		tailer,
		config.Dirs.Logs,
		time.Duration(config.Reconcile.ScheduleGraceSeconds)*time.Second,
	)

	//bring tracked state in line with whatever survived the restart, then
	//keep doing so in the background
	if reconcileErr := engine.Reconcile(); reconcileErr != nil {
		log.Printf("WARNING: startup reconciliation failed: %s", reconcileErr)
	}
	go engine.RunReconcileLoop(context.Background(), time.Duration(config.Reconcile.IntervalSeconds)*time.Second)

	app.healthcheck.redisClient = redisClient
	app.sessions = sessions.NewSessionsEndpoints(engine, redisClient)

	http.Handle("/default", http.NotFoundHandler())
	http.Handle("/healthcheck", app.healthcheck)

	app.sessions.WireUp("/api/session")

	log.Printf("Starting server on port 9000")
	startServerErr := http.ListenAndServe(":9000", nil)

	if startServerErr != nil {
		log.Fatal(startServerErr)
	}
}
