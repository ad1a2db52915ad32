package main

import (
	"log"
	"os"
	"time"

	"github.com/desto-project/desto/common/atjobs"
	"github.com/desto-project/desto/common/helpers"
	"github.com/desto-project/desto/common/logtail"
	"github.com/desto-project/desto/common/notify"
	"github.com/desto-project/desto/common/tmux"
	"github.com/desto-project/desto/orchestrator"
	"github.com/go-redis/redis/v7"
	"github.com/spf13/cobra"
)

var (
	configFile string

	appConfig *helpers.Config
	engine    *orchestrator.Engine
)

var rootCmd = &cobra.Command{
	Use:   "desto",
	Short: "Launch and track shell scripts in tmux sessions",
	Long: `desto runs shell script chains inside detached tmux sessions, keeps a
durable record of every launch in redis and can defer launches through at(1).`,
	SilenceUsage:      true,
	PersistentPreRunE: setupEngine,
}

/*
*
build the same engine the web service runs, so the command line operates on
the identical tracked state
*/
func setupEngine(cmd *cobra.Command, args []string) error {
	config, configReadErr := helpers.ReadConfig(configFile)
	if configReadErr != nil {
		return configReadErr
	}
	appConfig = config

	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Address,
		Password: config.Redis.Password,
		DB:       config.Redis.DBNum,
	})
	if _, pingErr := client.Ping().Result(); pingErr != nil {
		log.Printf("WARNING: Could not contact Redis, operating on this invocation only: %s", pingErr)
		client.Close()
		client = nil
	}

	engine = orchestrator.NewEngine(
		tmux.NewTmux(),
		atjobs.NewAtScheduler(),
		orchestrator.NewJobStore(client),
		notify.NewDispatcher(config.Notifications.WebhookUrl, time.Duration(config.Notifications.TimeoutSeconds)*time.Second),
		logtail.NewTailer(
			time.Duration(config.Tail.PollMillis)*time.Millisecond,
			time.Duration(config.Tail.DebounceMillis)*time.Millisecond,
		),
		config.Dirs.Logs,
		time.Duration(config.Reconcile.ScheduleGraceSeconds)*time.Second,
	)

	//one pass so listings reflect reality even with no server running
	if reconcileErr := engine.Reconcile(); reconcileErr != nil {
		log.Printf("WARNING: could not reconcile session state: %s", reconcileErr)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config/serverconfig.yaml", "path to the yaml configuration file")
}

func main() {
	if executeErr := rootCmd.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
