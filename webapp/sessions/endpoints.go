package sessions

import (
	"net/http"

	"github.com/desto-project/desto/orchestrator"
	"github.com/go-redis/redis/v7"
)

type SessionsEndpoints struct {
	LaunchHandler  LaunchHandler
	GetHandler     GetSessionHandler
	ListHandler    ListSessionHandler
	KillHandler    KillHandler
	KillAllHandler KillAllHandler
	LogsHandler    GetLogsHandler
	TailHandler    TailLogsHandler
	EventsHandler  GetEventsHandler
	SummaryHandler StatusSummaryHandler
}

func NewSessionsEndpoints(engine *orchestrator.Engine, redisClient *redis.Client) SessionsEndpoints {
	return SessionsEndpoints{
		LaunchHandler:  LaunchHandler{engine},
		GetHandler:     GetSessionHandler{engine},
		ListHandler:    ListSessionHandler{engine},
		KillHandler:    KillHandler{engine},
		KillAllHandler: KillAllHandler{engine},
		LogsHandler:    GetLogsHandler{engine},
		TailHandler:    NewTailLogsHandler(engine),
		EventsHandler:  GetEventsHandler{engine},
		SummaryHandler: StatusSummaryHandler{redisClient},
	}
}

func (e SessionsEndpoints) WireUp(baseUrlPath string) {
	http.Handle(baseUrlPath+"/new", e.LaunchHandler)
	http.Handle(baseUrlPath+"/get", e.GetHandler)
	http.Handle(baseUrlPath+"/kill", e.KillHandler)
	http.Handle(baseUrlPath+"/killall", e.KillAllHandler)
	http.Handle(baseUrlPath+"/logs", e.LogsHandler)
	http.Handle(baseUrlPath+"/logs/tail", e.TailHandler)
	http.Handle(baseUrlPath+"/events", e.EventsHandler)
	http.Handle(baseUrlPath+"/summary", e.SummaryHandler)
	http.Handle(baseUrlPath+"", e.ListHandler)
}
