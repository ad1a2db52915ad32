package sessions

import (
	"log"
	"net/http"

	"github.com/desto-project/desto/common/helpers"
	"github.com/desto-project/desto/common/models"
	"github.com/go-redis/redis/v7"
)

type StatusSummaryHandler struct {
	RedisClient *redis.Client
}

func (h StatusSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if !helpers.AssertHttpMethod(r, w, "GET") {
		return
	}

	if h.RedisClient == nil {
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "db_error", Detail: "history store is not available"}, w, 503)
		return
	}

	summaryData, getErr := models.JobStatusSummary(h.RedisClient)
	if getErr != nil {
		log.Printf("ERROR StatusSummaryHandler could not get job statuses: %s", getErr)
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "db_error", Detail: getErr.Error()}, w, 500)
		return
	}

	helpers.WriteJsonContent(map[string]interface{}{
		"status": "ok",
		"data": map[string]int64{
			"scheduled": (*summaryData)[models.JOB_SCHEDULED],
			"running":   (*summaryData)[models.JOB_RUNNING],
			"finished":  (*summaryData)[models.JOB_FINISHED],
			"failed":    (*summaryData)[models.JOB_FAILED],
			"killed":    (*summaryData)[models.JOB_KILLED],
			"unknown":   (*summaryData)[models.JOB_UNKNOWN],
		},
	}, w, 200)
}
