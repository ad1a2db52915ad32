package sessions

import (
	"net/http"
	"strconv"

	"github.com/desto-project/desto/common/helpers"
	"github.com/desto-project/desto/common/models"
	"github.com/desto-project/desto/orchestrator"
)

type ListSessionHandler struct {
	Engine *orchestrator.Engine
}

type ListSessionResponse struct {
	Status  string       `json:"status"`
	Entries []models.Job `json:"entries"`
}

var statusNames = map[string]models.JobStatus{
	"scheduled": models.JOB_SCHEDULED,
	"running":   models.JOB_RUNNING,
	"finished":  models.JOB_FINISHED,
	"failed":    models.JOB_FAILED,
	"killed":    models.JOB_KILLED,
	"unknown":   models.JOB_UNKNOWN,
}

/*
*
list tracked jobs newest-first

query parameters:
- status - only jobs currently in this state (scheduled, running, finished, failed, killed, unknown)
- limit - the maximum number of items to get. Defaults to 100
*/
func (h ListSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !helpers.AssertHttpMethod(r, w, "GET") {
		return
	}

	queryParams, qpErr := helpers.GetQueryParams(r.RequestURI)
	if qpErr != nil {
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "bad_data", Detail: "could not understand the passed url"}, w, 400)
		return
	}

	filter := orchestrator.JobFilter{Limit: 100}

	if statusString := queryParams.Get("status"); statusString != "" {
		status, known := statusNames[statusString]
		if !known {
			helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "bad_data", Detail: "not a recognised status"}, w, 400)
			return
		}
		filter.Status = &status
	}

	if limitString := queryParams.Get("limit"); limitString != "" {
		limit, parseErr := strconv.ParseInt(limitString, 10, 64)
		if parseErr != nil {
			helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "bad_data", Detail: "limit parameter must be a number"}, w, 400)
			return
		}
		filter.Limit = limit
	}

	helpers.WriteJsonContent(ListSessionResponse{
		Status:  "ok",
		Entries: h.Engine.List(filter),
	}, w, 200)
}
