package sessions

import (
	"net/http"

	"github.com/desto-project/desto/common/helpers"
	"github.com/desto-project/desto/common/models"
	"github.com/desto-project/desto/orchestrator"
)

type GetEventsHandler struct {
	Engine *orchestrator.Engine
}

type EventsResponse struct {
	Status  string            `json:"status"`
	Entries []models.JobEvent `json:"entries"`
}

func (h GetEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !helpers.AssertHttpMethod(r, w, "GET") {
		return
	}

	jobId, idErr := helpers.GetJobIdFromQuerystring(r.RequestURI)
	if idErr != nil {
		helpers.WriteJsonContent(idErr, w, 400)
		return
	}

	if _, getErr := h.Engine.Get(*jobId); getErr == orchestrator.ErrJobNotFound {
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "not_found", Detail: "no job with that id"}, w, 404)
		return
	}

	helpers.WriteJsonContent(EventsResponse{
		Status:  "ok",
		Entries: h.Engine.Events(*jobId),
	}, w, 200)
}
