package sessions

import (
	"net/http"

	"github.com/desto-project/desto/common/helpers"
	"github.com/desto-project/desto/orchestrator"
)

type GetSessionHandler struct {
	Engine *orchestrator.Engine
}

func (h GetSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !helpers.AssertHttpMethod(r, w, "GET") {
		return //error is already output
	}

	jobId, idErr := helpers.GetJobIdFromQuerystring(r.RequestURI)
	if idErr != nil {
		helpers.WriteJsonContent(idErr, w, 400)
		return
	}

	job, getErr := h.Engine.Get(*jobId)
	if getErr == orchestrator.ErrJobNotFound {
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "not_found", Detail: "no job with that id"}, w, 404)
		return
	}
	if getErr != nil {
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "error", Detail: "Could not retrieve entry"}, w, 500)
		return
	}

	helpers.WriteJsonContent(map[string]interface{}{"status": "ok", "entry": job}, w, 200)
}
