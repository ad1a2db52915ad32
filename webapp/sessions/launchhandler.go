package sessions

import (
	"errors"
	"log"
	"net/http"

	"github.com/desto-project/desto/common/atjobs"
	"github.com/desto-project/desto/common/helpers"
	"github.com/desto-project/desto/orchestrator"
)

type LaunchHandler struct {
	Engine *orchestrator.Engine
}

func (h LaunchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if !helpers.AssertHttpMethod(r, w, "POST") {
		return
	}

	var spec orchestrator.JobSpec
	if readErr := helpers.ReadJsonBody(r.Body, &spec); readErr != nil {
		log.Print("Could not unmarshal launch request body ", readErr)
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "error", Detail: "Invalid json request body"}, w, 400)
		return
	}

	job, submitErr := h.Engine.Submit(spec)
	if submitErr != nil {
		switch {
		case errors.Is(submitErr, orchestrator.ErrDuplicateName):
			helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "conflict", Detail: submitErr.Error()}, w, 409)
		case errors.Is(submitErr, orchestrator.ErrEmptyName), errors.Is(submitErr, orchestrator.ErrEmptyChain), errors.Is(submitErr, atjobs.ErrPastTime):
			helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "bad_data", Detail: submitErr.Error()}, w, 400)
		default:
			log.Print("Could not launch session: ", submitErr)
			helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "server_error", Detail: submitErr.Error()}, w, 500)
		}
		return
	}

	helpers.WriteJsonContent(map[string]interface{}{"status": "ok", "entry": job}, w, 201)
}
