package sessions

import (
	"log"
	"net/http"

	"github.com/desto-project/desto/common/helpers"
	"github.com/desto-project/desto/orchestrator"
)

type KillHandler struct {
	Engine *orchestrator.Engine
}

func (h KillHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if !helpers.AssertHttpMethod(r, w, "POST") {
		return
	}

	jobId, idErr := helpers.GetJobIdFromQuerystring(r.RequestURI)
	if idErr != nil {
		helpers.WriteJsonContent(idErr, w, 400)
		return
	}

	killErr := h.Engine.Kill(*jobId)
	if killErr == orchestrator.ErrJobNotFound {
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "not_found", Detail: "no job with that id"}, w, 404)
		return
	}
	if killErr != nil {
		log.Printf("ERROR KillHandler could not kill job %s: %s", jobId, killErr)
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "server_error", Detail: killErr.Error()}, w, 500)
		return
	}

	helpers.WriteJsonContent(map[string]string{"status": "ok", "jobId": jobId.String()}, w, 200)
}

type KillAllHandler struct {
	Engine *orchestrator.Engine
}

func (h KillAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if !helpers.AssertHttpMethod(r, w, "POST") {
		return
	}

	killed, errorList := h.Engine.KillAll()
	if len(errorList) != 0 {
		for _, killErr := range errorList {
			log.Print("ERROR KillAllHandler: ", killErr)
		}
		helpers.WriteJsonContent(map[string]interface{}{
			"status":   "partial",
			"killed":   killed,
			"failures": len(errorList),
		}, w, 500)
		return
	}

	helpers.WriteJsonContent(map[string]interface{}{"status": "ok", "killed": killed}, w, 200)
}
