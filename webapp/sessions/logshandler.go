package sessions

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/desto-project/desto/common/helpers"
	"github.com/desto-project/desto/orchestrator"
)

type GetLogsHandler struct {
	Engine *orchestrator.Engine
}

/*
*
returns the last portion of the job's captured log as plain text

query parameters:
- jobId - the job to fetch logs for
- lines - how many trailing lines to return. Defaults to the whole file.
*/
func (h GetLogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if !helpers.AssertHttpMethod(r, w, "GET") {
		return
	}

	queryParams, qpErr := helpers.GetQueryParams(r.RequestURI)
	if qpErr != nil {
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "bad_data", Detail: "could not understand the passed url"}, w, 400)
		return
	}

	jobId, idErr := helpers.GetJobIdFromValues(queryParams)
	if idErr != nil {
		helpers.WriteJsonContent(idErr, w, 400)
		return
	}

	lineCount := 0
	if linesString := queryParams.Get("lines"); linesString != "" {
		parsed, parseErr := strconv.Atoi(linesString)
		if parseErr != nil {
			helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "bad_data", Detail: "lines parameter must be a number"}, w, 400)
			return
		}
		lineCount = parsed
	}

	window, windowErr := h.Engine.LogWindow(*jobId, lineCount)
	if windowErr == orchestrator.ErrJobNotFound {
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "not_found", Detail: "no job with that id"}, w, 404)
		return
	}
	if windowErr != nil {
		log.Printf("ERROR GetLogsHandler could not read logs for %s: %s", jobId, windowErr)
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "error", Detail: windowErr.Error()}, w, 500)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(200)
	if len(window) > 0 {
		if _, writeErr := w.Write([]byte(strings.Join(window, "\n") + "\n")); writeErr != nil {
			log.Printf("ERROR GetLogsHandler could not stream all content to client: %s", writeErr)
		}
	}
}
