package sessions

import (
	"context"
	"log"
	"net/http"

	"github.com/desto-project/desto/common/helpers"
	"github.com/desto-project/desto/orchestrator"
	"github.com/gorilla/websocket"
)

type TailLogsHandler struct {
	Engine   *orchestrator.Engine
	upgrader websocket.Upgrader
}

func NewTailLogsHandler(engine *orchestrator.Engine) TailLogsHandler {
	return TailLogsHandler{
		Engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

/*
*
streams log lines to the client over a websocket as the job writes them. One
text message per line. The socket closes from our side once the log has been
quiet for the tailer's debounce interval; the client hanging up stops the
tail straight away.
*/
func (h TailLogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	jobId, idErr := helpers.GetJobIdFromQuerystring(r.RequestURI)
	if idErr != nil {
		helpers.WriteJsonContent(idErr, w, 400)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	lines, tailErr := h.Engine.Tail(ctx, *jobId)
	if tailErr == orchestrator.ErrJobNotFound {
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "not_found", Detail: "no job with that id"}, w, 404)
		return
	}
	if tailErr != nil {
		log.Printf("ERROR TailLogsHandler could not open log tail for %s: %s", jobId, tailErr)
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "error", Detail: tailErr.Error()}, w, 500)
		return
	}

	conn, upgradeErr := h.upgrader.Upgrade(w, r, nil)
	if upgradeErr != nil {
		log.Printf("ERROR TailLogsHandler could not upgrade connection: %s", upgradeErr)
		return
	}
	defer conn.Close()

	//drain incoming frames so close handshakes are noticed, and stop the
	//tail when the client goes away
	go func() {
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				cancel()
				return
			}
		}
	}()

	for line := range lines {
		if writeErr := conn.WriteMessage(websocket.TextMessage, []byte(line)); writeErr != nil {
			log.Printf("Tail client for job %s went away: %s", jobId, writeErr)
			cancel()
			break
		}
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "log quiet"))
}
