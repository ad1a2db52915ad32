package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desto-project/desto/common/models"
	"github.com/google/uuid"
)

func TestNotifyPostsPayload(t *testing.T) {
	received := make(chan NotificationPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload NotificationPayload
		decodeErr := json.NewDecoder(r.Body).Decode(&payload)
		if decodeErr != nil {
			t.Error("could not decode notification body: ", decodeErr)
		}
		received <- payload
		w.WriteHeader(200)
	}))
	defer server.Close()

	job := &models.Job{
		Id:          uuid.New(),
		SessionName: "nightly-backup",
		Status:      models.JOB_FAILED,
	}
	endTime := time.Now()
	job.EndedAt = &endTime

	dispatcher := NewDispatcher(server.URL, time.Second)
	dispatcher.Notify(job, "backend session exited with code 2")

	select {
	case payload := <-received:
		if payload.SessionName != "nightly-backup" {
			t.Errorf("wrong session name in payload, got '%s'", payload.SessionName)
		}
		if payload.Status != "failed" {
			t.Errorf("wrong status in payload, got '%s'", payload.Status)
		}
		if payload.Detail != "backend session exited with code 2" {
			t.Errorf("wrong detail in payload, got '%s'", payload.Detail)
		}
	case <-time.After(2 * time.Second):
		t.Error("notification never arrived")
	}
}

/*
*
delivery failure must not panic or propagate
*/
func TestNotifyUnreachableEndpoint(t *testing.T) {
	dispatcher := NewDispatcher("http://127.0.0.1:1/notify", 100*time.Millisecond)
	job := &models.Job{Id: uuid.New(), SessionName: "x", Status: models.JOB_FINISHED}
	dispatcher.Notify(job, "") //should only log
}

func TestNotifyNoWebhookConfigured(t *testing.T) {
	dispatcher := NewDispatcher("", time.Second)
	job := &models.Job{Id: uuid.New(), SessionName: "x", Status: models.JOB_FINISHED}
	dispatcher.Notify(job, "") //no-op
}
