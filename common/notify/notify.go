// Package notify posts job status notifications to a configured webhook.
// Delivery is fire-and-forget: failures are logged and never surfaced to the
// code path that observed the status change.
package notify

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"time"

	"github.com/desto-project/desto/common/models"
	"github.com/google/uuid"
)

type NotificationPayload struct {
	JobId       uuid.UUID  `json:"job_id"`
	SessionName string     `json:"session_name"`
	Status      string     `json:"status"`
	Detail      string     `json:"detail"`
	EndedAt     *time.Time `json:"ended_at"`
}

type Dispatcher struct {
	WebhookUrl string
	httpClient *http.Client
}

func NewDispatcher(webhookUrl string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		WebhookUrl: webhookUrl,
		httpClient: &http.Client{Timeout: timeout},
	}
}

/*
*
Notify posts one status notification for the given job. Errors are logged, not
returned; a dispatcher with no webhook configured does nothing.
*/
func (d *Dispatcher) Notify(job *models.Job, detail string) {
	if d == nil || d.WebhookUrl == "" {
		return
	}

	payload := NotificationPayload{
		JobId:       job.Id,
		SessionName: job.SessionName,
		Status:      job.Status.String(),
		Detail:      detail,
		EndedAt:     job.EndedAt,
	}

	byteData, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		log.Print("ERROR: Could not marshal data for notification send: ", marshalErr)
		return
	}

	response, err := d.httpClient.Post(d.WebhookUrl, "application/json", bytes.NewReader(byteData))
	if err != nil {
		log.Print("ERROR: Could not send notification: ", err)
		return
	}
	defer response.Body.Close()

	if response.StatusCode >= 300 {
		responseContent, _ := ioutil.ReadAll(response.Body)
		log.Printf("WARNING: notification endpoint returned %d: %s", response.StatusCode, string(responseContent))
	}
}
