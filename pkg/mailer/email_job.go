package mailer

import (
	"errors"
	"fmt"
	"strings"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template (with Data) or an explicit Subject plus Text/HTML is set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "welcome", "import_summary"
	Data     map[string]any `json:"data,omitempty"`
}

func NewTemplateJob(to, template string, data map[string]any) EmailJob {
	return EmailJob{To: to, Template: template, Data: data}
}

// Validate rejects jobs that can never be delivered.
func (j *EmailJob) Validate() error {
	if strings.TrimSpace(j.To) == "" {
		return errors.New("missing recipient")
	}
	if j.Template == "" && j.Subject == "" {
		return errors.New("missing subject")
	}
	if j.Template == "" && j.Text == "" && j.HTML == "" {
		return errors.New("missing body")
	}
	return nil
}

// fillRecipient makes the recipient address available to templates.
func (j *EmailJob) fillRecipient() {
	if j.Data == nil {
		j.Data = map[string]any{}
	}
	if v, ok := j.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		j.Data["Email"] = j.To
	}
}
