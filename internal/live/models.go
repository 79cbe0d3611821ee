// internal/live/models.go

package live

import (
	"time"

	"github.com/google/uuid"
)

// EventType names what happened
type EventType string

const (
	EventMailingStarted  EventType = "mailing_started"
	EventMailingProgress EventType = "mailing_progress"
	EventMailingFinished EventType = "mailing_finished"
)

// Event is one JSON frame pushed to connected admins
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type MailingStarted struct {
	JobID     uuid.UUID `json:"job_id"`
	AdminTgID int64     `json:"admin_tg_id"`
	Total     int       `json:"total"`
}

type MailingProgress struct {
	JobID   uuid.UUID `json:"job_id"`
	Done    int       `json:"done"`
	Total   int       `json:"total"`
	Success int       `json:"success"`
	Errors  int       `json:"errors"`
}
