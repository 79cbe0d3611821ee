// internal/events/models.go

package events

import (
	"time"

	"github.com/lib/pq"
)

// Event is a recommendable happening entered by admins
type Event struct {
	ID          int64          `json:"id" db:"id"`
	Gender      *string        `json:"gender,omitempty" db:"gender"`
	AgeRange    *string        `json:"age_range,omitempty" db:"age_range"`
	Status      *string        `json:"status,omitempty" db:"status"`
	URL         string         `json:"url" db:"url"`
	Description string         `json:"description" db:"description"`
	Interests   pq.StringArray `json:"interests" db:"interests"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// CreateEventRequest leaves gender, age range and status empty to match anyone
type CreateEventRequest struct {
	Gender      string   `json:"gender" validate:"max=20"`
	AgeRange    string   `json:"age_range" validate:"max=20"`
	Status      string   `json:"status" validate:"max=20"`
	URL         string   `json:"url" validate:"required,url,max=255"`
	Description string   `json:"description" validate:"required,max=4000"`
	Interests   []string `json:"interests" validate:"dive,required"`
}

// ListFilter pages through events newest first
type ListFilter struct {
	Limit  int
	Offset int
}
