// internal/notification/models.go

package notification

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weekender/weekender-bot/internal/recommend"
)

// MaxMediaGroup is the largest album Telegram accepts
const MaxMediaGroup = 10

var (
	ErrEmptyMailing      = errors.New("mailing has neither text nor media")
	ErrTooManyMedia      = errors.New("too many media attachments")
	ErrMixedDocuments    = errors.New("documents cannot be grouped with photos or videos")
	ErrUnknownMediaType  = errors.New("unknown media type")
	ErrNoRecipients      = errors.New("segment has no recipients")
	ErrMailingInProgress = errors.New("another mailing is running")
)

// MediaType is the Telegram attachment kind
type MediaType string

const (
	MediaPhoto    MediaType = "photo"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
)

// Media is an uploaded attachment referenced by its Telegram file id
type Media struct {
	Type   MediaType `json:"type"`
	FileID string    `json:"file_id"`
}

// Mailing is the message an admin broadcasts
type Mailing struct {
	Text  string  `json:"text"`
	Media []Media `json:"media,omitempty"`
}

// Validate checks the mailing can be delivered as a single message or album
func (m *Mailing) Validate() error {
	if strings.TrimSpace(m.Text) == "" && len(m.Media) == 0 {
		return ErrEmptyMailing
	}
	if len(m.Media) > MaxMediaGroup {
		return fmt.Errorf("%w: %d > %d", ErrTooManyMedia, len(m.Media), MaxMediaGroup)
	}

	docs := 0
	for _, md := range m.Media {
		switch md.Type {
		case MediaPhoto, MediaVideo:
		case MediaDocument:
			docs++
		default:
			return fmt.Errorf("%w: %q", ErrUnknownMediaType, md.Type)
		}
	}
	if docs > 0 && docs != len(m.Media) {
		return ErrMixedDocuments
	}
	return nil
}

// Segment selects mailing recipients. Empty lists do not filter.
type Segment struct {
	All       bool     `json:"all"`
	AgeRanges []string `json:"age_ranges,omitempty"`
	Districts []string `json:"districts,omitempty"`
	Targets   []string `json:"targets,omitempty"`
	Genders   []string `json:"genders,omitempty"`
}

// Recipient is a user considered for a mailing
type Recipient struct {
	TgID     int64   `db:"tg_id"`
	Age      *int    `db:"year"`
	Gender   *string `db:"gender"`
	District *string `db:"district"`
	Target   *string `db:"target"`
}

// Matches applies the segment filters to one recipient.
// A recipient missing a filtered attribute never matches that filter.
func (s *Segment) Matches(r *Recipient) bool {
	if s.All {
		return true
	}
	if len(s.AgeRanges) > 0 {
		if r.Age == nil || !ageInAny(*r.Age, s.AgeRanges) {
			return false
		}
	}
	return oneOf(r.District, s.Districts) &&
		oneOf(r.Target, s.Targets) &&
		oneOf(r.Gender, s.Genders)
}

func ageInAny(age int, ranges []string) bool {
	for _, expr := range ranges {
		if recommend.IsAgeInRange(age, expr) {
			return true
		}
	}
	return false
}

func oneOf(value *string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	if value == nil {
		return false
	}
	for _, a := range allowed {
		if a == *value {
			return true
		}
	}
	return false
}

// Describe renders the segment for the admin preview
func (s *Segment) Describe() string {
	if s.All {
		return "Все пользователи"
	}
	parts := []string{
		"Возраст: " + listOrAny(s.AgeRanges),
		"Район: " + listOrAny(s.Districts),
		"Цель: " + listOrAny(s.Targets),
		"Пол: " + listOrAny(s.Genders),
	}
	return strings.Join(parts, "\n")
}

func listOrAny(values []string) string {
	if len(values) == 0 {
		return "любой"
	}
	return strings.Join(values, ", ")
}

// Progress is reported while a mailing runs
type Progress struct {
	Done    int
	Total   int
	Success int
	Errors  int
}

// Report summarises a finished mailing
type Report struct {
	JobID      uuid.UUID `json:"id" db:"id"`
	AdminTgID  int64     `json:"admin_tg_id" db:"admin_tg_id"`
	Total      int       `json:"total" db:"total"`
	Success    int       `json:"success" db:"success"`
	Errors     int       `json:"errors" db:"errors"`
	Cancelled  bool      `json:"cancelled" db:"-"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}

// MailingRecord is a row of the mailings audit table
type MailingRecord struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	AdminTgID  int64      `json:"admin_tg_id" db:"admin_tg_id"`
	Segment    []byte     `json:"-" db:"segment"`
	Total      int        `json:"total" db:"total"`
	Success    int        `json:"success" db:"success"`
	Errors     int        `json:"errors" db:"errors"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// PreviewRequest asks how many users a segment reaches
type PreviewRequest struct {
	Segment Segment `json:"segment"`
}

// PreviewResponse is the recipient count for a segment
type PreviewResponse struct {
	Recipients int    `json:"recipients"`
	Summary    string `json:"summary"`
}
