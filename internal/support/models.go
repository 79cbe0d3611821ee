// internal/support/models.go

package support

import (
	"strconv"
	"time"
)

// Ticket is a support conversation between one user and the admins
type Ticket struct {
	ID        int64     `json:"id" db:"id"`
	TgID      int64     `json:"tg_id" db:"tg_id"`
	Username  *string   `json:"username,omitempty" db:"username"`
	FirstName *string   `json:"first_name,omitempty" db:"first_name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Messages []*Message `json:"messages,omitempty" db:"-"`
}

// DisplayName is how admins see the author of a ticket
func (t *Ticket) DisplayName() string {
	switch {
	case t.Username != nil && *t.Username != "":
		return "@" + *t.Username
	case t.FirstName != nil && *t.FirstName != "":
		return *t.FirstName
	}
	return "id" + strconv.FormatInt(t.TgID, 10)
}

// Message is one line of a ticket
type Message struct {
	ID        int64     `json:"id" db:"id"`
	TicketID  int64     `json:"ticket_id" db:"ticket_id"`
	Text      string    `json:"text" db:"text"`
	FromUser  bool      `json:"from_user" db:"is_from_user"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
