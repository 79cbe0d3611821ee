// internal/support/repository.go

package support

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// Tickets
	ActiveTicket(ctx context.Context, tgID int64) (*Ticket, error)
	CreateTicket(ctx context.Context, tgID int64) (*Ticket, error)
	GetTicket(ctx context.Context, id int64) (*Ticket, error)
	ListActive(ctx context.Context, limit int) ([]*Ticket, error)
	CloseTicket(ctx context.Context, id int64) error
	CloseStale(ctx context.Context, idleSince time.Time) (int64, error)

	// Messages
	AddMessage(ctx context.Context, ticketID int64, text string, fromUser bool) (*Message, error)
	GetMessages(ctx context.Context, ticketID int64) ([]*Message, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const ticketSelect = `
    SELECT t.id, u.tg_id, u.username, u.first_name, t.is_active, t.created_at, t.updated_at
    FROM support_tickets t
    JOIN users u ON u.id = t.user_id`

// ActiveTicket returns the newest open ticket of a user
func (r *postgresRepository) ActiveTicket(ctx context.Context, tgID int64) (*Ticket, error) {
	var t Ticket
	err := r.db.GetContext(ctx, &t, ticketSelect+`
        WHERE u.tg_id = $1 AND t.is_active
        ORDER BY t.created_at DESC
        LIMIT 1`, tgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("active ticket of %d: %w", tgID, err)
	}
	return &t, nil
}

func (r *postgresRepository) CreateTicket(ctx context.Context, tgID int64) (*Ticket, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `
        INSERT INTO support_tickets (user_id)
        SELECT id FROM users WHERE tg_id = $1
        RETURNING id`, tgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("create ticket for %d: %w", tgID, err)
	}
	return r.GetTicket(ctx, id)
}

func (r *postgresRepository) GetTicket(ctx context.Context, id int64) (*Ticket, error) {
	var t Ticket
	if err := r.db.GetContext(ctx, &t, ticketSelect+` WHERE t.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket %d: %w", id, err)
	}
	return &t, nil
}

// ListActive returns open tickets, most recently updated first
func (r *postgresRepository) ListActive(ctx context.Context, limit int) ([]*Ticket, error) {
	var tickets []*Ticket
	err := r.db.SelectContext(ctx, &tickets, ticketSelect+`
        WHERE t.is_active
        ORDER BY t.updated_at DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list active tickets: %w", err)
	}
	return tickets, nil
}

func (r *postgresRepository) CloseTicket(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE support_tickets
        SET is_active = FALSE, updated_at = NOW()
        WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("close ticket %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTicketClosed
	}
	return nil
}

func (r *postgresRepository) CloseStale(ctx context.Context, idleSince time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE support_tickets
        SET is_active = FALSE, updated_at = NOW()
        WHERE is_active AND updated_at < $1`, idleSince)
	if err != nil {
		return 0, fmt.Errorf("close stale tickets: %w", err)
	}
	return res.RowsAffected()
}

// AddMessage appends to an open ticket and bumps its activity time
func (r *postgresRepository) AddMessage(ctx context.Context, ticketID int64, text string, fromUser bool) (*Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add message: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE support_tickets SET updated_at = NOW()
        WHERE id = $1 AND is_active`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("touch ticket %d: %w", ticketID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrTicketClosed
	}

	msg := &Message{TicketID: ticketID, Text: text, FromUser: fromUser}
	err = tx.QueryRowxContext(ctx, `
        INSERT INTO support_messages (ticket_id, text, is_from_user)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`, ticketID, text, fromUser).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit message: %w", err)
	}
	return msg, nil
}

func (r *postgresRepository) GetMessages(ctx context.Context, ticketID int64) ([]*Message, error) {
	var messages []*Message
	err := r.db.SelectContext(ctx, &messages, `
        SELECT id, ticket_id, text, is_from_user, created_at
        FROM support_messages
        WHERE ticket_id = $1
        ORDER BY created_at, id`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("messages of ticket %d: %w", ticketID, err)
	}
	return messages, nil
}
