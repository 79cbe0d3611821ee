// internal/support/service.go

package support

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/weekender/weekender-bot/internal/common/logging"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTicketClosed   = errors.New("ticket not found or already closed")
	ErrUserNotFound   = errors.New("user not found")
	ErrEmptyMessage   = errors.New("message is empty")
)

type Service interface {
	// UserMessage appends to the user's open ticket, opening one if needed
	UserMessage(ctx context.Context, tgID int64, text string) (*Ticket, *Message, error)
	// AdminReply appends an admin answer and returns the ticket to deliver it to
	AdminReply(ctx context.Context, ticketID int64, text string) (*Ticket, error)
	Close(ctx context.Context, ticketID int64) (*Ticket, error)
	ActiveTickets(ctx context.Context, limit int) ([]*Ticket, error)
	Ticket(ctx context.Context, ticketID int64) (*Ticket, error)
	CloseStale(ctx context.Context) error
}

type service struct {
	repo   Repository
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewService closes tickets idle for longer than ttl when CloseStale runs
func NewService(repo Repository, ttl time.Duration) Service {
	return &service{
		repo:   repo,
		ttl:    ttl,
		now:    time.Now,
		logger: logging.Component("support"),
	}
}

func (s *service) UserMessage(ctx context.Context, tgID int64, text string) (*Ticket, *Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, ErrEmptyMessage
	}

	ticket, err := s.repo.ActiveTicket(ctx, tgID)
	if errors.Is(err, ErrTicketNotFound) {
		ticket, err = s.repo.CreateTicket(ctx, tgID)
		if err == nil {
			ticketsOpened.Inc()
			s.logger.Info().Int64("ticket_id", ticket.ID).Int64("tg_id", tgID).Msg("support ticket opened")
		}
	}
	if err != nil {
		return nil, nil, err
	}

	msg, err := s.repo.AddMessage(ctx, ticket.ID, text, true)
	if err != nil {
		return nil, nil, err
	}
	messagesTotal.WithLabelValues("user").Inc()
	return ticket, msg, nil
}

func (s *service) AdminReply(ctx context.Context, ticketID int64, text string) (*Ticket, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return nil, ErrTicketClosed
		}
		return nil, err
	}
	if !ticket.IsActive {
		return nil, ErrTicketClosed
	}

	if _, err := s.repo.AddMessage(ctx, ticketID, text, false); err != nil {
		return nil, err
	}
	messagesTotal.WithLabelValues("admin").Inc()
	return ticket, nil
}

func (s *service) Close(ctx context.Context, ticketID int64) (*Ticket, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return nil, ErrTicketClosed
		}
		return nil, err
	}
	if err := s.repo.CloseTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	ticket.IsActive = false
	s.logger.Info().Int64("ticket_id", ticketID).Msg("support ticket closed")
	return ticket, nil
}

func (s *service) ActiveTickets(ctx context.Context, limit int) ([]*Ticket, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.repo.ListActive(ctx, limit)
}

// Ticket returns a ticket with its full history
func (s *service) Ticket(ctx context.Context, ticketID int64) (*Ticket, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.Messages, err = s.repo.GetMessages(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *service) CloseStale(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	closed, err := s.repo.CloseStale(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return err
	}
	if closed > 0 {
		s.logger.Info().Int64("tickets", closed).Msg("stale support tickets closed")
	}
	return nil
}
