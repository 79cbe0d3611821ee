// internal/events/service.go

package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/weekender/weekender-bot/internal/common/logging"
	"github.com/weekender/weekender-bot/internal/common/utils"
	"github.com/weekender/weekender-bot/internal/recommend"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrUnknownInterest = errors.New("unknown interest")
	ErrInvalidAgeRange = errors.New("invalid age range")
)

type Service interface {
	Create(ctx context.Context, req *CreateEventRequest) (*Event, error)
	Get(ctx context.Context, id int64) (*Event, error)
	List(ctx context.Context, filter ListFilter) ([]*Event, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository) Service {
	return &service{repo: repo, logger: logging.Component("events")}
}

// Create validates the request and stores the event. The wildcard values
// recommend understands are accepted for gender and status unchanged.
func (s *service) Create(ctx context.Context, req *CreateEventRequest) (*Event, error) {
	req.Gender = strings.TrimSpace(req.Gender)
	req.Status = strings.TrimSpace(req.Status)
	req.AgeRange = strings.TrimSpace(req.AgeRange)
	req.Interests = dedupe(req.Interests)

	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.AgeRange != "" {
		if _, err := recommend.ParseAgeRange(req.AgeRange); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAgeRange, req.AgeRange)
		}
	}

	event, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	eventsCreated.Inc()
	s.logger.Info().
		Int64("event_id", event.ID).
		Strs("interests", event.Interests).
		Msg("event created")
	return event, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Event, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]*Event, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("event_id", id).Msg("event deleted")
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
