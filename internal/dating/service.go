package dating

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/weekender/weekender-bot/internal/common/logging"
)

var (
	ErrSelfReaction = errors.New("cannot react to yourself")
	ErrUserNotFound = errors.New("user not found")
	ErrUnknownKind  = errors.New("unknown reaction kind")
)

// Notifier tells a user that someone reciprocated their reaction
type Notifier interface {
	NotifyMatch(ctx context.Context, recipientTgID, otherTgID int64, kind Kind) error
}

type Service interface {
	Toggle(ctx context.Context, fromTgID, toTgID int64, kind Kind) (*ToggleResult, error)
	Snapshot(ctx context.Context, tgID int64) (*Snapshot, error)
	Reactions(ctx context.Context, tgID int64) ([]*Reaction, error)
	ReconcileLikes(ctx context.Context) error
}

type service struct {
	repo     Repository
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(repo Repository, notifier Notifier) Service {
	return &service{
		repo:     repo,
		notifier: notifier,
		logger:   logging.Component("dating"),
	}
}

func (s *service) Toggle(ctx context.Context, fromTgID, toTgID int64, kind Kind) (*ToggleResult, error) {
	if fromTgID == toTgID {
		return nil, ErrSelfReaction
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}

	result, err := s.repo.Toggle(ctx, fromTgID, toTgID, kind)
	if err != nil {
		return nil, err
	}
	recordToggle(result)

	if result.Mutual {
		// both sides hear about the match; a failed notice does not undo it
		for _, pair := range [][2]int64{{fromTgID, toTgID}, {toTgID, fromTgID}} {
			if err := s.notifier.NotifyMatch(ctx, pair[0], pair[1], kind); err != nil {
				s.logger.Warn().Err(err).
					Int64("recipient", pair[0]).
					Int64("other", pair[1]).
					Msg("match notification failed")
			}
		}
		s.logger.Info().
			Int64("from", fromTgID).
			Int64("to", toTgID).
			Str("kind", string(kind)).
			Msg("mutual reaction")
	}

	return result, nil
}

func (s *service) Snapshot(ctx context.Context, tgID int64) (*Snapshot, error) {
	return s.repo.Snapshot(ctx, tgID)
}

func (s *service) Reactions(ctx context.Context, tgID int64) ([]*Reaction, error) {
	return s.repo.ListReactions(ctx, tgID)
}

func (s *service) ReconcileLikes(ctx context.Context) error {
	fixed, err := s.repo.ReconcileLikes(ctx)
	if err != nil {
		return err
	}
	if fixed > 0 {
		s.logger.Warn().Int64("users", fixed).Msg("like counters reconciled")
	}
	return nil
}
