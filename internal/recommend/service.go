// internal/recommend/service.go
// Recommendation API consumed by the bot transport

package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/weekender/weekender-bot/internal/common/logging"
)

const (
	DefaultEventsLimit = 3
	DefaultPeopleLimit = 7
)

// ExclusionStore persists per-subject exclusion sets between interactions
type ExclusionStore interface {
	LoadExclusions(ctx context.Context, subjectID int64, kind PoolKind) (*ExclusionSet, error)
	// AppendExclusions must add ids atomically with respect to other appends
	AppendExclusions(ctx context.Context, subjectID int64, kind PoolKind, ids []int64) error
	ResetExclusions(ctx context.Context, subjectID int64, kind PoolKind) error
}

type Service interface {
	GetRecommendedEvents(ctx context.Context, subjectID int64, limit int) ([]Candidate, error)
	GetRecommendedEventsExcluding(ctx context.Context, subjectID int64, limit int, excluded *ExclusionSet) (*Batch, error)
	FindCompatibleUsers(ctx context.Context, subjectID int64, ageRanges []string, limit int, excluded *ExclusionSet) (*Batch, error)

	// Session-aware paging backed by the ExclusionStore
	NextEvents(ctx context.Context, subjectID int64, limit int) (*Batch, error)
	NextPeople(ctx context.Context, subjectID int64, ageRanges []string, limit int) (*Batch, error)
	Reset(ctx context.Context, subjectID int64, kind PoolKind) error
}

type service struct {
	store      Store
	composer   *Composer
	exclusions ExclusionStore
	logger     zerolog.Logger
}

func NewService(store Store, exclusions ExclusionStore, tracker *Tracker) Service {
	return &service{
		store:      store,
		composer:   NewComposer(store, tracker),
		exclusions: exclusions,
		logger:     logging.Component("recommend"),
	}
}

func (s *service) GetRecommendedEvents(ctx context.Context, subjectID int64, limit int) ([]Candidate, error) {
	batch, err := s.GetRecommendedEventsExcluding(ctx, subjectID, limit, nil)
	if err != nil {
		return nil, err
	}
	return batch.Candidates, nil
}

func (s *service) GetRecommendedEventsExcluding(ctx context.Context, subjectID int64, limit int, excluded *ExclusionSet) (*Batch, error) {
	if limit <= 0 {
		limit = DefaultEventsLimit
	}
	return s.find(ctx, subjectID, Query{Pool: PoolEvents, Excluded: excluded, Limit: limit})
}

func (s *service) FindCompatibleUsers(ctx context.Context, subjectID int64, ageRanges []string, limit int, excluded *ExclusionSet) (*Batch, error) {
	if limit <= 0 {
		limit = DefaultPeopleLimit
	}
	return s.find(ctx, subjectID, Query{Pool: PoolUsers, AgeRanges: ageRanges, Excluded: excluded, Limit: limit})
}

func (s *service) find(ctx context.Context, subjectID int64, q Query) (*Batch, error) {
	subject, err := s.store.GetSubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			RecordFailure(q.Pool, "no_profile")
			return nil, ErrMissingRequiredAttribute
		}
		RecordFailure(q.Pool, "data_access")
		s.logger.Error().Err(err).Int64("subject", subjectID).Msg("failed to load subject")
		return nil, fmt.Errorf("%w: load subject: %w", ErrDataAccess, err)
	}

	q.Subject = subject
	return s.composer.FindCandidates(ctx, q)
}

func (s *service) NextEvents(ctx context.Context, subjectID int64, limit int) (*Batch, error) {
	excluded, err := s.loadExclusions(ctx, subjectID, PoolEvents)
	if err != nil {
		return nil, err
	}

	batch, err := s.GetRecommendedEventsExcluding(ctx, subjectID, limit, excluded)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, subjectID, PoolEvents, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *service) NextPeople(ctx context.Context, subjectID int64, ageRanges []string, limit int) (*Batch, error) {
	excluded, err := s.loadExclusions(ctx, subjectID, PoolUsers)
	if err != nil {
		return nil, err
	}

	batch, err := s.FindCompatibleUsers(ctx, subjectID, ageRanges, limit, excluded)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, subjectID, PoolUsers, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *service) Reset(ctx context.Context, subjectID int64, kind PoolKind) error {
	if err := s.exclusions.ResetExclusions(ctx, subjectID, kind); err != nil {
		return fmt.Errorf("%w: reset exclusions: %w", ErrDataAccess, err)
	}
	return nil
}

func (s *service) loadExclusions(ctx context.Context, subjectID int64, kind PoolKind) (*ExclusionSet, error) {
	excluded, err := s.exclusions.LoadExclusions(ctx, subjectID, kind)
	if err != nil {
		RecordFailure(kind, "data_access")
		s.logger.Error().Err(err).Int64("subject", subjectID).Str("pool", string(kind)).Msg("failed to load exclusions")
		return nil, fmt.Errorf("%w: load exclusions: %w", ErrDataAccess, err)
	}
	return excluded, nil
}

// persist only appends the new ids so concurrent pages never drop each other
func (s *service) persist(ctx context.Context, subjectID int64, kind PoolKind, batch *Batch) error {
	if len(batch.Candidates) == 0 {
		return nil
	}
	if err := s.exclusions.AppendExclusions(ctx, subjectID, kind, batch.IDs()); err != nil {
		s.logger.Error().Err(err).Int64("subject", subjectID).Str("pool", string(kind)).Msg("failed to persist exclusions")
		return fmt.Errorf("%w: persist exclusions: %w", ErrDataAccess, err)
	}
	return nil
}
