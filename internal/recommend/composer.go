// internal/recommend/composer.go
// Candidate query composition: pool load, filters, exclusion, shuffle

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/weekender/weekender-bot/internal/common/logging"
)

// Query describes one recommendation request
type Query struct {
	Subject *Subject
	Pool    PoolKind

	// AgeRanges are chosen by the subject for the user pool and are
	// matched against each candidate's own age. Ignored for events.
	AgeRanges []string

	Excluded *ExclusionSet
	Limit    int
}

// Composer applies the compatibility filters to a candidate pool
type Composer struct {
	store   Store
	tracker *Tracker
	logger  zerolog.Logger
}

func NewComposer(store Store, tracker *Tracker) *Composer {
	if tracker == nil {
		tracker = NewTracker(nil)
	}
	return &Composer{
		store:   store,
		tracker: tracker,
		logger:  logging.Component("recommend"),
	}
}

// FindCandidates returns the next batch for q. It fails with
// ErrMissingRequiredAttribute when the subject has no age and with
// ErrDataAccess when the store fails. An empty batch is not an error.
func (c *Composer) FindCandidates(ctx context.Context, q Query) (*Batch, error) {
	start := time.Now()
	defer func() { RecordComposeDuration(q.Pool, time.Since(start)) }()

	if q.Subject == nil || q.Subject.Age == nil {
		RecordFailure(q.Pool, "missing_age")
		return nil, ErrMissingRequiredAttribute
	}

	pool, err := c.store.GetCandidatePool(ctx, q.Pool)
	if err != nil {
		return nil, c.dataAccess(q, "load pool", err)
	}

	var matches []Candidate
	switch q.Pool {
	case PoolEvents:
		matches, err = c.filterEvents(ctx, q.Subject, pool)
		if err != nil {
			return nil, c.dataAccess(q, "resolve interests", err)
		}
	case PoolUsers:
		matches = filterUsers(q.Subject, q.AgeRanges, pool)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPool, q.Pool)
	}

	items, next := c.tracker.NextBatch(matches, q.Excluded, q.Limit)
	batch := &Batch{
		Candidates: items,
		Excluded:   next,
		Exhausted:  len(items) == 0 && len(matches) > 0,
	}
	RecordBatch(q.Pool, batch)

	c.logger.Debug().
		Int64("subject", q.Subject.ID).
		Str("pool", string(q.Pool)).
		Int("pool_size", len(pool)).
		Int("matches", len(matches)).
		Int("returned", len(items)).
		Bool("exhausted", batch.Exhausted).
		Msg("candidates composed")

	return batch, nil
}

func (c *Composer) dataAccess(q Query, op string, err error) error {
	RecordFailure(q.Pool, "data_access")
	c.logger.Error().Err(err).
		Int64("subject", q.Subject.ID).
		Str("pool", string(q.Pool)).
		Str("op", op).
		Msg("candidate lookup failed")
	return fmt.Errorf("%w: %s: %w", ErrDataAccess, op, err)
}

func (c *Composer) filterEvents(ctx context.Context, subject *Subject, pool []Candidate) ([]Candidate, error) {
	matches := make([]Candidate, 0)

	compatible := compatibleRanges(*subject.Age, pool)
	if len(compatible) == 0 {
		return matches, nil
	}

	var interests []string
	if len(subject.Interests) > 0 {
		known, err := c.store.ResolveInterests(ctx, subject.Interests)
		if err != nil {
			return nil, err
		}
		// Listed interests that resolve to nothing select nothing.
		if len(known) == 0 {
			return matches, nil
		}
		interests = known
	}

	for _, cand := range pool {
		if cand.AgeRange == nil {
			continue
		}
		if _, ok := compatible[*cand.AgeRange]; !ok {
			continue
		}
		if subject.Gender != nil && !MatchesCategorical(cand.Gender, *subject.Gender) {
			continue
		}
		if subject.MaritalStatus != nil && !MatchesCategorical(cand.MaritalStatus, *subject.MaritalStatus) {
			continue
		}
		if !MatchesInterests(cand.InterestTags, interests) {
			continue
		}
		matches = append(matches, cand)
	}
	return matches, nil
}

// compatibleRanges evaluates each distinct range expression once
func compatibleRanges(age int, pool []Candidate) map[string]struct{} {
	seen := make(map[string]bool)
	compatible := make(map[string]struct{})
	for _, cand := range pool {
		if cand.AgeRange == nil {
			continue
		}
		expr := *cand.AgeRange
		if _, done := seen[expr]; done {
			continue
		}
		ok := IsAgeInRange(age, expr)
		seen[expr] = ok
		if ok {
			compatible[expr] = struct{}{}
		}
	}
	return compatible
}

func filterUsers(subject *Subject, ageRanges []string, pool []Candidate) []Candidate {
	ranges := make([]AgeRange, 0, len(ageRanges))
	for _, expr := range ageRanges {
		r, err := ParseAgeRange(expr)
		if err != nil {
			continue
		}
		ranges = append(ranges, r)
	}

	matches := make([]Candidate, 0)
	for _, cand := range pool {
		if cand.ID == subject.ID {
			continue
		}
		if len(ranges) > 0 && !ageInAny(cand.Age, ranges) {
			continue
		}
		if subject.District != nil && !MatchesDistrict(cand.District, *subject.District) {
			continue
		}
		matches = append(matches, cand)
	}
	return matches
}

func ageInAny(age *int, ranges []AgeRange) bool {
	if age == nil {
		return false
	}
	for _, r := range ranges {
		if r.Contains(*age) {
			return true
		}
	}
	return false
}

// IsUnavailable reports whether err means recommendations cannot be computed
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrMissingRequiredAttribute) || errors.Is(err, ErrDataAccess)
}
