// internal/recommend/exclusion.go
// Exclusion sets and randomized paging

package recommend

import (
	"math/rand"
	"sync"
	"time"
)

// ExclusionSet holds ids already shown to a subject, in the order shown.
// Values are treated as immutable: With returns a new set.
type ExclusionSet struct {
	ids  []int64
	seen map[int64]struct{}
}

func NewExclusionSet(ids ...int64) *ExclusionSet {
	s := &ExclusionSet{seen: make(map[int64]struct{}, len(ids))}
	s.add(ids...)
	return s
}

func (s *ExclusionSet) add(ids ...int64) {
	for _, id := range ids {
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
}

// Contains is safe on a nil set
func (s *ExclusionSet) Contains(id int64) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[id]
	return ok
}

func (s *ExclusionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns a copy of the ids in insertion order
func (s *ExclusionSet) IDs() []int64 {
	if s == nil {
		return nil
	}
	return append([]int64(nil), s.ids...)
}

// With returns a new set holding s plus ids
func (s *ExclusionSet) With(ids ...int64) *ExclusionSet {
	next := NewExclusionSet(s.IDs()...)
	next.add(ids...)
	return next
}

// Tracker pages through a match list without repeats.
// The RNG is explicit so tests can seed it.
type Tracker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTracker uses a time-seeded source when rng is nil
func NewTracker(rng *rand.Rand) *Tracker {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Tracker{rng: rng}
}

// NextBatch drops excluded matches, shuffles the rest and keeps at most
// limit of them (limit <= 0 keeps all). The returned set is excluded plus
// the batch ids; on an empty batch it is excluded itself.
func (t *Tracker) NextBatch(matches []Candidate, excluded *ExclusionSet, limit int) ([]Candidate, *ExclusionSet) {
	if excluded == nil {
		excluded = NewExclusionSet()
	}

	remaining := make([]Candidate, 0, len(matches))
	for _, c := range matches {
		if !excluded.Contains(c.ID) {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		return remaining, excluded
	}

	t.mu.Lock()
	t.rng.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})
	t.mu.Unlock()

	if limit > 0 && len(remaining) > limit {
		remaining = remaining[:limit]
	}

	ids := make([]int64, len(remaining))
	for i, c := range remaining {
		ids[i] = c.ID
	}
	return remaining, excluded.With(ids...)
}
