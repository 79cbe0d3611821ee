// internal/session/memory.go

package session

import (
	"context"
	"sync"

	"github.com/goccy/go-json"

	"github.com/weekender/weekender-bot/internal/recommend"
)

type memoryStore struct {
	mu     sync.RWMutex
	states map[int64][]byte
	shown  map[recommend.PoolKind]map[int64][]int64
}

// NewMemoryStore is used when no Redis URL is configured. State is lost on restart.
func NewMemoryStore() Store {
	return &memoryStore{
		states: make(map[int64][]byte),
		shown:  make(map[recommend.PoolKind]map[int64][]int64),
	}
}

// Get returns a private copy so callers can mutate it freely
func (m *memoryStore) Get(_ context.Context, tgID int64) (*State, error) {
	m.mu.RLock()
	data, ok := m.states[tgID]
	m.mu.RUnlock()

	st := &State{}
	if !ok {
		return st, nil
	}
	if err := json.Unmarshal(data, st); err != nil {
		return &State{}, nil
	}
	return st, nil
}

func (m *memoryStore) Save(_ context.Context, tgID int64, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.states[tgID] = data
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Clear(_ context.Context, tgID int64) error {
	m.mu.Lock()
	delete(m.states, tgID)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) LoadExclusions(_ context.Context, subjectID int64, kind recommend.PoolKind) (*recommend.ExclusionSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return recommend.NewExclusionSet(m.shown[kind][subjectID]...), nil
}

func (m *memoryStore) AppendExclusions(_ context.Context, subjectID int64, kind recommend.PoolKind, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shown[kind] == nil {
		m.shown[kind] = make(map[int64][]int64)
	}
	m.shown[kind][subjectID] = recommend.NewExclusionSet(m.shown[kind][subjectID]...).With(ids...).IDs()
	return nil
}

func (m *memoryStore) ResetExclusions(_ context.Context, subjectID int64, kind recommend.PoolKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shown[kind], subjectID)
	return nil
}
