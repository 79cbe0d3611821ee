// internal/session/store.go

package session

import (
	"context"
	"errors"

	"github.com/weekender/weekender-bot/internal/recommend"
)

var ErrStoreUnavailable = errors.New("session store unavailable")

// Store keeps per-user dialog state and the ids already shown to each user
type Store interface {
	Get(ctx context.Context, tgID int64) (*State, error)
	Save(ctx context.Context, tgID int64, state *State) error
	Clear(ctx context.Context, tgID int64) error

	recommend.ExclusionStore
}
