package dating

import (
	"time"

	"github.com/weekender/weekender-bot/internal/profile"
)

// Kind distinguishes romantic likes from friend requests
type Kind string

const (
	KindLike   Kind = "like"
	KindFriend Kind = "friend"
)

// ParseKind accepts the callback prefix of a toggle button
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindLike, KindFriend:
		return Kind(s), nil
	}
	return "", ErrUnknownKind
}

// KindForTarget picks the reaction a viewer with the given target sends
func KindForTarget(target *string) Kind {
	if target != nil && *target == profile.TargetRelationship {
		return KindLike
	}
	return KindFriend
}

type Reaction struct {
	ID             int64     `json:"id" db:"id"`
	Kind           Kind      `json:"kind" db:"kind"`
	FromTgID       int64     `json:"from_tg_id" db:"from_tg_id"`
	ToTgID         int64     `json:"to_tg_id" db:"to_tg_id"`
	IsReciprocated bool      `json:"is_reciprocated" db:"is_reciprocated"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ToggleResult is the state after a toggle
type ToggleResult struct {
	Kind   Kind `json:"kind"`
	Added  bool `json:"added"`
	Mutual bool `json:"mutual"`
}

// Snapshot lists the tg ids a user has reacted to, for rendering button states
type Snapshot struct {
	Liked        []int64 `json:"liked"`
	Friended     []int64 `json:"friended"`
	Reciprocated []int64 `json:"reciprocated"`
}

// Has reports whether the user already sent kind to tgID
func (s *Snapshot) Has(kind Kind, tgID int64) bool {
	list := s.Friended
	if kind == KindLike {
		list = s.Liked
	}
	for _, id := range list {
		if id == tgID {
			return true
		}
	}
	return false
}

// IsMutual reports whether tgID reciprocated any reaction
func (s *Snapshot) IsMutual(tgID int64) bool {
	for _, id := range s.Reciprocated {
		if id == tgID {
			return true
		}
	}
	return false
}
