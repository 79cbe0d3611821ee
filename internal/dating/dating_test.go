package dating

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type edge struct {
	kind     Kind
	from, to int64
}

type memRepo struct {
	mu        sync.Mutex
	users     map[int64]bool
	reactions map[edge]bool // value is is_reciprocated
	likes     map[int64]int
}

func newMemRepo(users ...int64) *memRepo {
	m := &memRepo{users: map[int64]bool{}, reactions: map[edge]bool{}, likes: map[int64]int{}}
	for _, u := range users {
		m.users[u] = true
	}
	return m
}

func (m *memRepo) Toggle(_ context.Context, from, to int64, kind Kind) (*ToggleResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.users[from] || !m.users[to] {
		return nil, ErrUserNotFound
	}
	e, rev := edge{kind, from, to}, edge{kind, to, from}
	res := &ToggleResult{Kind: kind}

	if _, ok := m.reactions[e]; ok {
		delete(m.reactions, e)
		if _, ok := m.reactions[rev]; ok {
			m.reactions[rev] = false
		}
		if kind == KindLike && m.likes[to] > 0 {
			m.likes[to]--
		}
		return res, nil
	}

	_, mutual := m.reactions[rev]
	m.reactions[e] = mutual
	if mutual {
		m.reactions[rev] = true
	}
	if kind == KindLike {
		m.likes[to]++
	}
	res.Added, res.Mutual = true, mutual
	return res, nil
}

func (m *memRepo) Snapshot(_ context.Context, tgID int64) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := &Snapshot{}
	for e, recip := range m.reactions {
		if e.from != tgID {
			continue
		}
		if e.kind == KindLike {
			snap.Liked = append(snap.Liked, e.to)
		} else {
			snap.Friended = append(snap.Friended, e.to)
		}
		if recip && !snap.IsMutual(e.to) {
			snap.Reciprocated = append(snap.Reciprocated, e.to)
		}
	}
	return snap, nil
}

func (m *memRepo) ListReactions(_ context.Context, tgID int64) ([]*Reaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Reaction
	for e, recip := range m.reactions {
		if e.from == tgID || e.to == tgID {
			out = append(out, &Reaction{Kind: e.kind, FromTgID: e.from, ToTgID: e.to, IsReciprocated: recip})
		}
	}
	return out, nil
}

func (m *memRepo) ReconcileLikes(context.Context) (int64, error) { return 0, nil }

type match struct {
	recipient, other int64
	kind             Kind
}

type recordingNotifier struct {
	mu      sync.Mutex
	matches []match
	err     error
}

func (n *recordingNotifier) NotifyMatch(_ context.Context, recipient, other int64, kind Kind) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.matches = append(n.matches, match{recipient, other, kind})
	return n.err
}

func strPtr(s string) *string { return &s }

func TestKindForTarget(t *testing.T) {
	assert.Equal(t, KindLike, KindForTarget(strPtr("Отношения")))
	assert.Equal(t, KindFriend, KindForTarget(strPtr("Дружба")))
	assert.Equal(t, KindFriend, KindForTarget(nil))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("like")
	require.NoError(t, err)
	assert.Equal(t, KindLike, k)

	_, err = ParseKind("poke")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestService_Toggle(t *testing.T) {
	ctx := context.Background()

	t.Run("self", func(t *testing.T) {
		svc := NewService(newMemRepo(1), &recordingNotifier{})
		_, err := svc.Toggle(ctx, 1, 1, KindLike)
		assert.ErrorIs(t, err, ErrSelfReaction)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := NewService(newMemRepo(1), &recordingNotifier{})
		_, err := svc.Toggle(ctx, 1, 2, KindLike)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("add then remove", func(t *testing.T) {
		repo := newMemRepo(1, 2)
		svc := NewService(repo, &recordingNotifier{})

		res, err := svc.Toggle(ctx, 1, 2, KindLike)
		require.NoError(t, err)
		assert.True(t, res.Added)
		assert.False(t, res.Mutual)
		assert.Equal(t, 1, repo.likes[2])

		res, err = svc.Toggle(ctx, 1, 2, KindLike)
		require.NoError(t, err)
		assert.False(t, res.Added)
		assert.Equal(t, 0, repo.likes[2])
	})

	t.Run("mutual notifies both sides", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := NewService(newMemRepo(1, 2), notifier)

		_, err := svc.Toggle(ctx, 1, 2, KindFriend)
		require.NoError(t, err)
		assert.Empty(t, notifier.matches)

		res, err := svc.Toggle(ctx, 2, 1, KindFriend)
		require.NoError(t, err)
		assert.True(t, res.Mutual)
		assert.ElementsMatch(t, []match{{2, 1, KindFriend}, {1, 2, KindFriend}}, notifier.matches)
	})

	t.Run("kinds are independent", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := NewService(newMemRepo(1, 2), notifier)

		_, err := svc.Toggle(ctx, 1, 2, KindLike)
		require.NoError(t, err)
		res, err := svc.Toggle(ctx, 2, 1, KindFriend)
		require.NoError(t, err)
		assert.False(t, res.Mutual)
		assert.Empty(t, notifier.matches)
	})

	t.Run("notifier failure keeps the match", func(t *testing.T) {
		notifier := &recordingNotifier{err: errors.New("bot blocked")}
		svc := NewService(newMemRepo(1, 2), notifier)

		_, err := svc.Toggle(ctx, 1, 2, KindLike)
		require.NoError(t, err)
		res, err := svc.Toggle(ctx, 2, 1, KindLike)
		require.NoError(t, err)
		assert.True(t, res.Mutual)
		assert.Len(t, notifier.matches, 2)
	})
}

func TestService_Snapshot(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo(1, 2, 3), &recordingNotifier{})

	for _, step := range []struct {
		from, to int64
		kind     Kind
	}{{1, 2, KindLike}, {2, 1, KindLike}, {1, 3, KindFriend}} {
		_, err := svc.Toggle(ctx, step.from, step.to, step.kind)
		require.NoError(t, err)
	}

	snap, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.True(t, snap.Has(KindLike, 2))
	assert.False(t, snap.Has(KindFriend, 2))
	assert.True(t, snap.Has(KindFriend, 3))
	assert.True(t, snap.IsMutual(2))
	assert.False(t, snap.IsMutual(3))

	// withdrawing the like breaks reciprocity for the other side
	_, err = svc.Toggle(ctx, 1, 2, KindLike)
	require.NoError(t, err)
	snap, err = svc.Snapshot(ctx, 2)
	require.NoError(t, err)
	assert.True(t, snap.Has(KindLike, 1))
	assert.False(t, snap.IsMutual(1))
}

func TestUntilNext(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 5, 1, 3, 30, 0, 0, loc)

	assert.Equal(t, 30*time.Minute, untilNext(now, 4, 0))
	assert.Equal(t, 23*time.Hour+30*time.Minute, untilNext(now, 3, 0))
	assert.Equal(t, 24*time.Hour, untilNext(now, 3, 30))
}

func TestHandler_GetReactions(t *testing.T) {
	svc := NewService(newMemRepo(1, 2), &recordingNotifier{})
	_, err := svc.Toggle(context.Background(), 1, 2, KindLike)
	require.NoError(t, err)

	router := mux.NewRouter()
	RegisterRoutes(router, NewHandler(svc), func(next http.Handler) http.Handler { return next })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/reactions/2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"from_tg_id":1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/reactions/reconcile", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
