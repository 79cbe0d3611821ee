// internal/session/redis.go

package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"github.com/weekender/weekender-bot/internal/recommend"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore keeps state as JSON and shown ids as sorted sets, all expiring after ttl of inactivity
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func stateKey(tgID int64) string {
	return fmt.Sprintf("session:%d", tgID)
}

func shownKey(tgID int64, kind recommend.PoolKind) string {
	return fmt.Sprintf("shown:%s:%d", kind, tgID)
}

func (s *redisStore) Get(ctx context.Context, tgID int64) (*State, error) {
	data, err := s.client.Get(ctx, stateKey(tgID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		// corrupt sessions restart the dialog
		return &State{}, nil
	}
	return &st, nil
}

func (s *redisStore) Save(ctx context.Context, tgID int64, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(tgID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context, tgID int64) error {
	if err := s.client.Del(ctx, stateKey(tgID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// LoadExclusions returns shown ids in the order they were shown
func (s *redisStore) LoadExclusions(ctx context.Context, subjectID int64, kind recommend.PoolKind) (*recommend.ExclusionSet, error) {
	members, err := s.client.ZRange(ctx, shownKey(subjectID, kind), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return recommend.NewExclusionSet(ids...), nil
}

func (s *redisStore) AppendExclusions(ctx context.Context, subjectID int64, kind recommend.PoolKind, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	key := shownKey(subjectID, kind)
	base := float64(time.Now().UnixMicro())

	members := make([]*redis.Z, len(ids))
	for i, id := range ids {
		members[i] = &redis.Z{Score: base + float64(i), Member: strconv.FormatInt(id, 10)}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, key, members...)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *redisStore) ResetExclusions(ctx context.Context, subjectID int64, kind recommend.PoolKind) error {
	if err := s.client.Del(ctx, shownKey(subjectID, kind)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
