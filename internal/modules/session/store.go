// README: Session store backed by Redis; sessions are JSON blobs that expire on their own.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:%s"
	// Optimistic updates retry this many times when another writer touched the key.
	maxUpdateAttempts = 5
)

type Store struct {
	redis *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{redis: rdb}
}

func sessionKey(id string) string {
	return fmt.Sprintf(sessionKeyPrefix, id)
}

func ttlOf(s *Session) time.Duration {
	return time.Until(s.ExpiresAt)
}

func (st *Store) Create(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ok, err := st.redis.SetNX(ctx, sessionKey(s.ID), raw, ttlOf(s)).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (st *Store) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := st.redis.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

// Update applies fn to the stored session under WATCH, so two concurrent edits of one session
// never overwrite each other. fn must not have side effects beyond the session it is given.
func (st *Store) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	key := sessionKey(id)
	var out *Session

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var s Session
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode session %s: %w", id, err)
		}
		if err := fn(&s); err != nil {
			return err
		}
		next, err := json.Marshal(&s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, redis.KeepTTL)
			return nil
		})
		if err == nil {
			out = &s
		}
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := st.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrConflict
}

func (st *Store) Delete(ctx context.Context, id string) error {
	return st.redis.Del(ctx, sessionKey(id)).Err()
}
