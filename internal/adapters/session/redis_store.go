package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/providers"
	redisclient "github.com/medicapp/backend/internal/infrastructure/clients/redis"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "chat:session:"
	maxAppendRetries = 5
	scanBatchSize    = 200
)

// RedisStore keeps each session as a JSON document with a TTL equal to the
// session timeout, so idle sessions also expire without a sweep.
type RedisStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

var _ providers.SessionStore = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client *redisclient.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(id string) string {
	return redisKeyPrefix + id
}

// Get implements providers.SessionStore.
func (s *RedisStore) Get(ctx context.Context, id string) (*entities.Session, error) {
	data, err := s.client.Client().Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var stored entities.Session
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &stored, nil
}

// Upsert implements providers.SessionStore.
func (s *RedisStore) Upsert(ctx context.Context, session *entities.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidSession
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Client().Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Append implements providers.SessionStore using WATCH/MULTI so concurrent
// appends to the same session are never lost.
func (s *RedisStore) Append(ctx context.Context, id string, now time.Time, seed []entities.Turn, turns ...entities.Turn) (*entities.Session, bool, error) {
	if id == "" {
		return nil, false, ErrInvalidSession
	}

	key := sessionKey(id)
	var result *entities.Session
	var created bool

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			result = newSession(id, now, seed)
			created = true
		case err != nil:
			return err
		default:
			result = &entities.Session{}
			if err := json.Unmarshal(data, result); err != nil {
				return fmt.Errorf("failed to decode session %s: %w", id, err)
			}
			created = false
		}

		result.History = append(result.History, turns...)
		result.LastActive = now

		encoded, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		err := s.client.Client().Watch(ctx, txf, key)
		if err == nil {
			return result, created, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, false, fmt.Errorf("failed to append to session: %w", err)
	}

	return nil, false, fmt.Errorf("failed to append to session %s: too much contention", id)
}

// SweepExpired implements providers.SessionStore. Redis TTLs already evict
// idle sessions; the scan removes those whose TTL was extended elsewhere.
func (s *RedisStore) SweepExpired(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	err := s.scan(ctx, func(key string) error {
		data, err := s.client.Client().Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var stored entities.Session
		if err := json.Unmarshal(data, &stored); err != nil || stored.LastActive.Before(cutoff) {
			if err := s.client.Client().Del(ctx, key).Err(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to sweep sessions: %w", err)
	}
	return removed, nil
}

// Len implements providers.SessionStore.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	count := 0
	err := s.scan(ctx, func(string) error {
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// Close implements providers.SessionStore. The Redis client is owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}

func (s *RedisStore) scan(ctx context.Context, fn func(key string) error) error {
	iter := s.client.Client().Scan(ctx, 0, redisKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		if err := fn(iter.Val()); err != nil {
			return err
		}
	}
	return iter.Err()
}
