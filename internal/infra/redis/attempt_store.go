package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"typologylab/internal/domain"
)

// AttemptStore keeps attempt snapshots in Redis so a traversal survives a
// process restart or a page reload routed to another instance.
// Snapshots are stored as: SET attempt:{id} {json} EX ttl, refreshed on every save.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Save(ctx context.Context, snap domain.AttemptSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	return s.client.Set(ctx, attemptKey(snap.ID), data, s.ttl).Err()
}

func (s *AttemptStore) Get(ctx context.Context, id string) (domain.AttemptSnapshot, error) {
	data, err := s.client.Get(ctx, attemptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AttemptSnapshot{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.AttemptSnapshot{}, fmt.Errorf("get attempt: %w", err)
	}
	var snap domain.AttemptSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.AttemptSnapshot{}, fmt.Errorf("decode attempt %s: %w", id, err)
	}
	return snap, nil
}

func (s *AttemptStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, attemptKey(id)).Err()
}

func attemptKey(id string) string {
	return "attempt:" + id
}
