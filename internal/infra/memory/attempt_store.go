package memory

import (
	"context"
	"sync"
	"time"

	"typologylab/internal/domain"
)

// AttemptStore keeps attempt snapshots in process memory. Attempts idle for
// longer than the TTL are treated as gone; a zero TTL keeps them forever.
type AttemptStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	attempts map[string]storedAttempt
}

type storedAttempt struct {
	snap      domain.AttemptSnapshot
	expiresAt time.Time
}

func NewAttemptStore(ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		ttl:      ttl,
		clock:    time.Now,
		attempts: make(map[string]storedAttempt),
	}
}

func (s *AttemptStore) Save(_ context.Context, snap domain.AttemptSnapshot) error {
	entry := storedAttempt{snap: copySnapshot(snap)}
	if s.ttl > 0 {
		entry.expiresAt = s.clock().Add(s.ttl)
	}
	s.mu.Lock()
	s.attempts[snap.ID] = entry
	s.mu.Unlock()
	return nil
}

func (s *AttemptStore) Get(_ context.Context, id string) (domain.AttemptSnapshot, error) {
	s.mu.RLock()
	entry, ok := s.attempts[id]
	s.mu.RUnlock()
	if !ok {
		return domain.AttemptSnapshot{}, domain.ErrAttemptNotFound
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		s.mu.Lock()
		delete(s.attempts, id)
		s.mu.Unlock()
		return domain.AttemptSnapshot{}, domain.ErrAttemptNotFound
	}
	return copySnapshot(entry.snap), nil
}

func (s *AttemptStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.attempts, id)
	s.mu.Unlock()
	return nil
}

func copySnapshot(snap domain.AttemptSnapshot) domain.AttemptSnapshot {
	if snap.Weights != nil {
		weights := make([]int, len(snap.Weights))
		copy(weights, snap.Weights)
		snap.Weights = weights
	}
	return snap
}
