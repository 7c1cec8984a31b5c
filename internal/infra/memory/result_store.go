package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"typologylab/internal/domain"
)

// ResultStore is the in-memory result history used when no database is configured.
type ResultStore struct {
	mu        sync.RWMutex
	results   []domain.SavedResult
	responses []domain.UserResponse
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) CreateResult(_ context.Context, result domain.SavedResult) (string, error) {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.Answers = append([]int(nil), result.Answers...)

	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
	return result.ID, nil
}

// ListResults returns matching results newest first.
func (s *ResultStore) ListResults(_ context.Context, filter domain.ResultFilter) ([]domain.SavedResult, error) {
	s.mu.RLock()
	out := make([]domain.SavedResult, 0, len(s.results))
	for i := len(s.results) - 1; i >= 0; i-- {
		if filter.Matches(s.results[i]) {
			out = append(out, s.results[i])
		}
	}
	s.mu.RUnlock()

	// Equal timestamps keep reverse insertion order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *ResultStore) RecordResponse(_ context.Context, response domain.UserResponse) (string, error) {
	if response.ID == "" {
		response.ID = uuid.NewString()
	}
	response.Answers = append([]int(nil), response.Answers...)

	s.mu.Lock()
	s.responses = append(s.responses, response)
	s.mu.Unlock()
	return response.ID, nil
}

// Responses returns the recorded dynamic quiz responses in insertion order.
func (s *ResultStore) Responses() []domain.UserResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.UserResponse(nil), s.responses...)
}
