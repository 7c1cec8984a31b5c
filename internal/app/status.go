package app

import (
	"sync"
	"time"
)

// SubmissionState tracks a result submission separately from the outcome it persists.
type SubmissionState string

const (
	SubmissionPending SubmissionState = "pending"
	SubmissionSaving  SubmissionState = "saving"
	SubmissionSaved   SubmissionState = "saved"
	SubmissionFailed  SubmissionState = "failed"
)

// SubmissionStatus is published on the status channel of an attempt.
type SubmissionStatus struct {
	AttemptID string          `json:"attempt_id"`
	State     SubmissionState `json:"state"`
	RecordID  string          `json:"record_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Terminal reports whether no further status will follow without a retry.
func (s SubmissionStatus) Terminal() bool {
	return s.State == SubmissionSaved || s.State == SubmissionFailed
}

// statusHub fans submission statuses out to per-attempt subscribers.
// Terminal statuses older than ttl are swept on publish.
type statusHub struct {
	mu        sync.Mutex
	ttl       time.Duration
	lastSweep time.Time
	latest    map[string]SubmissionStatus
	subs      map[string]map[chan SubmissionStatus]struct{}
}

func newStatusHub(ttl time.Duration) *statusHub {
	return &statusHub{
		ttl:    ttl,
		latest: make(map[string]SubmissionStatus),
		subs:   make(map[string]map[chan SubmissionStatus]struct{}),
	}
}

func (h *statusHub) last(attemptID string) (SubmissionStatus, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.latest[attemptID]
	return s, ok
}

func (h *statusHub) publish(status SubmissionStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[status.AttemptID] = status
	h.sweep(status.UpdatedAt)
	for ch := range h.subs[status.AttemptID] {
		select {
		case ch <- status:
		default:
			// Drop the oldest queued status so a slow reader never blocks publishers.
			select {
			case <-ch:
			default:
			}
			ch <- status
		}
	}
}

// sweep drops terminal statuses nobody is watching once they outlive ttl.
// It runs at most once per ttl. Callers hold h.mu.
func (h *statusHub) sweep(now time.Time) {
	if h.ttl <= 0 || now.Sub(h.lastSweep) < h.ttl {
		return
	}
	h.lastSweep = now
	cutoff := now.Add(-h.ttl)
	for id, s := range h.latest {
		if s.Terminal() && s.UpdatedAt.Before(cutoff) && len(h.subs[id]) == 0 {
			delete(h.latest, id)
		}
	}
}

func (h *statusHub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.latest)
}

// subscribe replays the latest status, if any, then streams updates.
func (h *statusHub) subscribe(attemptID string) (<-chan SubmissionStatus, func()) {
	ch := make(chan SubmissionStatus, 8)

	h.mu.Lock()
	if h.subs[attemptID] == nil {
		h.subs[attemptID] = make(map[chan SubmissionStatus]struct{})
	}
	h.subs[attemptID][ch] = struct{}{}
	if s, ok := h.latest[attemptID]; ok {
		ch <- s
	}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		set := h.subs[attemptID]
		if _, ok := set[ch]; !ok {
			return
		}
		delete(set, ch)
		close(ch)
		if len(set) == 0 {
			delete(h.subs, attemptID)
		}
	}
	return ch, cancel
}

// forget drops the remembered status; live subscribers are closed.
func (h *statusHub) forget(attemptID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.latest, attemptID)
	for ch := range h.subs[attemptID] {
		close(ch)
	}
	delete(h.subs, attemptID)
}
