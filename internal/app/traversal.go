package app

import (
	"fmt"

	"typologylab/internal/domain"
)

// Phase is the coarse state of a Traversal.
type Phase int

const (
	PhaseSelectingAttribute Phase = iota
	PhaseAnswering
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseSelectingAttribute:
		return "selecting_attribute"
	case PhaseAnswering:
		return "answering"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Traversal walks a question set once, in order, with single-step undo.
// len(weights) is always the current question index.
type Traversal struct {
	questionCount int
	started       bool
	demographic   domain.Demographic
	weights       []int
}

// NewTraversal creates a traversal over n questions, waiting for an attribute.
func NewTraversal(n int) *Traversal {
	if n < 0 {
		n = 0
	}
	return &Traversal{questionCount: n, weights: make([]int, 0, n)}
}

// RestoreTraversal rebuilds a traversal from a snapshot, rejecting inconsistent state.
func RestoreTraversal(s domain.AttemptSnapshot) (*Traversal, error) {
	if s.QuestionCount < 0 || len(s.Weights) > s.QuestionCount {
		return nil, fmt.Errorf("restore traversal: %d weights for %d questions", len(s.Weights), s.QuestionCount)
	}
	if !s.Started && len(s.Weights) > 0 {
		return nil, fmt.Errorf("restore traversal: answers recorded before attribute selection")
	}
	weights := make([]int, len(s.Weights), s.QuestionCount)
	copy(weights, s.Weights)
	return &Traversal{
		questionCount: s.QuestionCount,
		started:       s.Started,
		demographic:   s.Demographic,
		weights:       weights,
	}, nil
}

// Snapshot copies the traversal state into s, leaving identity fields untouched.
func (t *Traversal) Snapshot(s *domain.AttemptSnapshot) {
	s.QuestionCount = t.questionCount
	s.Started = t.started
	s.Demographic = t.demographic
	s.Weights = t.ChosenWeights()
}

// Phase reports the current state.
func (t *Traversal) Phase() Phase {
	switch {
	case !t.started:
		return PhaseSelectingAttribute
	case len(t.weights) == t.questionCount:
		return PhaseComplete
	default:
		return PhaseAnswering
	}
}

func (t *Traversal) CurrentIndex() int { return len(t.weights) }
func (t *Traversal) QuestionCount() int { return t.questionCount }
func (t *Traversal) Demographic() domain.Demographic { return t.demographic }
func (t *Traversal) Complete() bool { return t.Phase() == PhaseComplete }

// ChosenWeights returns a copy of the weights recorded so far.
func (t *Traversal) ChosenWeights() []int {
	out := make([]int, len(t.weights))
	copy(out, t.weights)
	return out
}

// SelectAttribute records the demographic and moves to the first question.
// A zero-question set completes immediately.
func (t *Traversal) SelectAttribute(d domain.Demographic) error {
	if t.started {
		return fmt.Errorf("%w: select attribute while %s", domain.ErrInvalidTransition, t.Phase())
	}
	t.started = true
	t.demographic = d
	return nil
}

// Begin starts a traversal that has no demographic step.
func (t *Traversal) Begin() error {
	return t.SelectAttribute("")
}

// Answer appends weight for the current question and reports whether the set is now complete.
func (t *Traversal) Answer(weight int) (bool, error) {
	if phase := t.Phase(); phase != PhaseAnswering {
		return false, fmt.Errorf("%w: answer while %s", domain.ErrInvalidTransition, phase)
	}
	t.weights = append(t.weights, weight)
	return len(t.weights) == t.questionCount, nil
}

// Previous removes the last recorded weight. At the first question it does nothing.
func (t *Traversal) Previous() error {
	if !t.started {
		return fmt.Errorf("%w: previous while %s", domain.ErrInvalidTransition, PhaseSelectingAttribute)
	}
	if len(t.weights) == 0 {
		return nil
	}
	t.weights = t.weights[:len(t.weights)-1]
	return nil
}

// Restart clears the attribute and every answer.
func (t *Traversal) Restart() {
	t.started = false
	t.demographic = ""
	t.weights = t.weights[:0]
}

// Total sums the weights once the traversal is complete.
func (t *Traversal) Total() (int, error) {
	if !t.Complete() {
		return 0, domain.ErrAttemptIncomplete
	}
	return Aggregate(t.weights), nil
}
