package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"typologylab/internal/domain"
)

// AttemptRepository abstracts where traversal snapshots live (in-memory, Redis, etc).
type AttemptRepository interface {
	Save(ctx context.Context, attempt domain.AttemptSnapshot) error
	Get(ctx context.Context, id string) (domain.AttemptSnapshot, error)
	Delete(ctx context.Context, id string) error
}

// QuizRepository loads dynamic quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, slug string) (domain.Quiz, error)
}

// ResultStore is the write-once history of completed attempts.
type ResultStore interface {
	CreateResult(ctx context.Context, result domain.SavedResult) (string, error)
	ListResults(ctx context.Context, filter domain.ResultFilter) ([]domain.SavedResult, error)
	RecordResponse(ctx context.Context, response domain.UserResponse) (string, error)
}

// ResultAggregator is implemented by result stores that can compute
// statistics without listing every result.
type ResultAggregator interface {
	ResultStats(ctx context.Context, filter domain.ResultFilter) (domain.ResultStats, error)
}

// IdentityProvider resolves the user behind a request. Anonymous callers yield nil, nil.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

const (
	defaultSaveTimeout = 10 * time.Second
	defaultStatusTTL   = 24 * time.Hour
)

// QuizService drives attempts through the scoring engine and hands completed
// results to the result store.
type QuizService struct {
	attempts    AttemptRepository
	quizzes     QuizRepository
	results     ResultStore
	identity    IdentityProvider
	log         *zap.Logger
	now         func() time.Time
	newID       func() string
	saveTimeout time.Duration
	fixed       domain.Quiz

	status   *statusHub
	submits  singleflight.Group
	inflight sync.WaitGroup
}

// Option customizes a QuizService.
type Option func(*QuizService)

func WithLogger(log *zap.Logger) Option {
	return func(s *QuizService) { s.log = log }
}

func WithIdentity(identity IdentityProvider) Option {
	return func(s *QuizService) { s.identity = identity }
}

// WithSaveTimeout bounds each result submission, independent of the triggering request.
func WithSaveTimeout(d time.Duration) Option {
	return func(s *QuizService) {
		if d > 0 {
			s.saveTimeout = d
		}
	}
}

// WithStatusTTL sets how long a finished submission status is remembered.
// It should match the attempt store TTL.
func WithStatusTTL(d time.Duration) Option {
	return func(s *QuizService) {
		if d > 0 {
			s.status.ttl = d
		}
	}
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(attempts AttemptRepository, quizzes QuizRepository, results ResultStore, opts ...Option) *QuizService {
	s := &QuizService{
		attempts:    attempts,
		quizzes:     quizzes,
		results:     results,
		log:         zap.NewNop(),
		now:         time.Now,
		newID:       uuid.NewString,
		saveTimeout: defaultSaveTimeout,
		fixed:       EgenTetoQuiz(),
		status:      newStatusHub(defaultStatusTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttemptView is the client-facing state of an attempt.
type AttemptView struct {
	ID            string             `json:"id"`
	Quiz          string             `json:"quiz"`
	Phase         string             `json:"phase"`
	Demographic   domain.Demographic `json:"demographic,omitempty"`
	CurrentIndex  int                `json:"current_index"`
	QuestionCount int                `json:"question_count"`
	ChosenWeights []int              `json:"chosen_weights"`
	Question      *domain.Question   `json:"question,omitempty"`
	Outcome       *Outcome           `json:"outcome,omitempty"`
}

// Quiz returns the question set addressed by slug.
func (s *QuizService) Quiz(ctx context.Context, slug string) (domain.Quiz, error) {
	return s.quizFor(ctx, normalizeSlug(slug))
}

// StartAttempt creates a fresh traversal session for a quiz. Attempts are
// independent; nothing is shared between them.
func (s *QuizService) StartAttempt(ctx context.Context, slug string) (AttemptView, error) {
	slug = normalizeSlug(slug)
	quiz, err := s.quizFor(ctx, slug)
	if err != nil {
		return AttemptView{}, err
	}

	var userID string
	if s.identity != nil {
		user, err := s.identity.CurrentUser(ctx)
		if err != nil {
			return AttemptView{}, err
		}
		if user != nil {
			userID = user.ID
		}
	}

	now := s.now()
	snap := domain.AttemptSnapshot{
		ID:        s.newID(),
		QuizSlug:  slug,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tr := NewTraversal(len(quiz.Questions))
	tr.Snapshot(&snap)
	if err := s.attempts.Save(ctx, snap); err != nil {
		return AttemptView{}, fmt.Errorf("save attempt: %w", err)
	}
	s.log.Debug("attempt started", zap.String("attempt_id", snap.ID), zap.String("slug", slug))
	return s.view(snap, tr, quiz)
}

// Attempt returns the current state of an attempt.
func (s *QuizService) Attempt(ctx context.Context, id string) (AttemptView, error) {
	snap, quiz, tr, err := s.load(ctx, id)
	if err != nil {
		return AttemptView{}, err
	}
	return s.view(snap, tr, quiz)
}

// SelectAttribute records the demographic and moves to the first question.
// Dynamic quizzes have no demographic step; any value starts them.
func (s *QuizService) SelectAttribute(ctx context.Context, id, demographic string) (AttemptView, error) {
	return s.mutate(ctx, id, func(tr *Traversal, quiz domain.Quiz) error {
		if quiz.Slug != FixedQuizSlug {
			return tr.Begin()
		}
		d, err := domain.ParseDemographic(demographic)
		if err != nil {
			return err
		}
		return tr.SelectAttribute(d)
	})
}

// Answer records the weight of the chosen option for the current question.
func (s *QuizService) Answer(ctx context.Context, id string, optionIndex int) (AttemptView, error) {
	return s.mutate(ctx, id, func(tr *Traversal, quiz domain.Quiz) error {
		if phase := tr.Phase(); phase != PhaseAnswering {
			return fmt.Errorf("%w: answer while %s", domain.ErrInvalidTransition, phase)
		}
		question := quiz.Questions[tr.CurrentIndex()]
		if optionIndex < 0 || optionIndex >= len(question.Options) {
			return fmt.Errorf("%w: index %d for question %s", domain.ErrOptionNotFound, optionIndex, question.ID)
		}
		_, err := tr.Answer(question.Options[optionIndex].Score)
		return err
	})
}

// Previous undoes the last answer.
func (s *QuizService) Previous(ctx context.Context, id string) (AttemptView, error) {
	return s.mutate(ctx, id, func(tr *Traversal, _ domain.Quiz) error {
		return tr.Previous()
	})
}

// Restart returns the attempt to attribute selection.
func (s *QuizService) Restart(ctx context.Context, id string) (AttemptView, error) {
	return s.mutate(ctx, id, func(tr *Traversal, _ domain.Quiz) error {
		tr.Restart()
		return nil
	})
}

// Abandon discards an attempt. Submissions already in flight still finish.
func (s *QuizService) Abandon(ctx context.Context, id string) error {
	if err := s.attempts.Delete(ctx, id); err != nil {
		return err
	}
	s.status.forget(id)
	return nil
}

// SubmitResult persists the outcome of a completed attempt and waits for the
// store. A completion is written at most once: a saved submission is returned
// as is, and one still in flight is awaited instead of written again.
func (s *QuizService) SubmitResult(ctx context.Context, id string) (SubmissionStatus, error) {
	snap, quiz, tr, err := s.load(ctx, id)
	if err != nil {
		return SubmissionStatus{}, err
	}
	if !tr.Complete() {
		return SubmissionStatus{}, domain.ErrAttemptIncomplete
	}
	if last, ok := s.status.last(id); ok {
		switch last.State {
		case SubmissionSaved:
			return last, nil
		case SubmissionPending, SubmissionSaving:
			return s.awaitSubmission(ctx, id)
		}
	}
	outcome, err := s.outcome(tr, quiz)
	if err != nil {
		return SubmissionStatus{}, err
	}
	return s.submitOnce(ctx, snap, quiz, outcome)
}

func (s *QuizService) awaitSubmission(ctx context.Context, id string) (SubmissionStatus, error) {
	ch, cancel := s.status.subscribe(id)
	defer cancel()
	for {
		select {
		case status, ok := <-ch:
			if !ok {
				return SubmissionStatus{}, domain.ErrAttemptNotFound
			}
			switch status.State {
			case SubmissionSaved:
				return status, nil
			case SubmissionFailed:
				return status, &domain.PersistenceError{Op: "submit result", Err: errors.New(status.Error)}
			}
		case <-ctx.Done():
			return SubmissionStatus{}, ctx.Err()
		}
	}
}

// SubscribeStatus streams submission status changes for an attempt.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) SubscribeStatus(id string) (<-chan SubmissionStatus, func()) {
	return s.status.subscribe(id)
}

// Status returns the latest submission status of an attempt, if any was published.
func (s *QuizService) Status(id string) (SubmissionStatus, bool) {
	return s.status.last(id)
}

// Wait blocks until every background submission has finished.
func (s *QuizService) Wait() {
	s.inflight.Wait()
}

// ListResults returns saved fixed quiz results, newest first.
func (s *QuizService) ListResults(ctx context.Context, filter domain.ResultFilter) ([]domain.SavedResult, error) {
	results, err := s.results.ListResults(ctx, filter)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list results", Err: err}
	}
	return results, nil
}

// Statistics aggregates saved fixed quiz results.
func (s *QuizService) Statistics(ctx context.Context, filter domain.ResultFilter) (domain.ResultStats, error) {
	filter.Limit = 0
	if agg, ok := s.results.(ResultAggregator); ok {
		stats, err := agg.ResultStats(ctx, filter)
		if err != nil {
			return domain.ResultStats{}, &domain.PersistenceError{Op: "result stats", Err: err}
		}
		return stats, nil
	}
	results, err := s.ListResults(ctx, filter)
	if err != nil {
		return domain.ResultStats{}, err
	}
	return summarize(results), nil
}

func summarize(results []domain.SavedResult) domain.ResultStats {
	stats := domain.NewResultStats()
	for _, r := range results {
		stats.Add(r.Result, r.Gender, 1, r.Score)
	}
	return stats
}

func (s *QuizService) mutate(ctx context.Context, id string, fn func(*Traversal, domain.Quiz) error) (AttemptView, error) {
	snap, quiz, tr, err := s.load(ctx, id)
	if err != nil {
		return AttemptView{}, err
	}
	wasComplete := tr.Complete()
	if err := fn(tr, quiz); err != nil {
		return AttemptView{}, err
	}

	tr.Snapshot(&snap)
	snap.UpdatedAt = s.now()
	if err := s.attempts.Save(ctx, snap); err != nil {
		return AttemptView{}, fmt.Errorf("save attempt: %w", err)
	}

	view, err := s.view(snap, tr, quiz)
	if err != nil {
		return AttemptView{}, err
	}
	if !wasComplete && tr.Complete() {
		s.submitAsync(ctx, snap, quiz, *view.Outcome)
	}
	return view, nil
}

func (s *QuizService) load(ctx context.Context, id string) (domain.AttemptSnapshot, domain.Quiz, *Traversal, error) {
	snap, err := s.attempts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAttemptNotFound) {
			s.status.forget(id)
		}
		return domain.AttemptSnapshot{}, domain.Quiz{}, nil, err
	}
	quiz, err := s.quizFor(ctx, snap.QuizSlug)
	if err != nil {
		return domain.AttemptSnapshot{}, domain.Quiz{}, nil, err
	}
	if len(quiz.Questions) != snap.QuestionCount {
		return domain.AttemptSnapshot{}, domain.Quiz{}, nil, &domain.FetchError{
			Slug: snap.QuizSlug,
			Err:  fmt.Errorf("question set changed from %d to %d questions", snap.QuestionCount, len(quiz.Questions)),
		}
	}
	tr, err := RestoreTraversal(snap)
	if err != nil {
		return domain.AttemptSnapshot{}, domain.Quiz{}, nil, err
	}
	return snap, quiz, tr, nil
}

func (s *QuizService) quizFor(ctx context.Context, slug string) (domain.Quiz, error) {
	if slug == FixedQuizSlug {
		return s.fixed, nil
	}
	if s.quizzes == nil {
		return domain.Quiz{}, &domain.FetchError{Slug: slug, Err: domain.ErrQuizNotFound}
	}
	quiz, err := s.quizzes.GetQuiz(ctx, slug)
	if err != nil {
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			return domain.Quiz{}, err
		}
		return domain.Quiz{}, &domain.FetchError{Slug: slug, Err: err}
	}
	if quiz.Slug == "" {
		quiz.Slug = slug
	}
	return quiz, nil
}

func (s *QuizService) view(snap domain.AttemptSnapshot, tr *Traversal, quiz domain.Quiz) (AttemptView, error) {
	view := AttemptView{
		ID:            snap.ID,
		Quiz:          snap.QuizSlug,
		Phase:         tr.Phase().String(),
		Demographic:   tr.Demographic(),
		CurrentIndex:  tr.CurrentIndex(),
		QuestionCount: tr.QuestionCount(),
		ChosenWeights: tr.ChosenWeights(),
	}
	switch tr.Phase() {
	case PhaseAnswering:
		q := quiz.Questions[tr.CurrentIndex()]
		view.Question = &q
	case PhaseComplete:
		outcome, err := s.outcome(tr, quiz)
		if err != nil {
			return AttemptView{}, err
		}
		view.Outcome = &outcome
	}
	return view, nil
}

func (s *QuizService) outcome(tr *Traversal, quiz domain.Quiz) (Outcome, error) {
	total, err := tr.Total()
	if err != nil {
		return Outcome{}, err
	}
	if quiz.Slug == FixedQuizSlug {
		return PresentFixed(total, tr.Demographic())
	}
	return PresentDynamic(total, quiz), nil
}

// submitAsync persists a just-completed attempt without holding up the caller.
// The submission outlives the triggering request.
func (s *QuizService) submitAsync(ctx context.Context, snap domain.AttemptSnapshot, quiz domain.Quiz, outcome Outcome) {
	s.status.publish(SubmissionStatus{AttemptID: snap.ID, State: SubmissionPending, UpdatedAt: s.now()})
	detached := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		_, _ = s.submitOnce(detached, snap, quiz, outcome)
	}()
}

// submitOnce collapses concurrent submissions of one attempt into a single write.
func (s *QuizService) submitOnce(ctx context.Context, snap domain.AttemptSnapshot, quiz domain.Quiz, outcome Outcome) (SubmissionStatus, error) {
	v, err, _ := s.submits.Do(snap.ID, func() (any, error) {
		return s.submit(ctx, snap, quiz, outcome)
	})
	return v.(SubmissionStatus), err
}

func (s *QuizService) submit(ctx context.Context, snap domain.AttemptSnapshot, quiz domain.Quiz, outcome Outcome) (SubmissionStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.saveTimeout)
	defer cancel()

	s.status.publish(SubmissionStatus{AttemptID: snap.ID, State: SubmissionSaving, UpdatedAt: s.now()})

	recordID, err := s.persist(ctx, snap, quiz, outcome)
	if err != nil {
		perr := &domain.PersistenceError{Op: "submit result", Err: err}
		s.log.Warn("result submission failed",
			zap.String("attempt_id", snap.ID),
			zap.String("slug", snap.QuizSlug),
			zap.Error(err))
		status := SubmissionStatus{AttemptID: snap.ID, State: SubmissionFailed, Error: perr.Error(), UpdatedAt: s.now()}
		s.status.publish(status)
		return status, perr
	}

	s.log.Info("result saved",
		zap.String("attempt_id", snap.ID),
		zap.String("record_id", recordID),
		zap.Int("score", outcome.Score))
	status := SubmissionStatus{AttemptID: snap.ID, State: SubmissionSaved, RecordID: recordID, UpdatedAt: s.now()}
	s.status.publish(status)
	return status, nil
}

func (s *QuizService) persist(ctx context.Context, snap domain.AttemptSnapshot, quiz domain.Quiz, outcome Outcome) (string, error) {
	now := s.now().UTC()
	if quiz.Slug == FixedQuizSlug {
		return s.results.CreateResult(ctx, domain.SavedResult{
			UserID:    snap.UserID,
			Gender:    snap.Demographic,
			Result:    outcome.Archetype,
			Score:     outcome.Score,
			Answers:   snap.Weights,
			CreatedAt: now,
		})
	}
	return s.results.RecordResponse(ctx, domain.UserResponse{
		TestID:    quiz.ID,
		SessionID: snap.ID,
		Answers:   snap.Weights,
		ResultID:  outcome.ResultID,
		Score:     outcome.Score,
		Metadata: map[string]any{
			"completed_at": now.Format(time.RFC3339),
			"quiz_slug":    quiz.Slug,
		},
		CreatedAt: now,
	})
}

func normalizeSlug(slug string) string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return FixedQuizSlug
	}
	return slug
}
