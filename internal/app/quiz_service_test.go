package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typologylab/internal/app"
	"typologylab/internal/domain"
	"typologylab/internal/infra/memory"
)

func TestFixedQuizCompletesAndSaves(t *testing.T) {
	ctx := context.Background()
	results := memory.NewResultStore()
	service := newTestService(results)

	view, err := service.StartAttempt(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, app.FixedQuizSlug, view.Quiz)
	assert.Equal(t, "selecting_attribute", view.Phase)
	assert.Equal(t, 10, view.QuestionCount)

	view, err = service.SelectAttribute(ctx, view.ID, "Male")
	require.NoError(t, err)
	require.NotNil(t, view.Question)
	assert.Equal(t, "1", view.Question.ID)

	view = answerAll(t, service, view.ID, 0)
	require.NotNil(t, view.Outcome)
	assert.Equal(t, "complete", view.Phase)
	assert.Equal(t, domain.ArchetypeEgenMale, view.Outcome.Archetype)
	assert.Equal(t, 20, view.Outcome.Score)
	assert.Equal(t, "Egen Man", view.Outcome.Title)

	service.Wait()
	saved, err := service.ListResults(ctx, domain.ResultFilter{})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, domain.ArchetypeEgenMale, saved[0].Result)
	assert.Equal(t, domain.DemographicMale, saved[0].Gender)
	assert.Len(t, saved[0].Answers, 10)
}

func TestSubscribeStatusReportsSubmission(t *testing.T) {
	service := newTestService(memory.NewResultStore())

	view := startFixed(t, service, "female")
	ch, cancel := service.SubscribeStatus(view.ID)
	defer cancel()

	answerAll(t, service, view.ID, 3)

	var states []app.SubmissionState
	timeout := time.After(2 * time.Second)
	for {
		select {
		case status := <-ch:
			states = append(states, status.State)
			if status.Terminal() {
				assert.Equal(t, app.SubmissionSaved, status.State)
				assert.NotEmpty(t, status.RecordID)
				assert.Equal(t, []app.SubmissionState{app.SubmissionPending, app.SubmissionSaving, app.SubmissionSaved}, states)
				return
			}
		case <-timeout:
			t.Fatalf("no terminal status, got %v", states)
		}
	}
}

func TestPersistenceFailureKeepsOutcome(t *testing.T) {
	ctx := context.Background()
	results := &flakyResults{ResultStore: memory.NewResultStore(), fail: true}
	service := newTestService(results)

	view := startFixed(t, service, "male")
	view = answerAll(t, service, view.ID, 3)
	require.NotNil(t, view.Outcome, "outcome must be shown even if saving fails")
	assert.Equal(t, domain.ArchetypeTetoMale, view.Outcome.Archetype)

	service.Wait()
	ch, cancel := service.SubscribeStatus(view.ID)
	last := <-ch
	cancel()
	assert.Equal(t, app.SubmissionFailed, last.State)
	assert.NotEmpty(t, last.Error)

	again, err := service.Attempt(ctx, view.ID)
	require.NoError(t, err)
	require.NotNil(t, again.Outcome)
	assert.Equal(t, view.Outcome.Archetype, again.Outcome.Archetype)

	_, err = service.SubmitResult(ctx, view.ID)
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)

	results.setFail(false)
	status, err := service.SubmitResult(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, app.SubmissionSaved, status.State)

	// A saved submission is not written twice.
	_, err = service.SubmitResult(ctx, view.ID)
	require.NoError(t, err)
	saved, err := service.ListResults(ctx, domain.ResultFilter{})
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestRetryDuringSaveWritesOnce(t *testing.T) {
	ctx := context.Background()
	results := &blockingResults{
		ResultStore: memory.NewResultStore(),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	service := newTestService(results)

	view := startFixed(t, service, "male")
	answerAll(t, service, view.ID, 0)
	<-results.entered

	done := make(chan app.SubmissionStatus, 1)
	go func() {
		status, err := service.SubmitResult(ctx, view.ID)
		assert.NoError(t, err)
		done <- status
	}()

	select {
	case <-done:
		t.Fatal("retry returned before the pending save finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(results.release)

	select {
	case status := <-done:
		assert.Equal(t, app.SubmissionSaved, status.State)
		assert.NotEmpty(t, status.RecordID)
	case <-time.After(2 * time.Second):
		t.Fatal("retry never returned")
	}
	service.Wait()

	saved, err := service.ListResults(ctx, domain.ResultFilter{})
	require.NoError(t, err)
	assert.Len(t, saved, 1, "one completion must produce one record")
}

func TestStatusIsForgottenWhenAttemptIsGone(t *testing.T) {
	ctx := context.Background()
	attempts := memory.NewAttemptStore(0)
	service := app.NewQuizService(attempts, nil, memory.NewResultStore())

	view := startFixed(t, service, "female")
	answerAll(t, service, view.ID, 1)
	service.Wait()
	_, ok := service.Status(view.ID)
	require.True(t, ok)

	require.NoError(t, attempts.Delete(ctx, view.ID))
	_, err := service.Attempt(ctx, view.ID)
	assert.ErrorIs(t, err, domain.ErrAttemptNotFound)
	_, ok = service.Status(view.ID)
	assert.False(t, ok)
}

func TestSubmitResultRequiresCompletion(t *testing.T) {
	service := newTestService(memory.NewResultStore())
	view := startFixed(t, service, "male")

	_, err := service.SubmitResult(context.Background(), view.ID)
	assert.ErrorIs(t, err, domain.ErrAttemptIncomplete)
}

func TestPreviousFromCompleteResubmits(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewResultStore())

	view := startFixed(t, service, "female")
	view = answerAll(t, service, view.ID, 0)
	assert.Equal(t, domain.ArchetypeEgenFemale, view.Outcome.Archetype)
	service.Wait()

	view, err := service.Previous(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "answering", view.Phase)
	assert.Equal(t, 9, view.CurrentIndex)
	assert.Nil(t, view.Outcome)

	view, err = service.Answer(ctx, view.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 16, view.Outcome.Score)
	service.Wait()

	saved, err := service.ListResults(ctx, domain.ResultFilter{})
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestInvalidOperationsLeaveStateUnchanged(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewResultStore())

	view, err := service.StartAttempt(ctx, app.FixedQuizSlug)
	require.NoError(t, err)

	_, err = service.Answer(ctx, view.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = service.Previous(ctx, view.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = service.SelectAttribute(ctx, view.ID, "robot")
	assert.ErrorIs(t, err, domain.ErrUnknownDemographic)

	view, err = service.SelectAttribute(ctx, view.ID, "male")
	require.NoError(t, err)
	_, err = service.Answer(ctx, view.ID, 4)
	assert.ErrorIs(t, err, domain.ErrOptionNotFound)

	after, err := service.Attempt(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.CurrentIndex)
	assert.Empty(t, after.ChosenWeights)

	_, err = service.Attempt(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrAttemptNotFound)
}

func TestRestartReturnsToAttributeSelection(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewResultStore())

	view := startFixed(t, service, "male")
	view, err := service.Answer(ctx, view.ID, 1)
	require.NoError(t, err)

	view, err = service.Restart(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "selecting_attribute", view.Phase)
	assert.Empty(t, view.ChosenWeights)
	assert.Empty(t, view.Demographic)
}

func TestAttemptsAreIndependent(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewResultStore())

	a := startFixed(t, service, "male")
	b := startFixed(t, service, "female")
	_, err := service.Answer(ctx, a.ID, 0)
	require.NoError(t, err)

	bView, err := service.Attempt(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, bView.CurrentIndex)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDynamicQuizRecordsResponse(t *testing.T) {
	ctx := context.Background()
	results := memory.NewResultStore()
	service := newTestService(results)

	view, err := service.StartAttempt(ctx, "color")
	require.NoError(t, err)
	assert.Equal(t, 2, view.QuestionCount)

	view, err = service.SelectAttribute(ctx, view.ID, "")
	require.NoError(t, err)
	_, err = service.Answer(ctx, view.ID, 0)
	require.NoError(t, err)
	view, err = service.Answer(ctx, view.ID, 1)
	require.NoError(t, err)

	require.NotNil(t, view.Outcome)
	assert.True(t, view.Outcome.Matched)
	assert.Equal(t, "warm", view.Outcome.ResultID)
	assert.Equal(t, 1, view.Outcome.Score)

	service.Wait()
	responses := results.Responses()
	require.Len(t, responses, 1)
	assert.Equal(t, view.ID, responses[0].SessionID)
	assert.Equal(t, "quiz-color", responses[0].TestID)
	assert.Equal(t, "warm", responses[0].ResultID)
	assert.Contains(t, responses[0].Metadata, "completed_at")
}

func TestDynamicQuizGapShowsBareScore(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewResultStore())

	view, err := service.StartAttempt(ctx, "color")
	require.NoError(t, err)
	_, err = service.SelectAttribute(ctx, view.ID, "")
	require.NoError(t, err)
	_, err = service.Answer(ctx, view.ID, 1)
	require.NoError(t, err)
	view, err = service.Answer(ctx, view.ID, 1)
	require.NoError(t, err)

	assert.False(t, view.Outcome.Matched)
	assert.Equal(t, -2, view.Outcome.Score)
	service.Wait()
}

func TestUnknownQuizIsFetchError(t *testing.T) {
	service := newTestService(memory.NewResultStore())

	_, err := service.StartAttempt(context.Background(), "nope")
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "nope", fetchErr.Slug)
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewResultStore())

	for _, run := range []struct {
		gender string
		option int
	}{{"male", 0}, {"female", 0}, {"male", 3}} {
		view := startFixed(t, service, run.gender)
		answerAll(t, service, view.ID, run.option)
	}
	service.Wait()

	stats, err := service.Statistics(ctx, domain.ResultFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.ByArchetype[domain.ArchetypeEgenMale])
	assert.Equal(t, 1, stats.ByArchetype[domain.ArchetypeEgenFemale])
	assert.Equal(t, 1, stats.ByArchetype[domain.ArchetypeTetoMale])
	assert.Equal(t, 0, stats.ByArchetype[domain.ArchetypeMixed])
	assert.Equal(t, 2, stats.ByGender[domain.DemographicMale])
	assert.InDelta(t, 20.0/3.0, stats.AverageScore, 0.001)
}

func TestStatisticsUsesStoreAggregate(t *testing.T) {
	stats := domain.NewResultStats()
	stats.Add(domain.ArchetypeMixed, domain.DemographicMale, 4, 6)
	store := &aggregatingResults{ResultStore: memory.NewResultStore(), stats: stats}
	service := newTestService(store)

	got, err := service.Statistics(context.Background(), domain.ResultFilter{Gender: domain.DemographicMale, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 4, got.ByArchetype[domain.ArchetypeMixed])
	assert.InDelta(t, 1.5, got.AverageScore, 0.001)
	assert.Equal(t, domain.ResultFilter{Gender: domain.DemographicMale}, store.filter)
}

func TestIdentityIsStampedOnResults(t *testing.T) {
	ctx := context.Background()
	results := memory.NewResultStore()
	service := app.NewQuizService(
		memory.NewAttemptStore(0),
		memory.NewQuizRepository(memory.NewStaticQuizLoader(nil), time.Minute),
		results,
		app.WithIdentity(staticIdentity{user: &domain.User{ID: "user-7"}}),
	)

	view := startFixed(t, service, "male")
	answerAll(t, service, view.ID, 1)
	service.Wait()

	saved, err := results.ListResults(ctx, domain.ResultFilter{UserID: "user-7"})
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func newTestService(results app.ResultStore) *app.QuizService {
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"color": colorQuiz(),
	}), 5*time.Minute)
	return app.NewQuizService(memory.NewAttemptStore(0), quizzes, results)
}

func startFixed(t *testing.T, service *app.QuizService, gender string) app.AttemptView {
	t.Helper()
	ctx := context.Background()
	view, err := service.StartAttempt(ctx, app.FixedQuizSlug)
	require.NoError(t, err)
	view, err = service.SelectAttribute(ctx, view.ID, gender)
	require.NoError(t, err)
	return view
}

func answerAll(t *testing.T, service *app.QuizService, id string, option int) app.AttemptView {
	t.Helper()
	var (
		view app.AttemptView
		err  error
	)
	for i := 0; i < 10; i++ {
		view, err = service.Answer(context.Background(), id, option)
		require.NoError(t, err)
	}
	return view
}

func colorQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-color",
		Title: "Which color are you?",
		Questions: []domain.Question{
			{ID: "q1", Text: "Pick a season", Options: []domain.Option{{Text: "Summer", Score: 2}, {Text: "Winter", Score: -1}}},
			{ID: "q2", Text: "Pick a drink", Options: []domain.Option{{Text: "Lemonade", Score: 1}, {Text: "Cocoa", Score: -1}}},
		},
		Results: []domain.ResultRecord{
			{ID: "warm", Title: "Warm", ConditionType: domain.ConditionScore, ConditionValue: domain.ScoreRange{Min: 0, Max: 3}},
			{ID: "cool", Title: "Cool", ConditionType: domain.ConditionScore, ConditionValue: domain.ScoreRange{Min: -1, Max: -1}},
		},
	}
}

type flakyResults struct {
	*memory.ResultStore
	mu   sync.Mutex
	fail bool
}

func (f *flakyResults) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *flakyResults) CreateResult(ctx context.Context, r domain.SavedResult) (string, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return "", errors.New("connection refused")
	}
	return f.ResultStore.CreateResult(ctx, r)
}

// blockingResults holds CreateResult until release is closed.
type blockingResults struct {
	*memory.ResultStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingResults) CreateResult(ctx context.Context, r domain.SavedResult) (string, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.ResultStore.CreateResult(ctx, r)
}

type aggregatingResults struct {
	*memory.ResultStore
	stats  domain.ResultStats
	filter domain.ResultFilter
}

func (a *aggregatingResults) ListResults(context.Context, domain.ResultFilter) ([]domain.SavedResult, error) {
	return nil, errors.New("statistics should not list results")
}

func (a *aggregatingResults) ResultStats(_ context.Context, filter domain.ResultFilter) (domain.ResultStats, error) {
	a.filter = filter
	return a.stats, nil
}

type staticIdentity struct{ user *domain.User }

func (s staticIdentity) CurrentUser(context.Context) (*domain.User, error) { return s.user, nil }
