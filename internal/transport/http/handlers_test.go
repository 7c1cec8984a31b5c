package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typologylab/internal/app"
	"typologylab/internal/domain"
	"typologylab/internal/identity"
	"typologylab/internal/infra/memory"
	"typologylab/internal/quizschema"
)

func TestRESTAttemptFlow(t *testing.T) {
	service, router := newTestRouter(nil)

	var view app.AttemptView
	rec := do(t, router, http.MethodPost, "/v1/attempts", `{}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &view)
	assert.Equal(t, app.FixedQuizSlug, view.Quiz)

	rec = do(t, router, http.MethodPost, "/v1/attempts/"+view.ID+"/attribute", `{"demographic":"female"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	for i := 0; i < 10; i++ {
		rec = do(t, router, http.MethodPost, "/v1/attempts/"+view.ID+"/answers", `{"option_index":3}`, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	decode(t, rec, &view)
	require.NotNil(t, view.Outcome)
	assert.Equal(t, domain.ArchetypeTetoFemale, view.Outcome.Archetype)
	assert.Equal(t, "complete", view.Phase)

	service.Wait()
	rec = do(t, router, http.MethodGet, "/v1/attempts/"+view.ID+"/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status app.SubmissionStatus
	decode(t, rec, &status)
	assert.Equal(t, app.SubmissionSaved, status.State)

	rec = do(t, router, http.MethodGet, "/v1/results?gender=female", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var results []domain.SavedResult
	decode(t, rec, &results)
	require.Len(t, results, 1)
	assert.Equal(t, -20, results[0].Score)

	rec = do(t, router, http.MethodGet, "/v1/results/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.ResultStats
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.Total)

	rec = do(t, router, http.MethodDelete, "/v1/attempts/"+view.ID, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, router, http.MethodGet, "/v1/attempts/"+view.ID, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRESTErrorMapping(t *testing.T) {
	_, router := newTestRouter(nil)

	rec := do(t, router, http.MethodGet, "/v1/attempts/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/v1/quizzes/unknown", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var view app.AttemptView
	decode(t, do(t, router, http.MethodPost, "/v1/attempts", "", ""), &view)

	rec = do(t, router, http.MethodPost, "/v1/attempts/"+view.ID+"/answers", `{"option_index":0}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "answer before attribute")

	rec = do(t, router, http.MethodPost, "/v1/attempts/"+view.ID+"/attribute", `{"demographic":"robot"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/v1/attempts/"+view.ID+"/answers", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/v1/attempts/"+view.ID+"/submit", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "submit before completion")

	rec = do(t, router, http.MethodGet, "/v1/results?limit=-2", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRESTDynamicQuiz(t *testing.T) {
	_, router := newTestRouter(nil)

	rec := do(t, router, http.MethodGet, "/v1/quizzes/color", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var quiz domain.Quiz
	decode(t, rec, &quiz)
	assert.Len(t, quiz.Questions, 1)

	var view app.AttemptView
	decode(t, do(t, router, http.MethodPost, "/v1/attempts", `{"quiz":"color"}`, ""), &view)
	do(t, router, http.MethodPost, "/v1/attempts/"+view.ID+"/attribute", "", "")
	rec = do(t, router, http.MethodPost, "/v1/attempts/"+view.ID+"/answers", `{"option_index":0}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	require.NotNil(t, view.Outcome)
	assert.Equal(t, "warm", view.Outcome.ResultID)
}

func TestRESTMineRequiresIdentity(t *testing.T) {
	provider := identity.NewJWTProvider("secret", time.Hour)
	service, router := newTestRouter(provider)

	rec := do(t, router, http.MethodGet, "/v1/results?mine=true", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := provider.Issue(domain.User{ID: "u1"})
	require.NoError(t, err)

	var view app.AttemptView
	decode(t, do(t, router, http.MethodPost, "/v1/attempts", "", token), &view)
	do(t, router, http.MethodPost, "/v1/attempts/"+view.ID+"/attribute", `{"demographic":"male"}`, token)
	for i := 0; i < 10; i++ {
		do(t, router, http.MethodPost, "/v1/attempts/"+view.ID+"/answers", `{"option_index":1}`, token)
	}
	service.Wait()

	rec = do(t, router, http.MethodGet, "/v1/results?mine=true", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []domain.SavedResult
	decode(t, rec, &results)
	require.Len(t, results, 1)
	assert.Equal(t, "u1", results[0].UserID)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&domain.FetchError{Slug: "x", Err: errors.New("timeout")}, http.StatusBadGateway},
		{&domain.FetchError{Slug: "x", Err: &quizschema.ValidationError{Reason: "schema"}}, http.StatusBadGateway},
		{&domain.PersistenceError{Op: "submit result", Err: errors.New("down")}, http.StatusServiceUnavailable},
		{domain.ErrAttemptIncomplete, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, msg := errorStatus(tt.err)
		assert.Equal(t, tt.code, code, "%v", tt.err)
		assert.NotEmpty(t, msg)
	}
}

func TestHealthAndCORS(t *testing.T) {
	_, router := newTestRouter(nil)

	rec := do(t, router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, router, http.MethodOptions, "/v1/attempts", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func newTestRouter(provider *identity.JWTProvider) (*app.QuizService, http.Handler) {
	opts := []app.Option{}
	cfg := RouterConfig{}
	if provider != nil {
		opts = append(opts, app.WithIdentity(provider))
		cfg.Auth = provider.Middleware
	}
	service := app.NewQuizService(
		memory.NewAttemptStore(0),
		memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute),
		memory.NewResultStore(),
		opts...,
	)
	cfg.Service = service
	return service, NewRouter(cfg)
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"color": {
			ID:    "quiz-color",
			Title: "Which color are you?",
			Questions: []domain.Question{
				{
					ID:   "q1",
					Text: "Pick a season",
					Options: []domain.Option{
						{ID: "o1", Text: "Summer", Score: 2},
						{ID: "o2", Text: "Winter", Score: -2},
					},
				},
			},
			Results: []domain.ResultRecord{
				{ID: "warm", Title: "Warm", ConditionType: domain.ConditionScore, ConditionValue: domain.ScoreRange{Min: 0, Max: 2}},
				{ID: "cool", Title: "Cool", ConditionType: domain.ConditionScore, ConditionValue: domain.ScoreRange{Min: -2, Max: -1}},
			},
		},
	}
}
