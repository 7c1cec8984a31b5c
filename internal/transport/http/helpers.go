package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"typologylab/internal/domain"
	"typologylab/internal/quizschema"
)

var (
	errBadPayload         = errors.New("invalid payload")
	errUnsupportedMessage = errors.New("unsupported message type")
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// errorStatus maps service errors onto HTTP status codes. The message is safe to show clients.
func errorStatus(err error) (int, string) {
	var (
		fetchErr   *domain.FetchError
		persistErr *domain.PersistenceError
		schemaErr  *quizschema.ValidationError
	)
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound, "attempt not found"
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound, "quiz not found"
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrAttemptIncomplete):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrUnknownDemographic), errors.Is(err, domain.ErrOptionNotFound):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errBadPayload), errors.Is(err, errUnsupportedMessage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "sign-in required"
	case errors.As(err, &schemaErr):
		return http.StatusBadGateway, "quiz content is invalid"
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, "quiz content unavailable"
	case errors.As(err, &persistErr):
		return http.StatusServiceUnavailable, "result could not be saved"
	default:
		return http.StatusInternalServerError, "request failed"
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

func parseResultFilter(r *http.Request) (domain.ResultFilter, error) {
	q := r.URL.Query()
	filter := domain.ResultFilter{
		Result: domain.Archetype(q.Get("result")),
	}
	if raw := q.Get("gender"); raw != "" {
		d, err := domain.ParseDemographic(raw)
		if err != nil {
			return filter, err
		}
		filter.Gender = d
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}
