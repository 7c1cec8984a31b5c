package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"typologylab/internal/app"
	"typologylab/internal/domain"
	"typologylab/internal/identity"
)

// Handler serves the REST API over QuizService.
type Handler struct {
	service *app.QuizService
	log     *zap.SugaredLogger
}

func NewHandler(service *app.QuizService, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log.Sugar()}
}

type startAttemptRequest struct {
	Quiz string `json:"quiz"`
}

type attributeRequest struct {
	Demographic string `json:"demographic"`
}

type answerRequest struct {
	OptionIndex *int `json:"option_index"`
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.Quiz(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	var req startAttemptRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	view, err := h.service.StartAttempt(r.Context(), req.Quiz)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Attempt(r.Context(), mux.Vars(r)["id"])
	h.writeView(w, r, view, err)
}

func (h *Handler) AbandonAttempt(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Abandon(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SelectAttribute(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	view, err := h.service.SelectAttribute(r.Context(), mux.Vars(r)["id"], req.Demographic)
	h.writeView(w, r, view, err)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeBody(r, &req); err != nil || req.OptionIndex == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "option_index is required"})
		return
	}
	view, err := h.service.Answer(r.Context(), mux.Vars(r)["id"], *req.OptionIndex)
	h.writeView(w, r, view, err)
}

func (h *Handler) Previous(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Previous(r.Context(), mux.Vars(r)["id"])
	h.writeView(w, r, view, err)
}

func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Restart(r.Context(), mux.Vars(r)["id"])
	h.writeView(w, r, view, err)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.SubmitResult(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) SubmissionStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.service.Attempt(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	status, ok := h.service.Status(id)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.resultFilter(w, r)
	if !ok {
		return
	}
	results, err := h.service.ListResults(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if results == nil {
		results = []domain.SavedResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.resultFilter(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Statistics(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// resultFilter reads query filters; mine=true restricts to the signed-in user.
func (h *Handler) resultFilter(w http.ResponseWriter, r *http.Request) (domain.ResultFilter, bool) {
	filter, err := parseResultFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return filter, false
	}
	if r.URL.Query().Get("mine") == "true" {
		user := identity.UserFrom(r.Context())
		if user == nil {
			h.writeServiceError(w, r, domain.ErrUnauthenticated)
			return filter, false
		}
		filter.UserID = user.ID
	}
	return filter, true
}

func (h *Handler) writeView(w http.ResponseWriter, r *http.Request, view app.AttemptView, err error) {
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
