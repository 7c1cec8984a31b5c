package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"typologylab/internal/app"
)

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Service *app.QuizService
	// Auth, when set, attaches the signed-in user to requests.
	Auth           func(http.Handler) http.Handler
	Log            *zap.Logger
	AllowedOrigins string
}

// NewRouter builds the REST and WebSocket routes.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	h := NewHandler(cfg.Service, log)
	ws := NewWSHandler(cfg.Service, log)

	r := mux.NewRouter()
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	authed := r.NewRoute().Subrouter()
	if cfg.Auth != nil {
		authed.Use(mux.MiddlewareFunc(cfg.Auth))
	}
	authed.HandleFunc("/ws", ws.ServeWS).Methods(http.MethodGet)

	v1 := authed.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/quizzes/{slug}", h.GetQuiz).Methods(http.MethodGet, http.MethodOptions)
	v1.HandleFunc("/attempts", h.StartAttempt).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/attempts/{id}", h.GetAttempt).Methods(http.MethodGet, http.MethodOptions)
	v1.HandleFunc("/attempts/{id}", h.AbandonAttempt).Methods(http.MethodDelete, http.MethodOptions)
	v1.HandleFunc("/attempts/{id}/attribute", h.SelectAttribute).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/attempts/{id}/answers", h.Answer).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/attempts/{id}/previous", h.Previous).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/attempts/{id}/restart", h.Restart).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/attempts/{id}/submit", h.Submit).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/attempts/{id}/status", h.SubmissionStatus).Methods(http.MethodGet, http.MethodOptions)
	v1.HandleFunc("/results", h.ListResults).Methods(http.MethodGet, http.MethodOptions)
	v1.HandleFunc("/results/stats", h.Statistics).Methods(http.MethodGet, http.MethodOptions)

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
