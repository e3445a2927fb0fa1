// Package handler exposes the JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"prepdeck/internal/history"
	appI18n "prepdeck/internal/i18n"
	"prepdeck/internal/llm"
	"prepdeck/internal/model"
	"prepdeck/internal/question"
	"prepdeck/internal/quiz"
	"prepdeck/internal/remote"
	"prepdeck/internal/report"
	"prepdeck/internal/store"
)

// Config holds runtime handler parameters set via CLI flags.
type Config struct {
	SecureCookies bool
	LeaderboardN  int
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	sessions *quiz.Manager
	resolver *question.Resolver
	recorder *history.Recorder
	remote   *remote.Client // nil when no remote store is configured
	llm      *llm.Client
	exporter *report.Exporter
	config   Config
	validate *validator.Validate
	upgrader websocket.Upgrader
}

// New creates a new Handler. remoteClient and llmClient may be nil; the
// corresponding features degrade (local-only analytics, no AI papers).
func New(s *store.Store, sessions *quiz.Manager, resolver *question.Resolver, recorder *history.Recorder, remoteClient *remote.Client, llmClient *llm.Client, exporter *report.Exporter, cfg Config) *Handler {
	if cfg.LeaderboardN <= 0 {
		cfg.LeaderboardN = 10
	}
	return &Handler{
		store:    s,
		sessions: sessions,
		resolver: resolver,
		recorder: recorder,
		remote:   remoteClient,
		llm:      llmClient,
		exporter: exporter,
		config:   cfg,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)

		r.Get("/subjects", h.handleSubjects)
		r.Post("/quiz/start", h.handleStartQuiz)
		r.Get("/quiz/{sessionID}", h.handleQuizState)
		r.Post("/quiz/{sessionID}/answer", h.handleAnswer)
		r.Post("/quiz/{sessionID}/navigate", h.handleNavigate)
		r.Post("/quiz/{sessionID}/reset", h.handleReset)
		r.Post("/quiz/{sessionID}/submit", h.handleSubmit)
		r.Delete("/quiz/{sessionID}", h.handleAbandon)
		r.Get("/quiz/{sessionID}/ws", h.handleQuizWS)

		r.Post("/papers/generate", h.handleGeneratePaper)
		r.Post("/tutor", h.handleTutor)

		r.Get("/results", h.handleResults)
		r.Get("/analytics", h.handleAnalytics)
		r.Get("/leaderboard", h.handleLeaderboard)

		r.Get("/report/blank/{subject}/{paperID}", h.handleBlankReport)
		r.Get("/report/{resultID}", h.handleResultReport)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Get("/users", h.handleListUsers)
			r.Post("/users", h.handleCreateUser)
			r.Post("/users/{userID}/toggle", h.handleToggleUser)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, msgID string) {
	msg := ""
	if msgID != "" {
		msg = appI18n.T(r.Context(), msgID)
	}
	respondJSON(w, status, errorResponse{Error: code, Message: msg})
}

// decodeBody parses and validates a JSON request body.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, "bad_json", "")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

// session resolves the session from the URL and enforces ownership. A foreign
// session reads as not found so its existence is never confirmed.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*quiz.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	sess, err := h.sessions.Get(id)
	if err != nil {
		respondError(w, r, http.StatusNotFound, "session_not_found", "")
		return nil, false
	}
	user := model.UserFromContext(r.Context())
	if user == nil || sess.Owner() != user.ID {
		respondError(w, r, http.StatusNotFound, "session_not_found", "")
		return nil, false
	}
	return sess, true
}

func quizError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, quiz.ErrAlreadySubmitted):
		respondError(w, r, http.StatusConflict, "already_submitted", "")
	case errors.Is(err, quiz.ErrIndexOutOfRange), errors.Is(err, quiz.ErrOptionOutOfRange):
		respondError(w, r, http.StatusBadRequest, "out_of_range", "")
	case errors.Is(err, quiz.ErrNotInProgress):
		respondError(w, r, http.StatusConflict, "not_in_progress", "")
	default:
		slog.Error("quiz operation failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
	}
}
