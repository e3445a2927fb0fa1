package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"prepdeck/internal/analytics"
	appI18n "prepdeck/internal/i18n"
	"prepdeck/internal/model"
	"prepdeck/internal/question"
	"prepdeck/internal/quiz"
)

type startQuizRequest struct {
	Subject string `json:"subject" validate:"required"`
	PaperID string `json:"paper_id" validate:"required"`
}

type startQuizResponse struct {
	Session   quiz.Snapshot    `json:"session"`
	Questions []clientQuestion `json:"questions"`
}

// clientQuestion is a Question stripped of its answer key. The key never
// reaches the client before submission.
type clientQuestion struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Topic   string   `json:"topic,omitempty"`
}

func toClientQuestions(questions []model.Question) []clientQuestion {
	out := make([]clientQuestion, len(questions))
	for i, q := range questions {
		out[i] = clientQuestion{Text: q.Text, Options: q.Options, Topic: q.Topic}
	}
	return out
}

func (h *Handler) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	var req startQuizRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	questions, err := h.resolver.Resolve(r.Context(), req.Subject, req.PaperID)
	if errors.Is(err, question.ErrNoQuestions) {
		// Recoverable empty state: the client offers a way back to the
		// dashboard instead of a broken quiz view.
		respondError(w, r, http.StatusNotFound, "no_questions", "error.no_questions")
		return
	}
	if err != nil {
		slog.Error("resolve questions", "subject", req.Subject, "paper", req.PaperID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}

	user := model.UserFromContext(r.Context())
	sess := h.sessions.Create(user.ID, req.Subject, req.PaperID, questions, func(result model.QuizResult) {
		// Timer expiry lands here after the request is long gone.
		outcome := h.recorder.Record(context.Background(), user, result)
		if !outcome.Stored() {
			slog.Error("auto-submitted result lost", "student", user.Username,
				"subject", result.Subject, "paper", result.PaperID)
		}
	})

	respondJSON(w, http.StatusCreated, startQuizResponse{
		Session:   sess.Snapshot(),
		Questions: toClientQuestions(questions),
	})
}

func (h *Handler) handleQuizState(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, startQuizResponse{
		Session:   sess.Snapshot(),
		Questions: toClientQuestions(sess.Questions()),
	})
}

type answerRequest struct {
	Index  int `json:"index" validate:"min=0"`
	Option int `json:"option" validate:"min=0,max=3"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := sess.SelectAnswer(req.Index, req.Option); err != nil {
		quizError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

type navigateRequest struct {
	Index     *int   `json:"index,omitempty"`
	Direction string `json:"direction,omitempty" validate:"omitempty,oneof=next prev"`
}

func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req navigateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	var err error
	switch {
	case req.Index != nil:
		err = sess.Navigate(*req.Index)
	case req.Direction == "next":
		err = sess.Advance(1)
	case req.Direction == "prev":
		err = sess.Advance(-1)
	default:
		respondError(w, r, http.StatusBadRequest, "invalid_request", "")
		return
	}
	if err != nil {
		quizError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

// handleReset re-resolves the paper and swaps it into the session, clearing
// answers and the timer together. Used after regenerating an AI paper.
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	snap := sess.Snapshot()
	questions, err := h.resolver.Resolve(r.Context(), snap.Subject, snap.PaperID)
	if errors.Is(err, question.ErrNoQuestions) {
		questions = nil
	} else if err != nil {
		slog.Error("resolve questions for reset", "subject", snap.Subject, "paper", snap.PaperID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}
	if err := sess.Reset(questions); err != nil {
		quizError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, startQuizResponse{
		Session:   sess.Snapshot(),
		Questions: toClientQuestions(questions),
	})
}

type submitResponse struct {
	Result      model.QuizResult `json:"result"`
	Saved       bool             `json:"saved"`
	RemoteSaved bool             `json:"remote_saved"`
	Message     string           `json:"message,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := sess.Submit()
	if err != nil {
		quizError(w, r, err)
		return
	}
	h.sessions.Abandon(sess.ID())

	user := model.UserFromContext(r.Context())
	outcome := h.recorder.Record(r.Context(), user, result)
	result.ID = outcome.ResultID

	message := ""
	if outcome.Stored() {
		message = appI18n.Td(r.Context(), "ResultSaved", map[string]any{
			"Score": result.Score,
			"Total": result.Total,
		})
	}

	// A remote failure never blocks the result view; the local copy is
	// authoritative.
	respondJSON(w, http.StatusOK, submitResponse{
		Result:      result,
		Saved:       outcome.LocalErr == nil,
		RemoteSaved: h.remote != nil && outcome.RemoteErr == nil,
		Message:     message,
	})
}

func (h *Handler) handleAbandon(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.sessions.Abandon(sess.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	results, err := h.store.ListResults(user.ID)
	if err != nil {
		slog.Error("list results", "student", user.Username, "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}
	if results == nil {
		results = []model.QuizResult{}
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var primary, fallback analytics.Source
	local := analytics.LocalSource{Store: h.store}
	switch r.URL.Query().Get("source") {
	case "local":
		primary = local
	case "remote":
		if h.remote == nil {
			respondError(w, r, http.StatusServiceUnavailable, "remote_unavailable", "")
			return
		}
		primary = analytics.RemoteSource{Client: h.remote}
	default:
		primary = local
		if h.remote != nil {
			primary = analytics.RemoteSource{Client: h.remote}
			fallback = local
		}
	}

	var lb analytics.LeaderboardSource
	if h.remote != nil {
		lb = h.remote
	}
	svc := analytics.NewService(primary, fallback, lb, h.config.LeaderboardN)
	snap, err := svc.Snapshot(r.Context(), user)
	if err != nil {
		slog.Error("analytics snapshot", "student", user.Username, "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if h.remote == nil {
		respondJSON(w, http.StatusOK, []model.LeaderboardEntry{})
		return
	}
	entries, err := h.remote.Leaderboard(r.Context(), h.config.LeaderboardN)
	if err != nil {
		slog.Error("leaderboard", "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.store.ListSubjects()
	if err != nil {
		slog.Error("list subjects", "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}
	type subjectPapers struct {
		Subject string   `json:"subject"`
		Papers  []string `json:"papers"`
	}
	out := make([]subjectPapers, 0, len(subjects))
	for _, subj := range subjects {
		papers, err := h.store.ListPapers(subj)
		if err != nil {
			slog.Error("list papers", "subject", subj, "error", err)
			respondError(w, r, http.StatusInternalServerError, "internal", "")
			return
		}
		out = append(out, subjectPapers{Subject: subj, Papers: papers})
	}
	respondJSON(w, http.StatusOK, out)
}
