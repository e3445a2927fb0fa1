package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"prepdeck/internal/model"
	"prepdeck/internal/question"
	"prepdeck/internal/report"
)

func (h *Handler) handleResultReport(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	resultID, err := strconv.ParseInt(chi.URLParam(r, "resultID"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "")
		return
	}
	result, err := h.store.GetResult(user.ID, resultID)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, r, http.StatusNotFound, "result_not_found", "")
		return
	}
	if err != nil {
		slog.Error("load result", "result", resultID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}

	questions, err := h.resolver.Resolve(r.Context(), result.Subject, result.PaperID)
	if errors.Is(err, question.ErrNoQuestions) {
		// The paper the result was taken against no longer resolves, so the
		// per-question table cannot be reconstructed.
		respondError(w, r, http.StatusNotFound, "no_questions", "error.no_questions")
		return
	}
	if err != nil {
		slog.Error("resolve questions for report", "subject", result.Subject, "paper", result.PaperID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}

	name := user.DisplayName
	if name == "" {
		name = user.Username
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(result.Subject)+`"`)
	if err := h.exporter.ResultReport(r.Context(), w, result, questions, name); err != nil {
		// Headers are out by now; all we can do is log.
		slog.Error("render result report", "result", resultID, "error", err)
	}
}

func (h *Handler) handleBlankReport(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	paperID := chi.URLParam(r, "paperID")

	questions, err := h.resolver.Resolve(r.Context(), subject, paperID)
	if errors.Is(err, question.ErrNoQuestions) {
		respondError(w, r, http.StatusNotFound, "no_questions", "error.no_questions")
		return
	}
	if err != nil {
		slog.Error("resolve questions for blank paper", "subject", subject, "paper", paperID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(subject)+`"`)
	if err := h.exporter.BlankPaper(r.Context(), w, subject, paperID, questions); err != nil {
		slog.Error("render blank paper", "subject", subject, "paper", paperID, "error", err)
	}
}
