package handler

import (
	"log/slog"
	"net/http"

	"prepdeck/internal/llm"
)

type generatePaperRequest struct {
	Subject string `json:"subject" validate:"required"`
	PaperID string `json:"paper_id" validate:"required"`
	Topic   string `json:"topic"`
	Count   int    `json:"count" validate:"min=1,max=50"`
}

type generatePaperResponse struct {
	Subject string `json:"subject"`
	PaperID string `json:"paper_id"`
	Count   int    `json:"count"`
}

// handleGeneratePaper asks the LLM for a fresh paper and caches it. The paper
// becomes available to quiz starts under its subject/paper key.
func (h *Handler) handleGeneratePaper(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil {
		respondError(w, r, http.StatusServiceUnavailable, "llm_unavailable", "")
		return
	}
	var req generatePaperRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	questions, err := h.llm.GeneratePaper(r.Context(), req.Subject, req.PaperID, req.Topic, req.Count)
	if err != nil {
		slog.Error("paper generation failed", "subject", req.Subject, "paper", req.PaperID, "error", err)
		respondError(w, r, http.StatusBadGateway, "generation_failed", "")
		return
	}
	if err := h.store.PutPaper(req.Subject, req.PaperID, questions); err != nil {
		slog.Error("cache generated paper", "subject", req.Subject, "paper", req.PaperID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}

	respondJSON(w, http.StatusCreated, generatePaperResponse{
		Subject: req.Subject,
		PaperID: req.PaperID,
		Count:   len(questions),
	})
}

type tutorRequest struct {
	Subject  string             `json:"subject"`
	Messages []llm.TutorMessage `json:"messages" validate:"required,min=1,dive"`
}

type tutorResponse struct {
	Reply string `json:"reply"`
}

func (h *Handler) handleTutor(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil {
		respondError(w, r, http.StatusServiceUnavailable, "llm_unavailable", "error.tutor_unavailable")
		return
	}
	var req tutorRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	reply, err := h.llm.TutorReply(r.Context(), req.Subject, req.Messages)
	if err != nil {
		slog.Error("tutor reply failed", "error", err)
		respondError(w, r, http.StatusBadGateway, "tutor_failed", "error.tutor_unavailable")
		return
	}
	respondJSON(w, http.StatusOK, tutorResponse{Reply: reply})
}
