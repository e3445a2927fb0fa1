package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"prepdeck/internal/model"
)

type userView struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Role        model.UserRole `json:"role"`
	Active      bool           `json:"active"`
}

func toUserView(u model.User) userView {
	return userView{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Active:      u.Active,
	}
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		slog.Error("failed to list users", "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, toUserView(u))
	}
	respondJSON(w, http.StatusOK, out)
}

type createUserRequest struct {
	Username    string `json:"username" validate:"required,min=3"`
	DisplayName string `json:"display_name" validate:"required"`
	Password    string `json:"password" validate:"required,min=8"`
	Role        string `json:"role" validate:"required,oneof=student admin"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	existing, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		slog.Error("failed to check username", "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}
	if existing != nil {
		respondError(w, r, http.StatusConflict, "username_taken", "")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}

	u := model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         model.UserRole(req.Role),
		Active:       true,
	}
	id, err := h.store.CreateUser(u)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}
	u.ID = id
	respondJSON(w, http.StatusCreated, toUserView(u))
}

func (h *Handler) handleToggleUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "")
		return
	}
	if err := h.store.ToggleUserActive(id); err != nil {
		slog.Error("failed to toggle user", "id", id, "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "")
		return
	}
	user, err := h.store.GetUserByID(id)
	if err != nil || user == nil {
		respondError(w, r, http.StatusNotFound, "user_not_found", "")
		return
	}
	respondJSON(w, http.StatusOK, toUserView(*user))
}
