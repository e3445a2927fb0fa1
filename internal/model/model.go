package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// AnswerSkipped marks an unanswered question in an answer vector.
const AnswerSkipped = -1

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Question represents one multiple-choice question. Immutable once loaded
// into a session. Text may embed LaTeX or diagram directives; the renderer
// decides what to do with them.
type Question struct {
	ID      int64    `json:"id"`
	Subject string   `json:"subject"`
	PaperID string   `json:"paper_id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
	Topic   string   `json:"topic,omitempty"`
}

// QuestionImport is used for loading questions from JSON bank files.
type QuestionImport struct {
	Subject string   `json:"subject"`
	PaperID string   `json:"paper_id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
	Topic   string   `json:"topic,omitempty"`
}
