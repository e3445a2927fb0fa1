package quiz

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"prepdeck/internal/model"
)

// Manager is the in-memory registry of live sessions, one per attempt.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewManager() *Manager {
	return NewManagerWithClock(time.Now)
}

// NewManagerWithClock allows deterministic timestamps in tests.
func NewManagerWithClock(now func() time.Time) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		now:      now,
	}
}

// Create registers a new session owned by one student and starts its timer.
// onSubmit receives the QuizResult when the timer expires and auto-submits;
// for a manual Submit the caller already holds the result and must discard
// the session itself.
func (m *Manager) Create(owner int64, subject, paperID string, questions []model.Question, onSubmit func(model.QuizResult)) *Session {
	id := uuid.NewString()
	var s *Session
	s = newSession(id, owner, subject, paperID, questions, m.now, func(result model.QuizResult) {
		m.remove(id)
		if onSubmit != nil {
			onSubmit(result)
		}
	})

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	if len(questions) > 0 {
		s.Start()
	}
	return s
}

// Get returns a live session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Abandon discards a session without submitting it.
func (m *Manager) Abandon(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Abandon()
	}
}

// Shutdown abandons every live session, stopping all tickers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Abandon()
	}
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
