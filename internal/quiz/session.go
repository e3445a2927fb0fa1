// Package quiz owns the runtime of one mock-test attempt: the session state
// machine and its countdown timer. Sessions are ephemeral; submitting or
// abandoning one discards it.
package quiz

import (
	"errors"
	"sync"
	"time"

	"prepdeck/internal/model"
	"prepdeck/internal/scoring"
)

const (
	// SecondsPerQuestion fixes the exam duration per question.
	SecondsPerQuestion = 90
	// CriticalThreshold is the remaining-seconds mark below which the
	// timer is flagged as critical for the UI.
	CriticalThreshold = 300
)

// State is the lifecycle state of a quiz session.
type State string

const (
	StateLoading    State = "loading"
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
	// StateNoData is terminal: the question source resolved to nothing and
	// the client should offer a way back to the dashboard.
	StateNoData State = "no_data"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrAlreadySubmitted = errors.New("session already submitted")
	ErrIndexOutOfRange  = errors.New("question index out of range")
	ErrOptionOutOfRange = errors.New("option index out of range")
	ErrNotInProgress    = errors.New("session not in progress")
)

// Duration returns the total exam time in seconds for a question count.
func Duration(questionCount int) int {
	return questionCount * SecondsPerQuestion
}

// Snapshot is a consistent read of the session state for clients. It never
// exposes answer keys.
type Snapshot struct {
	ID           string `json:"id"`
	State        State  `json:"state"`
	Subject      string `json:"subject"`
	PaperID      string `json:"paper_id"`
	CurrentIndex int    `json:"current_index"`
	Total        int    `json:"total"`
	Answers      []int  `json:"answers"`
	TimeLeft     int    `json:"time_left"`
	Critical     bool   `json:"critical"`
}

// Session tracks one in-progress attempt. All mutation goes through the
// mutex so timer ticks and user input interleave without torn reads.
type Session struct {
	id      string
	owner   int64
	subject string
	paperID string

	mu        sync.Mutex
	state     State
	questions []model.Question
	current   int
	answers   []int
	duration  int
	timeLeft  int
	startedAt time.Time

	now         func() time.Time
	onSubmit    func(model.QuizResult)
	subscribers map[chan Snapshot]struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

func newSession(id string, owner int64, subject, paperID string, questions []model.Question, now func() time.Time, onSubmit func(model.QuizResult)) *Session {
	s := &Session{
		id:          id,
		owner:       owner,
		subject:     subject,
		paperID:     paperID,
		state:       StateInProgress,
		questions:   questions,
		answers:     freshAnswers(len(questions)),
		duration:    Duration(len(questions)),
		timeLeft:    Duration(len(questions)),
		startedAt:   now(),
		now:         now,
		onSubmit:    onSubmit,
		subscribers: make(map[chan Snapshot]struct{}),
		stop:        make(chan struct{}),
	}
	if len(questions) == 0 {
		s.state = StateNoData
	}
	return s
}

func freshAnswers(n int) []int {
	answers := make([]int, n)
	for i := range answers {
		answers[i] = model.AnswerSkipped
	}
	return answers
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the ID of the student who opened the session. A session is
// private to its owner for its whole lifetime.
func (s *Session) Owner() int64 { return s.owner }

// Start launches the 1-second countdown. The ticker is owned by the session
// and stops when the session is submitted or abandoned.
func (s *Session) Start() {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				if s.tick() {
					return
				}
			}
		}
	}()
}

// tick decrements the timer by one second, floored at zero. Reaching zero
// auto-submits the session. Returns true once the session is no longer
// in progress.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return true
	}
	if s.timeLeft > 0 {
		s.timeLeft--
	}
	if s.timeLeft > 0 {
		s.broadcastLocked()
		s.mu.Unlock()
		return false
	}
	result := s.submitLocked()
	s.mu.Unlock()
	s.finish(result)
	return true
}

// SelectAnswer records the chosen option for a question. Re-selecting the
// same option is idempotent; a new choice overwrites the old one. The answer
// is never validated against the key here.
func (s *Session) SelectAnswer(index, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return stateErr(s.state)
	}
	if index < 0 || index >= len(s.questions) {
		return ErrIndexOutOfRange
	}
	if option < 0 || option >= model.OptionCount {
		return ErrOptionOutOfRange
	}
	s.answers[index] = option
	s.broadcastLocked()
	return nil
}

// Navigate moves the cursor to an absolute question index. It touches
// neither answers nor the timer.
func (s *Session) Navigate(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return stateErr(s.state)
	}
	if index < 0 || index >= len(s.questions) {
		return ErrIndexOutOfRange
	}
	s.current = index
	s.broadcastLocked()
	return nil
}

// Advance moves the cursor by a relative offset (-1 previous, +1 next).
func (s *Session) Advance(delta int) error {
	s.mu.Lock()
	target := s.current + delta
	s.mu.Unlock()
	return s.Navigate(target)
}

// Submit finalizes the session exactly once, producing its QuizResult.
// Submission is irreversible. Persisting the result is the caller's job;
// the onSubmit callback fires only for timer-expiry auto-submission.
func (s *Session) Submit() (model.QuizResult, error) {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return model.QuizResult{}, stateErr(s.state)
	}
	result := s.submitLocked()
	s.mu.Unlock()
	s.stopTicker()
	return result, nil
}

func (s *Session) submitLocked() model.QuizResult {
	s.state = StateSubmitted
	result := scoring.BuildResult(s.questions, s.answers, s.subject, s.paperID, s.duration, s.timeLeft, s.now())
	s.broadcastLocked()
	return result
}

// finish runs outside the lock after expiry: stops the ticker and hands the
// result to the registered sink.
func (s *Session) finish(result model.QuizResult) {
	s.stopTicker()
	if s.onSubmit != nil {
		s.onSubmit(result)
	}
}

// Reset swaps in a freshly resolved question set, clearing answers and the
// timer in the same critical section so no stale timer survives the swap.
func (s *Session) Reset(questions []model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitted {
		return ErrAlreadySubmitted
	}
	s.questions = questions
	s.answers = freshAnswers(len(questions))
	s.duration = Duration(len(questions))
	s.timeLeft = s.duration
	s.current = 0
	s.startedAt = s.now()
	if len(questions) == 0 {
		s.state = StateNoData
	} else {
		s.state = StateInProgress
	}
	s.broadcastLocked()
	return nil
}

// Abandon discards the session. In-memory state is dropped by the manager;
// the ticker is stopped here so nothing keeps ticking after navigation away.
func (s *Session) Abandon() {
	s.stopTicker()
	s.mu.Lock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

func (s *Session) stopTicker() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Questions returns the session's question list. The list is fixed for the
// session lifetime (apart from Reset).
func (s *Session) Questions() []model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions
}

// Snapshot returns a consistent client view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	answers := make([]int, len(s.answers))
	copy(answers, s.answers)
	return Snapshot{
		ID:           s.id,
		State:        s.state,
		Subject:      s.subject,
		PaperID:      s.paperID,
		CurrentIndex: s.current,
		Total:        len(s.questions),
		Answers:      answers,
		TimeLeft:     s.timeLeft,
		Critical:     s.timeLeft <= CriticalThreshold,
	}
}

// Subscribe returns a channel of state snapshots (one per tick or mutation).
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow client never blocks a tick.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func stateErr(state State) error {
	switch state {
	case StateSubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrNotInProgress
	}
}
