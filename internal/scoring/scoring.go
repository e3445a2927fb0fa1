// Package scoring grades answer vectors against question keys. It is pure:
// no I/O, no clock of its own, deterministic for any well-formed input.
package scoring

import (
	"time"

	"prepdeck/internal/model"
)

// Score counts answers matching the question key. A skipped or out-of-range
// answer never matches. Result is always in [0, len(questions)].
func Score(questions []model.Question, answers []int) int {
	score := 0
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		if answers[i] != model.AnswerSkipped && answers[i] == q.Answer {
			score++
		}
	}
	return score
}

// BuildResult produces the immutable QuizResult for a submitted session.
// timeSpent = duration - timeLeft; the answer vector is copied so later
// session mutation cannot leak into the record.
func BuildResult(questions []model.Question, answers []int, subject, paperID string, duration, timeLeft int, at time.Time) model.QuizResult {
	recorded := make([]int, len(answers))
	copy(recorded, answers)
	return model.QuizResult{
		Score:     Score(questions, answers),
		Total:     len(questions),
		PaperID:   paperID,
		Subject:   subject,
		Answers:   recorded,
		Timestamp: at.UnixMilli(),
		TimeSpent: duration - timeLeft,
	}
}
