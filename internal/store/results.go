package store

import (
	"encoding/json"
	"fmt"

	"prepdeck/internal/model"
)

// AppendResult appends a quiz result to a student's local history.
// Results are append-only; nothing ever updates or deletes a row.
func (s *Store) AppendResult(studentID int64, r model.QuizResult) (int64, error) {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return 0, fmt.Errorf("marshal answers: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO results (student_id, subject, paper_id, score, total, answers, timestamp, time_spent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		studentID, r.Subject, r.PaperID, r.Score, r.Total, string(answers), r.Timestamp, r.TimeSpent,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListResults returns a student's full history ordered by timestamp ascending.
func (s *Store) ListResults(studentID int64) ([]model.QuizResult, error) {
	rows, err := s.db.Query(
		`SELECT id, subject, paper_id, score, total, answers, timestamp, time_spent
		 FROM results WHERE student_id = ? ORDER BY timestamp, id`,
		studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.QuizResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetResult returns one result by ID, checking student ownership.
func (s *Store) GetResult(studentID, resultID int64) (model.QuizResult, error) {
	row := s.db.QueryRow(
		`SELECT id, subject, paper_id, score, total, answers, timestamp, time_spent
		 FROM results WHERE id = ? AND student_id = ?`,
		resultID, studentID,
	)
	return scanResult(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (model.QuizResult, error) {
	var r model.QuizResult
	var answers string
	err := row.Scan(&r.ID, &r.Subject, &r.PaperID, &r.Score, &r.Total, &answers, &r.Timestamp, &r.TimeSpent)
	if err != nil {
		return model.QuizResult{}, err
	}
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return model.QuizResult{}, fmt.Errorf("unmarshal answers for result %d: %w", r.ID, err)
	}
	return r, nil
}

// ResultCount returns the number of stored results for a student.
func (s *Store) ResultCount(studentID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM results WHERE student_id = ?`, studentID).Scan(&count)
	return count, err
}
