package store

import (
	"encoding/json"
	"fmt"

	"prepdeck/internal/model"
)

// InsertQuestion stores a bank question. Options are serialized as JSON.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return 0, fmt.Errorf("marshal options: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO questions (subject, paper_id, text, options, answer, topic)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.Subject, q.PaperID, q.Text, string(opts), q.Answer, q.Topic,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListPaperQuestions returns the ordered question list for a subject/paper.
func (s *Store) ListPaperQuestions(subject, paperID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, subject, paper_id, text, options, answer, topic
		 FROM questions WHERE subject = ? AND paper_id = ? ORDER BY id`,
		subject, paperID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var opts string
		if err := rows.Scan(&q.ID, &q.Subject, &q.PaperID, &q.Text, &opts, &q.Answer, &q.Topic); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for question %d: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListSubjects returns all distinct subjects in the bank, alphabetically.
func (s *Store) ListSubjects() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT subject FROM questions ORDER BY subject`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []string
	for rows.Next() {
		var subj string
		if err := rows.Scan(&subj); err != nil {
			return nil, err
		}
		subjects = append(subjects, subj)
	}
	return subjects, rows.Err()
}

// ListPapers returns the distinct paper IDs available for a subject.
func (s *Store) ListPapers(subject string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT paper_id FROM questions WHERE subject = ? ORDER BY paper_id`, subject,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var papers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// QuestionCount returns the number of questions in the bank.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}
