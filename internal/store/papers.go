package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"prepdeck/internal/model"
)

// PaperSchemaVersion is the serialization version of cached paper payloads.
// Entries written with an older version are treated as absent.
const PaperSchemaVersion = 1

func paperKey(subject, paperID string) string {
	return "paper:" + subject + ":" + paperID
}

// PutPaper caches a generated question list under its subject/paper key.
// The cache is a side-cache, not a system of record; overwriting is fine.
func (s *Store) PutPaper(subject, paperID string, questions []model.Question) error {
	payload, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO paper_cache (key, schema_version, payload, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET schema_version = excluded.schema_version,
		   payload = excluded.payload, updated_at = excluded.updated_at`,
		paperKey(subject, paperID), PaperSchemaVersion, string(payload), time.Now(),
	)
	return err
}

// GetPaper returns a cached question list, or nil if the key is absent or
// was written with a different schema version.
func (s *Store) GetPaper(subject, paperID string) ([]model.Question, error) {
	var version int
	var payload string
	err := s.db.QueryRow(
		`SELECT schema_version, payload FROM paper_cache WHERE key = ?`,
		paperKey(subject, paperID),
	).Scan(&version, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if version != PaperSchemaVersion {
		return nil, nil
	}
	var questions []model.Question
	if err := json.Unmarshal([]byte(payload), &questions); err != nil {
		return nil, fmt.Errorf("unmarshal paper %s/%s: %w", subject, paperID, err)
	}
	return questions, nil
}
