package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewplan/crewplan/internal/models"
)

// WriteActivity appends an audit record.
func (s *Store) WriteActivity(entry models.ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO activity (id, action, inputs_hash, outcome, entity_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.InputsHash, entry.Outcome,
		nullIfEmpty(entry.EntityID), entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListActivity returns the most recent audit records, newest first.
func (s *Store) ListActivity(limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, action, inputs_hash, outcome, entity_id, timestamp
		FROM activity ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityEntry
	for rows.Next() {
		var e models.ActivityEntry
		var entityID sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &entityID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.EntityID = entityID.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
