package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewplan/crewplan/internal/models"
)

// SprintInput carries the writable fields of a sprint.
type SprintInput struct {
	Name      string       `json:"name"`
	StartDate *models.Date `json:"start_date"`
	EndDate   *models.Date `json:"end_date"`
}

// CreateSprint inserts a new sprint.
func (s *Store) CreateSprint(input SprintInput) (*models.Sprint, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.Exec(`
		INSERT INTO sprints (id, name, start_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, input.Name, dateOrNil(input.StartDate), dateOrNil(input.EndDate), now, now)
	if err != nil {
		return nil, fmt.Errorf("insert sprint: %w", err)
	}

	return s.GetSprint(id)
}

// GetSprint returns a sprint by ID, or nil if not found.
func (s *Store) GetSprint(id string) (*models.Sprint, error) {
	row := s.db.QueryRow(`
		SELECT id, name, start_date, end_date, created_at, updated_at
		FROM sprints WHERE id = ?`, id)

	sprint, err := scanSprint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sprint: %w", err)
	}
	return sprint, nil
}

// ListSprints returns all sprints ordered by start date, unscheduled last.
func (s *Store) ListSprints() ([]models.Sprint, error) {
	rows, err := s.db.Query(`
		SELECT id, name, start_date, end_date, created_at, updated_at
		FROM sprints ORDER BY start_date IS NULL, start_date`)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	defer rows.Close()

	var sprints []models.Sprint
	for rows.Next() {
		sprint, err := scanSprint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sprint: %w", err)
		}
		sprints = append(sprints, *sprint)
	}
	return sprints, rows.Err()
}

// UpdateSprint replaces a sprint's fields. Returns nil if not found.
func (s *Store) UpdateSprint(id string, input SprintInput) (*models.Sprint, error) {
	result, err := s.db.Exec(`
		UPDATE sprints SET name = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?`,
		input.Name, dateOrNil(input.StartDate), dateOrNil(input.EndDate),
		time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update sprint: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetSprint(id)
}

// DeleteSprint removes a sprint. Tasks in it fall back to the backlog.
func (s *Store) DeleteSprint(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM sprints WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete sprint: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func scanSprint(row interface{ Scan(...interface{}) error }) (*models.Sprint, error) {
	var sprint models.Sprint
	var startDate, endDate sql.NullString

	err := row.Scan(&sprint.ID, &sprint.Name, &startDate, &endDate,
		&sprint.CreatedAt, &sprint.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if startDate.Valid {
		d, err := models.ParseDate(startDate.String)
		if err != nil {
			return nil, fmt.Errorf("sprint %s start_date: %w", sprint.ID, err)
		}
		sprint.StartDate = &d
	}
	if endDate.Valid {
		d, err := models.ParseDate(endDate.String)
		if err != nil {
			return nil, fmt.Errorf("sprint %s end_date: %w", sprint.ID, err)
		}
		sprint.EndDate = &d
	}
	return &sprint, nil
}
