package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewplan/crewplan/internal/models"
)

// AssignedTask pairs an assignment with the task it covers.
type AssignedTask struct {
	Assignment models.Assignment `json:"assignment"`
	Task       models.Task       `json:"task"`
}

// AssignTask assigns a task to a resource. A task holds at most one
// assignment; assigning an already-assigned task re-points the existing row.
func (s *Store) AssignTask(taskID, resourceID string) (*models.Assignment, error) {
	now := time.Now().UTC()

	row := s.db.QueryRow(`SELECT id FROM assignments WHERE task_id = ?`, taskID)
	var existingID string
	err := row.Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		id := uuid.New().String()
		_, err := s.db.Exec(`
			INSERT INTO assignments (id, task_id, resource_id, assigned_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, taskID, resourceID, now, now, now)
		if err != nil {
			return nil, fmt.Errorf("insert assignment: %w", err)
		}
		return s.getAssignment(id)
	case err != nil:
		return nil, fmt.Errorf("lookup assignment: %w", err)
	default:
		_, err := s.db.Exec(`
			UPDATE assignments SET resource_id = ?, assigned_at = ?, updated_at = ?
			WHERE id = ?`,
			resourceID, now, now, existingID)
		if err != nil {
			return nil, fmt.Errorf("update assignment: %w", err)
		}
		return s.getAssignment(existingID)
	}
}

// UnassignTask removes a task's assignment. Returns false if none existed.
func (s *Store) UnassignTask(taskID string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM assignments WHERE task_id = ?`, taskID)
	if err != nil {
		return false, fmt.Errorf("delete assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// AssignmentForTask returns a task's assignment, or nil if unassigned.
func (s *Store) AssignmentForTask(taskID string) (*models.Assignment, error) {
	row := s.db.QueryRow(`
		SELECT id, task_id, resource_id, assigned_at, created_at, updated_at
		FROM assignments WHERE task_id = ?`, taskID)

	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment for task: %w", err)
	}
	return a, nil
}

// ListAssignments returns all assignments ordered by creation time.
func (s *Store) ListAssignments() ([]models.Assignment, error) {
	rows, err := s.db.Query(`
		SELECT id, task_id, resource_id, assigned_at, created_at, updated_at
		FROM assignments ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// AssignmentsForResource returns the resource's assignments joined with their
// tasks. Task requirements and dependencies are not loaded; load callers only
// need effort, status, and sprint.
func (s *Store) AssignmentsForResource(resourceID string) ([]AssignedTask, error) {
	rows, err := s.db.Query(`
		SELECT a.id, a.task_id, a.resource_id, a.assigned_at, a.created_at, a.updated_at,
			t.id, t.title_id, t.description, t.status, t.priority, t.estimated_effort,
			t.sprint_id, t.deadline, t.blocker_reason, t.created_at, t.updated_at
		FROM assignments a JOIN tasks t ON t.id = a.task_id
		WHERE a.resource_id = ?
		ORDER BY a.created_at`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list assignments for resource: %w", err)
	}
	defer rows.Close()

	return scanAssignedTasks(rows)
}

// AssignmentsWithTasks returns every assignment joined with its task, for
// whole-roster aggregations.
func (s *Store) AssignmentsWithTasks() ([]AssignedTask, error) {
	rows, err := s.db.Query(`
		SELECT a.id, a.task_id, a.resource_id, a.assigned_at, a.created_at, a.updated_at,
			t.id, t.title_id, t.description, t.status, t.priority, t.estimated_effort,
			t.sprint_id, t.deadline, t.blocker_reason, t.created_at, t.updated_at
		FROM assignments a JOIN tasks t ON t.id = a.task_id
		ORDER BY a.created_at`)
	if err != nil {
		return nil, fmt.Errorf("list assignments with tasks: %w", err)
	}
	defer rows.Close()

	return scanAssignedTasks(rows)
}

func (s *Store) getAssignment(id string) (*models.Assignment, error) {
	row := s.db.QueryRow(`
		SELECT id, task_id, resource_id, assigned_at, created_at, updated_at
		FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func scanAssignment(row interface{ Scan(...interface{}) error }) (*models.Assignment, error) {
	var a models.Assignment
	err := row.Scan(&a.ID, &a.TaskID, &a.ResourceID, &a.AssignedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAssignedTasks(rows *sql.Rows) ([]AssignedTask, error) {
	var result []AssignedTask
	for rows.Next() {
		var at AssignedTask
		var status, priority string
		var description, sprintID, deadline, blockerReason sql.NullString
		var effort sql.NullFloat64

		err := rows.Scan(
			&at.Assignment.ID, &at.Assignment.TaskID, &at.Assignment.ResourceID,
			&at.Assignment.AssignedAt, &at.Assignment.CreatedAt, &at.Assignment.UpdatedAt,
			&at.Task.ID, &at.Task.TitleID, &description, &status, &priority,
			&effort, &sprintID, &deadline, &blockerReason,
			&at.Task.CreatedAt, &at.Task.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan assigned task: %w", err)
		}

		at.Task.Status = models.TaskStatus(status)
		at.Task.Priority = models.TaskPriority(priority)
		at.Task.Description = description.String
		if effort.Valid {
			at.Task.EstimatedEffort = &effort.Float64
		}
		if sprintID.Valid {
			at.Task.SprintID = &sprintID.String
		}
		if deadline.Valid {
			d, err := models.ParseDate(deadline.String)
			if err != nil {
				return nil, fmt.Errorf("task %s deadline: %w", at.Task.ID, err)
			}
			at.Task.Deadline = &d
		}
		if blockerReason.Valid {
			at.Task.BlockerReason = &blockerReason.String
		}
		result = append(result, at)
	}
	return result, rows.Err()
}
