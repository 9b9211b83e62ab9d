package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewplan/crewplan/internal/models"
)

// TaskInput carries the writable fields of a task.
type TaskInput struct {
	TitleID           string              `json:"title_id"`
	Description       string              `json:"description"`
	Status            models.TaskStatus   `json:"status"`
	Priority          models.TaskPriority `json:"priority"`
	EstimatedEffort   *float64            `json:"estimated_effort"`
	SprintID          *string             `json:"sprint_id"`
	Deadline          *models.Date        `json:"deadline"`
	BlockerReason     *string             `json:"blocker_reason"`
	RequiredSkillIDs  []string            `json:"required_skill_ids"`
	RequiredDomainIDs []string            `json:"required_domain_ids"`
	DependencyIDs     []string            `json:"dependency_ids"`
}

// CreateTask inserts a new task with its requirements and dependencies.
func (s *Store) CreateTask(input TaskInput) (*models.Task, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	if input.Status == "" {
		input.Status = models.TaskStatusToDo
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO tasks (id, title_id, description, status, priority, estimated_effort,
			sprint_id, deadline, blocker_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.TitleID, nullIfEmpty(input.Description), string(input.Status),
		string(input.Priority), input.EstimatedEffort, input.SprintID,
		dateOrNil(input.Deadline), input.BlockerReason, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	if err := syncTaskLinks(tx, id, input); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.GetTask(id)
}

// GetTask returns a task by ID with requirements and dependencies, or nil if
// not found.
func (s *Store) GetTask(id string) (*models.Task, error) {
	row := s.db.QueryRow(`
		SELECT id, title_id, description, status, priority, estimated_effort,
			sprint_id, deadline, blocker_reason, created_at, updated_at
		FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	if err := s.loadTaskLinks(task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns tasks, optionally filtered by status and/or sprint,
// ordered by creation time.
func (s *Store) ListTasks(status models.TaskStatus, sprintID string) ([]models.Task, error) {
	query := `
		SELECT id, title_id, description, status, priority, estimated_effort,
			sprint_id, deadline, blocker_reason, created_at, updated_at
		FROM tasks WHERE 1=1`
	var args []interface{}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	if sprintID != "" {
		query += " AND sprint_id = ?"
		args = append(args, sprintID)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	for i := range tasks {
		if err := s.loadTaskLinks(&tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// UpdateTask replaces a task's fields, requirements, and dependencies.
// Returns nil if the task does not exist.
func (s *Store) UpdateTask(id string, input TaskInput) (*models.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE tasks
		SET title_id = ?, description = ?, status = ?, priority = ?,
			estimated_effort = ?, sprint_id = ?, deadline = ?, blocker_reason = ?,
			updated_at = ?
		WHERE id = ?`,
		input.TitleID, nullIfEmpty(input.Description), string(input.Status),
		string(input.Priority), input.EstimatedEffort, input.SprintID,
		dateOrNil(input.Deadline), input.BlockerReason, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	for _, table := range []string{"task_skills", "task_domains", "task_dependencies"} {
		if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE task_id = ?`, table), id); err != nil {
			return nil, fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := syncTaskLinks(tx, id, input); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.GetTask(id)
}

// DeleteTask removes a task. Requirement and dependency rows cascade.
func (s *Store) DeleteTask(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	var task models.Task
	var status, priority string
	var description, sprintID, deadline, blockerReason sql.NullString
	var effort sql.NullFloat64

	err := row.Scan(&task.ID, &task.TitleID, &description, &status, &priority,
		&effort, &sprintID, &deadline, &blockerReason, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	task.Status = models.TaskStatus(status)
	task.Priority = models.TaskPriority(priority)
	task.Description = description.String
	if effort.Valid {
		task.EstimatedEffort = &effort.Float64
	}
	if sprintID.Valid {
		task.SprintID = &sprintID.String
	}
	if deadline.Valid {
		d, err := models.ParseDate(deadline.String)
		if err != nil {
			return nil, fmt.Errorf("task %s deadline: %w", task.ID, err)
		}
		task.Deadline = &d
	}
	if blockerReason.Valid {
		task.BlockerReason = &blockerReason.String
	}
	task.RequiredSkills = []models.CatalogItem{}
	task.RequiredDomains = []models.CatalogItem{}
	task.DependencyIDs = []string{}
	return &task, nil
}

func (s *Store) loadTaskLinks(task *models.Task) error {
	skills, err := s.queryCatalogLinks(`
		SELECT sk.id, sk.name FROM task_skills ts
		JOIN skills sk ON sk.id = ts.skill_id
		WHERE ts.task_id = ? ORDER BY sk.name`, task.ID)
	if err != nil {
		return fmt.Errorf("load task skills: %w", err)
	}
	domains, err := s.queryCatalogLinks(`
		SELECT dm.id, dm.name FROM task_domains td
		JOIN domains dm ON dm.id = td.domain_id
		WHERE td.task_id = ? ORDER BY dm.name`, task.ID)
	if err != nil {
		return fmt.Errorf("load task domains: %w", err)
	}

	rows, err := s.db.Query(`SELECT depends_on_task_id FROM task_dependencies WHERE task_id = ?`, task.ID)
	if err != nil {
		return fmt.Errorf("load task dependencies: %w", err)
	}
	defer rows.Close()

	deps := []string{}
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return fmt.Errorf("scan task dependency: %w", err)
		}
		deps = append(deps, dep)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate task dependencies: %w", err)
	}

	task.RequiredSkills = skills
	task.RequiredDomains = domains
	task.DependencyIDs = deps
	return nil
}

func (s *Store) queryCatalogLinks(query, taskID string) ([]models.CatalogItem, error) {
	rows, err := s.db.Query(query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.CatalogItem{}
	for rows.Next() {
		var item models.CatalogItem
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func syncTaskLinks(tx *sql.Tx, taskID string, input TaskInput) error {
	for _, skillID := range input.RequiredSkillIDs {
		if _, err := tx.Exec(`INSERT INTO task_skills (task_id, skill_id) VALUES (?, ?)`, taskID, skillID); err != nil {
			return fmt.Errorf("insert task skill: %w", err)
		}
	}
	for _, domainID := range input.RequiredDomainIDs {
		if _, err := tx.Exec(`INSERT INTO task_domains (task_id, domain_id) VALUES (?, ?)`, taskID, domainID); err != nil {
			return fmt.Errorf("insert task domain: %w", err)
		}
	}
	for _, depID := range input.DependencyIDs {
		if depID == taskID {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO task_dependencies (task_id, depends_on_task_id) VALUES (?, ?)`, taskID, depID); err != nil {
			return fmt.Errorf("insert task dependency: %w", err)
		}
	}
	return nil
}

func dateOrNil(d *models.Date) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
