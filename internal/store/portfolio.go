package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewplan/crewplan/internal/models"
)

// OkrInput carries the writable fields of an OKR.
type OkrInput struct {
	Objective  string          `json:"objective"`
	KeyResults json.RawMessage `json:"key_results"`
	Status     string          `json:"status"`
	TaskIDs    []string        `json:"task_ids"`
}

// CreateOkr inserts a new OKR with its task links.
func (s *Store) CreateOkr(input OkrInput) (*models.Okr, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	if input.Status == "" {
		input.Status = "active"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO okrs (id, objective, key_results, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, input.Objective, rawOrNil(input.KeyResults), input.Status, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert okr: %w", err)
	}

	for _, taskID := range input.TaskIDs {
		if _, err := tx.Exec(`INSERT INTO okr_tasks (okr_id, task_id) VALUES (?, ?)`, id, taskID); err != nil {
			return nil, fmt.Errorf("insert okr task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetOkr(id)
}

// GetOkr returns an OKR by ID with its task links, or nil if not found.
func (s *Store) GetOkr(id string) (*models.Okr, error) {
	row := s.db.QueryRow(`
		SELECT id, objective, key_results, status, created_at, updated_at
		FROM okrs WHERE id = ?`, id)

	okr, err := scanOkr(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get okr: %w", err)
	}

	if err := s.loadOkrTasks(okr); err != nil {
		return nil, err
	}
	return okr, nil
}

// ListOkrs returns all OKRs ordered by creation time.
func (s *Store) ListOkrs() ([]models.Okr, error) {
	rows, err := s.db.Query(`
		SELECT id, objective, key_results, status, created_at, updated_at
		FROM okrs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list okrs: %w", err)
	}
	defer rows.Close()

	var okrs []models.Okr
	for rows.Next() {
		okr, err := scanOkr(rows)
		if err != nil {
			return nil, fmt.Errorf("scan okr: %w", err)
		}
		okrs = append(okrs, *okr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate okrs: %w", err)
	}

	for i := range okrs {
		if err := s.loadOkrTasks(&okrs[i]); err != nil {
			return nil, err
		}
	}
	return okrs, nil
}

// UpdateOkr replaces an OKR's fields and task links. Returns nil if not found.
func (s *Store) UpdateOkr(id string, input OkrInput) (*models.Okr, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE okrs SET objective = ?, key_results = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		input.Objective, rawOrNil(input.KeyResults), input.Status, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update okr: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(`DELETE FROM okr_tasks WHERE okr_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear okr tasks: %w", err)
	}
	for _, taskID := range input.TaskIDs {
		if _, err := tx.Exec(`INSERT INTO okr_tasks (okr_id, task_id) VALUES (?, ?)`, id, taskID); err != nil {
			return nil, fmt.Errorf("insert okr task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetOkr(id)
}

// DeleteOkr removes an OKR; task links cascade.
func (s *Store) DeleteOkr(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM okrs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete okr: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func scanOkr(row interface{ Scan(...interface{}) error }) (*models.Okr, error) {
	var okr models.Okr
	var keyResults sql.NullString
	err := row.Scan(&okr.ID, &okr.Objective, &keyResults, &okr.Status, &okr.CreatedAt, &okr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if keyResults.Valid {
		okr.KeyResults = json.RawMessage(keyResults.String)
	}
	okr.TaskIDs = []string{}
	return &okr, nil
}

func (s *Store) loadOkrTasks(okr *models.Okr) error {
	rows, err := s.db.Query(`SELECT task_id FROM okr_tasks WHERE okr_id = ?`, okr.ID)
	if err != nil {
		return fmt.Errorf("load okr tasks: %w", err)
	}
	defer rows.Close()

	taskIDs := []string{}
	for rows.Next() {
		var taskID string
		if err := rows.Scan(&taskID); err != nil {
			return fmt.Errorf("scan okr task: %w", err)
		}
		taskIDs = append(taskIDs, taskID)
	}
	okr.TaskIDs = taskIDs
	return rows.Err()
}

// RiskInput carries the writable fields of a risk.
type RiskInput struct {
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Probability string  `json:"probability"`
	Impact      string  `json:"impact"`
	Mitigation  string  `json:"mitigation"`
	Status      string  `json:"status"`
	TaskID      *string `json:"task_id"`
}

// CreateRisk inserts a new risk.
func (s *Store) CreateRisk(input RiskInput) (*models.Risk, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	if input.Probability == "" {
		input.Probability = "Medium"
	}
	if input.Impact == "" {
		input.Impact = "Medium"
	}
	if input.Status == "" {
		input.Status = "Open"
	}

	_, err := s.db.Exec(`
		INSERT INTO risks (id, description, type, probability, impact, mitigation, status,
			task_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.Description, nullIfEmpty(input.Type), input.Probability, input.Impact,
		nullIfEmpty(input.Mitigation), input.Status, input.TaskID, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert risk: %w", err)
	}
	return s.GetRisk(id)
}

// GetRisk returns a risk by ID, or nil if not found.
func (s *Store) GetRisk(id string) (*models.Risk, error) {
	row := s.db.QueryRow(`
		SELECT id, description, type, probability, impact, mitigation, status, task_id,
			created_at, updated_at
		FROM risks WHERE id = ?`, id)

	risk, err := scanRisk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get risk: %w", err)
	}
	return risk, nil
}

// ListRisks returns all risks ordered by creation time.
func (s *Store) ListRisks() ([]models.Risk, error) {
	rows, err := s.db.Query(`
		SELECT id, description, type, probability, impact, mitigation, status, task_id,
			created_at, updated_at
		FROM risks ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list risks: %w", err)
	}
	defer rows.Close()

	var risks []models.Risk
	for rows.Next() {
		risk, err := scanRisk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan risk: %w", err)
		}
		risks = append(risks, *risk)
	}
	return risks, rows.Err()
}

// UpdateRisk replaces a risk's fields. Returns nil if not found.
func (s *Store) UpdateRisk(id string, input RiskInput) (*models.Risk, error) {
	result, err := s.db.Exec(`
		UPDATE risks SET description = ?, type = ?, probability = ?, impact = ?,
			mitigation = ?, status = ?, task_id = ?, updated_at = ?
		WHERE id = ?`,
		input.Description, nullIfEmpty(input.Type), input.Probability, input.Impact,
		nullIfEmpty(input.Mitigation), input.Status, input.TaskID, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update risk: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetRisk(id)
}

// DeleteRisk removes a risk.
func (s *Store) DeleteRisk(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM risks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete risk: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func scanRisk(row interface{ Scan(...interface{}) error }) (*models.Risk, error) {
	var risk models.Risk
	var typ, mitigation, taskID sql.NullString
	err := row.Scan(&risk.ID, &risk.Description, &typ, &risk.Probability, &risk.Impact,
		&mitigation, &risk.Status, &taskID, &risk.CreatedAt, &risk.UpdatedAt)
	if err != nil {
		return nil, err
	}
	risk.Type = typ.String
	risk.Mitigation = mitigation.String
	if taskID.Valid {
		risk.TaskID = &taskID.String
	}
	return &risk, nil
}

// DefectInput carries the writable fields of a defect.
type DefectInput struct {
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Severity    string  `json:"severity"`
	TaskID      *string `json:"task_id"`
}

// CreateDefect inserts a new defect.
func (s *Store) CreateDefect(input DefectInput) (*models.Defect, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	if input.Status == "" {
		input.Status = "Open"
	}
	if input.Severity == "" {
		input.Severity = "Medium"
	}

	_, err := s.db.Exec(`
		INSERT INTO defects (id, description, status, severity, task_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, input.Description, input.Status, input.Severity, input.TaskID, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert defect: %w", err)
	}
	return s.GetDefect(id)
}

// GetDefect returns a defect by ID, or nil if not found.
func (s *Store) GetDefect(id string) (*models.Defect, error) {
	row := s.db.QueryRow(`
		SELECT id, description, status, severity, task_id, created_at, updated_at
		FROM defects WHERE id = ?`, id)

	defect, err := scanDefect(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get defect: %w", err)
	}
	return defect, nil
}

// ListDefects returns all defects ordered by creation time.
func (s *Store) ListDefects() ([]models.Defect, error) {
	rows, err := s.db.Query(`
		SELECT id, description, status, severity, task_id, created_at, updated_at
		FROM defects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list defects: %w", err)
	}
	defer rows.Close()

	var defects []models.Defect
	for rows.Next() {
		defect, err := scanDefect(rows)
		if err != nil {
			return nil, fmt.Errorf("scan defect: %w", err)
		}
		defects = append(defects, *defect)
	}
	return defects, rows.Err()
}

// UpdateDefect replaces a defect's fields. Returns nil if not found.
func (s *Store) UpdateDefect(id string, input DefectInput) (*models.Defect, error) {
	result, err := s.db.Exec(`
		UPDATE defects SET description = ?, status = ?, severity = ?, task_id = ?, updated_at = ?
		WHERE id = ?`,
		input.Description, input.Status, input.Severity, input.TaskID, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update defect: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetDefect(id)
}

// DeleteDefect removes a defect.
func (s *Store) DeleteDefect(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM defects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete defect: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func scanDefect(row interface{ Scan(...interface{}) error }) (*models.Defect, error) {
	var defect models.Defect
	var taskID sql.NullString
	err := row.Scan(&defect.ID, &defect.Description, &defect.Status, &defect.Severity,
		&taskID, &defect.CreatedAt, &defect.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if taskID.Valid {
		defect.TaskID = &taskID.String
	}
	return &defect, nil
}
