package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewplan/crewplan/internal/models"
)

// RatingInput attaches a catalog entry to a resource with a proficiency level.
type RatingInput struct {
	ID               string `json:"id"`
	ProficiencyLevel int    `json:"proficiency_level"`
}

// ResourceInput carries the writable fields of a resource.
type ResourceInput struct {
	NameIdentifier          string              `json:"name_identifier"`
	Type                    models.ResourceType `json:"type"`
	CostRate                *float64            `json:"cost_rate"`
	AvailabilityParams      json.RawMessage     `json:"availability_params"`
	ProductivityMultipliers json.RawMessage     `json:"productivity_multipliers"`
	RampUpTime              string              `json:"ramp_up_time"`
	SkillLevel              string              `json:"skill_level"`
	CollaborationFactor     *int                `json:"collaboration_factor"`
	Skills                  []RatingInput       `json:"skills"`
	Domains                 []RatingInput       `json:"domains"`
}

// CreateResource inserts a new resource with its skill and domain ratings.
func (s *Store) CreateResource(input ResourceInput) (*models.Resource, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO resources (id, name_identifier, type, cost_rate, availability_params,
			productivity_multipliers, ramp_up_time, skill_level, collaboration_factor,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.NameIdentifier, string(input.Type), input.CostRate,
		rawOrNil(input.AvailabilityParams), rawOrNil(input.ProductivityMultipliers),
		nullIfEmpty(input.RampUpTime), nullIfEmpty(input.SkillLevel),
		input.CollaborationFactor, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert resource: %w", err)
	}

	if err := syncRatings(tx, "resource_skills", "skill_id", id, input.Skills); err != nil {
		return nil, err
	}
	if err := syncRatings(tx, "resource_domains", "domain_id", id, input.Domains); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.GetResource(id)
}

// GetResource returns a resource by ID with its ratings, or nil if not found.
func (s *Store) GetResource(id string) (*models.Resource, error) {
	row := s.db.QueryRow(`
		SELECT id, name_identifier, type, cost_rate, availability_params,
			productivity_multipliers, ramp_up_time, skill_level, collaboration_factor,
			created_at, updated_at
		FROM resources WHERE id = ?`, id)

	res, err := scanResource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get resource: %w", err)
	}

	if err := s.loadRatings(res); err != nil {
		return nil, err
	}
	return res, nil
}

// ListResources returns all resources with their ratings, ordered by name.
func (s *Store) ListResources() ([]models.Resource, error) {
	rows, err := s.db.Query(`
		SELECT id, name_identifier, type, cost_rate, availability_params,
			productivity_multipliers, ramp_up_time, skill_level, collaboration_factor,
			created_at, updated_at
		FROM resources ORDER BY name_identifier`)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}

	for i := range resources {
		if err := s.loadRatings(&resources[i]); err != nil {
			return nil, err
		}
	}
	return resources, nil
}

// UpdateResource replaces a resource's fields and ratings. Returns nil if the
// resource does not exist.
func (s *Store) UpdateResource(id string, input ResourceInput) (*models.Resource, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE resources
		SET name_identifier = ?, type = ?, cost_rate = ?, availability_params = ?,
			productivity_multipliers = ?, ramp_up_time = ?, skill_level = ?,
			collaboration_factor = ?, updated_at = ?
		WHERE id = ?`,
		input.NameIdentifier, string(input.Type), input.CostRate,
		rawOrNil(input.AvailabilityParams), rawOrNil(input.ProductivityMultipliers),
		nullIfEmpty(input.RampUpTime), nullIfEmpty(input.SkillLevel),
		input.CollaborationFactor, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update resource: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(`DELETE FROM resource_skills WHERE resource_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear resource skills: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM resource_domains WHERE resource_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear resource domains: %w", err)
	}
	if err := syncRatings(tx, "resource_skills", "skill_id", id, input.Skills); err != nil {
		return nil, err
	}
	if err := syncRatings(tx, "resource_domains", "domain_id", id, input.Domains); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.GetResource(id)
}

// DeleteResource removes a resource. Pivot rows and assignments cascade.
func (s *Store) DeleteResource(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete resource: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func scanResource(row interface{ Scan(...interface{}) error }) (*models.Resource, error) {
	var res models.Resource
	var typ string
	var costRate sql.NullFloat64
	var availParams, prodMult, rampUp, skillLevel sql.NullString
	var collabFactor sql.NullInt64

	err := row.Scan(&res.ID, &res.NameIdentifier, &typ, &costRate, &availParams,
		&prodMult, &rampUp, &skillLevel, &collabFactor, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}

	res.Type = models.ResourceType(typ)
	if costRate.Valid {
		res.CostRate = &costRate.Float64
	}
	if availParams.Valid {
		res.AvailabilityParams = json.RawMessage(availParams.String)
	}
	if prodMult.Valid {
		res.ProductivityMultipliers = json.RawMessage(prodMult.String)
	}
	res.RampUpTime = rampUp.String
	res.SkillLevel = skillLevel.String
	if collabFactor.Valid {
		v := int(collabFactor.Int64)
		res.CollaborationFactor = &v
	}
	res.Skills = []models.Rating{}
	res.Domains = []models.Rating{}
	return &res, nil
}

func (s *Store) loadRatings(res *models.Resource) error {
	skills, err := s.queryRatings(`
		SELECT sk.id, sk.name, rs.proficiency_level
		FROM resource_skills rs JOIN skills sk ON sk.id = rs.skill_id
		WHERE rs.resource_id = ? ORDER BY sk.name`, res.ID)
	if err != nil {
		return fmt.Errorf("load resource skills: %w", err)
	}
	domains, err := s.queryRatings(`
		SELECT dm.id, dm.name, rd.proficiency_level
		FROM resource_domains rd JOIN domains dm ON dm.id = rd.domain_id
		WHERE rd.resource_id = ? ORDER BY dm.name`, res.ID)
	if err != nil {
		return fmt.Errorf("load resource domains: %w", err)
	}
	res.Skills = skills
	res.Domains = domains
	return nil
}

func (s *Store) queryRatings(query, resourceID string) ([]models.Rating, error) {
	rows, err := s.db.Query(query, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := []models.Rating{}
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.ID, &r.Name, &r.ProficiencyLevel); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

func syncRatings(tx *sql.Tx, table, column, resourceID string, ratings []RatingInput) error {
	for _, r := range ratings {
		level := r.ProficiencyLevel
		if level <= 0 {
			level = 1
		}
		_, err := tx.Exec(
			fmt.Sprintf(`INSERT INTO %s (resource_id, %s, proficiency_level) VALUES (?, ?, ?)`, table, column),
			resourceID, r.ID, level)
		if err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func rawOrNil(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
