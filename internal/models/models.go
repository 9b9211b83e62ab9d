// Package models defines the core domain types for Crewplan.
package models

import (
	"encoding/json"
	"time"
)

// ResourceType classifies who (or what) does the work.
type ResourceType string

const (
	ResourceTypeHuman  ResourceType = "Human"
	ResourceTypeAITool ResourceType = "AI Tool"
	ResourceTypeHybrid ResourceType = "Human + AI Tool"
)

// ValidResourceType reports whether t is one of the known resource types.
func ValidResourceType(t ResourceType) bool {
	switch t {
	case ResourceTypeHuman, ResourceTypeAITool, ResourceTypeHybrid:
		return true
	}
	return false
}

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "To Do"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusBlocked    TaskStatus = "Blocked"
	TaskStatusInReview   TaskStatus = "In Review"
	TaskStatusDone       TaskStatus = "Done"
)

// ValidTaskStatus reports whether s is one of the known task statuses.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusToDo, TaskStatusInProgress, TaskStatusBlocked, TaskStatusInReview, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority orders tasks in the backlog.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "Low"
	PriorityMedium   TaskPriority = "Medium"
	PriorityHigh     TaskPriority = "High"
	PriorityCritical TaskPriority = "Critical"
)

// ValidTaskPriority reports whether p is one of the known priorities.
func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rating is a skill or domain the resource holds, with a 1-5 proficiency.
type Rating struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ProficiencyLevel int    `json:"proficiency_level"`
}

// CatalogItem is a skill or domain entry from the shared catalog.
type CatalogItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resource is a unit of capacity: a person, an AI tool, or a pairing of both.
type Resource struct {
	ID                      string          `json:"id"`
	NameIdentifier          string          `json:"name_identifier"`
	Type                    ResourceType    `json:"type"`
	CostRate                *float64        `json:"cost_rate,omitempty"`
	AvailabilityParams      json.RawMessage `json:"availability_params,omitempty"`
	ProductivityMultipliers json.RawMessage `json:"productivity_multipliers,omitempty"`
	RampUpTime              string          `json:"ramp_up_time,omitempty"`
	SkillLevel              string          `json:"skill_level,omitempty"`
	CollaborationFactor     *int            `json:"collaboration_factor,omitempty"`
	Skills                  []Rating        `json:"skills"`
	Domains                 []Rating        `json:"domains"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// Availability parses the stored availability_params JSON. Absent or empty
// params yield the defaults (fte=1.0, no working-hours policy, no leave).
func (r *Resource) Availability() (AvailabilityParams, error) {
	return ParseAvailabilityParams(r.AvailabilityParams)
}

// Task is a unit of work, optionally scheduled into a sprint.
type Task struct {
	ID              string        `json:"id"`
	TitleID         string        `json:"title_id"`
	Description     string        `json:"description,omitempty"`
	Status          TaskStatus    `json:"status"`
	Priority        TaskPriority  `json:"priority"`
	EstimatedEffort *float64      `json:"estimated_effort,omitempty"`
	SprintID        *string       `json:"sprint_id,omitempty"`
	Deadline        *Date         `json:"deadline,omitempty"`
	BlockerReason   *string       `json:"blocker_reason,omitempty"`
	RequiredSkills  []CatalogItem `json:"required_skills"`
	RequiredDomains []CatalogItem `json:"required_domains"`
	DependencyIDs   []string      `json:"dependency_ids"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Assignment links a task to the resource working it. A task has at most one
// assignment; re-assigning re-points the existing row.
type Assignment struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	ResourceID string    `json:"resource_id"`
	AssignedAt time.Time `json:"assigned_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Sprint is a time-boxed iteration. Both dates are nil for a backlog sprint.
type Sprint struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate *Date     `json:"start_date,omitempty"`
	EndDate   *Date     `json:"end_date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Scheduled reports whether the sprint has both calendar bounds.
func (s *Sprint) Scheduled() bool {
	return s != nil && s.StartDate != nil && s.EndDate != nil
}

// Okr captures an objective with its key results (stored as a JSON array).
type Okr struct {
	ID         string          `json:"id"`
	Objective  string          `json:"objective"`
	KeyResults json.RawMessage `json:"key_results,omitempty"`
	Status     string          `json:"status"`
	TaskIDs    []string        `json:"task_ids"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Risk is a tracked delivery/compliance/AI risk, optionally linked to a task.
type Risk struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Type        string    `json:"type,omitempty"`
	Probability string    `json:"probability"`
	Impact      string    `json:"impact"`
	Mitigation  string    `json:"mitigation,omitempty"`
	Status      string    `json:"status"`
	TaskID      *string   `json:"task_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Defect is a quality finding, optionally linked to a task.
type Defect struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Severity    string    `json:"severity"`
	TaskID      *string   `json:"task_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActivityEntry is an audit record of a state-mutating operation.
type ActivityEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	EntityID   string    `json:"entity_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
