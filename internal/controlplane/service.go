// Package controlplane provides the HTTP API and service layer for Crewplan.
package controlplane

import (
	"fmt"
	"log"
	"time"

	"github.com/crewplan/crewplan/internal/analytics"
	"github.com/crewplan/crewplan/internal/audit"
	"github.com/crewplan/crewplan/internal/engine"
	"github.com/crewplan/crewplan/internal/models"
	"github.com/crewplan/crewplan/internal/store"
)

// Service provides the planning business logic on top of the store.
type Service struct {
	store    *store.Store
	recorder *audit.Recorder
	cfg      engine.Config
	cache    *analytics.Cache
	now      func() time.Time
}

// NewService creates a new planning service.
func NewService(s *store.Store, recorder *audit.Recorder, cfg engine.Config) *Service {
	return &Service{
		store:    s,
		recorder: recorder,
		cfg:      cfg,
		cache:    analytics.NewCache(cfg.CacheTTL),
		now:      time.Now,
	}
}

// --- Resource Operations ---

// CreateResource validates and creates a resource.
func (s *Service) CreateResource(input store.ResourceInput) (*models.Resource, error) {
	if err := validateResourceInput(input); err != nil {
		return nil, err
	}
	res, err := s.store.CreateResource(input)
	if err != nil {
		return nil, err
	}
	s.recorder.Record("resource.create", input, "success", res.ID)
	return res, nil
}

// GetResource retrieves a resource by ID.
func (s *Service) GetResource(id string) (*models.Resource, error) {
	return s.store.GetResource(id)
}

// ListResources returns all resources.
func (s *Service) ListResources() ([]models.Resource, error) {
	return s.store.ListResources()
}

// UpdateResource validates and updates a resource.
func (s *Service) UpdateResource(id string, input store.ResourceInput) (*models.Resource, error) {
	if err := validateResourceInput(input); err != nil {
		return nil, err
	}
	res, err := s.store.UpdateResource(id, input)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrResourceNotFound
	}
	s.recorder.Record("resource.update", input, "success", id)
	return res, nil
}

// DeleteResource removes a resource.
func (s *Service) DeleteResource(id string) error {
	ok, err := s.store.DeleteResource(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrResourceNotFound
	}
	s.recorder.Record("resource.delete", id, "success", id)
	return nil
}

func validateResourceInput(input store.ResourceInput) error {
	if input.NameIdentifier == "" {
		return fmt.Errorf("%w: name_identifier is required", ErrInvalidInput)
	}
	if !models.ValidResourceType(input.Type) {
		return fmt.Errorf("%w: unknown resource type %q", ErrInvalidInput, input.Type)
	}
	if len(input.AvailabilityParams) > 0 {
		if _, err := models.ParseAvailabilityParams(input.AvailabilityParams); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return nil
}

// --- Load Calculation ---

// ResourceLoad is the per-resource load report.
type ResourceLoad struct {
	ResourceID             string  `json:"resource_id"`
	NameIdentifier         string  `json:"name_identifier"`
	SprintID               *string `json:"sprint_id"`
	TotalAssignedEffort    float64 `json:"total_assigned_effort"`
	CalculatedAvailability float64 `json:"calculated_availability"`
	LoadPercentage         int     `json:"load_percentage"`
}

// ComputeResourceLoad calculates a resource's load over the sprint window when
// sprintID is given and the resource has an assignment in that sprint,
// otherwise over the calendar week containing now. Assigned effort counts
// tasks that are not Done.
func (s *Service) ComputeResourceLoad(resourceID, sprintID string) (*ResourceLoad, error) {
	res, err := s.store.GetResource(resourceID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrResourceNotFound
	}

	params, err := res.Availability()
	if err != nil {
		log.Printf("resource load: %s availability: %v, using defaults", resourceID, err)
		params = models.DefaultAvailabilityParams()
	}

	assigned, err := s.store.AssignmentsForResource(resourceID)
	if err != nil {
		return nil, err
	}

	var sprint *models.Sprint
	var sprintRef *string
	if sprintID != "" {
		sprint, err = s.store.GetSprint(sprintID)
		if err != nil {
			return nil, err
		}
		if sprint == nil {
			return nil, ErrSprintNotFound
		}
		sprintRef = &sprintID
	}

	assignedInSprint := false
	for _, at := range assigned {
		if at.Task.SprintID != nil && sprint != nil && *at.Task.SprintID == sprint.ID {
			assignedInSprint = true
			break
		}
	}

	start, end := engine.ResolvePeriod(s.now(), sprint, assignedInSprint)
	sprintScoped := sprint.Scheduled() && assignedInSprint

	effort := 0.0
	for _, at := range assigned {
		if at.Task.Status == models.TaskStatusDone || at.Task.EstimatedEffort == nil {
			continue
		}
		if sprintScoped && (at.Task.SprintID == nil || *at.Task.SprintID != sprint.ID) {
			continue
		}
		effort += *at.Task.EstimatedEffort
	}

	available := s.cfg.AvailableHours(params, start, end)
	return &ResourceLoad{
		ResourceID:             res.ID,
		NameIdentifier:         res.NameIdentifier,
		SprintID:               sprintRef,
		TotalAssignedEffort:    effort,
		CalculatedAvailability: available,
		LoadPercentage:         engine.LoadPercentage(effort, available),
	}, nil
}

// --- Task Operations ---

// CreateTask validates and creates a task.
func (s *Service) CreateTask(input store.TaskInput) (*models.Task, error) {
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}
	task, err := s.store.CreateTask(input)
	if err != nil {
		return nil, err
	}
	s.recorder.Record("task.create", input, "success", task.ID)
	return task, nil
}

// GetTask retrieves a task by ID.
func (s *Service) GetTask(id string) (*models.Task, error) {
	return s.store.GetTask(id)
}

// ListTasks returns tasks, optionally filtered by status and sprint.
func (s *Service) ListTasks(status models.TaskStatus, sprintID string) ([]models.Task, error) {
	if status != "" && !models.ValidTaskStatus(status) {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, status)
	}
	return s.store.ListTasks(status, sprintID)
}

// UpdateTask validates and updates a task.
func (s *Service) UpdateTask(id string, input store.TaskInput) (*models.Task, error) {
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}
	task, err := s.store.UpdateTask(id, input)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	s.recorder.Record("task.update", input, "success", id)
	return task, nil
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(id string) error {
	ok, err := s.store.DeleteTask(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTaskNotFound
	}
	s.recorder.Record("task.delete", id, "success", id)
	return nil
}

func validateTaskInput(input store.TaskInput) error {
	if input.TitleID == "" {
		return fmt.Errorf("%w: title_id is required", ErrInvalidInput)
	}
	if input.Status != "" && !models.ValidTaskStatus(input.Status) {
		return fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, input.Status)
	}
	if input.Priority != "" && !models.ValidTaskPriority(input.Priority) {
		return fmt.Errorf("%w: unknown task priority %q", ErrInvalidInput, input.Priority)
	}
	if input.EstimatedEffort != nil && *input.EstimatedEffort < 0 {
		return fmt.Errorf("%w: estimated_effort must be >= 0", ErrInvalidInput)
	}
	return nil
}

// --- Suggestions ---

// TaskSuggestions ranks every resource against the task's requirements.
// Projected loads are real load percentages with the task's own effort folded
// in, never placeholders. A resource with unparseable availability scores with
// default availability rather than aborting the whole ranking.
func (s *Service) TaskSuggestions(taskID string) ([]engine.Suggestion, error) {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	req := engine.Requirements{
		SkillIDs:  catalogIDs(task.RequiredSkills),
		DomainIDs: catalogIDs(task.RequiredDomains),
	}

	var sprint *models.Sprint
	if task.SprintID != nil {
		sprint, err = s.store.GetSprint(*task.SprintID)
		if err != nil {
			return nil, err
		}
	}

	resources, err := s.store.ListResources()
	if err != nil {
		return nil, err
	}

	taskEffort := 0.0
	if task.EstimatedEffort != nil {
		taskEffort = *task.EstimatedEffort
	}

	candidates := make([]engine.Candidate, 0, len(resources))
	projectedLoads := make(map[string]int, len(resources))
	for i := range resources {
		res := &resources[i]
		candidates = append(candidates, engine.Candidate{
			ResourceID:        res.ID,
			NameIdentifier:    res.NameIdentifier,
			Type:              res.Type,
			SkillProficiency:  proficiencyMap(res.Skills),
			DomainProficiency: proficiencyMap(res.Domains),
		})

		load, err := s.projectedLoad(res, sprint, taskEffort)
		if err != nil {
			log.Printf("suggestions: projected load for %s: %v", res.ID, err)
			load = 0
		}
		projectedLoads[res.ID] = load
	}

	return s.cfg.RankSuggestions(req, candidates, projectedLoads), nil
}

// projectedLoad computes a resource's load with extraEffort added to its
// current assigned effort.
func (s *Service) projectedLoad(res *models.Resource, sprint *models.Sprint, extraEffort float64) (int, error) {
	params, err := res.Availability()
	if err != nil {
		log.Printf("projected load: %s availability: %v, using defaults", res.ID, err)
		params = models.DefaultAvailabilityParams()
	}

	assigned, err := s.store.AssignmentsForResource(res.ID)
	if err != nil {
		return 0, err
	}

	assignedInSprint := false
	if sprint != nil {
		for _, at := range assigned {
			if at.Task.SprintID != nil && *at.Task.SprintID == sprint.ID {
				assignedInSprint = true
				break
			}
		}
	}

	start, end := engine.ResolvePeriod(s.now(), sprint, assignedInSprint)

	effort := extraEffort
	for _, at := range assigned {
		if at.Task.Status == models.TaskStatusDone || at.Task.EstimatedEffort == nil {
			continue
		}
		effort += *at.Task.EstimatedEffort
	}

	available := s.cfg.AvailableHours(params, start, end)
	return engine.LoadPercentage(effort, available), nil
}

func catalogIDs(items []models.CatalogItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func proficiencyMap(ratings []models.Rating) map[string]int {
	m := make(map[string]int, len(ratings))
	for _, r := range ratings {
		m[r.ID] = r.ProficiencyLevel
	}
	return m
}

// --- Assignment Operations ---

// AssignTask assigns a task to a resource, re-pointing any existing
// assignment for the task.
func (s *Service) AssignTask(taskID, resourceID string) (*models.Assignment, error) {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	res, err := s.store.GetResource(resourceID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrResourceNotFound
	}

	a, err := s.store.AssignTask(taskID, resourceID)
	if err != nil {
		return nil, err
	}
	s.recorder.Record("assignment.create", map[string]string{"task_id": taskID, "resource_id": resourceID}, "success", a.ID)
	return a, nil
}

// UnassignTask removes a task's assignment.
func (s *Service) UnassignTask(taskID string) error {
	ok, err := s.store.UnassignTask(taskID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.recorder.Record("assignment.delete", taskID, "success", taskID)
	return nil
}

// ListAssignments returns all assignments.
func (s *Service) ListAssignments() ([]models.Assignment, error) {
	return s.store.ListAssignments()
}

// AssignmentForTask returns a task's assignment, or nil if unassigned.
func (s *Service) AssignmentForTask(taskID string) (*models.Assignment, error) {
	return s.store.AssignmentForTask(taskID)
}

// --- Sprint Operations ---

// CreateSprint validates and creates a sprint.
func (s *Service) CreateSprint(input store.SprintInput) (*models.Sprint, error) {
	if err := validateSprintInput(input); err != nil {
		return nil, err
	}
	sprint, err := s.store.CreateSprint(input)
	if err != nil {
		return nil, err
	}
	s.recorder.Record("sprint.create", input, "success", sprint.ID)
	return sprint, nil
}

// GetSprint retrieves a sprint by ID.
func (s *Service) GetSprint(id string) (*models.Sprint, error) {
	return s.store.GetSprint(id)
}

// ListSprints returns all sprints.
func (s *Service) ListSprints() ([]models.Sprint, error) {
	return s.store.ListSprints()
}

// UpdateSprint validates and updates a sprint.
func (s *Service) UpdateSprint(id string, input store.SprintInput) (*models.Sprint, error) {
	if err := validateSprintInput(input); err != nil {
		return nil, err
	}
	sprint, err := s.store.UpdateSprint(id, input)
	if err != nil {
		return nil, err
	}
	if sprint == nil {
		return nil, ErrSprintNotFound
	}
	s.recorder.Record("sprint.update", input, "success", id)
	return sprint, nil
}

// DeleteSprint removes a sprint.
func (s *Service) DeleteSprint(id string) error {
	ok, err := s.store.DeleteSprint(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSprintNotFound
	}
	s.recorder.Record("sprint.delete", id, "success", id)
	return nil
}

func validateSprintInput(input store.SprintInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(input.StartDate.Time) {
		return fmt.Errorf("%w: end_date before start_date", ErrInvalidInput)
	}
	return nil
}

// --- Catalog Operations ---

// CreateSkill adds a skill to the catalog.
func (s *Service) CreateSkill(name string) (*models.CatalogItem, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return s.store.CreateSkill(name)
}

// ListSkills returns the skill catalog.
func (s *Service) ListSkills() ([]models.CatalogItem, error) {
	return s.store.ListSkills()
}

// DeleteSkill removes a skill from the catalog.
func (s *Service) DeleteSkill(id string) error {
	ok, err := s.store.DeleteSkill(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.recorder.Record("skill.delete", id, "success", id)
	return nil
}

// CreateDomain adds a domain to the catalog.
func (s *Service) CreateDomain(name string) (*models.CatalogItem, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return s.store.CreateDomain(name)
}

// ListDomains returns the domain catalog.
func (s *Service) ListDomains() ([]models.CatalogItem, error) {
	return s.store.ListDomains()
}

// DeleteDomain removes a domain from the catalog.
func (s *Service) DeleteDomain(id string) error {
	ok, err := s.store.DeleteDomain(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.recorder.Record("domain.delete", id, "success", id)
	return nil
}

// --- Portfolio Operations ---

// CreateOkr creates an OKR.
func (s *Service) CreateOkr(input store.OkrInput) (*models.Okr, error) {
	if input.Objective == "" {
		return nil, fmt.Errorf("%w: objective is required", ErrInvalidInput)
	}
	okr, err := s.store.CreateOkr(input)
	if err != nil {
		return nil, err
	}
	s.recorder.Record("okr.create", input, "success", okr.ID)
	return okr, nil
}

// GetOkr retrieves an OKR by ID.
func (s *Service) GetOkr(id string) (*models.Okr, error) { return s.store.GetOkr(id) }

// ListOkrs returns all OKRs.
func (s *Service) ListOkrs() ([]models.Okr, error) { return s.store.ListOkrs() }

// UpdateOkr updates an OKR.
func (s *Service) UpdateOkr(id string, input store.OkrInput) (*models.Okr, error) {
	okr, err := s.store.UpdateOkr(id, input)
	if err != nil {
		return nil, err
	}
	if okr == nil {
		return nil, ErrNotFound
	}
	s.recorder.Record("okr.update", input, "success", id)
	return okr, nil
}

// DeleteOkr removes an OKR.
func (s *Service) DeleteOkr(id string) error {
	ok, err := s.store.DeleteOkr(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.recorder.Record("okr.delete", id, "success", id)
	return nil
}

// CreateRisk creates a risk.
func (s *Service) CreateRisk(input store.RiskInput) (*models.Risk, error) {
	if input.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	risk, err := s.store.CreateRisk(input)
	if err != nil {
		return nil, err
	}
	s.recorder.Record("risk.create", input, "success", risk.ID)
	return risk, nil
}

// GetRisk retrieves a risk by ID.
func (s *Service) GetRisk(id string) (*models.Risk, error) { return s.store.GetRisk(id) }

// ListRisks returns all risks.
func (s *Service) ListRisks() ([]models.Risk, error) { return s.store.ListRisks() }

// UpdateRisk updates a risk.
func (s *Service) UpdateRisk(id string, input store.RiskInput) (*models.Risk, error) {
	risk, err := s.store.UpdateRisk(id, input)
	if err != nil {
		return nil, err
	}
	if risk == nil {
		return nil, ErrNotFound
	}
	s.recorder.Record("risk.update", input, "success", id)
	return risk, nil
}

// DeleteRisk removes a risk.
func (s *Service) DeleteRisk(id string) error {
	ok, err := s.store.DeleteRisk(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.recorder.Record("risk.delete", id, "success", id)
	return nil
}

// CreateDefect creates a defect.
func (s *Service) CreateDefect(input store.DefectInput) (*models.Defect, error) {
	if input.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	defect, err := s.store.CreateDefect(input)
	if err != nil {
		return nil, err
	}
	s.recorder.Record("defect.create", input, "success", defect.ID)
	return defect, nil
}

// GetDefect retrieves a defect by ID.
func (s *Service) GetDefect(id string) (*models.Defect, error) { return s.store.GetDefect(id) }

// ListDefects returns all defects.
func (s *Service) ListDefects() ([]models.Defect, error) { return s.store.ListDefects() }

// UpdateDefect updates a defect.
func (s *Service) UpdateDefect(id string, input store.DefectInput) (*models.Defect, error) {
	defect, err := s.store.UpdateDefect(id, input)
	if err != nil {
		return nil, err
	}
	if defect == nil {
		return nil, ErrNotFound
	}
	s.recorder.Record("defect.update", input, "success", id)
	return defect, nil
}

// DeleteDefect removes a defect.
func (s *Service) DeleteDefect(id string) error {
	ok, err := s.store.DeleteDefect(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.recorder.Record("defect.delete", id, "success", id)
	return nil
}

// --- Analytics ---

// ResourceUtilization reports per-resource utilization over the last 30 days.
// The result is cached for the configured TTL.
func (s *Service) ResourceUtilization() ([]analytics.UtilizationEntry, error) {
	v := s.cache.Remember(analytics.CacheKeyUtilization, func() interface{} {
		entries, err := s.computeUtilization()
		if err != nil {
			log.Printf("analytics: resource utilization: %v", err)
			return []analytics.UtilizationEntry{}
		}
		return entries
	})
	return v.([]analytics.UtilizationEntry), nil
}

func (s *Service) computeUtilization() ([]analytics.UtilizationEntry, error) {
	resources, err := s.store.ListResources()
	if err != nil {
		return nil, err
	}
	assigned, err := s.store.AssignmentsWithTasks()
	if err != nil {
		return nil, err
	}

	windowStart := s.now().AddDate(0, 0, -30)
	effortByResource := make(map[string]float64)
	for _, at := range assigned {
		if at.Task.EstimatedEffort == nil || at.Task.CreatedAt.Before(windowStart) {
			continue
		}
		effortByResource[at.Assignment.ResourceID] += *at.Task.EstimatedEffort
	}

	return analytics.Utilization(s.cfg, resources, effortByResource), nil
}

// BurnupBurndown reports per-sprint burnup/burndown series. The result is
// cached for the configured TTL.
func (s *Service) BurnupBurndown() ([]analytics.SprintSeries, error) {
	v := s.cache.Remember(analytics.CacheKeyBurnupBurndown, func() interface{} {
		series, err := s.computeBurnupBurndown()
		if err != nil {
			log.Printf("analytics: burnup-burndown: %v", err)
			return []analytics.SprintSeries{}
		}
		return series
	})
	return v.([]analytics.SprintSeries), nil
}

func (s *Service) computeBurnupBurndown() ([]analytics.SprintSeries, error) {
	sprints, err := s.store.ListSprints()
	if err != nil {
		return nil, err
	}
	tasksBySprint, err := s.tasksBySprint()
	if err != nil {
		return nil, err
	}
	return analytics.BurnupBurndown(sprints, tasksBySprint), nil
}

// TaskBlockers reports blocked-task groups by blocker reason.
func (s *Service) TaskBlockers() ([]analytics.BlockerStat, error) {
	blocked, err := s.store.ListTasks(models.TaskStatusBlocked, "")
	if err != nil {
		return nil, err
	}
	return analytics.BlockerStats(blocked), nil
}

// AvailabilityHeatmap reports per-resource daily availability for the
// configured heatmap window starting today.
func (s *Service) AvailabilityHeatmap() ([]analytics.ResourceHeatmap, error) {
	resources, err := s.store.ListResources()
	if err != nil {
		return nil, err
	}
	return analytics.Heatmap(s.cfg, resources, s.now()), nil
}

// CompletionRates reports done-vs-total task counts per sprint.
func (s *Service) CompletionRates() ([]analytics.CompletionRate, error) {
	sprints, err := s.store.ListSprints()
	if err != nil {
		return nil, err
	}
	tasksBySprint, err := s.tasksBySprint()
	if err != nil {
		return nil, err
	}
	return analytics.CompletionRates(sprints, tasksBySprint), nil
}

// AssignmentHistory reports assignments created per day over the last 30 days.
func (s *Service) AssignmentHistory() ([]analytics.HistoryEntry, error) {
	assignments, err := s.store.ListAssignments()
	if err != nil {
		return nil, err
	}
	end := s.now()
	return analytics.AssignmentHistory(assignments, end.AddDate(0, 0, -30), end), nil
}

// AIToolImpact compares completion throughput across resource types.
func (s *Service) AIToolImpact() ([]analytics.TypeImpact, error) {
	resources, err := s.store.ListResources()
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.ListAssignments()
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks("", "")
	if err != nil {
		return nil, err
	}
	tasksByID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		tasksByID[t.ID] = t
	}
	return analytics.AIToolImpact(resources, assignments, tasksByID), nil
}

func (s *Service) tasksBySprint() (map[string][]models.Task, error) {
	tasks, err := s.store.ListTasks("", "")
	if err != nil {
		return nil, err
	}
	bySprint := make(map[string][]models.Task)
	for _, t := range tasks {
		if t.SprintID == nil {
			continue
		}
		bySprint[*t.SprintID] = append(bySprint[*t.SprintID], t)
	}
	return bySprint, nil
}

// ListActivity returns recent audit entries.
func (s *Service) ListActivity(limit int) ([]models.ActivityEntry, error) {
	return s.store.ListActivity(limit)
}
