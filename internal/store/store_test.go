package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/crewplan/crewplan/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestResourceCRUD(t *testing.T) {
	s := newTestStore(t)

	skill, err := s.CreateSkill("Go")
	if err != nil {
		t.Fatalf("CreateSkill: %v", err)
	}
	domain, err := s.CreateDomain("Payments")
	if err != nil {
		t.Fatalf("CreateDomain: %v", err)
	}

	res, err := s.CreateResource(ResourceInput{
		NameIdentifier:     "ada",
		Type:               models.ResourceTypeHuman,
		AvailabilityParams: json.RawMessage(`{"fte":0.8}`),
		Skills:             []RatingInput{{ID: skill.ID, ProficiencyLevel: 4}},
		Domains:            []RatingInput{{ID: domain.ID, ProficiencyLevel: 2}},
	})
	if err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	if res.ID == "" || res.NameIdentifier != "ada" {
		t.Errorf("created resource = %+v", res)
	}
	if len(res.Skills) != 1 || res.Skills[0].Name != "Go" || res.Skills[0].ProficiencyLevel != 4 {
		t.Errorf("skills = %+v", res.Skills)
	}
	if len(res.Domains) != 1 || res.Domains[0].ProficiencyLevel != 2 {
		t.Errorf("domains = %+v", res.Domains)
	}

	params, err := res.Availability()
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if params.FTE != 0.8 {
		t.Errorf("fte = %v, want 0.8", params.FTE)
	}

	// Update replaces ratings wholesale
	updated, err := s.UpdateResource(res.ID, ResourceInput{
		NameIdentifier: "ada-l",
		Type:           models.ResourceTypeHybrid,
		Skills:         []RatingInput{{ID: skill.ID, ProficiencyLevel: 5}},
	})
	if err != nil {
		t.Fatalf("UpdateResource: %v", err)
	}
	if updated.NameIdentifier != "ada-l" || updated.Type != models.ResourceTypeHybrid {
		t.Errorf("updated = %+v", updated)
	}
	if len(updated.Skills) != 1 || updated.Skills[0].ProficiencyLevel != 5 {
		t.Errorf("updated skills = %+v", updated.Skills)
	}
	if len(updated.Domains) != 0 {
		t.Errorf("domains should be cleared, got %+v", updated.Domains)
	}

	list, err := s.ListResources()
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d resources, want 1", len(list))
	}

	ok, err := s.DeleteResource(res.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteResource: ok=%v err=%v", ok, err)
	}
	got, err := s.GetResource(res.ID)
	if err != nil {
		t.Fatalf("GetResource after delete: %v", err)
	}
	if got != nil {
		t.Error("resource still present after delete")
	}
}

func TestUpdateResource_Missing(t *testing.T) {
	s := newTestStore(t)
	res, err := s.UpdateResource("nope", ResourceInput{NameIdentifier: "x", Type: models.ResourceTypeHuman})
	if err != nil {
		t.Fatalf("UpdateResource: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil for missing resource, got %+v", res)
	}
}

func TestTaskCRUD(t *testing.T) {
	s := newTestStore(t)

	skill, _ := s.CreateSkill("Go")
	domain, _ := s.CreateDomain("Payments")
	sprint, err := s.CreateSprint(SprintInput{Name: "Sprint 1"})
	if err != nil {
		t.Fatalf("CreateSprint: %v", err)
	}

	deadline := models.NewDate(2024, time.June, 30)
	effort := 16.0
	task, err := s.CreateTask(TaskInput{
		TitleID:           "PAY-101",
		Description:       "Integrate PSP",
		Priority:          models.PriorityHigh,
		EstimatedEffort:   &effort,
		SprintID:          &sprint.ID,
		Deadline:          &deadline,
		RequiredSkillIDs:  []string{skill.ID},
		RequiredDomainIDs: []string{domain.ID},
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != models.TaskStatusToDo {
		t.Errorf("default status = %s, want To Do", task.Status)
	}
	if len(task.RequiredSkills) != 1 || task.RequiredSkills[0].Name != "Go" {
		t.Errorf("required skills = %+v", task.RequiredSkills)
	}
	if task.Deadline == nil || task.Deadline.String() != "2024-06-30" {
		t.Errorf("deadline = %v", task.Deadline)
	}

	// Status filter
	blocked, err := s.ListTasks(models.TaskStatusBlocked, "")
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(blocked) != 0 {
		t.Errorf("got %d blocked tasks, want 0", len(blocked))
	}
	inSprint, err := s.ListTasks("", sprint.ID)
	if err != nil {
		t.Fatalf("ListTasks by sprint: %v", err)
	}
	if len(inSprint) != 1 {
		t.Errorf("got %d sprint tasks, want 1", len(inSprint))
	}

	reason := "waiting on creds"
	updated, err := s.UpdateTask(task.ID, TaskInput{
		TitleID:       "PAY-101",
		Status:        models.TaskStatusBlocked,
		Priority:      models.PriorityHigh,
		BlockerReason: &reason,
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Status != models.TaskStatusBlocked || updated.BlockerReason == nil || *updated.BlockerReason != reason {
		t.Errorf("updated = %+v", updated)
	}
	if len(updated.RequiredSkills) != 0 {
		t.Errorf("requirements should be cleared, got %+v", updated.RequiredSkills)
	}

	ok, err := s.DeleteTask(task.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteTask: ok=%v err=%v", ok, err)
	}
}

func TestTaskDependencies_SelfRefSkipped(t *testing.T) {
	s := newTestStore(t)

	t1, err := s.CreateTask(TaskInput{TitleID: "A"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	t2, err := s.CreateTask(TaskInput{TitleID: "B", DependencyIDs: []string{t1.ID}})
	if err != nil {
		t.Fatalf("CreateTask with dependency: %v", err)
	}
	if len(t2.DependencyIDs) != 1 || t2.DependencyIDs[0] != t1.ID {
		t.Errorf("dependencies = %v", t2.DependencyIDs)
	}

	t3, err := s.CreateTask(TaskInput{TitleID: "C"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	updated, err := s.UpdateTask(t3.ID, TaskInput{TitleID: "C", Status: models.TaskStatusToDo,
		Priority: models.PriorityMedium, DependencyIDs: []string{t3.ID}})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if len(updated.DependencyIDs) != 0 {
		t.Errorf("self-dependency should be skipped, got %v", updated.DependencyIDs)
	}
}

func TestAssignTask_Upsert(t *testing.T) {
	s := newTestStore(t)

	task, _ := s.CreateTask(TaskInput{TitleID: "T-1"})
	r1, _ := s.CreateResource(ResourceInput{NameIdentifier: "ada", Type: models.ResourceTypeHuman})
	r2, _ := s.CreateResource(ResourceInput{NameIdentifier: "bot", Type: models.ResourceTypeAITool})

	first, err := s.AssignTask(task.ID, r1.ID)
	if err != nil {
		t.Fatalf("AssignTask: %v", err)
	}
	if first.ResourceID != r1.ID {
		t.Errorf("assigned to %s, want %s", first.ResourceID, r1.ID)
	}

	// Re-assigning re-points the same row: task_id stays unique
	second, err := s.AssignTask(task.ID, r2.ID)
	if err != nil {
		t.Fatalf("re-AssignTask: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same assignment row, got %s and %s", first.ID, second.ID)
	}
	if second.ResourceID != r2.ID {
		t.Errorf("assigned to %s, want %s", second.ResourceID, r2.ID)
	}

	all, err := s.ListAssignments()
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d assignments, want 1", len(all))
	}

	forR2, err := s.AssignmentsForResource(r2.ID)
	if err != nil {
		t.Fatalf("AssignmentsForResource: %v", err)
	}
	if len(forR2) != 1 || forR2[0].Task.TitleID != "T-1" {
		t.Errorf("assignments for r2 = %+v", forR2)
	}

	ok, err := s.UnassignTask(task.ID)
	if err != nil || !ok {
		t.Fatalf("UnassignTask: ok=%v err=%v", ok, err)
	}
	ok, err = s.UnassignTask(task.ID)
	if err != nil {
		t.Fatalf("second UnassignTask: %v", err)
	}
	if ok {
		t.Error("expected false when no assignment exists")
	}
}

func TestSprintCRUD(t *testing.T) {
	s := newTestStore(t)

	start := models.NewDate(2024, time.April, 1)
	end := models.NewDate(2024, time.April, 12)
	sprint, err := s.CreateSprint(SprintInput{Name: "Sprint 1", StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("CreateSprint: %v", err)
	}
	if !sprint.Scheduled() {
		t.Error("sprint with both dates should be scheduled")
	}

	backlog, err := s.CreateSprint(SprintInput{Name: "Backlog"})
	if err != nil {
		t.Fatalf("CreateSprint backlog: %v", err)
	}
	if backlog.Scheduled() {
		t.Error("dateless sprint should not be scheduled")
	}

	list, err := s.ListSprints()
	if err != nil {
		t.Fatalf("ListSprints: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Sprint 1" {
		t.Errorf("sprints = %+v, want scheduled first", list)
	}

	updated, err := s.UpdateSprint(sprint.ID, SprintInput{Name: "Sprint 1b", StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("UpdateSprint: %v", err)
	}
	if updated.Name != "Sprint 1b" {
		t.Errorf("updated name = %s", updated.Name)
	}
}

func TestActivityLog(t *testing.T) {
	s := newTestStore(t)

	err := s.WriteActivity(models.ActivityEntry{
		Action:     "task.create",
		InputsHash: "abc123",
		Outcome:    "success",
		EntityID:   "t-1",
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("WriteActivity: %v", err)
	}

	entries, err := s.ListActivity(10)
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "task.create" || entries[0].EntityID != "t-1" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestPortfolioCRUD(t *testing.T) {
	s := newTestStore(t)

	task, _ := s.CreateTask(TaskInput{TitleID: "T-1"})

	okr, err := s.CreateOkr(OkrInput{
		Objective:  "Ship payments",
		KeyResults: json.RawMessage(`["launch PSP"]`),
		TaskIDs:    []string{task.ID},
	})
	if err != nil {
		t.Fatalf("CreateOkr: %v", err)
	}
	if okr.Status != "active" || len(okr.TaskIDs) != 1 {
		t.Errorf("okr = %+v", okr)
	}

	risk, err := s.CreateRisk(RiskInput{Description: "Vendor delay", TaskID: &task.ID})
	if err != nil {
		t.Fatalf("CreateRisk: %v", err)
	}
	if risk.Probability != "Medium" || risk.Status != "Open" {
		t.Errorf("risk defaults = %+v", risk)
	}

	defect, err := s.CreateDefect(DefectInput{Description: "Rounding error", Severity: "High"})
	if err != nil {
		t.Fatalf("CreateDefect: %v", err)
	}
	if defect.Severity != "High" || defect.Status != "Open" {
		t.Errorf("defect = %+v", defect)
	}

	okrs, _ := s.ListOkrs()
	risks, _ := s.ListRisks()
	defects, _ := s.ListDefects()
	if len(okrs) != 1 || len(risks) != 1 || len(defects) != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", len(okrs), len(risks), len(defects))
	}
}
