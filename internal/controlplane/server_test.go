package controlplane

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/crewplan/crewplan/internal/audit"
	"github.com/crewplan/crewplan/internal/engine"
	"github.com/crewplan/crewplan/internal/models"
	"github.com/crewplan/crewplan/internal/store"
)

// newTestServer wires a server over a throwaway database with time pinned to
// Monday 2024-01-01.
func newTestServer(t *testing.T) (*httptest.Server, *Service) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	service := NewService(st, audit.NewRecorder(st), engine.DefaultConfig())
	service.now = func() time.Time {
		return time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)
	}

	srv := httptest.NewServer(NewServer(service, st, "").Handler())
	t.Cleanup(srv.Close)
	return srv, service
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var health HealthResponse
	decode(t, resp, &health)
	if !health.OK || !health.DB {
		t.Errorf("health = %+v, want ok and db true", health)
	}
	if health.Version != Version {
		t.Errorf("version = %s, want %s", health.Version, Version)
	}
}

func TestResourceLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/resources", store.ResourceInput{
		NameIdentifier: "ada",
		Type:           models.ResourceTypeHuman,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var created models.Resource
	decode(t, resp, &created)

	resp, err := http.Get(srv.URL + "/resources/" + created.ID)
	if err != nil {
		t.Fatalf("GET resource: %v", err)
	}
	var fetched models.Resource
	decode(t, resp, &fetched)
	if fetched.NameIdentifier != "ada" {
		t.Errorf("fetched = %+v", fetched)
	}

	resp, err = http.Get(srv.URL + "/resources/nonexistent")
	if err != nil {
		t.Fatalf("GET missing resource: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing resource status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateResource_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name  string
		input store.ResourceInput
	}{
		{"missing name", store.ResourceInput{Type: models.ResourceTypeHuman}},
		{"bad type", store.ResourceInput{NameIdentifier: "x", Type: "Robot"}},
		{"bad availability", store.ResourceInput{
			NameIdentifier:     "x",
			Type:               models.ResourceTypeHuman,
			AvailabilityParams: json.RawMessage(`{"fte":-1}`),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/resources", tt.input)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestResourceLoadEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/resources", store.ResourceInput{
		NameIdentifier: "ada",
		Type:           models.ResourceTypeHuman,
	})
	var res models.Resource
	decode(t, resp, &res)

	effort := 28.0
	resp = doJSON(t, http.MethodPost, srv.URL+"/tasks", store.TaskInput{
		TitleID:         "T-1",
		EstimatedEffort: &effort,
	})
	var task models.Task
	decode(t, resp, &task)

	resp = doJSON(t, http.MethodPost, srv.URL+"/assignments", assignRequest{
		TaskID: task.ID, ResourceID: res.ID,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("assign status = %d, want 201", resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/resources/" + res.ID + "/load")
	if err != nil {
		t.Fatalf("GET load: %v", err)
	}
	var load ResourceLoad
	decode(t, resp, &load)

	// Default availability: every day working at 8h, so the week holds 56h.
	// 28 assigned against 56 available is 50%.
	if load.ResourceID != res.ID || load.NameIdentifier != "ada" {
		t.Errorf("load identity = %+v", load)
	}
	if load.SprintID != nil {
		t.Errorf("sprint_id = %v, want null for week-scoped load", *load.SprintID)
	}
	if load.TotalAssignedEffort != 28 {
		t.Errorf("total_assigned_effort = %v, want 28", load.TotalAssignedEffort)
	}
	if load.CalculatedAvailability != 56 {
		t.Errorf("calculated_availability = %v, want 56", load.CalculatedAvailability)
	}
	if load.LoadPercentage != 50 {
		t.Errorf("load_percentage = %d, want 50", load.LoadPercentage)
	}
}

func TestResourceLoadEndpoint_SprintScoped(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/resources", store.ResourceInput{
		NameIdentifier: "ada",
		Type:           models.ResourceTypeHuman,
	})
	var res models.Resource
	decode(t, resp, &res)

	start := models.NewDate(2024, time.January, 1)
	end := models.NewDate(2024, time.January, 14)
	resp = doJSON(t, http.MethodPost, srv.URL+"/sprints", store.SprintInput{
		Name: "Sprint 1", StartDate: &start, EndDate: &end,
	})
	var sprint models.Sprint
	decode(t, resp, &sprint)

	inSprint := 28.0
	resp = doJSON(t, http.MethodPost, srv.URL+"/tasks", store.TaskInput{
		TitleID: "IN-1", EstimatedEffort: &inSprint, SprintID: &sprint.ID,
	})
	var sprintTask models.Task
	decode(t, resp, &sprintTask)

	outside := 100.0
	resp = doJSON(t, http.MethodPost, srv.URL+"/tasks", store.TaskInput{
		TitleID: "OUT-1", EstimatedEffort: &outside,
	})
	var otherTask models.Task
	decode(t, resp, &otherTask)

	for _, id := range []string{sprintTask.ID, otherTask.ID} {
		resp = doJSON(t, http.MethodPost, srv.URL+"/assignments", assignRequest{TaskID: id, ResourceID: res.ID})
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/resources/" + res.ID + "/load?sprint_id=" + sprint.ID)
	if err != nil {
		t.Fatalf("GET load: %v", err)
	}
	var load ResourceLoad
	decode(t, resp, &load)

	// Sprint scope: only the in-sprint task counts, over the 14 day window.
	if load.SprintID == nil || *load.SprintID != sprint.ID {
		t.Errorf("sprint_id = %v, want %s", load.SprintID, sprint.ID)
	}
	if load.TotalAssignedEffort != 28 {
		t.Errorf("total_assigned_effort = %v, want 28 (outside-sprint task excluded)", load.TotalAssignedEffort)
	}
	if load.CalculatedAvailability != 112 {
		t.Errorf("calculated_availability = %v, want 112 over 14 days", load.CalculatedAvailability)
	}
	if load.LoadPercentage != 25 {
		t.Errorf("load_percentage = %d, want 25", load.LoadPercentage)
	}
}

func TestTaskSuggestionsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/skills", catalogRequest{Name: "Go"})
	var skill models.CatalogItem
	decode(t, resp, &skill)

	resp = doJSON(t, http.MethodPost, srv.URL+"/resources", store.ResourceInput{
		NameIdentifier: "junior",
		Type:           models.ResourceTypeHuman,
		Skills:         []store.RatingInput{{ID: skill.ID, ProficiencyLevel: 2}},
	})
	var junior models.Resource
	decode(t, resp, &junior)

	resp = doJSON(t, http.MethodPost, srv.URL+"/resources", store.ResourceInput{
		NameIdentifier: "senior",
		Type:           models.ResourceTypeHuman,
		Skills:         []store.RatingInput{{ID: skill.ID, ProficiencyLevel: 5}},
	})
	var senior models.Resource
	decode(t, resp, &senior)

	effort := 14.0
	resp = doJSON(t, http.MethodPost, srv.URL+"/tasks", store.TaskInput{
		TitleID:          "T-1",
		EstimatedEffort:  &effort,
		RequiredSkillIDs: []string{skill.ID},
	})
	var task models.Task
	decode(t, resp, &task)

	resp, err := http.Get(srv.URL + "/tasks/" + task.ID + "/suggestions")
	if err != nil {
		t.Fatalf("GET suggestions: %v", err)
	}
	var suggestions []engine.Suggestion
	decode(t, resp, &suggestions)

	if len(suggestions) != 2 {
		t.Fatalf("got %d suggestions, want 2", len(suggestions))
	}
	if suggestions[0].NameIdentifier != "senior" || suggestions[1].NameIdentifier != "junior" {
		t.Errorf("order = %s, %s; want senior first", suggestions[0].NameIdentifier, suggestions[1].NameIdentifier)
	}
	if got := suggestions[0].ScoreBreakdown["skill_match"]; got != "1/1 skills matched (Score: 5)" {
		t.Errorf("skill_match = %q", got)
	}
	// Unassigned resource projecting a 14h task over a 56h default week: 25%
	if suggestions[0].ProjectedLoadPercent != 25 {
		t.Errorf("projected load = %d, want 25", suggestions[0].ProjectedLoadPercent)
	}
	if got := suggestions[0].ScoreBreakdown["load"]; got != "Projected Load: 25%" {
		t.Errorf("load breakdown = %q", got)
	}
}

func TestTaskSuggestions_MissingTask(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/tasks/nonexistent/suggestions")
	if err != nil {
		t.Fatalf("GET suggestions: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAssignmentEndpoint_RepointsAndUnassigns(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/tasks", store.TaskInput{TitleID: "T-1"})
	var task models.Task
	decode(t, resp, &task)

	var resources [2]models.Resource
	for i, name := range []string{"ada", "bot"} {
		resp = doJSON(t, http.MethodPost, srv.URL+"/resources", store.ResourceInput{
			NameIdentifier: name, Type: models.ResourceTypeHuman,
		})
		decode(t, resp, &resources[i])
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/assignments", assignRequest{TaskID: task.ID, ResourceID: resources[0].ID})
	var first models.Assignment
	decode(t, resp, &first)

	resp = doJSON(t, http.MethodPost, srv.URL+"/assignments", assignRequest{TaskID: task.ID, ResourceID: resources[1].ID})
	var second models.Assignment
	decode(t, resp, &second)
	if second.ID != first.ID || second.ResourceID != resources[1].ID {
		t.Errorf("re-assignment = %+v, want same row pointing at %s", second, resources[1].ID)
	}

	resp, err := http.Get(srv.URL + "/assignments")
	if err != nil {
		t.Fatalf("GET assignments: %v", err)
	}
	var all []models.Assignment
	decode(t, resp, &all)
	if len(all) != 1 {
		t.Errorf("got %d assignments, want 1", len(all))
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/assignments/"+task.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE assignment: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unassign status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second unassign status = %d, want 404", resp.StatusCode)
	}
}

func TestAssignmentEndpoint_UnknownIDs(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/resources", store.ResourceInput{
		NameIdentifier: "ada", Type: models.ResourceTypeHuman,
	})
	var res models.Resource
	decode(t, resp, &res)

	resp = doJSON(t, http.MethodPost, srv.URL+"/assignments", assignRequest{TaskID: "nope", ResourceID: res.ID})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown task status = %d, want 404", resp.StatusCode)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/skills", catalogRequest{Name: "Go"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create skill status = %d, want 201", resp.StatusCode)
	}
	var skill models.CatalogItem
	decode(t, resp, &skill)

	resp, err := http.Get(srv.URL + "/skills")
	if err != nil {
		t.Fatalf("GET skills: %v", err)
	}
	var skills []models.CatalogItem
	decode(t, resp, &skills)
	if len(skills) != 1 || skills[0].Name != "Go" {
		t.Errorf("skills = %+v", skills)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/skills/"+skill.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE skill: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestAssignmentGetByTask(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/tasks", store.TaskInput{TitleID: "T-1"})
	var task models.Task
	decode(t, resp, &task)

	resp, err := http.Get(srv.URL + "/assignments/" + task.ID)
	if err != nil {
		t.Fatalf("GET assignment: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unassigned task status = %d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/resources", store.ResourceInput{
		NameIdentifier: "ada", Type: models.ResourceTypeHuman,
	})
	var res models.Resource
	decode(t, resp, &res)
	resp = doJSON(t, http.MethodPost, srv.URL+"/assignments", assignRequest{TaskID: task.ID, ResourceID: res.ID})
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/assignments/" + task.ID)
	if err != nil {
		t.Fatalf("GET assignment: %v", err)
	}
	var a models.Assignment
	decode(t, resp, &a)
	if a.TaskID != task.ID || a.ResourceID != res.ID {
		t.Errorf("assignment = %+v", a)
	}
}

func TestTaskListFilters(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/tasks", store.TaskInput{TitleID: "T-1"})
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, srv.URL+"/tasks", store.TaskInput{
		TitleID: "T-2", Status: models.TaskStatusInProgress,
	})
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/tasks?status=" + "In+Progress")
	if err != nil {
		t.Fatalf("GET tasks: %v", err)
	}
	var tasks []models.Task
	decode(t, resp, &tasks)
	if len(tasks) != 1 || tasks[0].TitleID != "T-2" {
		t.Errorf("filtered tasks = %+v, want only T-2", tasks)
	}

	resp, err = http.Get(srv.URL + "/tasks?status=Bogus")
	if err != nil {
		t.Fatalf("GET tasks: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bogus status filter = %d, want 400", resp.StatusCode)
	}
}

func TestSprintValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	start := models.NewDate(2024, time.January, 14)
	end := models.NewDate(2024, time.January, 1)
	resp := doJSON(t, http.MethodPost, srv.URL+"/sprints", store.SprintInput{
		Name: "Backwards", StartDate: &start, EndDate: &end,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for end before start", resp.StatusCode)
	}
}

func TestAnalyticsEndpoints_ReturnArrays(t *testing.T) {
	srv, _ := newTestServer(t)

	reports := []string{
		"resource-utilization",
		"burnup-burndown",
		"task-blockers",
		"resource-availability-heatmap",
		"completion-rates",
		"assignment-history",
		"ai-tool-impact",
	}
	for _, report := range reports {
		t.Run(report, func(t *testing.T) {
			resp, err := http.Get(fmt.Sprintf("%s/analytics/%s", srv.URL, report))
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			var payload []json.RawMessage
			decode(t, resp, &payload)
		})
	}

	resp, err := http.Get(srv.URL + "/analytics/unknown-report")
	if err != nil {
		t.Fatalf("GET unknown report: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown report status = %d, want 404", resp.StatusCode)
	}
}

func TestAnalyticsUtilization_CachesWithinTTL(t *testing.T) {
	srv, service := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/resources", store.ResourceInput{
		NameIdentifier: "ada", Type: models.ResourceTypeHuman,
	})
	resp.Body.Close()

	first, err := service.ResourceUtilization()
	if err != nil {
		t.Fatalf("ResourceUtilization: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("got %d entries, want 1", len(first))
	}

	// A second resource created inside the TTL is invisible to the cached report
	resp = doJSON(t, http.MethodPost, srv.URL+"/resources", store.ResourceInput{
		NameIdentifier: "bot", Type: models.ResourceTypeAITool,
	})
	resp.Body.Close()

	second, err := service.ResourceUtilization()
	if err != nil {
		t.Fatalf("ResourceUtilization: %v", err)
	}
	if len(second) != 1 {
		t.Errorf("got %d entries, want cached 1", len(second))
	}
}

func TestActivityRecordedOnMutations(t *testing.T) {
	srv, service := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/resources", store.ResourceInput{
		NameIdentifier: "ada", Type: models.ResourceTypeHuman,
	})
	var res models.Resource
	decode(t, resp, &res)

	entries, err := service.ListActivity(10)
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "resource.create" || entries[0].EntityID != res.ID {
		t.Fatalf("activity = %+v, want one resource.create entry", entries)
	}
	if entries[0].InputsHash == "" {
		t.Error("inputs hash should be populated")
	}
}
