package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/crewplan/crewplan/internal/models"
	"github.com/crewplan/crewplan/internal/store"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Server provides the HTTP API for Crewplan.
type Server struct {
	service *Service
	store   *store.Store
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, st *store.Store, addr string) *Server {
	return &Server{
		service: service,
		store:   st,
		addr:    addr,
	}
}

// Handler builds the route mux. Exposed so tests can drive it with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/resources", s.handleResources)
	mux.HandleFunc("/resources/", s.handleResourceByID)

	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/", s.handleTaskByID)

	mux.HandleFunc("/assignments", s.handleAssignments)
	mux.HandleFunc("/assignments/", s.handleAssignmentByTask)

	mux.HandleFunc("/sprints", s.handleSprints)
	mux.HandleFunc("/sprints/", s.handleSprintByID)

	mux.HandleFunc("/skills", s.handleSkills)
	mux.HandleFunc("/skills/", s.handleSkillByID)
	mux.HandleFunc("/domains", s.handleDomains)
	mux.HandleFunc("/domains/", s.handleDomainByID)

	mux.HandleFunc("/okrs", s.handleOkrs)
	mux.HandleFunc("/okrs/", s.handleOkrByID)
	mux.HandleFunc("/risks", s.handleRisks)
	mux.HandleFunc("/risks/", s.handleRiskByID)
	mux.HandleFunc("/defects", s.handleDefects)
	mux.HandleFunc("/defects/", s.handleDefectByID)

	mux.HandleFunc("/analytics/", s.handleAnalytics)

	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Starting Crewplan daemon on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      bool   `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.store.Ping(r.Context()) == nil
	writeJSON(w, http.StatusOK, HealthResponse{
		OK:      dbOK,
		DB:      dbOK,
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// --- Resource Handlers ---

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var input store.ResourceInput
		if !decodeBody(w, r, &input) {
			return
		}
		res, err := s.service.CreateResource(input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	case http.MethodGet:
		resources, err := s.service.ListResources()
		if err != nil {
			writeError(w, err)
			return
		}
		if resources == nil {
			resources = []models.Resource{}
		}
		writeJSON(w, http.StatusOK, resources)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleResourceByID handles /resources/{id} and /resources/{id}/load.
func (s *Server) handleResourceByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitIDPath(w, r.URL.Path, "/resources/")
	if !ok {
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		res, err := s.service.GetResource(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if res == nil {
			writeError(w, ErrResourceNotFound)
			return
		}
		writeJSON(w, http.StatusOK, res)
	case action == "" && r.Method == http.MethodPut:
		var input store.ResourceInput
		if !decodeBody(w, r, &input) {
			return
		}
		res, err := s.service.UpdateResource(id, input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	case action == "" && r.Method == http.MethodDelete:
		if err := s.service.DeleteResource(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	case action == "load" && r.Method == http.MethodGet:
		load, err := s.service.ComputeResourceLoad(id, r.URL.Query().Get("sprint_id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, load)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Task Handlers ---

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var input store.TaskInput
		if !decodeBody(w, r, &input) {
			return
		}
		task, err := s.service.CreateTask(input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	case http.MethodGet:
		status := models.TaskStatus(r.URL.Query().Get("status"))
		sprintID := r.URL.Query().Get("sprint_id")
		tasks, err := s.service.ListTasks(status, sprintID)
		if err != nil {
			writeError(w, err)
			return
		}
		if tasks == nil {
			tasks = []models.Task{}
		}
		writeJSON(w, http.StatusOK, tasks)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTaskByID handles /tasks/{id} and /tasks/{id}/suggestions.
func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitIDPath(w, r.URL.Path, "/tasks/")
	if !ok {
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		task, err := s.service.GetTask(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if task == nil {
			writeError(w, ErrTaskNotFound)
			return
		}
		writeJSON(w, http.StatusOK, task)
	case action == "" && r.Method == http.MethodPut:
		var input store.TaskInput
		if !decodeBody(w, r, &input) {
			return
		}
		task, err := s.service.UpdateTask(id, input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	case action == "" && r.Method == http.MethodDelete:
		if err := s.service.DeleteTask(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	case action == "suggestions" && r.Method == http.MethodGet:
		suggestions, err := s.service.TaskSuggestions(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, suggestions)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Assignment Handlers ---

type assignRequest struct {
	TaskID     string `json:"task_id"`
	ResourceID string `json:"resource_id"`
}

func (s *Server) handleAssignments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req assignRequest
		if !decodeBody(w, r, &req) {
			return
		}
		a, err := s.service.AssignTask(req.TaskID, req.ResourceID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	case http.MethodGet:
		assignments, err := s.service.ListAssignments()
		if err != nil {
			writeError(w, err)
			return
		}
		if assignments == nil {
			assignments = []models.Assignment{}
		}
		writeJSON(w, http.StatusOK, assignments)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAssignmentByTask handles GET and DELETE /assignments/{taskID}.
func (s *Server) handleAssignmentByTask(w http.ResponseWriter, r *http.Request) {
	taskID, action, ok := splitIDPath(w, r.URL.Path, "/assignments/")
	if !ok || action != "" {
		if ok {
			http.Error(w, "not found", http.StatusNotFound)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		a, err := s.service.AssignmentForTask(taskID)
		if err != nil {
			writeError(w, err)
			return
		}
		if a == nil {
			writeError(w, ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, a)
	case http.MethodDelete:
		if err := s.service.UnassignTask(taskID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "unassigned"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Sprint Handlers ---

func (s *Server) handleSprints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var input store.SprintInput
		if !decodeBody(w, r, &input) {
			return
		}
		sprint, err := s.service.CreateSprint(input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sprint)
	case http.MethodGet:
		sprints, err := s.service.ListSprints()
		if err != nil {
			writeError(w, err)
			return
		}
		if sprints == nil {
			sprints = []models.Sprint{}
		}
		writeJSON(w, http.StatusOK, sprints)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSprintByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitIDPath(w, r.URL.Path, "/sprints/")
	if !ok || action != "" {
		if ok {
			http.Error(w, "not found", http.StatusNotFound)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		sprint, err := s.service.GetSprint(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if sprint == nil {
			writeError(w, ErrSprintNotFound)
			return
		}
		writeJSON(w, http.StatusOK, sprint)
	case http.MethodPut:
		var input store.SprintInput
		if !decodeBody(w, r, &input) {
			return
		}
		sprint, err := s.service.UpdateSprint(id, input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sprint)
	case http.MethodDelete:
		if err := s.service.DeleteSprint(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Catalog Handlers ---

type catalogRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	s.handleCatalog(w, r, s.service.CreateSkill, s.service.ListSkills)
}

func (s *Server) handleDomains(w http.ResponseWriter, r *http.Request) {
	s.handleCatalog(w, r, s.service.CreateDomain, s.service.ListDomains)
}

// handleSkillByID handles DELETE /skills/{id}.
func (s *Server) handleSkillByID(w http.ResponseWriter, r *http.Request) {
	s.handleCatalogDelete(w, r, "/skills/", s.service.DeleteSkill)
}

// handleDomainByID handles DELETE /domains/{id}.
func (s *Server) handleDomainByID(w http.ResponseWriter, r *http.Request) {
	s.handleCatalogDelete(w, r, "/domains/", s.service.DeleteDomain)
}

func (s *Server) handleCatalogDelete(w http.ResponseWriter, r *http.Request, prefix string, del func(string) error) {
	id, action, ok := splitIDPath(w, r.URL.Path, prefix)
	if !ok || action != "" {
		if ok {
			http.Error(w, "not found", http.StatusNotFound)
		}
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := del(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request,
	create func(string) (*models.CatalogItem, error),
	list func() ([]models.CatalogItem, error)) {
	switch r.Method {
	case http.MethodPost:
		var req catalogRequest
		if !decodeBody(w, r, &req) {
			return
		}
		item, err := create(req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	case http.MethodGet:
		items, err := list()
		if err != nil {
			writeError(w, err)
			return
		}
		if items == nil {
			items = []models.CatalogItem{}
		}
		writeJSON(w, http.StatusOK, items)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Portfolio Handlers ---

func (s *Server) handleOkrs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var input store.OkrInput
		if !decodeBody(w, r, &input) {
			return
		}
		okr, err := s.service.CreateOkr(input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, okr)
	case http.MethodGet:
		okrs, err := s.service.ListOkrs()
		if err != nil {
			writeError(w, err)
			return
		}
		if okrs == nil {
			okrs = []models.Okr{}
		}
		writeJSON(w, http.StatusOK, okrs)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleOkrByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitIDPath(w, r.URL.Path, "/okrs/")
	if !ok || action != "" {
		if ok {
			http.Error(w, "not found", http.StatusNotFound)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		okr, err := s.service.GetOkr(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if okr == nil {
			writeError(w, ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, okr)
	case http.MethodPut:
		var input store.OkrInput
		if !decodeBody(w, r, &input) {
			return
		}
		okr, err := s.service.UpdateOkr(id, input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, okr)
	case http.MethodDelete:
		if err := s.service.DeleteOkr(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRisks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var input store.RiskInput
		if !decodeBody(w, r, &input) {
			return
		}
		risk, err := s.service.CreateRisk(input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, risk)
	case http.MethodGet:
		risks, err := s.service.ListRisks()
		if err != nil {
			writeError(w, err)
			return
		}
		if risks == nil {
			risks = []models.Risk{}
		}
		writeJSON(w, http.StatusOK, risks)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRiskByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitIDPath(w, r.URL.Path, "/risks/")
	if !ok || action != "" {
		if ok {
			http.Error(w, "not found", http.StatusNotFound)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		risk, err := s.service.GetRisk(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if risk == nil {
			writeError(w, ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, risk)
	case http.MethodPut:
		var input store.RiskInput
		if !decodeBody(w, r, &input) {
			return
		}
		risk, err := s.service.UpdateRisk(id, input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, risk)
	case http.MethodDelete:
		if err := s.service.DeleteRisk(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDefects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var input store.DefectInput
		if !decodeBody(w, r, &input) {
			return
		}
		defect, err := s.service.CreateDefect(input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, defect)
	case http.MethodGet:
		defects, err := s.service.ListDefects()
		if err != nil {
			writeError(w, err)
			return
		}
		if defects == nil {
			defects = []models.Defect{}
		}
		writeJSON(w, http.StatusOK, defects)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDefectByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitIDPath(w, r.URL.Path, "/defects/")
	if !ok || action != "" {
		if ok {
			http.Error(w, "not found", http.StatusNotFound)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		defect, err := s.service.GetDefect(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if defect == nil {
			writeError(w, ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, defect)
	case http.MethodPut:
		var input store.DefectInput
		if !decodeBody(w, r, &input) {
			return
		}
		defect, err := s.service.UpdateDefect(id, input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, defect)
	case http.MethodDelete:
		if err := s.service.DeleteDefect(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Analytics Handlers ---

// handleAnalytics routes GET /analytics/{report}. Whole-report failures are
// logged and surfaced as an empty array, never a crash.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := strings.TrimPrefix(r.URL.Path, "/analytics/")
	var (
		result interface{}
		err    error
	)
	switch report {
	case "resource-utilization":
		result, err = s.service.ResourceUtilization()
	case "burnup-burndown":
		result, err = s.service.BurnupBurndown()
	case "task-blockers":
		result, err = s.service.TaskBlockers()
	case "resource-availability-heatmap":
		result, err = s.service.AvailabilityHeatmap()
	case "completion-rates":
		result, err = s.service.CompletionRates()
	case "assignment-history":
		result, err = s.service.AssignmentHistory()
	case "ai-tool-impact":
		result, err = s.service.AIToolImpact()
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Printf("analytics %s: %v", report, err)
		writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Helpers ---

func splitIDPath(w http.ResponseWriter, path, prefix string) (id, action string, ok bool) {
	parts := strings.Split(strings.TrimPrefix(path, prefix), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return "", "", false
	}
	id = parts[0]
	if len(parts) > 1 {
		action = parts[1]
	}
	return id, action, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ErrResourceNotFound),
		errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrSprintNotFound),
		errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
