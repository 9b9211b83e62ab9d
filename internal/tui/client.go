package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Client wraps HTTP calls to the Crewplan API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// ListResources fetches the roster with each resource's current load.
func (c *Client) ListResources() ([]ResourceSummary, error) {
	body, err := c.get("/resources")
	if err != nil {
		return nil, err
	}

	var resources []struct {
		ID     string `json:"id"`
		Name   string `json:"name_identifier"`
		Type   string `json:"type"`
		Skills []struct {
			ID string `json:"id"`
		} `json:"skills"`
	}
	if err := json.Unmarshal(body, &resources); err != nil {
		return nil, err
	}

	items := make([]ResourceSummary, len(resources))
	for i, r := range resources {
		items[i] = ResourceSummary{
			ID:         r.ID,
			Name:       r.Name,
			Type:       r.Type,
			SkillCount: len(r.Skills),
		}
		// Loads are fetched individually; a failed fetch leaves 0 rather
		// than breaking the roster.
		if load, err := c.ResourceLoad(r.ID); err == nil {
			items[i].LoadPercent = load
		}
	}
	return items, nil
}

// ResourceLoad fetches a resource's current load percentage.
func (c *Client) ResourceLoad(resourceID string) (int, error) {
	body, err := c.get("/resources/" + resourceID + "/load")
	if err != nil {
		return 0, err
	}

	var load struct {
		LoadPercentage int `json:"load_percentage"`
	}
	if err := json.Unmarshal(body, &load); err != nil {
		return 0, err
	}
	return load.LoadPercentage, nil
}

// ListTasks fetches tasks, optionally filtered by status.
func (c *Client) ListTasks(status string) ([]TaskSummary, error) {
	path := "/tasks"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	body, err := c.get(path)
	if err != nil {
		return nil, err
	}

	var tasks []struct {
		ID       string   `json:"id"`
		Title    string   `json:"title_id"`
		Status   string   `json:"status"`
		Priority string   `json:"priority"`
		Effort   *float64 `json:"estimated_effort"`
	}
	if err := json.Unmarshal(body, &tasks); err != nil {
		return nil, err
	}

	items := make([]TaskSummary, len(tasks))
	for i, t := range tasks {
		items[i] = TaskSummary{
			ID:       t.ID,
			Title:    t.Title,
			Status:   t.Status,
			Priority: t.Priority,
		}
		if t.Effort != nil {
			items[i].Effort = *t.Effort
		}
	}
	return items, nil
}

// TaskSuggestions fetches ranked candidates for a task.
func (c *Client) TaskSuggestions(taskID string) ([]SuggestionRow, error) {
	body, err := c.get("/tasks/" + taskID + "/suggestions")
	if err != nil {
		return nil, err
	}

	var suggestions []struct {
		Name      string            `json:"name_identifier"`
		Type      string            `json:"type"`
		FitScore  float64           `json:"fit_score"`
		Load      int               `json:"projected_load_percent"`
		Breakdown map[string]string `json:"score_breakdown"`
	}
	if err := json.Unmarshal(body, &suggestions); err != nil {
		return nil, err
	}

	rows := make([]SuggestionRow, len(suggestions))
	for i, s := range suggestions {
		rows[i] = SuggestionRow{
			Name:        s.Name,
			Type:        s.Type,
			FitScore:    s.FitScore,
			LoadPercent: s.Load,
			SkillMatch:  s.Breakdown["skill_match"],
			DomainMatch: s.Breakdown["domain_match"],
		}
	}
	return rows, nil
}

// AssignTask assigns a task to a resource.
func (c *Client) AssignTask(taskID, resourceID string) error {
	body := map[string]string{
		"task_id":     taskID,
		"resource_id": resourceID,
	}
	_, err := c.post("/assignments", body)
	return err
}

// CheckHealth checks if the daemon is healthy.
func (c *Client) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var health struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false, err
	}
	return health.OK, nil
}

func (c *Client) get(path string) ([]byte, error) {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(body))
	}
	return body, nil
}

func (c *Client) post(path string, data interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(body))
	}
	return body, nil
}
