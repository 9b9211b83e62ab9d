package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new task",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskSuggestCmd = &cobra.Command{
	Use:   "suggest [task-id]",
	Short: "Show ranked resource suggestions for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskSuggest,
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign [task-id] [resource-id]",
	Short: "Assign a task to a resource",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskAssign,
}

var taskUnassignCmd = &cobra.Command{
	Use:   "unassign [task-id]",
	Short: "Remove a task's assignment",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskUnassign,
}

var (
	taskTitle    string
	taskDesc     string
	taskStatus   string
	taskPriority string
	taskEffort   float64
	taskSprint   string
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskSuggestCmd, taskAssignCmd, taskUnassignCmd)

	taskAddCmd.Flags().StringVar(&taskTitle, "title", "", "Task title (required)")
	taskAddCmd.Flags().StringVar(&taskDesc, "desc", "", "Task description")
	taskAddCmd.Flags().StringVar(&taskPriority, "priority", "Medium", "Priority (Low, Medium, High, Critical)")
	taskAddCmd.Flags().Float64Var(&taskEffort, "effort", 0, "Estimated effort in hours")
	taskAddCmd.Flags().StringVar(&taskSprint, "sprint", "", "Sprint ID")
	taskAddCmd.MarkFlagRequired("title")

	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status (To Do, In Progress, Blocked, In Review, Done)")
	taskListCmd.Flags().StringVar(&taskSprint, "sprint", "", "Filter by sprint ID")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	body := map[string]interface{}{
		"title_id":    taskTitle,
		"description": taskDesc,
		"priority":    taskPriority,
	}
	if taskEffort > 0 {
		body["estimated_effort"] = taskEffort
	}
	if taskSprint != "" {
		body["sprint_id"] = taskSprint
	}

	resp, err := apiPost("/tasks", body)
	if err != nil {
		return err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Created task: %s\n", result["id"])
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	path := "/tasks"
	sep := "?"
	if taskStatus != "" {
		path += sep + "status=" + url.QueryEscape(taskStatus)
		sep = "&"
	}
	if taskSprint != "" {
		path += sep + "sprint_id=" + url.QueryEscape(taskSprint)
	}

	resp, err := apiGet(path)
	if err != nil {
		return err
	}

	var tasks []map[string]interface{}
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tEFFORT")
	for _, t := range tasks {
		effort := ""
		if e, ok := t["estimated_effort"].(float64); ok {
			effort = fmt.Sprintf("%.1fh", e)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(t["id"].(string)),
			truncate(t["title_id"].(string), 40),
			t["status"].(string), t["priority"].(string), effort)
	}
	w.Flush()
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/tasks/" + args[0])
	if err != nil {
		return err
	}

	var task map[string]interface{}
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", task["id"])
	fmt.Printf("Title:       %s\n", task["title_id"])
	fmt.Printf("Description: %s\n", task["description"])
	fmt.Printf("Status:      %s\n", task["status"])
	fmt.Printf("Priority:    %s\n", task["priority"])
	if e, ok := task["estimated_effort"].(float64); ok {
		fmt.Printf("Effort:      %.1f h\n", e)
	}
	if sprint, ok := task["sprint_id"].(string); ok && sprint != "" {
		fmt.Printf("Sprint:      %s\n", sprint)
	}
	if reason, ok := task["blocker_reason"].(string); ok && reason != "" {
		fmt.Printf("Blocked:     %s\n", reason)
	}
	fmt.Printf("Created:     %s\n", task["created_at"])
	fmt.Printf("Updated:     %s\n", task["updated_at"])
	return nil
}

func runTaskSuggest(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/tasks/" + args[0] + "/suggestions")
	if err != nil {
		return err
	}

	var suggestions []map[string]interface{}
	if err := json.Unmarshal(resp, &suggestions); err != nil {
		return err
	}

	if len(suggestions) == 0 {
		fmt.Println("No candidates found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tTYPE\tFIT\tLOAD\tSKILLS")
	for _, s := range suggestions {
		breakdown := ""
		if b, ok := s["score_breakdown"].(map[string]interface{}); ok {
			if sm, ok := b["skill_match"].(string); ok {
				breakdown = sm
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.0f%%\t%s\n",
			truncate(s["name_identifier"].(string), 30),
			s["type"].(string),
			s["fit_score"].(float64),
			s["projected_load_percent"].(float64),
			breakdown)
	}
	w.Flush()
	return nil
}

func runTaskAssign(cmd *cobra.Command, args []string) error {
	body := map[string]string{
		"task_id":     args[0],
		"resource_id": args[1],
	}
	if _, err := apiPost("/assignments", body); err != nil {
		return err
	}
	fmt.Printf("Assigned task %s to resource %s\n", args[0], args[1])
	return nil
}

func runTaskUnassign(cmd *cobra.Command, args []string) error {
	if _, err := apiDelete("/assignments/" + args[0]); err != nil {
		return err
	}
	fmt.Printf("Unassigned task %s\n", args[0])
	return nil
}

// --- Helpers ---

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
