package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sprintCmd = &cobra.Command{
	Use:   "sprint",
	Short: "Manage sprints",
}

var sprintAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new sprint",
	RunE:  runSprintAdd,
}

var sprintListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sprints",
	RunE:  runSprintList,
}

var (
	sprintName  string
	sprintStart string
	sprintEnd   string
)

func init() {
	sprintCmd.AddCommand(sprintAddCmd, sprintListCmd)

	sprintAddCmd.Flags().StringVar(&sprintName, "name", "", "Sprint name (required)")
	sprintAddCmd.Flags().StringVar(&sprintStart, "start", "", "Start date (YYYY-MM-DD)")
	sprintAddCmd.Flags().StringVar(&sprintEnd, "end", "", "End date (YYYY-MM-DD)")
	sprintAddCmd.MarkFlagRequired("name")
}

func runSprintAdd(cmd *cobra.Command, args []string) error {
	body := map[string]interface{}{
		"name": sprintName,
	}
	if sprintStart != "" {
		body["start_date"] = sprintStart
	}
	if sprintEnd != "" {
		body["end_date"] = sprintEnd
	}

	resp, err := apiPost("/sprints", body)
	if err != nil {
		return err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Created sprint: %s\n", result["id"])
	return nil
}

func runSprintList(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/sprints")
	if err != nil {
		return err
	}

	var sprints []map[string]interface{}
	if err := json.Unmarshal(resp, &sprints); err != nil {
		return err
	}

	if len(sprints) == 0 {
		fmt.Println("No sprints found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTART\tEND")
	for _, s := range sprints {
		start, _ := s["start_date"].(string)
		end, _ := s["end_date"].(string)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncateID(s["id"].(string)),
			truncate(s["name"].(string), 30), start, end)
	}
	w.Flush()
	return nil
}
