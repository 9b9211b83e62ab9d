package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var resourceCmd = &cobra.Command{
	Use:   "resource",
	Short: "Manage resources",
}

var resourceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new resource",
	RunE:  runResourceAdd,
}

var resourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resources",
	RunE:  runResourceList,
}

var resourceShowCmd = &cobra.Command{
	Use:   "show [resource-id]",
	Short: "Show resource details",
	Args:  cobra.ExactArgs(1),
	RunE:  runResourceShow,
}

var resourceLoadCmd = &cobra.Command{
	Use:   "load [resource-id]",
	Short: "Show a resource's current load",
	Args:  cobra.ExactArgs(1),
	RunE:  runResourceLoad,
}

var resourceDeleteCmd = &cobra.Command{
	Use:   "delete [resource-id]",
	Short: "Delete a resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runResourceDelete,
}

var (
	resourceName         string
	resourceType         string
	resourceAvailability string
	loadSprintID         string
)

func init() {
	resourceCmd.AddCommand(resourceAddCmd, resourceListCmd, resourceShowCmd, resourceLoadCmd, resourceDeleteCmd)

	resourceAddCmd.Flags().StringVar(&resourceName, "name", "", "Resource name identifier (required)")
	resourceAddCmd.Flags().StringVar(&resourceType, "type", "Human", "Resource type (Human, AI Tool, Human + AI Tool)")
	resourceAddCmd.Flags().StringVar(&resourceAvailability, "availability", "", `Availability params JSON (e.g. '{"fte":0.5}')`)
	resourceAddCmd.MarkFlagRequired("name")

	resourceLoadCmd.Flags().StringVar(&loadSprintID, "sprint", "", "Sprint ID for sprint-scoped load")
}

func runResourceAdd(cmd *cobra.Command, args []string) error {
	body := map[string]interface{}{
		"name_identifier": resourceName,
		"type":            resourceType,
	}
	if resourceAvailability != "" {
		body["availability_params"] = json.RawMessage(resourceAvailability)
	}

	resp, err := apiPost("/resources", body)
	if err != nil {
		return err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Created resource: %s\n", result["id"])
	return nil
}

func runResourceList(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/resources")
	if err != nil {
		return err
	}

	var resources []map[string]interface{}
	if err := json.Unmarshal(resp, &resources); err != nil {
		return err
	}

	if len(resources) == 0 {
		fmt.Println("No resources found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSKILLS")
	for _, r := range resources {
		skills := 0
		if sk, ok := r["skills"].([]interface{}); ok {
			skills = len(sk)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			truncateID(r["id"].(string)),
			truncate(r["name_identifier"].(string), 30),
			r["type"].(string), skills)
	}
	w.Flush()
	return nil
}

func runResourceShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/resources/" + args[0])
	if err != nil {
		return err
	}

	var res map[string]interface{}
	if err := json.Unmarshal(resp, &res); err != nil {
		return err
	}

	fmt.Printf("ID:      %s\n", res["id"])
	fmt.Printf("Name:    %s\n", res["name_identifier"])
	fmt.Printf("Type:    %s\n", res["type"])
	if skills, ok := res["skills"].([]interface{}); ok && len(skills) > 0 {
		fmt.Println("Skills:")
		for _, s := range skills {
			m := s.(map[string]interface{})
			fmt.Printf("  %s (level %.0f)\n", m["name"], m["proficiency_level"].(float64))
		}
	}
	if domains, ok := res["domains"].([]interface{}); ok && len(domains) > 0 {
		fmt.Println("Domains:")
		for _, d := range domains {
			m := d.(map[string]interface{})
			fmt.Printf("  %s (level %.0f)\n", m["name"], m["proficiency_level"].(float64))
		}
	}
	fmt.Printf("Created: %s\n", res["created_at"])
	return nil
}

func runResourceLoad(cmd *cobra.Command, args []string) error {
	url := "/resources/" + args[0] + "/load"
	if loadSprintID != "" {
		url += "?sprint_id=" + loadSprintID
	}

	resp, err := apiGet(url)
	if err != nil {
		return err
	}

	var load map[string]interface{}
	if err := json.Unmarshal(resp, &load); err != nil {
		return err
	}

	fmt.Printf("Resource:     %s\n", load["name_identifier"])
	fmt.Printf("Assigned:     %.1f h\n", load["total_assigned_effort"].(float64))
	fmt.Printf("Available:    %.1f h\n", load["calculated_availability"].(float64))
	fmt.Printf("Load:         %.0f%%\n", load["load_percentage"].(float64))
	return nil
}

func runResourceDelete(cmd *cobra.Command, args []string) error {
	if _, err := apiDelete("/resources/" + args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted resource %s\n", args[0])
	return nil
}
