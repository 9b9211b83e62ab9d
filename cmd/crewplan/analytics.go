package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show analytics reports",
}

var utilizationCmd = &cobra.Command{
	Use:   "utilization",
	Short: "Show resource utilization",
	RunE:  runUtilization,
}

var blockersCmd = &cobra.Command{
	Use:   "blockers",
	Short: "Show blocked-task statistics",
	RunE:  runBlockers,
}

var burndownCmd = &cobra.Command{
	Use:   "burndown",
	Short: "Show sprint burnup/burndown series",
	RunE:  runBurndown,
}

var heatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Show the resource availability heatmap",
	RunE:  runHeatmap,
}

func init() {
	analyticsCmd.AddCommand(utilizationCmd, blockersCmd, burndownCmd, heatmapCmd)
}

func runUtilization(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/analytics/resource-utilization")
	if err != nil {
		return err
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(resp, &entries); err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No utilization data")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tUTILIZATION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%.0f%%\n", e["name"], e["utilization"].(float64))
	}
	w.Flush()
	return nil
}

func runBlockers(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/analytics/task-blockers")
	if err != nil {
		return err
	}

	var stats []map[string]interface{}
	if err := json.Unmarshal(resp, &stats); err != nil {
		return err
	}

	if len(stats) == 0 {
		fmt.Println("No blocked tasks")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REASON\tCOUNT\tAVG HOURS BLOCKED")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%.0f\t%.1f\n",
			s["reason"], s["count"].(float64), s["avg_hours_blocked"].(float64))
	}
	w.Flush()
	return nil
}

func runBurndown(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/analytics/burnup-burndown")
	if err != nil {
		return err
	}

	var series []map[string]interface{}
	if err := json.Unmarshal(resp, &series); err != nil {
		return err
	}

	if len(series) == 0 {
		fmt.Println("No scheduled sprints")
		return nil
	}

	for _, s := range series {
		fmt.Printf("=== %s (%.0f tasks) ===\n", s["sprint"], s["total"].(float64))
		days, _ := s["days"].([]interface{})
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tBURNUP\tBURNDOWN")
		for _, d := range days {
			m := d.(map[string]interface{})
			fmt.Fprintf(w, "%s\t%.0f\t%.0f\n", m["date"], m["burnup"].(float64), m["burndown"].(float64))
		}
		w.Flush()
		fmt.Println()
	}
	return nil
}

func runHeatmap(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/analytics/resource-availability-heatmap")
	if err != nil {
		return err
	}

	var heatmap []map[string]interface{}
	if err := json.Unmarshal(resp, &heatmap); err != nil {
		return err
	}

	if len(heatmap) == 0 {
		fmt.Println("No resources")
		return nil
	}

	for _, entry := range heatmap {
		fmt.Printf("%s:", entry["resource"])
		days, _ := entry["availability"].([]interface{})
		for _, d := range days {
			m := d.(map[string]interface{})
			fmt.Printf(" %.0f", m["hours"].(float64))
		}
		fmt.Println()
	}
	return nil
}
