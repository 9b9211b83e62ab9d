// Package analytics computes the reporting aggregates served by the API.
//
// Every report is a pure pass over pre-loaded records. Per-item failures
// (unparseable availability params, missing dates) are logged and the item is
// skipped so one bad row never empties a whole report.
package analytics

import (
	"log"
	"math"
	"sort"
	"time"

	"github.com/crewplan/crewplan/internal/engine"
	"github.com/crewplan/crewplan/internal/models"
)

// Cache keys for the two reports that are expensive enough to memoize.
const (
	CacheKeyUtilization    = "analytics_resource_utilization"
	CacheKeyBurnupBurndown = "analytics_burnup_burndown"
)

// UtilizationEntry is one resource's utilization over the reporting window.
type UtilizationEntry struct {
	Name        string `json:"name"`
	Utilization int    `json:"utilization"`
}

// BurndownDay is one day of a sprint's burnup/burndown series.
type BurndownDay struct {
	Date     models.Date `json:"date"`
	Burnup   int         `json:"burnup"`
	Burndown int         `json:"burndown"`
}

// SprintSeries is a sprint's full burnup/burndown chart.
type SprintSeries struct {
	Sprint string        `json:"sprint"`
	Days   []BurndownDay `json:"days"`
	Total  int           `json:"total"`
}

// BlockerStat summarizes blocked tasks sharing a blocker reason.
type BlockerStat struct {
	Reason          string  `json:"reason"`
	Count           int     `json:"count"`
	AvgHoursBlocked float64 `json:"avg_hours_blocked"`
}

// ResourceHeatmap is one resource's per-day availability window.
type ResourceHeatmap struct {
	Resource     string            `json:"resource"`
	Availability []engine.DayHours `json:"availability"`
}

// CompletionRate is a sprint's done-vs-total task count.
type CompletionRate struct {
	Sprint    string `json:"sprint"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// HistoryEntry counts assignments created on one day.
type HistoryEntry struct {
	Date        models.Date `json:"date"`
	Assignments int         `json:"assignments"`
}

// TypeImpact compares task throughput across resource types.
type TypeImpact struct {
	Type              models.ResourceType `json:"type"`
	AvgCompletionDays float64             `json:"avg_completion_days"`
	CompletedTasks    int                 `json:"completed_tasks"`
}

// Utilization computes each resource's load against a monthly capacity of
// BaseWeeklyHours*WeeksPerMonth*fte. Resources with a non-positive capacity
// are skipped, not errored.
func Utilization(cfg engine.Config, resources []models.Resource, effortByResource map[string]float64) []UtilizationEntry {
	result := make([]UtilizationEntry, 0, len(resources))
	for i := range resources {
		res := &resources[i]
		params, err := res.Availability()
		if err != nil {
			log.Printf("utilization: skipping resource %s: %v", res.ID, err)
			continue
		}
		available := cfg.BaseWeeklyHours * cfg.WeeksPerMonth * params.FTE
		if available <= 0 {
			continue
		}
		utilization := int(math.Round(effortByResource[res.ID] / available * 100))
		result = append(result, UtilizationEntry{
			Name:        res.NameIdentifier,
			Utilization: utilization,
		})
	}
	return result
}

// BurnupBurndown builds one day-series per scheduled sprint: cumulative
// completed tasks (burnup) and remaining tasks clamped at zero (burndown).
// Completion dates come from the updated_at of Done tasks.
func BurnupBurndown(sprints []models.Sprint, tasksBySprint map[string][]models.Task) []SprintSeries {
	result := make([]SprintSeries, 0, len(sprints))
	for i := range sprints {
		sprint := &sprints[i]
		if !sprint.Scheduled() {
			log.Printf("burnup-burndown: skipping unscheduled sprint %s", sprint.ID)
			continue
		}

		tasks := tasksBySprint[sprint.ID]
		completionsByDate := make(map[string]int)
		for _, task := range tasks {
			if task.Status == models.TaskStatusDone {
				completionsByDate[task.UpdatedAt.UTC().Format(models.DateLayout)]++
			}
		}

		var days []BurndownDay
		cumulative := 0
		for d := sprint.StartDate.Time; !d.After(sprint.EndDate.Time); d = d.AddDate(0, 0, 1) {
			cumulative += completionsByDate[d.Format(models.DateLayout)]
			remaining := len(tasks) - cumulative
			if remaining < 0 {
				remaining = 0
			}
			days = append(days, BurndownDay{
				Date:     models.Date{Time: d},
				Burnup:   cumulative,
				Burndown: remaining,
			})
		}
		result = append(result, SprintSeries{
			Sprint: sprint.Name,
			Days:   days,
			Total:  len(tasks),
		})
	}
	return result
}

// BlockerStats groups blocked tasks by blocker reason, reporting how many
// tasks share the reason and the average hours each has been blocked
// (created_at to updated_at, rounded to one decimal). Groups keep first-seen
// order.
func BlockerStats(blockedTasks []models.Task) []BlockerStat {
	type group struct {
		count      int
		totalHours float64
	}
	order := make([]string, 0)
	groups := make(map[string]*group)

	for _, task := range blockedTasks {
		reason := "Unknown/Unspecified"
		if task.BlockerReason != nil && *task.BlockerReason != "" {
			reason = *task.BlockerReason
		}
		g, ok := groups[reason]
		if !ok {
			g = &group{}
			groups[reason] = g
			order = append(order, reason)
		}
		g.count++
		g.totalHours += task.UpdatedAt.Sub(task.CreatedAt).Hours()
	}

	result := make([]BlockerStat, 0, len(order))
	for _, reason := range order {
		g := groups[reason]
		result = append(result, BlockerStat{
			Reason:          reason,
			Count:           g.count,
			AvgHoursBlocked: math.Round(g.totalHours/float64(g.count)*10) / 10,
		})
	}
	return result
}

// Heatmap computes per-day availability for each resource over the window
// starting at start. A resource with unparseable availability params is
// logged and excluded.
func Heatmap(cfg engine.Config, resources []models.Resource, start time.Time) []ResourceHeatmap {
	end := start.AddDate(0, 0, cfg.HeatmapDays-1)
	result := make([]ResourceHeatmap, 0, len(resources))
	for i := range resources {
		res := &resources[i]
		params, err := res.Availability()
		if err != nil {
			log.Printf("heatmap: skipping resource %s: %v", res.ID, err)
			continue
		}
		result = append(result, ResourceHeatmap{
			Resource:     res.NameIdentifier,
			Availability: cfg.DailyAvailability(params, start, end),
		})
	}
	return result
}

// CompletionRates reports done-vs-total task counts per sprint.
func CompletionRates(sprints []models.Sprint, tasksBySprint map[string][]models.Task) []CompletionRate {
	result := make([]CompletionRate, 0, len(sprints))
	for i := range sprints {
		sprint := &sprints[i]
		tasks := tasksBySprint[sprint.ID]
		completed := 0
		for _, task := range tasks {
			if task.Status == models.TaskStatusDone {
				completed++
			}
		}
		result = append(result, CompletionRate{
			Sprint:    sprint.Name,
			Completed: completed,
			Total:     len(tasks),
		})
	}
	return result
}

// AssignmentHistory counts assignments created per day within [start, end],
// sorted by date.
func AssignmentHistory(assignments []models.Assignment, start, end time.Time) []HistoryEntry {
	counts := make(map[string]int)
	for _, a := range assignments {
		created := a.CreatedAt.UTC()
		if created.Before(start) || created.After(end) {
			continue
		}
		counts[created.Format(models.DateLayout)]++
	}

	dates := make([]string, 0, len(counts))
	for date := range counts {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	result := make([]HistoryEntry, 0, len(dates))
	for _, date := range dates {
		parsed, err := models.ParseDate(date)
		if err != nil {
			log.Printf("assignment-history: skipping bucket %q: %v", date, err)
			continue
		}
		result = append(result, HistoryEntry{Date: parsed, Assignments: counts[date]})
	}
	return result
}

// AIToolImpact compares average completion time of done tasks across the
// three resource types, in days (two decimals).
func AIToolImpact(resources []models.Resource, assignments []models.Assignment, tasksByID map[string]models.Task) []TypeImpact {
	resourceType := make(map[string]models.ResourceType, len(resources))
	for i := range resources {
		resourceType[resources[i].ID] = resources[i].Type
	}

	types := []models.ResourceType{models.ResourceTypeHuman, models.ResourceTypeAITool, models.ResourceTypeHybrid}
	result := make([]TypeImpact, 0, len(types))
	for _, typ := range types {
		completed := 0
		totalDays := 0.0
		for _, a := range assignments {
			if resourceType[a.ResourceID] != typ {
				continue
			}
			task, ok := tasksByID[a.TaskID]
			if !ok || task.Status != models.TaskStatusDone {
				continue
			}
			completed++
			totalDays += task.UpdatedAt.Sub(task.CreatedAt).Hours() / 24
		}
		avg := 0.0
		if completed > 0 {
			avg = math.Round(totalDays/float64(completed)*100) / 100
		}
		result = append(result, TypeImpact{
			Type:              typ,
			AvgCompletionDays: avg,
			CompletedTasks:    completed,
		})
	}
	return result
}
