package engine

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/crewplan/crewplan/internal/models"
)

// DayHours is one calendar day's available hours for a resource.
type DayHours struct {
	Date  models.Date `json:"date"`
	Hours float64     `json:"hours"`
}

// AvailableHours computes a resource's capacity in hours over the inclusive
// period [start, end].
//
// Each day contributes max(0, workEnd-workStart) hours when it is a working
// day and not covered by planned leave, else zero. FTE multiplies the period
// total once, not each day. When the loop resolves exactly zero hours the
// result falls back to BaseWeeklyHours*fte regardless of period length; this
// means a resource entirely on leave still reports base capacity. The
// fallback is load-bearing for downstream load percentages and is kept as-is.
func (c Config) AvailableHours(params models.AvailabilityParams, start, end time.Time) float64 {
	total := 0.0
	for d := dayOf(start); !d.After(dayOf(end)); d = d.AddDate(0, 0, 1) {
		total += c.baseHoursForDay(params, d)
	}
	total *= params.FTE

	if total == 0 {
		return c.BaseWeeklyHours * params.FTE
	}
	return total
}

// DailyAvailability computes per-day available hours over [start, end]
// inclusive, one entry per calendar day.
//
// Unlike AvailableHours, fte is applied to each day individually and there is
// no zero fallback: a day off is reported as zero. The two deliberately
// disagree on where fte lands; callers that need them to coincide must use a
// leave-free period with every day a working day.
func (c Config) DailyAvailability(params models.AvailabilityParams, start, end time.Time) []DayHours {
	var days []DayHours
	for d := dayOf(start); !d.After(dayOf(end)); d = d.AddDate(0, 0, 1) {
		days = append(days, DayHours{
			Date:  models.Date{Time: d},
			Hours: c.baseHoursForDay(params, d) * params.FTE,
		})
	}
	return days
}

// baseHoursForDay resolves one day's working hours before any fte scaling.
func (c Config) baseHoursForDay(params models.AvailabilityParams, day time.Time) float64 {
	workStart := c.DefaultWorkStartHour
	workEnd := c.DefaultWorkEndHour
	isWorkingDay := true

	if wh := params.WorkingHours; wh != nil {
		if len(wh.Days) > 0 {
			isWorkingDay = containsWeekday(wh.Days, isoWeekday(day))
		}
		if h, ok := parseHour(wh.Start); ok {
			workStart = h
		}
		if h, ok := parseHour(wh.End); ok {
			workEnd = h
		}
	}
	if !isWorkingDay || onLeave(params.PlannedLeave, day) {
		return 0
	}
	return math.Max(0, float64(workEnd-workStart))
}

// LoadPercentage converts assigned effort and available capacity to a rounded
// percentage. Zero or negative capacity reports 100 when anything is assigned
// and 0 otherwise.
func LoadPercentage(assignedEffortHours, availableHours float64) int {
	if availableHours > 0 {
		return int(math.Round(assignedEffortHours / availableHours * 100))
	}
	if assignedEffortHours > 0 {
		return 100
	}
	return 0
}

// ResolvePeriod selects the capacity window for a load calculation: the
// sprint's calendar bounds when a sprint is in play and the resource has an
// assignment in it, otherwise the ISO week (Monday-Sunday) containing now.
func ResolvePeriod(now time.Time, sprint *models.Sprint, assignedInSprint bool) (time.Time, time.Time) {
	if sprint.Scheduled() && assignedInSprint {
		return dayOf(sprint.StartDate.Time), dayOf(sprint.EndDate.Time)
	}
	weekStart := startOfWeek(now)
	return weekStart, weekStart.AddDate(0, 0, 6)
}

// onLeave reports whether day falls in any planned-leave range. Overlapping
// ranges are harmless: the check is a boolean union.
func onLeave(leave []models.LeaveRange, day time.Time) bool {
	for _, l := range leave {
		if l.Contains(day) {
			return true
		}
	}
	return false
}

// isoWeekday maps time.Weekday to ISO numbering (Monday=1 .. Sunday=7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func containsWeekday(days []int, wd int) bool {
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

// parseHour extracts the hour component of an "HH:MM" string. Minutes are
// ignored: capacity is tracked at hour granularity.
func parseHour(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	h, err := strconv.Atoi(strings.SplitN(s, ":", 2)[0])
	if err != nil || h < 0 || h > 24 {
		return 0, false
	}
	return h, true
}

// dayOf normalizes a time to midnight UTC of its calendar day.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the Monday of the ISO week containing t.
func startOfWeek(t time.Time) time.Time {
	return dayOf(t).AddDate(0, 0, 1-isoWeekday(t))
}
