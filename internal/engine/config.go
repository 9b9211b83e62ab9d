// Package engine computes resource availability, load, and task-fit scores.
//
// Every function is a pure computation over pre-loaded value inputs: the
// engine never fetches data and never mutates its arguments.
package engine

import "time"

// Config holds the engine's tunable constants. Tests override individual
// fields; production code uses DefaultConfig.
type Config struct {
	// DefaultWorkStartHour and DefaultWorkEndHour bound the workday when a
	// resource has no working-hours policy.
	DefaultWorkStartHour int
	DefaultWorkEndHour   int
	// BaseWeeklyHours is the flat capacity used when the day-loop resolves
	// zero hours for a period.
	BaseWeeklyHours float64
	// WeeksPerMonth converts weekly capacity to the utilization window.
	WeeksPerMonth float64
	// SkillWeight and DomainWeight scale proficiency sums in fit scores.
	SkillWeight  float64
	DomainWeight float64
	// OverloadPenalty is applied to a fit score when the candidate's
	// projected load exceeds OverloadThreshold percent.
	OverloadPenalty   float64
	OverloadThreshold int
	// HeatmapDays is the length of the availability heatmap window.
	HeatmapDays int
	// CacheTTL bounds how long cached analytics results stay valid.
	CacheTTL time.Duration
}

// DefaultConfig returns the standard engine constants: a 9-17 workday, a
// 40-hour base week, and a 5-minute analytics cache.
func DefaultConfig() Config {
	return Config{
		DefaultWorkStartHour: 9,
		DefaultWorkEndHour:   17,
		BaseWeeklyHours:      40,
		WeeksPerMonth:        4.3,
		SkillWeight:          10,
		DomainWeight:         5,
		OverloadPenalty:      0.5,
		OverloadThreshold:    100,
		HeatmapDays:          30,
		CacheTTL:             5 * time.Minute,
	}
}
