package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day. It marshals as "YYYY-MM-DD" and ignores the time
// component on comparisons.
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// String returns the date in wire format.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// WorkingHours is a resource's daily window and working weekdays.
// Days uses ISO weekday numbers (1=Monday .. 7=Sunday). An empty Days slice
// means every day counts as a working day.
type WorkingHours struct {
	Start string `json:"start,omitempty"` // "HH:MM"
	End   string `json:"end,omitempty"`   // "HH:MM"
	Days  []int  `json:"days,omitempty"`
}

// LeaveRange is an inclusive planned-leave date interval. Ranges may overlap;
// capacity checks treat them as a union.
type LeaveRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains reports whether day falls within the range, inclusive on both ends.
func (l LeaveRange) Contains(day time.Time) bool {
	d := day.Truncate(24 * time.Hour)
	return !d.Before(l.Start.Time) && !d.After(l.End.Time)
}

// AvailabilityParams describes a resource's capacity profile. The zero value
// is not meaningful; use DefaultAvailabilityParams or ParseAvailabilityParams.
type AvailabilityParams struct {
	FTE          float64       `json:"fte"`
	WorkingHours *WorkingHours `json:"working_hours,omitempty"`
	PlannedLeave []LeaveRange  `json:"planned_leave,omitempty"`
}

// DefaultAvailabilityParams is full-time with no working-hours policy or leave.
func DefaultAvailabilityParams() AvailabilityParams {
	return AvailabilityParams{FTE: 1.0}
}

// ParseAvailabilityParams decodes stored availability_params JSON. A nil or
// empty document yields the defaults; an absent fte defaults to 1.0.
func ParseAvailabilityParams(raw json.RawMessage) (AvailabilityParams, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return DefaultAvailabilityParams(), nil
	}

	var aux struct {
		FTE          *float64      `json:"fte"`
		WorkingHours *WorkingHours `json:"working_hours"`
		PlannedLeave []LeaveRange  `json:"planned_leave"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return DefaultAvailabilityParams(), fmt.Errorf("parse availability_params: %w", err)
	}

	params := AvailabilityParams{
		FTE:          1.0,
		WorkingHours: aux.WorkingHours,
		PlannedLeave: aux.PlannedLeave,
	}
	if aux.FTE != nil {
		params.FTE = *aux.FTE
	}
	if params.FTE < 0 {
		return DefaultAvailabilityParams(), fmt.Errorf("parse availability_params: negative fte %v", params.FTE)
	}
	return params, nil
}
