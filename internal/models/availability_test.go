package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseAvailabilityParams_Defaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"nil", ""},
		{"null", "null"},
		{"empty object", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := ParseAvailabilityParams(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if params.FTE != 1.0 {
				t.Errorf("fte = %v, want 1.0", params.FTE)
			}
			if params.WorkingHours != nil || len(params.PlannedLeave) != 0 {
				t.Errorf("expected no working hours or leave, got %+v", params)
			}
		})
	}
}

func TestParseAvailabilityParams_FullDocument(t *testing.T) {
	raw := `{
		"fte": 0.5,
		"working_hours": {"start": "10:00", "end": "16:00", "days": [1,2,3]},
		"planned_leave": [{"start": "2024-07-01", "end": "2024-07-14"}]
	}`

	params, err := ParseAvailabilityParams(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.FTE != 0.5 {
		t.Errorf("fte = %v, want 0.5", params.FTE)
	}
	if params.WorkingHours == nil || params.WorkingHours.Start != "10:00" || len(params.WorkingHours.Days) != 3 {
		t.Errorf("working hours = %+v", params.WorkingHours)
	}
	if len(params.PlannedLeave) != 1 || params.PlannedLeave[0].Start.String() != "2024-07-01" {
		t.Errorf("planned leave = %+v", params.PlannedLeave)
	}
}

func TestParseAvailabilityParams_AbsentFTEDefaultsToOne(t *testing.T) {
	params, err := ParseAvailabilityParams(json.RawMessage(`{"working_hours":{"start":"09:00","end":"17:00"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.FTE != 1.0 {
		t.Errorf("fte = %v, want 1.0", params.FTE)
	}
}

func TestParseAvailabilityParams_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{nope"},
		{"wrong fte type", `{"fte": "half"}`},
		{"negative fte", `{"fte": -0.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := ParseAvailabilityParams(json.RawMessage(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			// Errors still hand back usable defaults for callers that recover
			if params.FTE != 1.0 {
				t.Errorf("fallback fte = %v, want 1.0", params.FTE)
			}
		})
	}
}

func TestLeaveRangeContains(t *testing.T) {
	l := LeaveRange{
		Start: NewDate(2024, time.July, 1),
		End:   NewDate(2024, time.July, 14),
	}

	tests := []struct {
		day  time.Time
		want bool
	}{
		{time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, time.July, 14, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		if got := l.Contains(tt.day); got != tt.want {
			t.Errorf("Contains(%s) = %v, want %v", tt.day.Format(DateLayout), got, tt.want)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, time.March, 9)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2024-03-09"` {
		t.Errorf("marshaled = %s", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("round trip = %v, want %v", back, d)
	}
}

func TestDateUnmarshalRejectsBadFormat(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"09/03/2024"`), &d); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}
