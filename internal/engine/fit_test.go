package engine

import (
	"testing"

	"github.com/crewplan/crewplan/internal/models"
)

func TestScoreResourceForTask_SkillAndDomain(t *testing.T) {
	cfg := DefaultConfig()
	cand := Candidate{
		ResourceID:        "r1",
		NameIdentifier:    "ada",
		Type:              models.ResourceTypeHuman,
		SkillProficiency:  map[string]int{"skill-a": 4},
		DomainProficiency: map[string]int{"domain-b": 2},
	}
	req := Requirements{SkillIDs: []string{"skill-a"}, DomainIDs: []string{"domain-b"}}

	fit := cfg.ScoreResourceForTask(cand, req, 40)
	if fit.Score != 50 {
		t.Errorf("score = %v, want 50", fit.Score)
	}
	if got := fit.Breakdown["skill_match"]; got != "1/1 skills matched (Score: 4)" {
		t.Errorf("skill_match = %q", got)
	}
	if got := fit.Breakdown["domain_match"]; got != "1/1 domains matched (Score: 2)" {
		t.Errorf("domain_match = %q", got)
	}
	if got := fit.Breakdown["load"]; got != "Projected Load: 40%" {
		t.Errorf("load = %q", got)
	}
}

func TestScoreResourceForTask_NoRequirements(t *testing.T) {
	cfg := DefaultConfig()
	cand := Candidate{ResourceID: "r1", SkillProficiency: map[string]int{"skill-a": 5}}

	fit := cfg.ScoreResourceForTask(cand, Requirements{}, 0)
	if fit.Score != 0 {
		t.Errorf("score = %v, want 0", fit.Score)
	}
	if got := fit.Breakdown["skill_match"]; got != "No specific skills required." {
		t.Errorf("skill_match = %q", got)
	}
	if got := fit.Breakdown["domain_match"]; got != "No specific domains required." {
		t.Errorf("domain_match = %q", got)
	}
}

func TestScoreResourceForTask_OverloadPenalty(t *testing.T) {
	cfg := DefaultConfig()
	cand := Candidate{
		ResourceID:       "r1",
		SkillProficiency: map[string]int{"skill-a": 4},
	}
	req := Requirements{SkillIDs: []string{"skill-a"}}

	at100 := cfg.ScoreResourceForTask(cand, req, 100)
	if at100.Score != 40 {
		t.Errorf("score at 100%% = %v, want 40 (threshold is exclusive)", at100.Score)
	}

	over := cfg.ScoreResourceForTask(cand, req, 101)
	if over.Score != 20 {
		t.Errorf("score at 101%% = %v, want 20", over.Score)
	}
	if got := over.Breakdown["load"]; got != "Projected Load: 101%" {
		t.Errorf("load = %q", got)
	}
}

func TestScoreResourceForTask_MissingProficiencyCountsAsOne(t *testing.T) {
	cfg := DefaultConfig()
	cand := Candidate{
		ResourceID:       "r1",
		SkillProficiency: map[string]int{"skill-a": 0, "skill-b": -3},
	}
	req := Requirements{SkillIDs: []string{"skill-a", "skill-b"}}

	fit := cfg.ScoreResourceForTask(cand, req, 0)
	if fit.Score != 20 {
		t.Errorf("score = %v, want 20 (two matches at proficiency 1)", fit.Score)
	}
	if got := fit.Breakdown["skill_match"]; got != "2/2 skills matched (Score: 2)" {
		t.Errorf("skill_match = %q", got)
	}
}

func TestScoreResourceForTask_UnheldSkillNotMatched(t *testing.T) {
	cfg := DefaultConfig()
	cand := Candidate{
		ResourceID:       "r1",
		SkillProficiency: map[string]int{"skill-a": 3},
	}
	req := Requirements{SkillIDs: []string{"skill-a", "skill-z"}}

	fit := cfg.ScoreResourceForTask(cand, req, 0)
	if got := fit.Breakdown["skill_match"]; got != "1/2 skills matched (Score: 3)" {
		t.Errorf("skill_match = %q", got)
	}
	if fit.Score != 30 {
		t.Errorf("score = %v, want 30", fit.Score)
	}
}

func TestRankSuggestions_DescendingAndStable(t *testing.T) {
	cfg := DefaultConfig()
	req := Requirements{SkillIDs: []string{"skill-a"}}
	candidates := []Candidate{
		{ResourceID: "low", SkillProficiency: map[string]int{"skill-a": 1}},
		{ResourceID: "tie-first", SkillProficiency: map[string]int{"skill-a": 3}},
		{ResourceID: "tie-second", SkillProficiency: map[string]int{"skill-a": 3}},
		{ResourceID: "high", SkillProficiency: map[string]int{"skill-a": 5}},
	}

	got := cfg.RankSuggestions(req, candidates, map[string]int{})
	wantOrder := []string{"high", "tie-first", "tie-second", "low"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d suggestions, want %d", len(got), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got[i].ResourceID != want {
			t.Errorf("position %d: got %s, want %s", i, got[i].ResourceID, want)
		}
	}
}

func TestRankSuggestions_CarriesProjectedLoads(t *testing.T) {
	cfg := DefaultConfig()
	candidates := []Candidate{
		{ResourceID: "r1", SkillProficiency: map[string]int{"skill-a": 2}},
		{ResourceID: "r2", SkillProficiency: map[string]int{"skill-a": 2}},
	}
	loads := map[string]int{"r1": 30, "r2": 110}

	got := cfg.RankSuggestions(Requirements{SkillIDs: []string{"skill-a"}}, candidates, loads)
	// r2 is overloaded, so r1 ranks first despite equal proficiency
	if got[0].ResourceID != "r1" || got[0].ProjectedLoadPercent != 30 {
		t.Errorf("first = %s (%d%%), want r1 (30%%)", got[0].ResourceID, got[0].ProjectedLoadPercent)
	}
	if got[1].ResourceID != "r2" || got[1].FitScore != 10 {
		t.Errorf("second = %s score %v, want r2 score 10", got[1].ResourceID, got[1].FitScore)
	}
}
