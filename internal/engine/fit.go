package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/crewplan/crewplan/internal/models"
)

// Candidate is a resource flattened for scoring: proficiency maps keyed by
// skill/domain catalog ID. Presence in a map means the resource holds that
// skill or domain; a non-positive proficiency is treated as 1 so one
// resource's bad data never aborts scoring for the rest.
type Candidate struct {
	ResourceID        string
	NameIdentifier    string
	Type              models.ResourceType
	SkillProficiency  map[string]int
	DomainProficiency map[string]int
}

// Requirements are the skill and domain catalog IDs a task calls for.
type Requirements struct {
	SkillIDs  []string
	DomainIDs []string
}

// FitScore is a scored candidate with a human-readable breakdown.
type FitScore struct {
	Score     float64
	Breakdown map[string]string
}

// Suggestion is one ranked entry in a task's suggested-resources list.
type Suggestion struct {
	ResourceID           string              `json:"resource_id"`
	NameIdentifier       string              `json:"name_identifier"`
	Type                 models.ResourceType `json:"type"`
	FitScore             float64             `json:"fit_score"`
	ProjectedLoadPercent int                 `json:"projected_load_percent"`
	ScoreBreakdown       map[string]string   `json:"score_breakdown"`
}

// ScoreResourceForTask computes a weighted fit score for one candidate.
//
// Matched skill proficiencies sum into a skill score weighted by SkillWeight;
// domains likewise with DomainWeight. A projected load over the overload
// threshold halves the total. The result is rounded to two decimals.
func (c Config) ScoreResourceForTask(cand Candidate, req Requirements, projectedLoad int) FitScore {
	score := 0.0
	breakdown := make(map[string]string)

	if len(req.SkillIDs) > 0 {
		matched, sum := matchProficiency(cand.SkillProficiency, req.SkillIDs)
		score += float64(sum) * c.SkillWeight
		breakdown["skill_match"] = fmt.Sprintf("%d/%d skills matched (Score: %d)", matched, len(req.SkillIDs), sum)
	} else {
		breakdown["skill_match"] = "No specific skills required."
	}

	if len(req.DomainIDs) > 0 {
		matched, sum := matchProficiency(cand.DomainProficiency, req.DomainIDs)
		score += float64(sum) * c.DomainWeight
		breakdown["domain_match"] = fmt.Sprintf("%d/%d domains matched (Score: %d)", matched, len(req.DomainIDs), sum)
	} else {
		breakdown["domain_match"] = "No specific domains required."
	}

	// Hooks for productivity multipliers and AI-tool adjustments. Neither
	// participates in the default policy yet.
	score = applyProductivityMultiplier(score, cand, req)
	score = applyTypeAdjustment(score, cand.Type)

	breakdown["load"] = fmt.Sprintf("Projected Load: %d%%", projectedLoad)
	if projectedLoad > c.OverloadThreshold {
		score *= c.OverloadPenalty
	}

	return FitScore{
		Score:     math.Round(score*100) / 100,
		Breakdown: breakdown,
	}
}

// RankSuggestions scores every candidate against the task requirements and
// returns them ordered by fit score descending. The sort is stable: equal
// scores keep their input order.
func (c Config) RankSuggestions(req Requirements, candidates []Candidate, projectedLoads map[string]int) []Suggestion {
	suggestions := make([]Suggestion, 0, len(candidates))
	for _, cand := range candidates {
		load := projectedLoads[cand.ResourceID]
		fit := c.ScoreResourceForTask(cand, req, load)
		suggestions = append(suggestions, Suggestion{
			ResourceID:           cand.ResourceID,
			NameIdentifier:       cand.NameIdentifier,
			Type:                 cand.Type,
			FitScore:             fit.Score,
			ProjectedLoadPercent: load,
			ScoreBreakdown:       fit.Breakdown,
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].FitScore > suggestions[j].FitScore
	})
	return suggestions
}

// matchProficiency sums the candidate's proficiency over the required IDs it
// holds. Missing or non-positive proficiency on a held entry counts as 1.
func matchProficiency(held map[string]int, required []string) (matched, sum int) {
	for _, id := range required {
		level, ok := held[id]
		if !ok {
			continue
		}
		if level <= 0 {
			level = 1
		}
		matched++
		sum += level
	}
	return matched, sum
}

// applyProductivityMultiplier is a reserved extension point; the default
// policy leaves the score untouched.
func applyProductivityMultiplier(score float64, _ Candidate, _ Requirements) float64 {
	return score
}

// applyTypeAdjustment is a reserved extension point for AI-tool-specific
// boosts or penalties; the default policy leaves the score untouched.
func applyTypeAdjustment(score float64, _ models.ResourceType) float64 {
	return score
}
