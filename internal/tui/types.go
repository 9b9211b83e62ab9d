package tui

// ResourceSummary is a resource row for the roster view.
type ResourceSummary struct {
	ID          string
	Name        string
	Type        string
	LoadPercent int
	SkillCount  int
}

// TaskSummary is a task row for the backlog view.
type TaskSummary struct {
	ID       string
	Title    string
	Status   string
	Priority string
	Effort   float64
}

// SuggestionRow is one ranked candidate for a task.
type SuggestionRow struct {
	Name        string
	Type        string
	FitScore    float64
	LoadPercent int
	SkillMatch  string
	DomainMatch string
}
