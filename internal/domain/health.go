package domain

// HealthLevel is the qualitative code health bucket, ordered best to worst.
type HealthLevel string

const (
	HealthExcellent HealthLevel = "excellent"
	HealthGood      HealthLevel = "good"
	HealthNeedsWork HealthLevel = "needs-work"
	HealthPoor      HealthLevel = "poor"
)

// Valid reports whether l is one of the four known levels.
func (l HealthLevel) Valid() bool {
	switch l {
	case HealthExcellent, HealthGood, HealthNeedsWork, HealthPoor:
		return true
	}
	return false
}

// LevelForScore buckets a 0-100 score.
func LevelForScore(score float64) HealthLevel {
	switch {
	case score >= 90:
		return HealthExcellent
	case score >= 70:
		return HealthGood
	case score >= 50:
		return HealthNeedsWork
	default:
		return HealthPoor
	}
}

// CodeHealth is the AI-estimated health of a repository.
type CodeHealth struct {
	Overall     HealthLevel   `json:"overall"`
	Score       float64       `json:"score"`
	Issues      []HealthIssue `json:"issues"`
	Suggestions []string      `json:"suggestions"`
}

// HealthIssue is a single finding inside CodeHealth.
type HealthIssue struct {
	Severity string `json:"severity"` // info, warning, error
	Category string `json:"category"`
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
}
