package domain

// The report produced by the assembler. The lead store treats reports as an
// opaque blob; these types exist only for the generation side and for API
// responses.

// Recommendation priorities and impact levels.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Recommendation is one actionable item inside a report section.
type Recommendation struct {
	Action         string   `json:"action"`
	Details        string   `json:"details"`
	Impact         string   `json:"impact"`
	Effort         string   `json:"effort"`
	Implementation []string `json:"implementation"`
}

// ReportSection groups recommendations under a scored heading.
type ReportSection struct {
	Title           string           `json:"title"`
	Score           int              `json:"score"`
	Priority        string           `json:"priority"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ActionItem is one entry in the report's action plan.
type ActionItem struct {
	Task           string `json:"task"`
	ExpectedImpact string `json:"expectedImpact"`
}

// ReportSummary is the narrative part of a report.
type ReportSummary struct {
	Overview      string     `json:"overview"`
	Strengths     []string   `json:"strengths"`
	Opportunities []string   `json:"opportunities"`
	ActionPlan    ActionPlan `json:"actionPlan"`
}

// ActionPlan splits recommended work into immediate and short-term items.
type ActionPlan struct {
	Immediate []ActionItem `json:"immediate"`
	ShortTerm []ActionItem `json:"shortTerm"`
}

// BusinessReport is the scored, sectioned optimization report for one
// business profile.
type BusinessReport struct {
	OverallScore float64         `json:"overallScore"`
	Sections     []ReportSection `json:"sections"`
	Summary      ReportSummary   `json:"summary"`
}
