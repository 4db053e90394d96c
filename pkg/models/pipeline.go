package models

// CompletenessGreen is the status of a line of business with nothing missing.
const CompletenessGreen = "Green"

// PipelineResult is the structured output of a succeeded pipeline job.
type PipelineResult struct {
	Profile      RiskProfile        `json:"profile"`
	Completeness []LineCompleteness `json:"completeness"`
	Questions    QuestionSet        `json:"questions"`
}

// RiskProfile is the canonical risk profile extracted from a packet.
type RiskProfile struct {
	SubmissionID      string                `json:"submission_id"`
	InsuredName       *string               `json:"insured_name"`
	EntityType        *string               `json:"entity_type"`
	Revenue           *float64              `json:"revenue"`
	Payroll           *float64              `json:"payroll"`
	Locations         []Location            `json:"locations"`
	PriorLosses       []PriorLoss           `json:"prior_losses"`
	CoverageRequested []Coverage            `json:"coverage_requested"`
	LinesOfBusiness   []string              `json:"lines_of_business"`
	Contradictions    []string              `json:"contradictions"`
	SourceCitations   map[string][]Citation `json:"source_citations,omitempty"`
	FieldConfidence   map[string]float64    `json:"field_confidence,omitempty"`
}

type Location struct {
	Address string `json:"address"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
}

type PriorLoss struct {
	LossDate    string   `json:"loss_date,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Description string   `json:"description,omitempty"`
}

type Coverage struct {
	LineOfBusiness string `json:"line_of_business"`
	Limit          string `json:"limit,omitempty"`
	Deductible     string `json:"deductible,omitempty"`
}

type Citation struct {
	SourceDocument string  `json:"source_document"`
	Page           *int    `json:"page"`
	Snippet        *string `json:"snippet"`
}

// LineCompleteness is the backend's completeness assessment for one line of business.
type LineCompleteness struct {
	LineOfBusiness    string   `json:"line_of_business"`
	CompletenessScore float64  `json:"completeness_score"`
	Status            string   `json:"status"`
	MissingFields     []string `json:"missing_fields"`
	Blockers          []string `json:"blockers"`
}

// QuestionSet holds the generated broker follow-up questions.
type QuestionSet struct {
	GroupedQuestions map[string][]string `json:"grouped_questions"`
	EmailDraft       string              `json:"email_draft"`
	BulletSummary    []string            `json:"bullet_summary"`
	PlainEnglish     string              `json:"plain_english"`
}
