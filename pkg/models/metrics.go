package models

// Missing-field severities. A field named by a blocker outranks a plain gap.
const (
	SeverityGap     = 1
	SeverityBlocker = 2
)

// DerivedMetrics are computed from a PipelineResult on demand and never stored.
type DerivedMetrics struct {
	CompletenessPct int           `json:"completeness_pct"`
	ConfidencePct   int           `json:"confidence_pct"`
	Locked          bool          `json:"locked"`
	MissingFields   []RankedField `json:"missing_fields"`
	RenewalDelta    string        `json:"renewal_delta"`
}

type RankedField struct {
	Field    string `json:"field"`
	Severity int    `json:"severity"`
}
