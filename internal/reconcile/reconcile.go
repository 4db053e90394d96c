// Package reconcile derives the cockpit's display metrics from a pipeline result.
// Everything here is pure; callers recompute on every read instead of storing.
package reconcile

import (
	"math"
	"sort"
	"strings"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

const (
	DeltaAwaiting = "Awaiting baseline comparison from current packet."
	DeltaScope    = "Coverage scope increased versus typical renewal profile."
	DeltaGrowth   = "Revenue profile indicates likely year-over-year growth."
	DeltaNone     = "No significant change signal detected from renewal assumptions."

	scopeLineThreshold = 3
	growthRevenue      = 3_000_000
	yellowThreshold    = 70
)

// Reconcile computes DerivedMetrics for r. A nil result yields zero metrics
// and the awaiting-baseline narrative.
func Reconcile(r *models.PipelineResult) models.DerivedMetrics {
	if r == nil {
		return models.DerivedMetrics{MissingFields: []models.RankedField{}, RenewalDelta: DeltaAwaiting}
	}
	return models.DerivedMetrics{
		CompletenessPct: Completeness(r.Completeness),
		ConfidencePct:   Confidence(r.Profile.FieldConfidence),
		Locked:          Locked(r.Completeness),
		MissingFields:   RankMissingFields(r.Completeness),
		RenewalDelta:    RenewalDelta(r),
	}
}

// Completeness is the rounded mean of the per-line scores, 0 when there are none.
func Completeness(lines []models.LineCompleteness) int {
	if len(lines) == 0 {
		return 0
	}
	var sum float64
	for _, l := range lines {
		sum += l.CompletenessScore
	}
	return pct(sum / float64(len(lines)))
}

// Confidence is the mean field confidence scaled to a percentage, 0 when empty.
func Confidence(fields map[string]float64) int {
	if len(fields) == 0 {
		return 0
	}
	var sum float64
	for _, v := range fields {
		sum += v
	}
	return pct(sum / float64(len(fields)) * 100)
}

// Locked is true only for a non-empty list where every line is Green.
func Locked(lines []models.LineCompleteness) bool {
	if len(lines) == 0 {
		return false
	}
	for _, l := range lines {
		if l.Status != models.CompletenessGreen {
			return false
		}
	}
	return true
}

// RankMissingFields flattens missing fields across lines. A field that a
// blocker on the same line mentions is a blocker; equal severities keep input order.
func RankMissingFields(lines []models.LineCompleteness) []models.RankedField {
	ranked := []models.RankedField{}
	for _, l := range lines {
		for _, f := range l.MissingFields {
			sev := models.SeverityGap
			if mentioned(l.Blockers, f) {
				sev = models.SeverityBlocker
			}
			ranked = append(ranked, models.RankedField{Field: f, Severity: sev})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Severity > ranked[j].Severity
	})
	return ranked
}

// RenewalDelta is the one-line "what changed since renewal" narrative.
func RenewalDelta(r *models.PipelineResult) string {
	switch {
	case r == nil:
		return DeltaAwaiting
	case len(r.Profile.LinesOfBusiness) >= scopeLineThreshold:
		return DeltaScope
	case r.Profile.Revenue != nil && *r.Profile.Revenue > growthRevenue:
		return DeltaGrowth
	default:
		return DeltaNone
	}
}

// OverallStatus buckets the headline completeness meter: Green when locked,
// Yellow from 70%, Red below.
func OverallStatus(m models.DerivedMetrics) string {
	switch {
	case m.Locked:
		return models.CompletenessGreen
	case m.CompletenessPct >= yellowThreshold:
		return "Yellow"
	default:
		return "Red"
	}
}

func mentioned(blockers []string, field string) bool {
	needle := strings.ToLower(field)
	for _, b := range blockers {
		if strings.Contains(strings.ToLower(b), needle) {
			return true
		}
	}
	return false
}

func pct(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(v))))
}
