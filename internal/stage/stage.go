// Package stage models the cockpit's visible pipeline stages and the
// timer that advances them while a job is being polled.
package stage

import "strings"

// Stage is the client-local UI stage of a pipeline run.
type Stage int

const (
	Idle Stage = iota
	Uploading
	Parsing
	Structuring
	Scoring
	Ready
	Locked
)

var names = [...]string{"Idle", "Uploading", "Parsing", "Structuring", "Scoring", "Ready", "Locked"}

var labels = [...]string{
	"Waiting for upload",
	"Uploading packet",
	"Parsing documents",
	"Structuring risk profile",
	"Scoring completeness",
	"Packet structured",
	"Packet locked",
}

func (s Stage) String() string {
	if s < Idle || s > Locked {
		return "Unknown"
	}
	return names[s]
}

// Label is the human-readable description shown next to the stage badge.
func (s Stage) Label() string {
	if s < Idle || s > Locked {
		return "Processing"
	}
	return labels[s]
}

// Terminal reports whether s is set only from a poll outcome.
func (s Stage) Terminal() bool {
	return s == Ready || s == Locked
}

// Active reports whether a run is visibly in flight.
func (s Stage) Active() bool {
	return s >= Uploading && s <= Scoring
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Parse returns the stage with the given name, case-insensitively.
func Parse(name string) (Stage, bool) {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return Stage(i), true
		}
	}
	return Idle, false
}

// Tone buckets a status string for display: ok, warn, bad or neutral.
func Tone(status string) string {
	lowered := strings.ToLower(status)
	switch {
	case containsAny(lowered, "green", "processed", "ready", "locked", "succeeded"):
		return "ok"
	case containsAny(lowered, "yellow", "running", "queued", "structuring", "parsing", "uploading", "scoring"):
		return "warn"
	case containsAny(lowered, "red", "failed", "error"):
		return "bad"
	default:
		return "neutral"
	}
}

// SubmissionProgress approximates a submission's progress from its job status.
func SubmissionProgress(jobStatus string) int {
	status := strings.ToLower(jobStatus)
	switch {
	case strings.Contains(status, "processed"), strings.Contains(status, "succeeded"):
		return 100
	case strings.Contains(status, "running"):
		return 55
	case strings.Contains(status, "queued"):
		return 20
	case strings.Contains(status, "failed"):
		return 12
	default:
		return 0
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
