package tui

import "time"

type tickMsg time.Time

type refreshedMsg struct {
	Err error
}

type selectedMsg struct {
	SubmissionID string
	Err          error
}

type exportedMsg struct {
	Path   string
	Format string
	Err    error
}
