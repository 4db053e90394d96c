// Package models contains shared data models used across the cockpit codebase.
package models

import "time"

// Session is the bearer credential and tenant the backend issued at login.
// ExpiresAt is zero when the backend gave no expiry.
type Session struct {
	Credential string
	TenantID   string
	ExpiresAt  time.Time
}

// Expired reports whether the credential is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
