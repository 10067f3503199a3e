package models

import "time"

// SecurityState is the per-account lockout bookkeeping persisted with the account.
// The zero value is the state of a freshly created account.
type SecurityState struct {
	FailedAttemptCount int        `json:"failed_attempt_count"`
	LockedUntil        *time.Time `json:"locked_until,omitempty"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
}

// Clone returns a deep copy so callers can mutate the result without aliasing timestamps.
func (s SecurityState) Clone() SecurityState {
	out := SecurityState{FailedAttemptCount: s.FailedAttemptCount}
	if s.LockedUntil != nil {
		t := *s.LockedUntil
		out.LockedUntil = &t
	}
	if s.LastLoginAt != nil {
		t := *s.LastLoginAt
		out.LastLoginAt = &t
	}
	return out
}
