package models

import "time"

// LoginAttempt represents a single login attempt in the attempt history
type LoginAttempt struct {
	ID                string    `db:"id"`
	Email             string    `db:"email"`
	IPAddress         string    `db:"ip_address"`
	UserAgent         string    `db:"user_agent"`
	AttemptTime       time.Time `db:"attempt_time"`
	Success           bool      `db:"success"`
	FailureReason     *string   `db:"failure_reason"`
	DeviceFingerprint string    `db:"device_fingerprint"`
	ExpiresAt         time.Time `db:"expires_at"`
}

// Failure reasons recorded in the attempt history
const (
	FailureReasonInvalidCredentials = "invalid_credentials"
	FailureReasonAccountLocked      = "account_locked"
	FailureReasonAccountBlocked     = "account_blocked"
	FailureReasonRateLimited        = "rate_limited"
)
