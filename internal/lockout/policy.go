// Package lockout implements the account lockout policy: a pure state machine over
// models.SecurityState that counts consecutive failed logins and locks the account
// for a fixed window once a threshold is reached. The clock is always passed in;
// nothing here reads wall time or touches storage.
package lockout

import (
	"fmt"
	"time"

	"github.com/BradenHooton/lockgate/internal/models"
)

// Config holds the lockout policy parameters
type Config struct {
	Threshold int           // Consecutive failures that trigger a lock
	Duration  time.Duration // How long a lock lasts, measured from the triggering failure
}

// DefaultConfig returns the default policy: 5 attempts, 15 minute lock
func DefaultConfig() Config {
	return Config{
		Threshold: 5,
		Duration:  15 * time.Minute,
	}
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	if c.Threshold < 1 {
		return fmt.Errorf("lockout threshold must be at least 1 (got %d)", c.Threshold)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("lockout duration must be positive (got %s)", c.Duration)
	}
	return nil
}

// Policy decides lockout state transitions. It is safe for concurrent use.
type Policy struct {
	threshold int
	duration  time.Duration
}

// NewPolicy creates a Policy from a validated Config
func NewPolicy(cfg Config) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Policy{
		threshold: cfg.Threshold,
		duration:  cfg.Duration,
	}, nil
}

// Threshold returns the number of failures that trigger a lock
func (p *Policy) Threshold() int {
	return p.threshold
}

// Duration returns the lock window
func (p *Policy) Duration() time.Duration {
	return p.duration
}

// IsLocked reports whether state is locked at now. A lock whose LockedUntil has
// passed is expired even though the field is still set.
//
// Callers must check this before verifying credentials and reject the attempt
// without looking at the password when it returns true.
func (p *Policy) IsLocked(state models.SecurityState, now time.Time) bool {
	return state.LockedUntil != nil && now.Before(*state.LockedUntil)
}

// RecordFailure returns the state after one more failed attempt at now.
//
// The counter always increments. A new lock (now + Duration) is set once the
// counter reaches the threshold, unless a lock is already active: failures
// during an active lock never extend it.
func (p *Policy) RecordFailure(state models.SecurityState, now time.Time) models.SecurityState {
	next := state.Clone()
	next.FailedAttemptCount++

	if next.FailedAttemptCount >= p.threshold && !p.IsLocked(state, now) {
		until := now.Add(p.duration)
		next.LockedUntil = &until
	}

	return next
}

// RecordSuccess returns the state after a successful login at now. The counter
// and any lock are cleared unconditionally.
func (p *Policy) RecordSuccess(state models.SecurityState, now time.Time) models.SecurityState {
	next := state.Clone()
	next.FailedAttemptCount = 0
	next.LockedUntil = nil
	loginAt := now
	next.LastLoginAt = &loginAt
	return next
}

// Unlock is the administrative override: counter and lock are cleared regardless
// of the current state. LastLoginAt is left untouched.
func (p *Policy) Unlock(state models.SecurityState) models.SecurityState {
	next := state.Clone()
	next.FailedAttemptCount = 0
	next.LockedUntil = nil
	return next
}

// UnlockTime returns LockedUntil verbatim. The field is never cleared on expiry,
// so a past time means the lock has lapsed.
func (p *Policy) UnlockTime(state models.SecurityState) *time.Time {
	if state.LockedUntil == nil {
		return nil
	}
	t := *state.LockedUntil
	return &t
}

// LockTriggered reports whether the transition before -> after started a new lock
// at now. The caller emits a lockout audit event when it does.
func (p *Policy) LockTriggered(before, after models.SecurityState, now time.Time) bool {
	return !p.IsLocked(before, now) && p.IsLocked(after, now)
}

// RetryAfter returns how long until state unlocks, or 0 when it is not locked.
func (p *Policy) RetryAfter(state models.SecurityState, now time.Time) time.Duration {
	if !p.IsLocked(state, now) {
		return 0
	}
	return state.LockedUntil.Sub(now)
}

// RemainingAttempts returns how many more failures are allowed before a lock.
// It is 0 while locked.
func (p *Policy) RemainingAttempts(state models.SecurityState, now time.Time) int {
	if p.IsLocked(state, now) {
		return 0
	}
	remaining := p.threshold - state.FailedAttemptCount
	if remaining < 1 {
		// Lapsed lock with the counter still at or past the threshold: the next
		// failure locks again.
		return 1
	}
	return remaining
}
