package models

import "time"

// Lockout event kinds
const (
	LockoutEventLockout = "lockout"
	LockoutEventUnlock  = "unlock"
)

// LockoutEvent is emitted to audit sinks when an account is locked or manually unlocked
type LockoutEvent struct {
	AccountID   string
	Timestamp   time.Time
	Kind        string     // "lockout" or "unlock"
	Origin      string     // requesting IP address or other origin identifier
	ActorID     string     // admin who performed an unlock; empty for lockouts
	LockedUntil *time.Time // set for lockout events
	Attempts    int        // failed attempt count at the time of the event
}
