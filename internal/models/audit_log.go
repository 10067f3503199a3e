package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types for audit logging
const (
	AuditEventTypeLogin   = "login"
	AuditEventTypeLockout = "account_lockout"
	AuditEventTypeUnlock  = "account_unlock"
)

// Actions
const (
	AuditActionLock   = "lock"
	AuditActionUnlock = "unlock"
	AuditActionAccess = "access"
)

type AuditLog struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	EventType     string        `db:"event_type" json:"event_type"`
	ActorID       *string       `db:"actor_id" json:"actor_id,omitempty"`
	TargetID      *string       `db:"target_id" json:"target_id,omitempty"`
	Action        string        `db:"action" json:"action"`
	Success       bool          `db:"success" json:"success"`
	FailureReason *string       `db:"failure_reason" json:"failure_reason,omitempty"`
	IPAddress     *string       `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent     *string       `db:"user_agent" json:"user_agent,omitempty"`
	Metadata      AuditMetadata `db:"metadata" json:"metadata"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// AuditMetadata holds additional context for audit events
type AuditMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(AuditMetadata)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*am = AuditMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(map[string]interface{}(am))
}

// NewLockoutMetadata builds audit metadata for a lockout or unlock event.
// locked_until is omitted for unlock events.
func NewLockoutMetadata(event LockoutEvent) AuditMetadata {
	metadata := AuditMetadata{
		"kind":            event.Kind,
		"failed_attempts": event.Attempts,
	}

	if event.LockedUntil != nil {
		metadata["locked_until"] = event.LockedUntil.UTC().Format(time.RFC3339)
	}
	if event.Origin != "" {
		metadata["origin"] = event.Origin
	}

	return metadata
}
