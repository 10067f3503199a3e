package models

import (
	"errors"
	"testing"
	"time"
)

func TestNewLockoutMetadata_Lockout(t *testing.T) {
	until := time.Date(2024, 1, 1, 0, 15, 4, 0, time.UTC)
	event := LockoutEvent{
		AccountID:   "user-1",
		Kind:        LockoutEventLockout,
		Origin:      "203.0.113.7",
		LockedUntil: &until,
		Attempts:    5,
	}

	metadata := NewLockoutMetadata(event)

	if metadata["kind"] != LockoutEventLockout {
		t.Errorf("expected kind %s, got %v", LockoutEventLockout, metadata["kind"])
	}
	if metadata["failed_attempts"] != 5 {
		t.Errorf("expected failed_attempts 5, got %v", metadata["failed_attempts"])
	}
	if metadata["locked_until"] != "2024-01-01T00:15:04Z" {
		t.Errorf("expected locked_until 2024-01-01T00:15:04Z, got %v", metadata["locked_until"])
	}
	if metadata["origin"] != "203.0.113.7" {
		t.Errorf("expected origin 203.0.113.7, got %v", metadata["origin"])
	}
}

func TestNewLockoutMetadata_UnlockOmitsOptionalFields(t *testing.T) {
	metadata := NewLockoutMetadata(LockoutEvent{AccountID: "user-1", Kind: LockoutEventUnlock})

	if _, ok := metadata["locked_until"]; ok {
		t.Errorf("expected locked_until to be omitted, got %v", metadata["locked_until"])
	}
	if _, ok := metadata["origin"]; ok {
		t.Errorf("expected origin to be omitted, got %v", metadata["origin"])
	}
}

func TestAuditMetadata_ScanRoundTrip(t *testing.T) {
	var metadata AuditMetadata
	if err := metadata.Scan([]byte(`{"kind":"lockout"}`)); err != nil {
		t.Fatalf("Scan() = %v, want nil", err)
	}
	if metadata["kind"] != "lockout" {
		t.Errorf("expected kind lockout, got %v", metadata["kind"])
	}

	var empty AuditMetadata
	if err := empty.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) = %v, want nil", err)
	}
	if empty == nil {
		t.Error("expected non-nil metadata after scanning NULL")
	}

	if err := empty.Scan(42); err == nil {
		t.Error("expected error scanning unsupported type")
	}
}

func TestLockedError_UnwrapsToErrAccountLocked(t *testing.T) {
	err := &LockedError{Until: time.Date(2024, 1, 1, 0, 15, 0, 0, time.UTC), RetryAfter: 15 * time.Minute}

	if !errors.Is(err, ErrAccountLocked) {
		t.Error("expected LockedError to match ErrAccountLocked")
	}
	if err.Error() != "account is temporarily locked until 2024-01-01T00:15:00Z" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
