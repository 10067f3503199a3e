package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/BradenHooton/lockgate/internal/lockout"
	"github.com/BradenHooton/lockgate/internal/metrics"
	"github.com/BradenHooton/lockgate/internal/models"
)

// SecurityStateStore loads and atomically updates per-account lockout state.
// Update must run load, fn and save as one serialized unit for the account.
type SecurityStateStore interface {
	Get(ctx context.Context, accountID string) (models.SecurityState, error)
	Update(ctx context.Context, accountID string, fn func(models.SecurityState) (models.SecurityState, error)) (models.SecurityState, error)
}

// LockoutStatus is the admin view of an account's lockout state
type LockoutStatus struct {
	AccountID         string     `json:"account_id"`
	Locked            bool       `json:"locked"`
	FailedAttempts    int        `json:"failed_attempts"`
	RemainingAttempts int        `json:"remaining_attempts"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
	RetryAfterSeconds int64      `json:"retry_after_seconds"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	Threshold         int        `json:"threshold"`
	LockoutDuration   string     `json:"lockout_duration"`
}

// LockoutService applies the lockout policy to stored account state and
// emits audit events for lock and unlock transitions.
type LockoutService struct {
	policy  *lockout.Policy
	store   SecurityStateStore
	sink    AuditSink
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewLockoutService creates a new LockoutService using the wall clock
func NewLockoutService(policy *lockout.Policy, store SecurityStateStore, sink AuditSink, m *metrics.Metrics, logger *slog.Logger) *LockoutService {
	return &LockoutService{
		policy:  policy,
		store:   store,
		sink:    sink,
		now:     time.Now,
		metrics: m,
		logger:  logger,
	}
}

// WithClock replaces the time source
func (s *LockoutService) WithClock(now func() time.Time) *LockoutService {
	s.now = now
	return s
}

// Check returns a *models.LockedError if the account is currently locked.
// Callers must run it before verifying credentials.
func (s *LockoutService) Check(ctx context.Context, accountID string) error {
	state, err := s.store.Get(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load security state: %w", err)
	}

	return s.LockedError(state)
}

// LockedError returns a *models.LockedError if state is locked now, nil otherwise
func (s *LockoutService) LockedError(state models.SecurityState) error {
	now := s.now()
	if !s.policy.IsLocked(state, now) {
		return nil
	}

	return &models.LockedError{
		Until:      *state.LockedUntil,
		RetryAfter: s.policy.RetryAfter(state, now),
	}
}

// RegisterFailure records a failed credential check. If this failure starts a
// lock, a lockout event is emitted and the returned state carries LockedUntil.
func (s *LockoutService) RegisterFailure(ctx context.Context, accountID, origin string) (models.SecurityState, error) {
	started := time.Now()
	now := s.now()

	var before models.SecurityState
	after, err := s.store.Update(ctx, accountID, func(current models.SecurityState) (models.SecurityState, error) {
		before = current
		return s.policy.RecordFailure(current, now), nil
	})
	s.metrics.ObserveStoreUpdate("register_failure", started)
	if err != nil {
		return models.SecurityState{}, fmt.Errorf("failed to record failed attempt: %w", err)
	}

	if s.policy.LockTriggered(before, after, now) {
		s.metrics.ObserveLockout()
		s.logger.WarnContext(ctx, "account locked",
			slog.String("account_id", accountID),
			slog.Int("failed_attempts", after.FailedAttemptCount),
			slog.Time("locked_until", *after.LockedUntil),
		)

		s.emit(ctx, models.LockoutEvent{
			AccountID:   accountID,
			Timestamp:   now,
			Kind:        models.LockoutEventLockout,
			Origin:      origin,
			LockedUntil: s.policy.UnlockTime(after),
			Attempts:    after.FailedAttemptCount,
		})
	}

	return after, nil
}

// RegisterSuccess resets the failure counter and records the login time
func (s *LockoutService) RegisterSuccess(ctx context.Context, accountID string) error {
	started := time.Now()
	now := s.now()

	_, err := s.store.Update(ctx, accountID, func(current models.SecurityState) (models.SecurityState, error) {
		return s.policy.RecordSuccess(current, now), nil
	})
	s.metrics.ObserveStoreUpdate("register_success", started)
	if err != nil {
		return fmt.Errorf("failed to record successful login: %w", err)
	}

	return nil
}

// Unlock clears the lock and the counter on an administrator's request.
// An unlock event is emitted even if the account was not locked.
func (s *LockoutService) Unlock(ctx context.Context, accountID, actorID, origin string) error {
	started := time.Now()
	now := s.now()

	var before models.SecurityState
	_, err := s.store.Update(ctx, accountID, func(current models.SecurityState) (models.SecurityState, error) {
		before = current
		return s.policy.Unlock(current), nil
	})
	s.metrics.ObserveStoreUpdate("unlock", started)
	if err != nil {
		return fmt.Errorf("failed to unlock account: %w", err)
	}

	s.metrics.ObserveUnlock()
	s.logger.InfoContext(ctx, "account unlocked",
		slog.String("account_id", accountID),
		slog.String("actor_id", actorID),
		slog.Bool("was_locked", s.policy.IsLocked(before, now)),
	)

	s.emit(ctx, models.LockoutEvent{
		AccountID: accountID,
		Timestamp: now,
		Kind:      models.LockoutEventUnlock,
		Origin:    origin,
		ActorID:   actorID,
		Attempts:  before.FailedAttemptCount,
	})

	return nil
}

// Status reports the account's current lockout state
func (s *LockoutService) Status(ctx context.Context, accountID string) (*LockoutStatus, error) {
	state, err := s.store.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load security state: %w", err)
	}

	now := s.now()
	status := &LockoutStatus{
		AccountID:         accountID,
		Locked:            s.policy.IsLocked(state, now),
		FailedAttempts:    state.FailedAttemptCount,
		RemainingAttempts: s.policy.RemainingAttempts(state, now),
		RetryAfterSeconds: int64(math.Ceil(s.policy.RetryAfter(state, now).Seconds())),
		LastLoginAt:       state.LastLoginAt,
		Threshold:         s.policy.Threshold(),
		LockoutDuration:   s.policy.Duration().String(),
	}
	if status.Locked {
		status.LockedUntil = s.policy.UnlockTime(state)
	}

	return status, nil
}

func (s *LockoutService) emit(ctx context.Context, event models.LockoutEvent) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit lockout event",
			slog.String("kind", event.Kind),
			slog.String("account_id", event.AccountID),
			slog.Any("error", err),
		)
	}
}
