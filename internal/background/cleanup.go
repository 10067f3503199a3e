package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AttemptPurger removes login attempt history past its expiry
type AttemptPurger interface {
	DeleteExpiredAttempts(ctx context.Context) (int64, error)
}

// AuditPurger removes audit logs older than a retention window
type AuditPurger interface {
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

// LockedCounter counts accounts whose lock is still active
type LockedCounter interface {
	CountLocked(ctx context.Context, now time.Time) (int64, error)
}

// LockedGauge receives the locked-account count
type LockedGauge interface {
	SetLockedAccounts(n int64)
}

// CleanupConfig wires the cleanup manager's collaborators
type CleanupConfig struct {
	Attempts      AttemptPurger
	Audit         AuditPurger
	Locked        LockedCounter
	Gauge         LockedGauge
	RetentionDays int
	Interval      time.Duration
	Logger        *slog.Logger
}

// CleanupManager periodically purges attempt history and old audit logs and
// refreshes the locked-accounts gauge. Lock expiry itself is lazy and needs no sweep.
type CleanupManager struct {
	cfg      CleanupConfig
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(cfg CleanupConfig) *CleanupManager {
	return &CleanupManager{
		cfg:    cfg,
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.cfg.Interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.cfg.Logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.cfg.Logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce performs a single cleanup pass. Each step is independent; a failure
// is logged and the remaining steps still run.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if cm.cfg.Attempts != nil {
		rows, err := cm.cfg.Attempts.DeleteExpiredAttempts(cleanupCtx)
		if err != nil {
			cm.cfg.Logger.Error("failed to cleanup expired login attempts", slog.Any("error", err))
		} else if rows > 0 {
			cm.cfg.Logger.Info("expired login attempts removed", slog.Int64("rows_deleted", rows))
		}
	}

	if cm.cfg.Audit != nil && cm.cfg.RetentionDays > 0 {
		rows, err := cm.cfg.Audit.Cleanup(cleanupCtx, cm.cfg.RetentionDays)
		if err != nil {
			cm.cfg.Logger.Error("failed to cleanup audit logs", slog.Any("error", err))
		} else if rows > 0 {
			cm.cfg.Logger.Info("old audit logs removed",
				slog.Int64("rows_deleted", rows),
				slog.Int("retention_days", cm.cfg.RetentionDays))
		}
	}

	if cm.cfg.Locked != nil && cm.cfg.Gauge != nil {
		n, err := cm.cfg.Locked.CountLocked(cleanupCtx, cm.now())
		if err != nil {
			cm.cfg.Logger.Error("failed to count locked accounts", slog.Any("error", err))
			return
		}
		cm.cfg.Gauge.SetLockedAccounts(n)
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
