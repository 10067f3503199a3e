package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/lockgate/internal/models"
)

// AdminUserRepository is the subset of UserRepository methods needed by AdminService.
type AdminUserRepository interface {
	CountLocked(ctx context.Context, now time.Time) (int64, error)
}

// AdminAuditRepository is the subset of AuditLogRepository methods needed by AdminService.
type AdminAuditRepository interface {
	GetRecentByEventType(ctx context.Context, eventType string, limit int) ([]*models.AuditLog, error)
	CountByEventTypeSince(ctx context.Context, eventType string, since time.Time) (int64, error)
}

// LockoutStatsResponse contains aggregate lockout metrics for the admin dashboard.
type LockoutStatsResponse struct {
	LockedAccounts int64 `json:"locked_accounts"`
	LockoutsToday  int64 `json:"lockouts_today"`
	UnlocksToday   int64 `json:"unlocks_today"`
	FailedToday    int64 `json:"failed_logins_today"`
}

// ActivityEntry is a single item in a recent-activity feed.
type ActivityEntry struct {
	Timestamp string                 `json:"timestamp"`
	AccountID *string                `json:"account_id,omitempty"`
	ActorID   *string                `json:"actor_id,omitempty"`
	EventType string                 `json:"event_type"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// LockoutActivityResponse contains recent lockout and unlock feeds.
type LockoutActivityResponse struct {
	RecentLockouts []ActivityEntry `json:"recent_lockouts"`
	RecentUnlocks  []ActivityEntry `json:"recent_unlocks"`
}

// AdminService aggregates lockout data for admin dashboard endpoints.
type AdminService struct {
	userRepo  AdminUserRepository
	auditRepo AdminAuditRepository
	now       func() time.Time
	logger    *slog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(userRepo AdminUserRepository, auditRepo AdminAuditRepository, logger *slog.Logger) *AdminService {
	return &AdminService{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		now:       time.Now,
		logger:    logger,
	}
}

// GetLockoutStats returns current and same-day lockout counts.
func (s *AdminService) GetLockoutStats(ctx context.Context) (*LockoutStatsResponse, error) {
	now := s.now()
	today := now.UTC().Truncate(24 * time.Hour)

	locked, err := s.userRepo.CountLocked(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "dashboard: failed to count locked accounts", slog.Any("error", err))
		return nil, err
	}

	counts := make(map[string]int64, 3)
	for _, eventType := range []string{models.AuditEventTypeLockout, models.AuditEventTypeUnlock, models.AuditEventTypeLogin} {
		n, err := s.auditRepo.CountByEventTypeSince(ctx, eventType, today)
		if err != nil {
			s.logger.ErrorContext(ctx, "dashboard: failed to count audit events",
				slog.String("event_type", eventType), slog.Any("error", err))
			return nil, err
		}
		counts[eventType] = n
	}

	return &LockoutStatsResponse{
		LockedAccounts: locked,
		LockoutsToday:  counts[models.AuditEventTypeLockout],
		UnlocksToday:   counts[models.AuditEventTypeUnlock],
		FailedToday:    counts[models.AuditEventTypeLogin],
	}, nil
}

// GetRecentActivity returns recent lockout and unlock feeds.
// limit is clamped to a maximum of 20.
func (s *AdminService) GetRecentActivity(ctx context.Context, limit int) (*LockoutActivityResponse, error) {
	if limit <= 0 || limit > 20 {
		limit = 20
	}

	lockouts, err := s.auditRepo.GetRecentByEventType(ctx, models.AuditEventTypeLockout, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "dashboard: failed to fetch recent lockouts", slog.Any("error", err))
		return nil, err
	}

	unlocks, err := s.auditRepo.GetRecentByEventType(ctx, models.AuditEventTypeUnlock, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "dashboard: failed to fetch recent unlocks", slog.Any("error", err))
		return nil, err
	}

	return &LockoutActivityResponse{
		RecentLockouts: toActivityEntries(lockouts),
		RecentUnlocks:  toActivityEntries(unlocks),
	}, nil
}

func toActivityEntries(logs []*models.AuditLog) []ActivityEntry {
	entries := make([]ActivityEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, ActivityEntry{
			Timestamp: l.CreatedAt.UTC().Format(time.RFC3339),
			AccountID: l.TargetID,
			ActorID:   l.ActorID,
			EventType: l.EventType,
			Metadata:  l.Metadata,
		})
	}
	return entries
}
