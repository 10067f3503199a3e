package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/lockgate/internal/models"
	pkglogger "github.com/BradenHooton/lockgate/pkg/logger"
)

// AuditLogRepository persists audit log entries
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	GetByTargetID(ctx context.Context, targetID string, limit int, offset int) ([]*models.AuditLog, error)
	CountByTargetID(ctx context.Context, targetID string) (int64, error)
}

// AuditService handles audit logging with dual-write pattern (slog + database)
type AuditService struct {
	repo        AuditLogRepository
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo AuditLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:        repo,
		auditLogger: pkglogger.NewAuditLogger(logger),
		logger:      logger,
	}
}

// Emit records a lockout or unlock event. The log line is always written;
// a failed database insert is returned so the caller can count it.
func (s *AuditService) Emit(ctx context.Context, event models.LockoutEvent) error {
	s.auditLogger.LogLockoutEvent(ctx, pkglogger.LockoutAudit{
		Kind:        event.Kind,
		AccountID:   event.AccountID,
		ActorID:     event.ActorID,
		Origin:      event.Origin,
		Attempts:    event.Attempts,
		LockedUntil: event.LockedUntil,
		Timestamp:   event.Timestamp,
	})

	entry := &models.AuditLog{
		EventType: models.AuditEventTypeLockout,
		Action:    models.AuditActionLock,
		TargetID:  stringPtr(event.AccountID),
		Success:   true,
		Metadata:  models.NewLockoutMetadata(event),
	}
	if event.Kind == models.LockoutEventUnlock {
		entry.EventType = models.AuditEventTypeUnlock
		entry.Action = models.AuditActionUnlock
	}
	if event.ActorID != "" {
		entry.ActorID = stringPtr(event.ActorID)
	}
	if event.Origin != "" {
		entry.IPAddress = stringPtr(event.Origin)
	}

	if _, err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to persist %s audit log: %w", event.Kind, err)
	}

	return nil
}

// LoginAudit describes one login attempt for the audit trail
type LoginAudit struct {
	AccountID     string
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
}

// LogLoginAttempt writes a login attempt to the log and, when the account is
// known, to the account's audit trail. Persistence failures are logged only.
func (s *AuditService) LogLoginAttempt(ctx context.Context, attempt LoginAudit) {
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     models.AuditEventTypeLogin,
		UserID:        attempt.AccountID,
		Email:         attempt.Email,
		IPAddress:     attempt.IPAddress,
		UserAgent:     attempt.UserAgent,
		Success:       attempt.Success,
		FailureReason: attempt.FailureReason,
	})

	if attempt.AccountID == "" {
		return
	}

	entry := &models.AuditLog{
		EventType: models.AuditEventTypeLogin,
		ActorID:   stringPtr(attempt.AccountID),
		TargetID:  stringPtr(attempt.AccountID),
		Action:    models.AuditActionAccess,
		Success:   attempt.Success,
		IPAddress: optionalString(attempt.IPAddress),
		UserAgent: optionalString(attempt.UserAgent),
	}
	if !attempt.Success {
		entry.FailureReason = optionalString(attempt.FailureReason)
	}

	if _, err := s.repo.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("event_type", models.AuditEventTypeLogin),
			slog.Any("error", err),
		)
	}
}

// GetAccountAuditTrail returns an account's audit entries, newest first, and the total count
func (s *AuditService) GetAccountAuditTrail(ctx context.Context, accountID string, limit int, offset int) ([]*models.AuditLog, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.repo.GetByTargetID(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get account audit trail: %w", err)
	}

	total, err := s.repo.CountByTargetID(ctx, accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	return logs, total, nil
}

func stringPtr(s string) *string {
	return &s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
