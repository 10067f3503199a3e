package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/BradenHooton/lockgate/internal/models"
)

// RateLimitRepository stores the login attempt history
type RateLimitRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	GetFailedAttemptCountByIP(ctx context.Context, ipAddress string, since time.Time) (int, error)
	GetFailedAttemptCountByDevice(ctx context.Context, fingerprint string, since time.Time) (int, error)
}

// RateLimitConfig holds the origin throttling limits. These are independent of
// the per-account lockout counter.
type RateLimitConfig struct {
	MaxAttemptsPerIP     int
	MaxAttemptsPerDevice int
	LookbackWindow       time.Duration
}

// RateLimitService throttles login attempts per IP and per device fingerprint
type RateLimitService struct {
	repo   RateLimitRepository
	config RateLimitConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(repo RateLimitRepository, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		repo:   repo,
		config: config,
		now:    time.Now,
		logger: logger,
	}
}

// CheckRateLimit returns models.ErrRateLimitExceeded when the origin has too many
// recent failures. Lookup errors fail open so a database hiccup cannot lock
// everyone out; the per-account lockout still applies.
func (s *RateLimitService) CheckRateLimit(ctx context.Context, ipAddress, userAgent string) error {
	lookbackTime := s.now().Add(-s.config.LookbackWindow)

	ipAttempts, err := s.repo.GetFailedAttemptCountByIP(ctx, ipAddress, lookbackTime)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check IP rate limit", slog.Any("error", err))
		return nil
	}

	if ipAttempts >= s.config.MaxAttemptsPerIP {
		s.logger.WarnContext(ctx, "IP rate limited",
			slog.String("ip_address", ipAddress),
			slog.Int("failed_attempts", ipAttempts))
		return models.ErrRateLimitExceeded
	}

	deviceFingerprint := generateDeviceFingerprint(ipAddress, userAgent)
	deviceAttempts, err := s.repo.GetFailedAttemptCountByDevice(ctx, deviceFingerprint, lookbackTime)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check device rate limit", slog.Any("error", err))
		return nil
	}

	if deviceAttempts >= s.config.MaxAttemptsPerDevice {
		s.logger.WarnContext(ctx, "device rate limited",
			slog.String("device_fingerprint", deviceFingerprint),
			slog.Int("failed_attempts", deviceAttempts))
		return models.ErrRateLimitExceeded
	}

	return nil
}

// RecordLoginAttempt appends an attempt to the history. Records expire after
// twice the lookback window.
func (s *RateLimitService) RecordLoginAttempt(ctx context.Context, email, ipAddress, userAgent string, success bool, failureReason *string) error {
	attempt := &models.LoginAttempt{
		Email:             email,
		IPAddress:         ipAddress,
		UserAgent:         userAgent,
		Success:           success,
		FailureReason:     failureReason,
		DeviceFingerprint: generateDeviceFingerprint(ipAddress, userAgent),
		ExpiresAt:         s.now().Add(s.config.LookbackWindow * 2),
	}

	return s.repo.RecordAttempt(ctx, attempt)
}

// generateDeviceFingerprint hashes IP + User-Agent into a 32 char identifier
func generateDeviceFingerprint(ipAddress, userAgent string) string {
	hash := sha256.Sum256([]byte(ipAddress + ":" + userAgent))
	return hex.EncodeToString(hash[:])[:32]
}
