package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/lockgate/internal/auth"
	"github.com/BradenHooton/lockgate/internal/metrics"
	"github.com/BradenHooton/lockgate/internal/models"
	pkgauth "github.com/BradenHooton/lockgate/pkg/auth"
)

// UserRepository looks up accounts by email
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AccountLockout is the lockout surface the login flow depends on
type AccountLockout interface {
	Check(ctx context.Context, accountID string) error
	RegisterFailure(ctx context.Context, accountID, origin string) (models.SecurityState, error)
	RegisterSuccess(ctx context.Context, accountID string) error
	LockedError(state models.SecurityState) error
}

// LoginRateLimiter throttles and records login attempts by origin
type LoginRateLimiter interface {
	CheckRateLimit(ctx context.Context, ipAddress, userAgent string) error
	RecordLoginAttempt(ctx context.Context, email, ipAddress, userAgent string, success bool, failureReason *string) error
}

// LoginAuditor writes login attempts to the audit trail
type LoginAuditor interface {
	LogLoginAttempt(ctx context.Context, attempt LoginAudit)
}

// TokenIssuer issues access tokens
type TokenIssuer interface {
	GenerateAccessToken(userID, email, role string) (string, error)
}

// LoginInput carries credentials and the request origin
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// AuthResponse is returned on successful login
type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	User        *UserResponse `json:"user"`
}

// AuthService implements password login guarded by origin throttling and account lockout
type AuthService struct {
	repo              UserRepository
	lockout           AccountLockout
	rateLimiter       LoginRateLimiter
	auditor           LoginAuditor
	tokens            TokenIssuer
	timing            *auth.TimingDelay
	accessTokenExpiry time.Duration
	metrics           *metrics.Metrics
	logger            *slog.Logger
}

// AuthServiceDeps groups AuthService collaborators
type AuthServiceDeps struct {
	Users             UserRepository
	Lockout           AccountLockout
	RateLimiter       LoginRateLimiter
	Auditor           LoginAuditor
	Tokens            TokenIssuer
	Timing            *auth.TimingDelay
	AccessTokenExpiry time.Duration
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(deps AuthServiceDeps) *AuthService {
	timing := deps.Timing
	if timing == nil {
		timing = auth.NoDelay()
	}

	return &AuthService{
		repo:              deps.Users,
		lockout:           deps.Lockout,
		rateLimiter:       deps.RateLimiter,
		auditor:           deps.Auditor,
		tokens:            deps.Tokens,
		timing:            timing,
		accessTokenExpiry: deps.AccessTokenExpiry,
		metrics:           deps.Metrics,
		logger:            deps.Logger,
	}
}

// Login authenticates a user. Errors:
//   - models.ErrRateLimitExceeded when the origin is throttled
//   - *models.LockedError (wrapping models.ErrAccountLocked) when the account is locked,
//     including when this attempt triggered the lock
//   - models.ErrUnauthorized, models.ErrAccountDisabled, models.ErrAccountSuspended for
//     rejected credentials or account state
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	start := time.Now()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		s.logger.WarnContext(ctx, "login attempt with empty email")
		return nil, models.ErrUnauthorized
	}

	if err := s.rateLimiter.CheckRateLimit(ctx, in.IPAddress, in.UserAgent); err != nil {
		s.recordAttempt(ctx, in, email, "", false, models.FailureReasonRateLimited)
		s.metrics.ObserveLogin(metrics.OutcomeRateLimited)
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.InfoContext(ctx, "login failed: invalid credentials")
			s.recordAttempt(ctx, in, email, "", false, models.FailureReasonInvalidCredentials)
			s.metrics.ObserveLogin(metrics.OutcomeInvalidCredentials)
			s.timing.WaitFrom(start, false)
			return nil, models.ErrUnauthorized
		}
		s.logger.ErrorContext(ctx, "failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user); err != nil {
		s.logger.InfoContext(ctx, "login blocked due to account state",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status))
		s.recordAttempt(ctx, in, email, user.ID, false, models.FailureReasonAccountBlocked)
		s.metrics.ObserveLogin(metrics.OutcomeBlocked)
		s.timing.WaitFrom(start, false)
		return nil, err
	}

	// lock check comes before the password so a locked account answers the
	// same way for right and wrong passwords
	if err := s.lockout.Check(ctx, user.ID); err != nil {
		var locked *models.LockedError
		if errors.As(err, &locked) {
			s.recordAttempt(ctx, in, email, user.ID, false, models.FailureReasonAccountLocked)
			s.metrics.ObserveLogin(metrics.OutcomeLocked)
			s.timing.WaitFrom(start, false)
			return nil, err
		}
		s.logger.ErrorContext(ctx, "failed to check lockout state", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, in.Password); err != nil {
		return nil, s.handleBadPassword(ctx, in, email, user, start)
	}

	if err := s.lockout.RegisterSuccess(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to reset lockout state", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	s.recordAttempt(ctx, in, email, user.ID, true, "")
	s.metrics.ObserveLogin(metrics.OutcomeSuccess)
	s.timing.WaitFrom(start, true)

	return &AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTokenExpiry.Seconds()),
		User:        userModelToResponse(user),
	}, nil
}

func (s *AuthService) handleBadPassword(ctx context.Context, in LoginInput, email string, user *models.User, start time.Time) error {
	state, err := s.lockout.RegisterFailure(ctx, user.ID, in.IPAddress)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to register failed attempt", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "login failed: invalid credentials",
		slog.String("user_id", user.ID),
		slog.Int("failed_attempts", state.FailedAttemptCount))
	s.recordAttempt(ctx, in, email, user.ID, false, models.FailureReasonInvalidCredentials)

	if lockedErr := s.lockout.LockedError(state); lockedErr != nil {
		s.metrics.ObserveLogin(metrics.OutcomeLocked)
		s.timing.WaitFrom(start, false)
		return lockedErr
	}

	s.metrics.ObserveLogin(metrics.OutcomeInvalidCredentials)
	s.timing.WaitFrom(start, false)
	return models.ErrUnauthorized
}

// recordAttempt writes the attempt history and the audit trail. Neither may fail the login.
func (s *AuthService) recordAttempt(ctx context.Context, in LoginInput, email, userID string, success bool, reason string) {
	var failureReason *string
	if reason != "" {
		failureReason = &reason
	}

	if err := s.rateLimiter.RecordLoginAttempt(ctx, email, in.IPAddress, in.UserAgent, success, failureReason); err != nil {
		s.logger.ErrorContext(ctx, "failed to record login attempt", slog.Any("error", err))
	}

	if s.auditor != nil {
		s.auditor.LogLoginAttempt(ctx, LoginAudit{
			AccountID:     userID,
			Email:         email,
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			Success:       success,
			FailureReason: reason,
		})
	}
}

func validateAccountState(user *models.User) error {
	switch user.Status {
	case models.UserStatusActive:
		return nil
	case models.UserStatusSuspended:
		return models.ErrAccountSuspended
	case models.UserStatusDisabled:
		return models.ErrAccountDisabled
	default:
		return models.ErrAccountDisabled
	}
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
}
