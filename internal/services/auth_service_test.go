package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/lockgate/internal/auth"
	"github.com/BradenHooton/lockgate/internal/lockout"
	"github.com/BradenHooton/lockgate/internal/metrics"
	"github.com/BradenHooton/lockgate/internal/models"
	pkgauth "github.com/BradenHooton/lockgate/pkg/auth"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "user@example.com"
	testPassword = "SecureP@ss123"
	testIP       = "203.0.113.10"
)

type authFixture struct {
	service  *AuthService
	users    *MockUserRepository
	store    *MockSecurityStateStore
	sink     *MockAuditSink
	attempts *MockRateLimitRepository
	audit    *MockAuditLogRepository
	clock    *FixedClock
	metrics  *metrics.Metrics
	user     *models.User
	delays   []time.Duration
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	hash, err := pkgauth.HashPasswordWithCost(testPassword, bcrypt.MinCost)
	require.NoError(t, err)

	policy, err := lockout.NewPolicy(lockout.Config{Threshold: 5, Duration: 15 * time.Minute})
	require.NoError(t, err)

	f := &authFixture{
		store:    NewMockSecurityStateStore(),
		sink:     &MockAuditSink{},
		attempts: &MockRateLimitRepository{},
		audit:    &MockAuditLogRepository{},
		clock:    NewFixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		metrics:  metrics.New(),
		user:     NewTestUser("acct-1", testEmail, hash),
	}
	f.store.Put(f.user.ID, models.SecurityState{})
	f.users = &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			if email == f.user.Email {
				return f.user, nil
			}
			return nil, models.ErrNotFound
		},
	}

	logger := NewTestLogger()
	lockoutSvc := NewLockoutService(policy, f.store, f.sink, f.metrics, logger).WithClock(f.clock.Now)
	rateLimiter := NewRateLimitService(f.attempts, RateLimitConfig{
		MaxAttemptsPerIP:     20,
		MaxAttemptsPerDevice: 10,
		LookbackWindow:       15 * time.Minute,
	}, logger)

	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 100}).WithSleep(func(d time.Duration) {
		f.delays = append(f.delays, d)
	})

	f.service = NewAuthService(AuthServiceDeps{
		Users:             f.users,
		Lockout:           lockoutSvc,
		RateLimiter:       rateLimiter,
		Auditor:           NewAuditService(f.audit, logger),
		Tokens:            &MockTokenIssuer{},
		Timing:            timing,
		AccessTokenExpiry: 15 * time.Minute,
		Metrics:           f.metrics,
		Logger:            logger,
	})
	return f
}

func (f *authFixture) login(password string) (*AuthResponse, error) {
	return f.service.Login(context.Background(), LoginInput{
		Email:     testEmail,
		Password:  password,
		IPAddress: testIP,
		UserAgent: "test-agent",
	})
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.login(testPassword)

	require.NoError(t, err)
	assert.Equal(t, "access-token-acct-1", resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	assert.Equal(t, "acct-1", resp.User.ID)

	state := f.store.State("acct-1")
	require.NotNil(t, state.LastLoginAt)
	assert.Equal(t, 0, state.FailedAttemptCount)

	require.Len(t, f.attempts.Attempts, 1)
	assert.True(t, f.attempts.Attempts[0].Success)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestAuthService_Login_NormalizesEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Login(context.Background(), LoginInput{Email: "  USER@Example.com ", Password: testPassword})

	assert.NoError(t, err)
}

func TestAuthService_Login_WrongPasswordCounts(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.login("wrong")

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Equal(t, 1, f.store.State("acct-1").FailedAttemptCount)
	require.Len(t, f.attempts.Attempts, 1)
	assert.Equal(t, models.FailureReasonInvalidCredentials, *f.attempts.Attempts[0].FailureReason)
}

func TestAuthService_Login_FifthFailureReturnsLocked(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < 4; i++ {
		_, err := f.login("wrong")
		require.ErrorIs(t, err, models.ErrUnauthorized)
	}

	_, err := f.login("wrong")

	var locked *models.LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 15*time.Minute, locked.RetryAfter)
	assert.Len(t, f.sink.Recorded(), 1)
}

func TestAuthService_Login_LockedRejectsCorrectPasswordIdentically(t *testing.T) {
	f := newAuthFixture(t)
	for i := 0; i < 5; i++ {
		_, _ = f.login("wrong")
	}
	f.clock.Advance(time.Minute)

	_, errRight := f.login(testPassword)
	_, errWrong := f.login("wrong")

	require.ErrorIs(t, errRight, models.ErrAccountLocked)
	require.ErrorIs(t, errWrong, models.ErrAccountLocked)
	assert.Equal(t, errRight.Error(), errWrong.Error())

	// neither attempt touched the counter; the password was never checked
	assert.Equal(t, 5, f.store.State("acct-1").FailedAttemptCount)
	assert.Nil(t, f.store.State("acct-1").LastLoginAt)
}

func TestAuthService_Login_LockedResponsesArePadded(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.login(testPassword)
	require.NoError(t, err)
	assert.Empty(t, f.delays, "success is not padded")

	for i := 0; i < 4; i++ {
		_, _ = f.login("wrong")
	}
	require.Len(t, f.delays, 4)

	_, err = f.login("wrong")
	require.ErrorIs(t, err, models.ErrAccountLocked)
	assert.Len(t, f.delays, 5, "the failure that triggers the lock is padded")

	_, err = f.login(testPassword)
	require.ErrorIs(t, err, models.ErrAccountLocked)
	assert.Len(t, f.delays, 6, "a rejected login on a locked account is padded")
	for _, d := range f.delays {
		assert.Greater(t, d, time.Duration(0))
	}
}

func TestAuthService_Login_SucceedsAfterLockExpires(t *testing.T) {
	f := newAuthFixture(t)
	for i := 0; i < 5; i++ {
		_, _ = f.login("wrong")
	}

	f.clock.Advance(15 * time.Minute)
	resp, err := f.login(testPassword)

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	state := f.store.State("acct-1")
	assert.Equal(t, 0, state.FailedAttemptCount)
	assert.Nil(t, state.LockedUntil)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "x", IPAddress: testIP})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	require.Len(t, f.attempts.Attempts, 1)
	assert.Equal(t, "ghost@example.com", f.attempts.Attempts[0].Email)
	assert.Equal(t, 0, f.store.Updates)
}

func TestAuthService_Login_EmptyEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Login(context.Background(), LoginInput{Email: "   ", Password: "x"})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Empty(t, f.attempts.Attempts)
}

func TestAuthService_Login_BlockedStatuses(t *testing.T) {
	for status, want := range map[string]error{
		models.UserStatusDisabled:  models.ErrAccountDisabled,
		models.UserStatusSuspended: models.ErrAccountSuspended,
	} {
		t.Run(status, func(t *testing.T) {
			f := newAuthFixture(t)
			f.user.Status = status

			_, err := f.login(testPassword)

			assert.ErrorIs(t, err, want)
			assert.Equal(t, 0, f.store.Updates)
		})
	}
}

func TestAuthService_Login_RateLimitedOrigin(t *testing.T) {
	f := newAuthFixture(t)
	f.attempts.IPCountFunc = func(ctx context.Context, ip string, since time.Time) (int, error) {
		return 20, nil
	}

	_, err := f.login(testPassword)

	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
	assert.Equal(t, 0, f.store.Updates)
	require.Len(t, f.attempts.Attempts, 1)
	assert.Equal(t, models.FailureReasonRateLimited, *f.attempts.Attempts[0].FailureReason)
}

func TestAuthService_Login_StoreFailureIsInternal(t *testing.T) {
	f := newAuthFixture(t)
	f.store.UpdateErr = errors.New("db down")

	_, err := f.login("wrong")

	assert.Equal(t, models.ErrInternalServer, err, "store error text must not leak")
}

func TestAuthService_Login_AttemptHistoryFailureDoesNotFailLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.attempts.RecordAttemptErr = errors.New("insert failed")

	_, err := f.login(testPassword)

	assert.NoError(t, err)
}

func TestValidateAccountState(t *testing.T) {
	assert.NoError(t, validateAccountState(&models.User{Status: models.UserStatusActive}))
	assert.ErrorIs(t, validateAccountState(&models.User{Status: "weird"}), models.ErrAccountDisabled)
}
