package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/BradenHooton/lockgate/internal/auth"
	"github.com/BradenHooton/lockgate/internal/database"
	"github.com/BradenHooton/lockgate/internal/handlers"
	"github.com/BradenHooton/lockgate/internal/lockout"
	"github.com/BradenHooton/lockgate/internal/metrics"
	"github.com/BradenHooton/lockgate/internal/repositories"
	"github.com/BradenHooton/lockgate/internal/routes"
	"github.com/BradenHooton/lockgate/internal/services"
	pkghttp "github.com/BradenHooton/lockgate/pkg/http"
)

const testJWTSecret = "test-secret-32-characters-long-for-testing"

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server  *httptest.Server
	DB      *database.DB
	Email   *services.MockEmailSender
	Tokens  *auth.TokenManager
	Lockout *services.LockoutService
	Metrics *metrics.Metrics
}

// NewTestServer wires the production stack against the test database with the
// PostgreSQL lockout store and a recording email sender.
func NewTestServer(db *database.DB, policy lockout.Config) (*TestServer, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	p, err := lockout.NewPolicy(policy)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	userRepo := repositories.NewUserRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)

	email := &services.MockEmailSender{}
	auditService := services.NewAuditService(auditRepo, logger)
	fanout := services.NewAuditFanout(logger, m,
		services.NamedSink{Name: "db", Sink: auditService},
		services.NamedSink{Name: "email", Sink: services.NewLockoutNotifier(email, userRepo)},
	)

	lockoutService := services.NewLockoutService(p, repositories.NewSecurityStateRepository(db), fanout, m, logger)
	rateLimitService := services.NewRateLimitService(loginAttemptRepo, services.RateLimitConfig{
		MaxAttemptsPerIP:     1000,
		MaxAttemptsPerDevice: 1000,
		LookbackWindow:       time.Hour,
	}, logger)
	tokenManager := auth.NewTokenManager(testJWTSecret, "lockgate", 15*time.Minute)

	authService := services.NewAuthService(services.AuthServiceDeps{
		Users:             userRepo,
		Lockout:           lockoutService,
		RateLimiter:       rateLimitService,
		Auditor:           auditService,
		Tokens:            tokenManager,
		Timing:            auth.NoDelay(),
		AccessTokenExpiry: 15 * time.Minute,
		Metrics:           m,
		Logger:            logger,
	})
	userService := services.NewUserService(userRepo, logger)
	ipConfig := pkghttp.NewIPConfig(nil)

	router := routes.NewRouter(routes.Dependencies{
		AuthHandler:            handlers.NewAuthHandler(authService, ipConfig),
		AccountHandler:         handlers.NewAccountHandler(lockoutService, userService, ipConfig, logger),
		AuditHandler:           handlers.NewAuditHandler(auditService, logger),
		AdminHandler:           handlers.NewAdminHandler(services.NewAdminService(userRepo, auditRepo, logger)),
		TokenManager:           tokenManager,
		UserRepo:               userRepo,
		IPConfig:               ipConfig,
		LoginRequestsPerMinute: 1000,
		AdminRequestsPerMinute: 1000,
		Metrics:                m.Handler(),
		HealthChecks:           []routes.HealthCheck{{Name: "database", Check: db.HealthCheck}},
		Env:                    "test",
		Logger:                 logger,
	})

	return &TestServer{
		Server:  httptest.NewServer(router),
		DB:      db,
		Email:   email,
		Tokens:  tokenManager,
		Lockout: lockoutService,
		Metrics: m,
	}, nil
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	return ts.Request(method, path, body, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
}

// Login posts credentials to /auth/login
func (ts *TestServer) Login(email, password string) (*http.Response, error) {
	return ts.Request(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// GetErrorResponse decodes a standard error body
func GetErrorResponse(resp *http.Response) (pkghttp.ErrorResponse, error) {
	var errResp pkghttp.ErrorResponse
	err := ParseJSONResponse(resp, &errResp)
	return errResp, err
}
