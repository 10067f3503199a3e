package handlers_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/lockgate/internal/handlers"
	"github.com/BradenHooton/lockgate/internal/models"
	"github.com/BradenHooton/lockgate/internal/services"
	pkghttp "github.com/BradenHooton/lockgate/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error) {
			return &services.AuthResponse{AccessToken: "access_token_123", TokenType: "Bearer", ExpiresIn: 900}, nil
		},
	}
	handler := handlers.NewAuthHandler(mockAuth, pkghttp.NewIPConfig(nil))

	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "  User@Example.com ",
		Password: "password123",
	})
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("User-Agent", "curl/8.0")
	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp services.AuthResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "access_token_123", resp.AccessToken)

	require.Len(t, mockAuth.Inputs, 1)
	assert.Equal(t, "user@example.com", mockAuth.Inputs[0].Email)
	assert.Equal(t, "203.0.113.7", mockAuth.Inputs[0].IPAddress)
	assert.Equal(t, "curl/8.0", mockAuth.Inputs[0].UserAgent)
}

func TestLogin_InvalidBody(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestLogin_ValidationError(t *testing.T) {
	mockAuth := &handlers.MockAuthService{}
	handler := handlers.NewAuthHandler(mockAuth, nil)

	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{Email: "not-an-email"})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, 400, "bad_request")
	assert.Contains(t, resp.Message, "email")
	assert.Contains(t, resp.Message, "password")
	assert.Empty(t, mockAuth.Inputs, "service must not be called")
}

func TestLogin_AccountLocked(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error) {
			return nil, &models.LockedError{Until: time.Now().Add(14 * time.Minute), RetryAfter: 14*time.Minute + 30*time.Second}
		},
	}
	handler := handlers.NewAuthHandler(mockAuth, nil)

	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, 429, "account_locked")
	assert.Equal(t, "Too many failed login attempts. Please try again in 15 minutes.", resp.Message)
	assert.Equal(t, "870", w.Header().Get("Retry-After"))
}

func TestLogin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unauthorized", models.ErrUnauthorized, 401, "unauthorized"},
		{"disabled looks like bad credentials", models.ErrAccountDisabled, 401, "unauthorized"},
		{"suspended looks like bad credentials", models.ErrAccountSuspended, 401, "unauthorized"},
		{"rate limited", models.ErrRateLimitExceeded, 429, "rate_limit_exceeded"},
		{"store failure", errors.New("connection reset"), 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error) {
					return nil, tt.err
				},
			}
			handler := handlers.NewAuthHandler(mockAuth, nil)

			req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
				Email:    "user@example.com",
				Password: "password123",
			})
			w := httptest.NewRecorder()
			handler.Login(w, req)

			resp := handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
			if tt.wantStatus == 401 {
				assert.Equal(t, "Authentication failed", resp.Message)
			}
			assert.Empty(t, w.Header().Get("Retry-After"))
		})
	}
}

func TestLockedMessage(t *testing.T) {
	assert.Equal(t, "Too many failed login attempts. Please try again in 15 minutes.", handlers.LockedMessage(15*time.Minute))
	assert.Equal(t, "Too many failed login attempts. Please try again in 2 minutes.", handlers.LockedMessage(61*time.Second))
	assert.Equal(t, "Too many failed login attempts. Please try again in 1 minute.", handlers.LockedMessage(10*time.Second))
}
