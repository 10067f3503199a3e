package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/lockgate/internal/auth"
	"github.com/BradenHooton/lockgate/internal/models"
	"github.com/BradenHooton/lockgate/internal/services"
	pkghttp "github.com/BradenHooton/lockgate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewTestLogger returns a logger that discards output
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// WithAdminContext adds admin claims to the request context
func WithAdminContext(req *http.Request, userID string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  "admin@example.com",
		Role:   models.RoleAdmin,
		Type:   "access",
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithChiRouteContext sets chi URL parameters on a request
//
// Example usage:
//
//	req = WithChiRouteContext(req, map[string]string{
//	    "id": "user123",
//	})
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc func(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error)
	Inputs    []services.LoginInput
}

func (m *MockAuthService) Login(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error) {
	m.Inputs = append(m.Inputs, in)
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, in)
}

// MockLockoutManager implements LockoutManager for testing
type MockLockoutManager struct {
	StatusFunc func(ctx context.Context, accountID string) (*services.LockoutStatus, error)
	UnlockFunc func(ctx context.Context, accountID, actorID, origin string) error
}

func (m *MockLockoutManager) Status(ctx context.Context, accountID string) (*services.LockoutStatus, error) {
	if m.StatusFunc == nil {
		return &services.LockoutStatus{AccountID: accountID}, nil
	}
	return m.StatusFunc(ctx, accountID)
}

func (m *MockLockoutManager) Unlock(ctx context.Context, accountID, actorID, origin string) error {
	if m.UnlockFunc == nil {
		return nil
	}
	return m.UnlockFunc(ctx, accountID, actorID, origin)
}

// MockStatusSetter implements AccountStatusSetter for testing
type MockStatusSetter struct {
	SetStatusFunc func(ctx context.Context, id, status string) error
}

func (m *MockStatusSetter) SetStatus(ctx context.Context, id, status string) error {
	if m.SetStatusFunc == nil {
		return nil
	}
	return m.SetStatusFunc(ctx, id, status)
}

// MockAuditTrailReader implements AuditTrailReader for testing
type MockAuditTrailReader struct {
	GetFunc func(ctx context.Context, accountID string, limit, offset int) ([]*models.AuditLog, int64, error)
}

func (m *MockAuditTrailReader) GetAccountAuditTrail(ctx context.Context, accountID string, limit, offset int) ([]*models.AuditLog, int64, error) {
	if m.GetFunc == nil {
		return []*models.AuditLog{}, 0, nil
	}
	return m.GetFunc(ctx, accountID, limit, offset)
}
