package handlers_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/lockgate/internal/handlers"
	"github.com/BradenHooton/lockgate/internal/models"
	"github.com/BradenHooton/lockgate/internal/services"
	"github.com/stretchr/testify/assert"
)

const testAccountID = "6f1c2d3e-4b5a-4c6d-8e9f-0a1b2c3d4e5f"

func newAccountHandler(lockout *handlers.MockLockoutManager, users *handlers.MockStatusSetter) *handlers.AccountHandler {
	return handlers.NewAccountHandler(lockout, users, nil, handlers.NewTestLogger())
}

func TestGetLockoutStatus_Success(t *testing.T) {
	until := time.Date(2024, 1, 1, 0, 15, 4, 0, time.UTC)
	lockout := &handlers.MockLockoutManager{
		StatusFunc: func(ctx context.Context, accountID string) (*services.LockoutStatus, error) {
			return &services.LockoutStatus{AccountID: accountID, Locked: true, FailedAttempts: 5, LockedUntil: &until, RetryAfterSeconds: 900}, nil
		},
	}
	h := newAccountHandler(lockout, &handlers.MockStatusSetter{})

	req := httptest.NewRequest("GET", "/admin/accounts/"+testAccountID+"/lockout", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": testAccountID})
	w := httptest.NewRecorder()
	h.GetLockoutStatus(w, req)

	var resp services.LockoutStatus
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, testAccountID, resp.AccountID)
	assert.True(t, resp.Locked)
	assert.Equal(t, 5, resp.FailedAttempts)
	assert.True(t, until.Equal(*resp.LockedUntil))
}

func TestGetLockoutStatus_Errors(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"malformed id", "not-a-uuid", nil, 400, "bad_request"},
		{"unknown account", testAccountID, models.ErrNotFound, 404, "not_found"},
		{"store failure", testAccountID, errors.New("redis: connection refused"), 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lockout := &handlers.MockLockoutManager{
				StatusFunc: func(ctx context.Context, accountID string) (*services.LockoutStatus, error) {
					return nil, tt.err
				},
			}
			h := newAccountHandler(lockout, &handlers.MockStatusSetter{})

			req := httptest.NewRequest("GET", "/admin/accounts/x/lockout", nil)
			req = handlers.WithChiRouteContext(req, map[string]string{"id": tt.id})
			w := httptest.NewRecorder()
			h.GetLockoutStatus(w, req)

			handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestUnlock_PassesActorAndOrigin(t *testing.T) {
	var gotAccount, gotActor, gotOrigin string
	lockout := &handlers.MockLockoutManager{
		UnlockFunc: func(ctx context.Context, accountID, actorID, origin string) error {
			gotAccount, gotActor, gotOrigin = accountID, actorID, origin
			return nil
		},
	}
	h := newAccountHandler(lockout, &handlers.MockStatusSetter{})

	req := httptest.NewRequest("POST", "/admin/accounts/"+testAccountID+"/unlock", nil)
	req.RemoteAddr = "198.51.100.4:4000"
	req = handlers.WithChiRouteContext(req, map[string]string{"id": testAccountID})
	req = handlers.WithAdminContext(req, "admin-1")
	w := httptest.NewRecorder()
	h.Unlock(w, req)

	assert.Equal(t, 204, w.Code)
	assert.Equal(t, testAccountID, gotAccount)
	assert.Equal(t, "admin-1", gotActor)
	assert.Equal(t, "198.51.100.4", gotOrigin)
}

func TestUnlock_RequiresClaims(t *testing.T) {
	h := newAccountHandler(&handlers.MockLockoutManager{}, &handlers.MockStatusSetter{})

	req := httptest.NewRequest("POST", "/admin/accounts/"+testAccountID+"/unlock", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": testAccountID})
	w := httptest.NewRecorder()
	h.Unlock(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestUnlock_UnknownAccount(t *testing.T) {
	lockout := &handlers.MockLockoutManager{
		UnlockFunc: func(ctx context.Context, accountID, actorID, origin string) error {
			return models.ErrNotFound
		},
	}
	h := newAccountHandler(lockout, &handlers.MockStatusSetter{})

	req := httptest.NewRequest("POST", "/admin/accounts/"+testAccountID+"/unlock", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": testAccountID})
	req = handlers.WithAdminContext(req, "admin-1")
	w := httptest.NewRecorder()
	h.Unlock(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestUpdateStatus(t *testing.T) {
	var gotStatus string
	users := &handlers.MockStatusSetter{
		SetStatusFunc: func(ctx context.Context, id, status string) error {
			gotStatus = status
			return nil
		},
	}
	h := newAccountHandler(&handlers.MockLockoutManager{}, users)

	req := handlers.NewTestRequest(t, "PUT", "/admin/accounts/"+testAccountID+"/status", handlers.UpdateStatusRequest{Status: "suspended"})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": testAccountID})
	req = handlers.WithAdminContext(req, "admin-1")
	w := httptest.NewRecorder()
	h.UpdateStatus(w, req)

	assert.Equal(t, 204, w.Code)
	assert.Equal(t, models.UserStatusSuspended, gotStatus)
}

func TestUpdateStatus_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		actor      string
		wantStatus int
		wantCode   string
	}{
		{"unknown status", "banished", "admin-1", 400, "bad_request"},
		{"own account", "disabled", testAccountID, 403, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &handlers.MockStatusSetter{
				SetStatusFunc: func(ctx context.Context, id, status string) error {
					t.Fatal("SetStatus must not be called")
					return nil
				},
			}
			h := newAccountHandler(&handlers.MockLockoutManager{}, users)

			req := handlers.NewTestRequest(t, "PUT", "/admin/accounts/"+testAccountID+"/status", handlers.UpdateStatusRequest{Status: tt.status})
			req = handlers.WithChiRouteContext(req, map[string]string{"id": testAccountID})
			req = handlers.WithAdminContext(req, tt.actor)
			w := httptest.NewRecorder()
			h.UpdateStatus(w, req)

			handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}
