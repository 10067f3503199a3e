package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkghttp "github.com/BradenHooton/lockgate/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, 400, "test_error", "Test message", "Additional details")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	resp := decodeError(t, w)
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Equal(t, "Additional details", resp.Details)
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, string)
		status int
		code   string
	}{
		{"bad request", pkghttp.WriteBadRequest, 400, "bad_request"},
		{"unauthorized", pkghttp.WriteUnauthorized, 401, "unauthorized"},
		{"forbidden", pkghttp.WriteForbidden, 403, "forbidden"},
		{"not found", pkghttp.WriteNotFound, 404, "not_found"},
		{"conflict", pkghttp.WriteConflict, 409, "conflict"},
		{"too many requests", pkghttp.WriteTooManyRequests, 429, "rate_limit_exceeded"},
		{"internal", pkghttp.WriteInternalError, 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, "some message")

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, "some message", resp.Message)
			assert.Empty(t, resp.Details)
		})
	}
}

func TestWriteAccountLocked(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteAccountLocked(w, 14*time.Minute+30*time.Second, "Too many failed login attempts. Please try again in 15 minutes.")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "870", w.Header().Get("Retry-After"))

	resp := decodeError(t, w)
	assert.Equal(t, "account_locked", resp.Error)
	assert.Equal(t, "Too many failed login attempts. Please try again in 15 minutes.", resp.Message)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", pkghttp.RetryAfterSeconds(0))
	assert.Equal(t, "1", pkghttp.RetryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, "2", pkghttp.RetryAfterSeconds(1500*time.Millisecond))
	assert.Equal(t, "900", pkghttp.RetryAfterSeconds(15*time.Minute))
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteJSON(w, http.StatusOK, map[string]int{"failed_attempts": 3})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"failed_attempts":3}`, w.Body.String())
}
