package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/BradenHooton/lockgate/internal/services"
	pkghttp "github.com/BradenHooton/lockgate/pkg/http"
)

// AdminServiceInterface defines the lockout dashboard contract.
type AdminServiceInterface interface {
	GetLockoutStats(ctx context.Context) (*services.LockoutStatsResponse, error)
	GetRecentActivity(ctx context.Context, limit int) (*services.LockoutActivityResponse, error)
}

// AdminHandler handles admin dashboard HTTP requests.
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// GetLockoutStats handles GET /admin/lockouts/stats
func (h *AdminHandler) GetLockoutStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetLockoutStats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve lockout stats")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, stats)
}

// GetRecentActivity handles GET /admin/lockouts/activity
// Accepts optional query param ?limit=N (1–20, default 20).
func (h *AdminHandler) GetRecentActivity(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 20 {
			limit = n
		}
	}

	activity, err := h.service.GetRecentActivity(r.Context(), limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve recent activity")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, activity)
}
