package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/lockgate/internal/auth"
	"github.com/BradenHooton/lockgate/internal/models"
	"github.com/BradenHooton/lockgate/internal/services"
	pkghttp "github.com/BradenHooton/lockgate/pkg/http"
	"github.com/go-chi/chi/v5"
)

// LockoutManager is the admin view of the lockout service
type LockoutManager interface {
	Status(ctx context.Context, accountID string) (*services.LockoutStatus, error)
	Unlock(ctx context.Context, accountID, actorID, origin string) error
}

// AccountStatusSetter changes an account's status
type AccountStatusSetter interface {
	SetStatus(ctx context.Context, id, status string) error
}

// AccountHandler serves the per-account admin endpoints
type AccountHandler struct {
	lockout  LockoutManager
	users    AccountStatusSetter
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(lockout LockoutManager, users AccountStatusSetter, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		lockout:  lockout,
		users:    users,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// UpdateStatusRequest represents the request body for changing an account status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended disabled"`
}

// GetLockoutStatus handles GET /admin/accounts/{id}/lockout
func (h *AccountHandler) GetLockoutStatus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	status, err := h.lockout.Status(r.Context(), accountID)
	if err != nil {
		h.writeAccountError(w, r, err, "Failed to retrieve lockout status")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}

// Unlock handles POST /admin/accounts/{id}/unlock
func (h *AccountHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	origin := pkghttp.RequestOrigin(r, h.ipConfig)
	if err := h.lockout.Unlock(r.Context(), accountID, claims.UserID, origin.IPAddress); err != nil {
		h.writeAccountError(w, r, err, "Failed to unlock account")
		return
	}

	h.logger.InfoContext(r.Context(), "account unlocked by admin",
		slog.String("account_id", accountID),
		slog.String("actor_id", claims.UserID))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles PUT /admin/accounts/{id}/status
func (h *AccountHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if claims := auth.GetUserFromContext(r); claims != nil && claims.UserID == accountID {
		pkghttp.WriteForbidden(w, "Cannot change your own account status")
		return
	}

	if err := h.users.SetStatus(r.Context(), accountID, req.Status); err != nil {
		h.writeAccountError(w, r, err, "Failed to update account status")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) writeAccountError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Account not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), message, slog.Any("error", err))
		pkghttp.WriteInternalError(w, message)
	}
}

func accountIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := validate.Var(id, "required,uuid"); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid account id")
		return "", false
	}
	return id, true
}
