package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/lockgate/internal/models"
	pkghttp "github.com/BradenHooton/lockgate/pkg/http"
)

// AuditTrailReader reads the audit history of one account
type AuditTrailReader interface {
	GetAccountAuditTrail(ctx context.Context, accountID string, limit, offset int) ([]*models.AuditLog, int64, error)
}

// AuditHandler handles audit log HTTP requests
type AuditHandler struct {
	auditService AuditTrailReader
	logger       *slog.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService AuditTrailReader, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// AuditLogResponse represents an audit log entry in HTTP response
type AuditLogResponse struct {
	ID            string                 `json:"id"`
	EventType     string                 `json:"event_type"`
	ActorID       *string                `json:"actor_id,omitempty"`
	TargetID      *string                `json:"target_id,omitempty"`
	Action        string                 `json:"action"`
	Success       bool                   `json:"success"`
	FailureReason *string                `json:"failure_reason,omitempty"`
	IPAddress     *string                `json:"ip_address,omitempty"`
	UserAgent     *string                `json:"user_agent,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     string                 `json:"created_at"`
}

// AuditTrailResponse is a page of audit log entries
type AuditTrailResponse struct {
	Logs   []*AuditLogResponse `json:"logs"`
	Total  int64               `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// auditQuery holds the pagination parameters of the audit trail endpoint
type auditQuery struct {
	Limit  int `validate:"gte=1,lte=50"`
	Offset int `validate:"gte=0"`
}

// GetAccountAuditTrail handles GET /admin/accounts/{id}/audit?limit=N&offset=M
func (h *AuditHandler) GetAccountAuditTrail(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	q := auditQuery{Limit: 50}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			pkghttp.WriteBadRequest(w, "limit must be an integer")
			return
		}
		q.Limit = n
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			pkghttp.WriteBadRequest(w, "offset must be an integer")
			return
		}
		q.Offset = n
	}
	if err := ValidateRequest(q); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	logs, total, err := h.auditService.GetAccountAuditTrail(r.Context(), accountID, q.Limit, q.Offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read audit trail",
			slog.String("account_id", accountID), slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to retrieve audit trail")
		return
	}

	response := make([]*AuditLogResponse, len(logs))
	for i, log := range logs {
		response[i] = auditLogToResponse(log)
	}

	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	pkghttp.WriteJSON(w, http.StatusOK, AuditTrailResponse{
		Logs:   response,
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
}

// auditLogToResponse converts an audit log model to a response DTO
func auditLogToResponse(log *models.AuditLog) *AuditLogResponse {
	return &AuditLogResponse{
		ID:            log.ID.String(),
		EventType:     log.EventType,
		ActorID:       log.ActorID,
		TargetID:      log.TargetID,
		Action:        log.Action,
		Success:       log.Success,
		FailureReason: log.FailureReason,
		IPAddress:     log.IPAddress,
		UserAgent:     log.UserAgent,
		Metadata:      log.Metadata,
		CreatedAt:     log.CreatedAt.UTC().Format(time.RFC3339),
	}
}
