package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/lockgate/internal/metrics"
	"github.com/BradenHooton/lockgate/internal/models"
)

const defaultSinkTimeout = 5 * time.Second

// AuditSink receives lockout and unlock events
type AuditSink interface {
	Emit(ctx context.Context, event models.LockoutEvent) error
}

// NamedSink labels a sink for logs and metrics
type NamedSink struct {
	Name string
	Sink AuditSink
}

// AuditFanout delivers each event to every sink. Sink failures are logged and
// counted but never returned, so auditing cannot fail an authentication decision.
type AuditFanout struct {
	sinks   []NamedSink
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAuditFanout creates a new AuditFanout
func NewAuditFanout(logger *slog.Logger, m *metrics.Metrics, sinks ...NamedSink) *AuditFanout {
	return &AuditFanout{
		sinks:   sinks,
		timeout: defaultSinkTimeout,
		metrics: m,
		logger:  logger,
	}
}

// Emit implements AuditSink. It always returns nil.
func (f *AuditFanout) Emit(ctx context.Context, event models.LockoutEvent) error {
	// the request may already be finished; the audit record must still be written
	ctx = context.WithoutCancel(ctx)

	for _, sink := range f.sinks {
		f.emitOne(ctx, sink, event)
	}

	return nil
}

func (f *AuditFanout) emitOne(ctx context.Context, sink NamedSink, event models.LockoutEvent) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			f.metrics.ObserveAuditFailure(sink.Name)
			f.logger.ErrorContext(ctx, "audit sink panicked",
				slog.String("sink", sink.Name),
				slog.String("account_id", event.AccountID),
				slog.Any("panic", r),
			)
		}
	}()

	if err := sink.Sink.Emit(ctx, event); err != nil {
		f.metrics.ObserveAuditFailure(sink.Name)
		f.logger.ErrorContext(ctx, "audit sink failed",
			slog.String("sink", sink.Name),
			slog.String("kind", event.Kind),
			slog.String("account_id", event.AccountID),
			slog.Any("error", err),
		)
	}
}
