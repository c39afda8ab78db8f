package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/logger"
)

// AuditLogHandler writes every domain event to the structured log
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(l *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: l.Named("audit")}
}

// EventTypes subscribes to everything
func (h *AuditLogHandler) EventTypes() []string { return nil }

// Handle implements shared.EventHandler
func (h *AuditLogHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.String("aggregate_type", ev.AggregateType()),
		zap.String("aggregate_id", ev.AggregateID().String()),
		zap.String("tenant_id", ev.TenantID().String()),
		zap.Time("occurred_at", ev.OccurredAt()),
	}
	switch e := ev.(type) {
	case *subscription.SubscriptionActivatedEvent:
		fields = append(fields,
			zap.String("plan", e.PlanCode),
			zap.Time("expiration", e.Expiration),
			zap.Bool("stacked", e.Stacked),
		)
	case *subscription.PaymentReportedEvent:
		fields = append(fields, zap.String("plan", e.PlanCode), zap.String("amount", e.Amount.StringFixed(2)))
	case *subscription.PaymentReportRejectedEvent:
		fields = append(fields, zap.String("note", e.Note))
	}
	if rid := logger.GetRequestID(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	h.logger.Info("Domain event", fields...)
	return nil
}

// SubscriptionMetrics is the counter surface the metrics handler feeds
type SubscriptionMetrics interface {
	RecordActivation(ctx context.Context, planCode string, stacked bool)
	RecordExpiration(ctx context.Context, count int64)
	RecordPaymentReported(ctx context.Context, planCode string)
}

// MetricsHandler turns subscription events into business metrics
type MetricsHandler struct {
	metrics SubscriptionMetrics
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(m SubscriptionMetrics) *MetricsHandler {
	return &MetricsHandler{metrics: m}
}

// EventTypes implements shared.EventHandler
func (h *MetricsHandler) EventTypes() []string {
	return []string{
		subscription.EventTypeSubscriptionActivated,
		subscription.EventTypeSubscriptionExpired,
		subscription.EventTypePaymentReported,
	}
}

// Handle implements shared.EventHandler
func (h *MetricsHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	switch e := ev.(type) {
	case *subscription.SubscriptionActivatedEvent:
		h.metrics.RecordActivation(ctx, e.PlanCode, e.Stacked)
	case *subscription.SubscriptionExpiredEvent:
		h.metrics.RecordExpiration(ctx, 1)
	case *subscription.PaymentReportedEvent:
		h.metrics.RecordPaymentReported(ctx, e.PlanCode)
	}
	return nil
}
