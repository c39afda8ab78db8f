package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/domain/subscription"
)

// meterName is the instrumentation scope for subscription metrics.
const meterName = "github.com/mpp365/backend/subscription"

// TenantStatusCounter reports how many tenants sit in each subscription status.
type TenantStatusCounter interface {
	CountByStatus(ctx context.Context) (map[subscription.Status]int64, error)
}

// SubscriptionMetrics holds the subscription lifecycle instruments.
type SubscriptionMetrics struct {
	activations    *Counter
	expirations    *Counter
	paymentReports *Counter
	gateDenials    *Counter
	registration   metric.Registration
	logger         *zap.Logger
}

// NewSubscriptionMetrics registers the subscription instruments on meter.
// When counter is non-nil a tenants-by-status gauge is observed on every
// collection cycle.
func NewSubscriptionMetrics(meter metric.Meter, counter TenantStatusCounter, logger *zap.Logger) (*SubscriptionMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SubscriptionMetrics{logger: logger}

	var err error
	if m.activations, err = NewCounter(meter, "mpp365_subscription_activations_total",
		"Subscriptions activated or extended by a confirmed payment", "{activation}"); err != nil {
		return nil, err
	}
	if m.expirations, err = NewCounter(meter, "mpp365_subscription_expirations_total",
		"Tenants moved to expired", "{tenant}"); err != nil {
		return nil, err
	}
	if m.paymentReports, err = NewCounter(meter, "mpp365_payment_reports_total",
		"Payment reports submitted by tenants", "{report}"); err != nil {
		return nil, err
	}
	if m.gateDenials, err = NewCounter(meter, "mpp365_gate_denials_total",
		"Requests redirected or refused by a subscription gate", "{request}"); err != nil {
		return nil, err
	}

	if counter != nil {
		gauge, err := meter.Int64ObservableGauge("mpp365_tenants",
			metric.WithDescription("Tenants by subscription status"),
			metric.WithUnit("{tenant}"))
		if err != nil {
			return nil, fmt.Errorf("failed to create tenants gauge: %w", err)
		}
		m.registration, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			counts, err := counter.CountByStatus(ctx)
			if err != nil {
				m.logger.Warn("Failed to count tenants by status", zap.Error(err))
				return nil
			}
			for _, status := range subscription.AllStatuses() {
				o.ObserveInt64(gauge, counts[status], metric.WithAttributes(AttrStatus.String(string(status))))
			}
			return nil
		}, gauge)
		if err != nil {
			return nil, fmt.Errorf("failed to register tenants gauge callback: %w", err)
		}
	}
	return m, nil
}

// RecordActivation counts a confirmed payment applied to a subscription.
func (m *SubscriptionMetrics) RecordActivation(ctx context.Context, planCode string, stacked bool) {
	m.activations.Inc(ctx, AttrPlanCode.String(planCode), AttrStacked.Bool(stacked))
}

// RecordExpiration counts tenants moved to expired.
func (m *SubscriptionMetrics) RecordExpiration(ctx context.Context, count int64) {
	if count <= 0 {
		return
	}
	m.expirations.Add(ctx, count)
}

// RecordPaymentReported counts a submitted payment report.
func (m *SubscriptionMetrics) RecordPaymentReported(ctx context.Context, planCode string) {
	m.paymentReports.Inc(ctx, AttrPlanCode.String(planCode))
}

// RecordGateDenial counts a request stopped by the named gate.
func (m *SubscriptionMetrics) RecordGateDenial(ctx context.Context, gate, reason string) {
	m.gateDenials.Inc(ctx, AttrGate.String(gate), AttrReason.String(reason))
}

// Stop unregisters the status gauge callback.
func (m *SubscriptionMetrics) Stop() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
