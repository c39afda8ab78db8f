package subscription

import (
	"context"
	"time"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ExpiryMetrics counts tenants moved to expired in bulk
type ExpiryMetrics interface {
	RecordExpiration(ctx context.Context, count int64)
}

// ExpiryService moves lapsed trial and active tenants to expired. The
// write is a conditional UPDATE, so concurrent callers converge on the
// same row state and retries are harmless.
type ExpiryService struct {
	tenants        identity.TenantRepository
	clock          subscription.Clock
	eventPublisher shared.EventPublisher
	metrics        ExpiryMetrics
	logger         *zap.Logger
}

// NewExpiryService creates a new ExpiryService
func NewExpiryService(tenants identity.TenantRepository, clock subscription.Clock, logger *zap.Logger) *ExpiryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryService{
		tenants: tenants,
		clock:   clock,
		logger:  logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *ExpiryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the sweep counter
func (s *ExpiryService) SetMetrics(m ExpiryMetrics) {
	s.metrics = m
}

// Today returns the current subscription day
func (s *ExpiryService) Today() time.Time {
	return s.clock.Today()
}

// NormalizeExpired persists the expired status for one lapsed tenant.
// It reports whether this call changed the row.
func (s *ExpiryService) NormalizeExpired(ctx context.Context, tenant *identity.TenantContext) (bool, error) {
	today := s.clock.Today()
	if !subscription.NeedsNormalization(tenant.Status, tenant.Expiration, today) {
		return false, nil
	}
	changed, err := s.tenants.NormalizeExpired(ctx, tenant.ID, today)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	s.logger.Info("Subscription expired",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("tenant_slug", tenant.Slug))

	if s.eventPublisher != nil {
		var exp time.Time
		if tenant.Expiration != nil {
			exp = *tenant.Expiration
		}
		if err := s.eventPublisher.Publish(ctx, subscription.NewSubscriptionExpiredEvent(tenant.ID, exp)); err != nil {
			s.logger.Warn("Failed to publish domain events", zap.Error(err))
		}
	}
	return true, nil
}

// Sweep expires every lapsed tenant in one statement
func (s *ExpiryService) Sweep(ctx context.Context) (int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription_expiry", "sweep")
	defer span.End()

	today := s.clock.Today()
	n, err := s.tenants.SweepExpired(ctx, today)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrSweptCount, n)
	if n > 0 {
		s.logger.Info("Expired lapsed subscriptions",
			zap.Int64("count", n),
			zap.Time("today", today))
		if s.metrics != nil {
			s.metrics.RecordExpiration(ctx, n)
		}
	}
	return n, nil
}
