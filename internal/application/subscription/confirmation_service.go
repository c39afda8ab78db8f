package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Transactor runs fn inside one database transaction
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ConfirmationService turns reviewed payment reports into subscription changes
type ConfirmationService struct {
	reports        subscription.PaymentReportRepository
	tenants        identity.TenantRepository
	tx             Transactor
	catalog        *subscription.Catalog
	clock          subscription.Clock
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewConfirmationService creates a new ConfirmationService
func NewConfirmationService(
	reports subscription.PaymentReportRepository,
	tenants identity.TenantRepository,
	tx Transactor,
	catalog *subscription.Catalog,
	clock subscription.Clock,
	logger *zap.Logger,
) *ConfirmationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfirmationService{
		reports: reports,
		tenants: tenants,
		tx:      tx,
		catalog: catalog,
		clock:   clock,
		logger:  logger,
	}
}

// SetEventPublisher sets the publisher that receives events after commit
func (s *ConfirmationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Confirm applies a pending payment report to its tenant. Confirming an
// already confirmed report is a no-op reported through Applied=false.
func (s *ConfirmationService) Confirm(ctx context.Context, reportID uuid.UUID, operator *identity.Principal) (*ConfirmResult, error) {
	if err := requirePrivileged(operator); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "payment_confirmation", "confirm",
		telemetry.SpanAttrPaymentID, reportID.String())
	defer span.End()

	var (
		result *ConfirmResult
		events []shared.DomainEvent
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		report, err := s.reports.FindByID(ctx, reportID)
		if err != nil {
			return err
		}
		if report.IsConfirmed() {
			result = &ConfirmResult{ReportID: report.ID, TenantID: report.TenantID, PlanCode: report.PlanCode, Applied: false}
			return nil
		}
		if report.Status != subscription.ReportPending {
			return subscription.ErrReportAlreadyReviewed
		}

		plan, err := s.catalog.Lookup(report.PlanCode)
		if err != nil {
			return err
		}

		tenant, err := s.tenants.FindByID(ctx, report.TenantID)
		if err != nil {
			return err
		}

		today := s.clock.Today()
		act, err := tenant.ActivateSubscription(plan, today)
		if err != nil {
			return err
		}
		if err := s.tenants.Update(ctx, tenant); err != nil {
			return err
		}

		if err := report.Confirm(operator.UserID, time.Now()); err != nil {
			return err
		}
		if err := s.reports.Update(ctx, report); err != nil {
			return err
		}

		events = append(events, subscription.NewSubscriptionActivatedEvent(tenant.ID, report.ID, plan, act.Start, act.Expiration, act.Stacked))
		result = &ConfirmResult{
			ReportID:          report.ID,
			TenantID:          tenant.ID,
			PlanCode:          plan.Code,
			Applied:           true,
			Stacked:           act.Stacked,
			Start:             act.Start,
			Expiration:        act.Expiration,
			EquipmentIncluded: tenant.EquipmentIncluded,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Warn("Payment confirmation lost a concurrent update", zap.String("report_id", reportID.String()))
		}
		return nil, err
	}

	if !result.Applied {
		s.logger.Info("Payment report already confirmed",
			zap.String("report_id", reportID.String()),
			zap.String("operator_id", operator.UserID.String()))
		return result, nil
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, result.TenantID.String(),
		telemetry.SpanAttrPlanCode, result.PlanCode,
		telemetry.SpanAttrStacked, result.Stacked,
	)
	s.logger.Info("Payment report confirmed",
		zap.String("report_id", result.ReportID.String()),
		zap.String("tenant_id", result.TenantID.String()),
		zap.String("plan", result.PlanCode),
		zap.Time("expiration", result.Expiration),
		zap.Bool("stacked", result.Stacked))
	s.publish(ctx, events)
	return result, nil
}

// Reject closes a pending report without touching the tenant
func (s *ConfirmationService) Reject(ctx context.Context, reportID uuid.UUID, operator *identity.Principal, note string) (*PaymentReportResponse, error) {
	if err := requirePrivileged(operator); err != nil {
		return nil, err
	}

	var report *subscription.PaymentReport
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		report, err = s.reports.FindByID(ctx, reportID)
		if err != nil {
			return err
		}
		if err := report.Reject(operator.UserID, time.Now(), note); err != nil {
			return err
		}
		return s.reports.Update(ctx, report)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment report rejected",
		zap.String("report_id", report.ID.String()),
		zap.String("tenant_id", report.TenantID.String()),
		zap.String("operator_id", operator.UserID.String()))

	events := report.GetDomainEvents()
	report.ClearDomainEvents()
	s.publish(ctx, events)

	resp := ToPaymentReportResponse(report)
	return &resp, nil
}

// AddAdminNote appends an operator note; allowed in every report state
func (s *ConfirmationService) AddAdminNote(ctx context.Context, reportID uuid.UUID, operator *identity.Principal, note string) (*PaymentReportResponse, error) {
	if err := requirePrivileged(operator); err != nil {
		return nil, err
	}
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	report.AppendAdminNote(note)
	if err := s.reports.Update(ctx, report); err != nil {
		return nil, err
	}
	resp := ToPaymentReportResponse(report)
	return &resp, nil
}

func (s *ConfirmationService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish domain events", zap.Error(err))
	}
}

func requirePrivileged(p *identity.Principal) error {
	if p == nil {
		return shared.ErrUnauthorized
	}
	if !p.Privileged {
		return shared.ErrForbidden
	}
	return nil
}
