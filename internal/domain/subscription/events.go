package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypePaymentReport = "PaymentReport"
	AggregateTypeTenant        = "Tenant"

	EventTypePaymentReported       = "PaymentReported"
	EventTypePaymentReportRejected = "PaymentReportRejected"
	EventTypeSubscriptionActivated = "SubscriptionActivated"
	EventTypeSubscriptionExpired   = "SubscriptionExpired"
)

// PaymentReportedEvent is raised when a tenant submits a payment report
type PaymentReportedEvent struct {
	shared.BaseDomainEvent
	Amount   decimal.Decimal `json:"amount"`
	PlanCode string          `json:"plan_code"`
	Method   PaymentMethod   `json:"method"`
}

// NewPaymentReportedEvent creates a PaymentReportedEvent
func NewPaymentReportedEvent(r *PaymentReport) *PaymentReportedEvent {
	return &PaymentReportedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReported, AggregateTypePaymentReport, r.ID, r.TenantID),
		Amount:          r.Amount,
		PlanCode:        r.PlanCode,
		Method:          r.Method,
	}
}

// PaymentReportRejectedEvent is raised when an operator rejects a report
type PaymentReportRejectedEvent struct {
	shared.BaseDomainEvent
	Note string `json:"note"`
}

// NewPaymentReportRejectedEvent creates a PaymentReportRejectedEvent
func NewPaymentReportRejectedEvent(r *PaymentReport) *PaymentReportRejectedEvent {
	return &PaymentReportRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReportRejected, AggregateTypePaymentReport, r.ID, r.TenantID),
		Note:            r.AdminNote,
	}
}

// SubscriptionActivatedEvent is raised when a confirmed payment extends a subscription
type SubscriptionActivatedEvent struct {
	shared.BaseDomainEvent
	ReportID          uuid.UUID `json:"report_id"`
	PlanCode          string    `json:"plan_code"`
	Start             time.Time `json:"start"`
	Expiration        time.Time `json:"expiration"`
	EquipmentIncluded bool      `json:"equipment_included"`
	Stacked           bool      `json:"stacked"`
}

// SubscriptionExpiredEvent is raised by the periodic sweep for each tenant it lapses
type SubscriptionExpiredEvent struct {
	shared.BaseDomainEvent
	Expiration time.Time `json:"expiration"`
}

// NewSubscriptionActivatedEvent creates a new SubscriptionActivatedEvent
func NewSubscriptionActivatedEvent(tenantID, reportID uuid.UUID, p Plan, start, expiration time.Time, stacked bool) *SubscriptionActivatedEvent {
	return &SubscriptionActivatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeSubscriptionActivated, AggregateTypeTenant, tenantID, tenantID),
		ReportID:          reportID,
		PlanCode:          p.Code,
		Start:             start,
		Expiration:        expiration,
		EquipmentIncluded: p.IncludesEquipment,
		Stacked:           stacked,
	}
}

// NewSubscriptionExpiredEvent creates a new SubscriptionExpiredEvent
func NewSubscriptionExpiredEvent(tenantID uuid.UUID, expiration time.Time) *SubscriptionExpiredEvent {
	return &SubscriptionExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionExpired, AggregateTypeTenant, tenantID, tenantID),
		Expiration:      expiration,
	}
}
