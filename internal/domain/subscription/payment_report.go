package subscription

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReportStatus is the review state of a payment report
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportConfirmed ReportStatus = "confirmed"
	ReportRejected  ReportStatus = "rejected"
)

// IsTerminal reports whether the report has been reviewed
func (s ReportStatus) IsTerminal() bool {
	return s == ReportConfirmed || s == ReportRejected
}

// PaymentMethod is how the tenant says it paid
type PaymentMethod string

const (
	MethodBankTransferBAC       PaymentMethod = "bank_transfer_bac"
	MethodBankTransferOccidente PaymentMethod = "bank_transfer_occidente"
	MethodCashDepositBAC        PaymentMethod = "cash_deposit_bac"
	MethodCashDepositOccidente  PaymentMethod = "cash_deposit_occidente"
	MethodOther                 PaymentMethod = "other"
)

// PaymentMethods lists the accepted methods in display order
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		MethodBankTransferBAC,
		MethodBankTransferOccidente,
		MethodCashDepositBAC,
		MethodCashDepositOccidente,
		MethodOther,
	}
}

// IsValid reports whether m is an accepted method
func (m PaymentMethod) IsValid() bool {
	for _, v := range PaymentMethods() {
		if v == m {
			return true
		}
	}
	return false
}

var (
	ErrReportAlreadyReviewed = shared.NewDomainError("INVALID_STATE", "Payment report has already been reviewed")
	ErrInvalidAmount         = shared.NewDomainError("INVALID_INPUT", "Payment amount must be positive")
	ErrInvalidMethod         = shared.NewDomainError("INVALID_INPUT", "Unsupported payment method")
)

// PaymentReport is a tenant's self-reported payment awaiting manual review
type PaymentReport struct {
	shared.TenantOwned
	Amount      decimal.Decimal
	PaymentDate time.Time
	Method      PaymentMethod
	PlanCode    string
	ProofKey    string
	Note        string
	Status      ReportStatus
	ConfirmedAt *time.Time
	ConfirmedBy *uuid.UUID
	AdminNote   string
}

// NewPaymentReport creates a pending report
func NewPaymentReport(tenantID uuid.UUID, amount decimal.Decimal, paymentDate time.Time, method PaymentMethod, planCode, note string) (*PaymentReport, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Payment report requires a tenant")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !method.IsValid() {
		return nil, ErrInvalidMethod
	}
	if strings.TrimSpace(planCode) == "" {
		return nil, ErrUnknownPlan
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Payment date is required")
	}

	r := &PaymentReport{
		TenantOwned: shared.NewTenantOwned(tenantID),
		Amount:      amount.Round(2),
		PaymentDate: DateOf(paymentDate),
		Method:      method,
		PlanCode:    planCode,
		Note:        strings.TrimSpace(note),
		Status:      ReportPending,
	}
	r.AddDomainEvent(NewPaymentReportedEvent(r))
	return r, nil
}

// AttachProof records the storage key of the uploaded proof
func (r *PaymentReport) AttachProof(key string) {
	r.ProofKey = key
	r.Touch()
}

// IsConfirmed reports whether the report was confirmed
func (r *PaymentReport) IsConfirmed() bool {
	return r.Status == ReportConfirmed
}

// Confirm moves a pending report to confirmed
func (r *PaymentReport) Confirm(operatorID uuid.UUID, at time.Time) error {
	if r.Status != ReportPending {
		return ErrReportAlreadyReviewed
	}
	r.Status = ReportConfirmed
	r.ConfirmedAt = &at
	r.ConfirmedBy = &operatorID
	r.Touch()
	r.IncrementVersion()
	return nil
}

// Reject moves a pending report to rejected with the operator's note
func (r *PaymentReport) Reject(operatorID uuid.UUID, at time.Time, note string) error {
	if r.Status != ReportPending {
		return ErrReportAlreadyReviewed
	}
	r.Status = ReportRejected
	r.ConfirmedAt = &at
	r.ConfirmedBy = &operatorID
	r.appendNote(note)
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewPaymentReportRejectedEvent(r))
	return nil
}

// AppendAdminNote is the only mutation allowed once the report is terminal
func (r *PaymentReport) AppendAdminNote(note string) {
	r.appendNote(note)
	r.Touch()
	r.IncrementVersion()
}

func (r *PaymentReport) appendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if r.AdminNote == "" {
		r.AdminNote = note
		return
	}
	r.AdminNote = r.AdminNote + "\n" + note
}
