package subscription

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
)

// ConfirmResult is the outcome of a confirmation
type ConfirmResult struct {
	ReportID          uuid.UUID `json:"report_id"`
	TenantID          uuid.UUID `json:"tenant_id"`
	PlanCode          string    `json:"plan_code"`
	Applied           bool      `json:"applied"`
	Stacked           bool      `json:"stacked"`
	Start             time.Time `json:"start,omitempty"`
	Expiration        time.Time `json:"expiration,omitempty"`
	EquipmentIncluded bool      `json:"equipment_included"`
}

// SubmitPaymentReportInput is a tenant's payment report with its proof
type SubmitPaymentReportInput struct {
	TenantID    uuid.UUID
	Amount      decimal.Decimal
	PaymentDate time.Time
	Method      subscription.PaymentMethod
	PlanCode    string
	Note        string
	Proof       io.Reader
	ProofSize   int64
	ProofName   string
}

// PaymentReportResponse is the API view of a payment report
type PaymentReportResponse struct {
	ID          uuid.UUID                  `json:"id"`
	TenantID    uuid.UUID                  `json:"tenant_id"`
	Amount      decimal.Decimal            `json:"amount"`
	PaymentDate time.Time                  `json:"payment_date"`
	Method      subscription.PaymentMethod `json:"method"`
	PlanCode    string                     `json:"plan_code"`
	HasProof    bool                       `json:"has_proof"`
	Note        string                     `json:"note,omitempty"`
	Status      subscription.ReportStatus  `json:"status"`
	ConfirmedAt *time.Time                 `json:"confirmed_at,omitempty"`
	ConfirmedBy *uuid.UUID                 `json:"confirmed_by,omitempty"`
	AdminNote   string                     `json:"admin_note,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// ToPaymentReportResponse converts a domain report
func ToPaymentReportResponse(r *subscription.PaymentReport) PaymentReportResponse {
	return PaymentReportResponse{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Amount:      r.Amount,
		PaymentDate: r.PaymentDate,
		Method:      r.Method,
		PlanCode:    r.PlanCode,
		HasProof:    r.ProofKey != "",
		Note:        r.Note,
		Status:      r.Status,
		ConfirmedAt: r.ConfirmedAt,
		ConfirmedBy: r.ConfirmedBy,
		AdminNote:   r.AdminNote,
		CreatedAt:   r.CreatedAt,
	}
}

// ToPaymentReportResponses converts a slice of domain reports
func ToPaymentReportResponses(reports []subscription.PaymentReport) []PaymentReportResponse {
	out := make([]PaymentReportResponse, len(reports))
	for i := range reports {
		out[i] = ToPaymentReportResponse(&reports[i])
	}
	return out
}

// ProofLink is a time-limited download URL for a payment proof
type ProofLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PlanGroup lists the plans of one tier
type PlanGroup struct {
	Tier  subscription.Tier   `json:"tier"`
	Plans []subscription.Plan `json:"plans"`
}

// RenewalOverview is everything the renewal page shows
type RenewalOverview struct {
	TenantSlug        string                       `json:"tenant_slug"`
	Subscription      subscription.Snapshot        `json:"subscription"`
	CurrentPlan       string                       `json:"current_plan,omitempty"`
	EquipmentIncluded bool                         `json:"equipment_included"`
	SetupFeePaid      bool                         `json:"setup_fee_paid"`
	Plans             []PlanGroup                  `json:"plans"`
	Upgrade           *subscription.UpgradeOffer   `json:"upgrade,omitempty"`
	PaymentMethods    []subscription.PaymentMethod `json:"payment_methods"`
	BankAccounts      []config.BankAccount         `json:"bank_accounts"`
	Currency          string                       `json:"currency"`
	Contact           Contact                      `json:"contact"`
	RecentReports     []PaymentReportResponse      `json:"recent_reports"`
}

// Contact is who to talk to about payments
type Contact struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	WhatsApp string `json:"whatsapp,omitempty"`
}
