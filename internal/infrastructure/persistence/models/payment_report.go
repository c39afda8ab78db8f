package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
)

// PaymentReportModel is the persistence model for PaymentReport
type PaymentReportModel struct {
	AggregateModel
	TenantID    uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal            `gorm:"type:decimal(12,2);not null"`
	PaymentDate time.Time                  `gorm:"type:date;not null"`
	Method      subscription.PaymentMethod `gorm:"type:varchar(30);not null"`
	PlanCode    string                     `gorm:"type:varchar(50);not null"`
	ProofKey    string                     `gorm:"type:varchar(500)"`
	Note        string                     `gorm:"type:text"`
	Status      subscription.ReportStatus  `gorm:"type:varchar(20);not null;default:'pending';index"`
	ConfirmedAt *time.Time
	ConfirmedBy *uuid.UUID `gorm:"type:uuid"`
	AdminNote   string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentReportModel) TableName() string {
	return "payment_reports"
}

// ToDomain converts the persistence model to a domain PaymentReport
func (m *PaymentReportModel) ToDomain() *subscription.PaymentReport {
	return &subscription.PaymentReport{
		TenantOwned: shared.TenantOwned{
			BaseAggregateRoot: m.ToDomainAggregateRoot(),
			TenantID:          m.TenantID,
		},
		Amount:      m.Amount,
		PaymentDate: *datePtr(&m.PaymentDate),
		Method:      m.Method,
		PlanCode:    m.PlanCode,
		ProofKey:    m.ProofKey,
		Note:        m.Note,
		Status:      m.Status,
		ConfirmedAt: m.ConfirmedAt,
		ConfirmedBy: m.ConfirmedBy,
		AdminNote:   m.AdminNote,
	}
}

// FromDomain populates the persistence model from a domain PaymentReport
func (m *PaymentReportModel) FromDomain(r *subscription.PaymentReport) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.TenantID = r.TenantID
	m.Amount = r.Amount
	m.PaymentDate = *datePtr(&r.PaymentDate)
	m.Method = r.Method
	m.PlanCode = r.PlanCode
	m.ProofKey = r.ProofKey
	m.Note = r.Note
	m.Status = r.Status
	m.ConfirmedAt = r.ConfirmedAt
	m.ConfirmedBy = r.ConfirmedBy
	m.AdminNote = r.AdminNote
}

// PaymentReportModelFromDomain creates a new persistence model from a domain PaymentReport
func PaymentReportModelFromDomain(r *subscription.PaymentReport) *PaymentReportModel {
	m := &PaymentReportModel{}
	m.FromDomain(r)
	return m
}
