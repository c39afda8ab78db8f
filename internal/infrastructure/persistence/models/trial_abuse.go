package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mpp365/backend/internal/domain/subscription"
)

// TrialAbuseRecordModel is the persistence model for the trial-abuse ledger
type TrialAbuseRecordModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OriginIP    string     `gorm:"column:origin_ip;type:varchar(45);not null;index"`
	TenantEmail string     `gorm:"type:varchar(254);index"`
	UserEmail   string     `gorm:"type:varchar(254);index"`
	TaxID       string     `gorm:"column:tax_id;type:varchar(20)"`
	TenantID    *uuid.UUID `gorm:"type:uuid;index"`
	Blocked     bool       `gorm:"not null;default:false"`
	BlockReason string     `gorm:"type:text"`
	CreatedAt   time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (TrialAbuseRecordModel) TableName() string {
	return "trial_abuse_records"
}

// ToDomain converts the persistence model to a domain record
func (m *TrialAbuseRecordModel) ToDomain() *subscription.TrialAbuseRecord {
	return &subscription.TrialAbuseRecord{
		ID:          m.ID,
		OriginIP:    m.OriginIP,
		TenantEmail: m.TenantEmail,
		UserEmail:   m.UserEmail,
		TaxID:       m.TaxID,
		TenantID:    m.TenantID,
		Blocked:     m.Blocked,
		BlockReason: m.BlockReason,
		CreatedAt:   m.CreatedAt,
	}
}

// TrialAbuseRecordModelFromDomain creates a new persistence model from a domain record
func TrialAbuseRecordModelFromDomain(r *subscription.TrialAbuseRecord) *TrialAbuseRecordModel {
	return &TrialAbuseRecordModel{
		ID:          r.ID,
		OriginIP:    r.OriginIP,
		TenantEmail: r.TenantEmail,
		UserEmail:   r.UserEmail,
		TaxID:       r.TaxID,
		TenantID:    r.TenantID,
		Blocked:     r.Blocked,
		BlockReason: r.BlockReason,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

// AllModels lists every model, in dependency order, for AutoMigrate
func AllModels() []any {
	return []any{
		&TenantModel{},
		&UserModel{},
		&PaymentReportModel{},
		&TrialAbuseRecordModel{},
	}
}
