package subscription

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrialAbuseRecord is one trial sign-up attempt in the append-only ledger
type TrialAbuseRecord struct {
	ID          uuid.UUID
	OriginIP    string
	TenantEmail string
	UserEmail   string
	TaxID       string
	TenantID    *uuid.UUID
	Blocked     bool
	BlockReason string
	CreatedAt   time.Time
}

// NewTrialAbuseRecord records a sign-up attempt. E-mails are stored lowercased
// so windowed counts match regardless of how they were typed.
func NewTrialAbuseRecord(originIP, tenantEmail, userEmail, taxID string, tenantID *uuid.UUID) *TrialAbuseRecord {
	return &TrialAbuseRecord{
		ID:          uuid.New(),
		OriginIP:    strings.TrimSpace(originIP),
		TenantEmail: NormalizeEmail(tenantEmail),
		UserEmail:   NormalizeEmail(userEmail),
		TaxID:       strings.TrimSpace(taxID),
		TenantID:    tenantID,
		CreatedAt:   time.Now(),
	}
}

// Block flags the record's origin IP as banned from further trials
func (r *TrialAbuseRecord) Block(reason string) {
	r.Blocked = true
	r.BlockReason = strings.TrimSpace(reason)
}

// NormalizeEmail lowercases and trims an address for comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
