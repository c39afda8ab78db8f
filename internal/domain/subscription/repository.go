package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mpp365/backend/internal/domain/shared"
)

// PaymentReportRepository persists payment reports
type PaymentReportRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentReport, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PaymentReport, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]PaymentReport, int64, error)
	FindByStatus(ctx context.Context, status ReportStatus, filter shared.Filter) ([]PaymentReport, int64, error)
	Create(ctx context.Context, report *PaymentReport) error
	// Update persists a mutated report; the stored version must equal Version-1.
	Update(ctx context.Context, report *PaymentReport) error
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// TrialAbuseRepository is the read/append side of the trial-abuse ledger
type TrialAbuseRepository interface {
	Create(ctx context.Context, record *TrialAbuseRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*TrialAbuseRecord, error)
	// HasBlockedIP looks at every record ever written for ip.
	HasBlockedIP(ctx context.Context, ip string) (bool, error)
	CountByIPSince(ctx context.Context, ip string, since time.Time) (int64, error)
	// CountByTenantEmailSince counts records whose stored tenant e-mail is any of emails.
	CountByTenantEmailSince(ctx context.Context, emails []string, since time.Time) (int64, error)
	// CountByAnyEmailSince counts records where either stored e-mail equals email.
	CountByAnyEmailSince(ctx context.Context, email string, since time.Time) (int64, error)
	Block(ctx context.Context, id uuid.UUID, reason string) error
	BlockIP(ctx context.Context, ip, reason string) (int64, error)
}
