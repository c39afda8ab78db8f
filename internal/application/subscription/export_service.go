package subscription

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/export"
)

const exportPageSize = 100

// MaxExportRows bounds a single export
const MaxExportRows = 5000

// PaymentExportService renders payment reports as a back-office spreadsheet
type PaymentExportService struct {
	reports  subscription.PaymentReportRepository
	tenants  identity.TenantRepository
	currency string
	logger   *zap.Logger
}

// NewPaymentExportService creates a new PaymentExportService
func NewPaymentExportService(reports subscription.PaymentReportRepository, tenants identity.TenantRepository, currency string, logger *zap.Logger) *PaymentExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentExportService{
		reports:  reports,
		tenants:  tenants,
		currency: currency,
		logger:   logger,
	}
}

// ExportByStatus returns an XLSX workbook of every report in status, newest first
func (s *PaymentExportService) ExportByStatus(ctx context.Context, status subscription.ReportStatus) ([]byte, error) {
	filter := shared.DefaultFilter()
	filter.PageSize = exportPageSize

	var reports []subscription.PaymentReport
	for {
		page, total, err := s.reports.FindByStatus(ctx, status, filter)
		if err != nil {
			return nil, err
		}
		reports = append(reports, page...)
		if len(page) == 0 || int64(len(reports)) >= total || len(reports) >= MaxExportRows {
			break
		}
		filter.Page++
	}
	if len(reports) > MaxExportRows {
		reports = reports[:MaxExportRows]
	}

	tenants := make(map[uuid.UUID]*identity.Tenant)
	rows := make([]export.PaymentRow, 0, len(reports))
	for i := range reports {
		r := &reports[i]
		tenant, err := s.tenant(ctx, tenants, r.TenantID)
		if err != nil {
			return nil, err
		}
		row := export.PaymentRow{
			ReportID:    r.ID.String(),
			Amount:      r.Amount,
			Currency:    s.currency,
			PaymentDate: r.PaymentDate,
			Method:      string(r.Method),
			PlanCode:    r.PlanCode,
			Status:      string(r.Status),
			HasProof:    r.ProofKey != "",
			Note:        r.Note,
			AdminNote:   r.AdminNote,
			CreatedAt:   r.CreatedAt,
			ConfirmedAt: r.ConfirmedAt,
		}
		if tenant != nil {
			row.TenantSlug = tenant.Slug
			row.TenantName = tenant.Name
		}
		rows = append(rows, row)
	}

	s.logger.Info("Exporting payment reports",
		zap.String("status", string(status)),
		zap.Int("rows", len(rows)))
	return export.PaymentsWorkbook(rows)
}

// tenant memoizes lookups; a deleted tenant leaves the columns blank
func (s *PaymentExportService) tenant(ctx context.Context, cache map[uuid.UUID]*identity.Tenant, id uuid.UUID) (*identity.Tenant, error) {
	if t, ok := cache[id]; ok {
		return t, nil
	}
	t, err := s.tenants.FindByID(ctx, id)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	cache[id] = t
	return t, nil
}
