package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/persistence/models"
)

// GormPaymentReportRepository implements subscription.PaymentReportRepository using GORM
type GormPaymentReportRepository struct {
	db *gorm.DB
}

// NewGormPaymentReportRepository creates a new GormPaymentReportRepository
func NewGormPaymentReportRepository(db *gorm.DB) *GormPaymentReportRepository {
	return &GormPaymentReportRepository{db: db}
}

// FindByID finds a report by ID
func (r *GormPaymentReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*subscription.PaymentReport, error) {
	var model models.PaymentReportModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a report by ID within one tenant
func (r *GormPaymentReportRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*subscription.PaymentReport, error) {
	var model models.PaymentReportModel
	if err := conn(ctx, r.db).Scopes(tenantScope(tenantID)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenant lists a tenant's reports, newest first by default
func (r *GormPaymentReportRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]subscription.PaymentReport, int64, error) {
	return r.list(conn(ctx, r.db).Model(&models.PaymentReportModel{}).Scopes(tenantScope(tenantID)), filter)
}

// FindByStatus lists reports in one status across tenants
func (r *GormPaymentReportRepository) FindByStatus(ctx context.Context, status subscription.ReportStatus, filter shared.Filter) ([]subscription.PaymentReport, int64, error) {
	return r.list(conn(ctx, r.db).Model(&models.PaymentReportModel{}).Where("status = ?", status), filter)
}

func (r *GormPaymentReportRepository) list(query *gorm.DB, filter shared.Filter) ([]subscription.PaymentReport, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, PaymentReportSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var rows []models.PaymentReportModel
	if err := query.Order(sortField + " " + sortOrder).
		Offset(filter.Offset()).Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	reports := make([]subscription.PaymentReport, len(rows))
	for i := range rows {
		reports[i] = *rows[i].ToDomain()
	}
	return reports, total, nil
}

// Create inserts a new report
func (r *GormPaymentReportRepository) Create(ctx context.Context, report *subscription.PaymentReport) error {
	return conn(ctx, r.db).Create(models.PaymentReportModelFromDomain(report)).Error
}

// Update saves a report with optimistic locking
func (r *GormPaymentReportRepository) Update(ctx context.Context, report *subscription.PaymentReport) error {
	model := models.PaymentReportModelFromDomain(report)
	result := conn(ctx, r.db).
		Model(&models.PaymentReportModel{}).
		Where("id = ? AND version = ?", report.ID, report.Version-1).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CountByTenant counts a tenant's reports
func (r *GormPaymentReportRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.PaymentReportModel{}).Scopes(tenantScope(tenantID)).Count(&count).Error
	return count, err
}
