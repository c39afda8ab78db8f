package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/persistence/models"
)

// GormTenantRepository implements identity.TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

func (r *GormTenantRepository) first(ctx context.Context, query string, args ...any) (*identity.Tenant, error) {
	var model models.TenantModel
	if err := conn(ctx, r.db).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	return r.first(ctx, "id = ?", id)
}

// FindActiveBySlug finds an active tenant by slug, ignoring case
func (r *GormTenantRepository) FindActiveBySlug(ctx context.Context, slug string) (*identity.Tenant, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, shared.ErrNotFound
	}
	return r.first(ctx, "UPPER(slug) = ? AND active = ?", strings.ToUpper(slug), true)
}

// FindBySlug finds a tenant by slug regardless of its active flag
func (r *GormTenantRepository) FindBySlug(ctx context.Context, slug string) (*identity.Tenant, error) {
	return r.first(ctx, "UPPER(slug) = ?", strings.ToUpper(slug))
}

// FindAll lists tenants matching the filter
func (r *GormTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, int64, error) {
	query := conn(ctx, r.db).Model(&models.TenantModel{})
	if filter.Search != "" {
		keyword := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(slug) LIKE ? OR LOWER(email) LIKE ?", keyword, keyword, keyword)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, TenantSortFields, "name")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	if filter.OrderDir == "" && sortField == "name" {
		sortOrder = "ASC"
	}

	var rows []models.TenantModel
	if err := query.Order(sortField + " " + sortOrder).
		Offset(filter.Offset()).Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	tenants := make([]identity.Tenant, len(rows))
	for i := range rows {
		tenants[i] = *rows[i].ToDomain()
	}
	return tenants, total, nil
}

// ExistsBySlug checks whether any tenant, active or not, holds the slug
func (r *GormTenantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.TenantModel{}).
		Where("UPPER(slug) = ?", strings.ToUpper(slug)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new tenant
func (r *GormTenantRepository) Create(ctx context.Context, tenant *identity.Tenant) error {
	return conn(ctx, r.db).Create(models.TenantModelFromDomain(tenant)).Error
}

// Update saves a tenant with optimistic locking
func (r *GormTenantRepository) Update(ctx context.Context, tenant *identity.Tenant) error {
	model := models.TenantModelFromDomain(tenant)
	result := conn(ctx, r.db).
		Model(&models.TenantModel{}).
		Where("id = ? AND version = ?", tenant.ID, tenant.Version-1).
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

// Delete removes a tenant that no longer owns users or payment reports
func (r *GormTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)

	var users, reports int64
	if err := db.Model(&models.UserModel{}).Where("tenant_id = ?", id).Count(&users).Error; err != nil {
		return err
	}
	if err := db.Model(&models.PaymentReportModel{}).Where("tenant_id = ?", id).Count(&reports).Error; err != nil {
		return err
	}
	if users > 0 || reports > 0 {
		return identity.ErrTenantHasDependents
	}

	result := db.Delete(&models.TenantModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// NormalizeExpired flips one lapsed trial/active tenant to expired. The
// conditional WHERE makes concurrent callers converge on the same row state.
func (r *GormTenantRepository) NormalizeExpired(ctx context.Context, id uuid.UUID, today time.Time) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.TenantModel{}).
		Where("id = ?", id).
		Scopes(lapsedScope(today)).
		Updates(map[string]any{
			"subscription_status": subscription.StatusExpired,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SweepExpired flips every lapsed trial/active tenant to expired
func (r *GormTenantRepository) SweepExpired(ctx context.Context, today time.Time) (int64, error) {
	result := conn(ctx, r.db).
		Model(&models.TenantModel{}).
		Scopes(lapsedScope(today)).
		Updates(map[string]any{
			"subscription_status": subscription.StatusExpired,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

// CountByStatus counts tenants per stored subscription status
func (r *GormTenantRepository) CountByStatus(ctx context.Context) (map[subscription.Status]int64, error) {
	var rows []struct {
		SubscriptionStatus subscription.Status
		Count              int64
	}
	if err := conn(ctx, r.db).Model(&models.TenantModel{}).
		Select("subscription_status, COUNT(*) AS count").
		Group("subscription_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[subscription.Status]int64, len(rows))
	for _, row := range rows {
		out[row.SubscriptionStatus] = row.Count
	}
	return out, nil
}

func lapsedScope(today time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("subscription_status IN ?", []subscription.Status{subscription.StatusTrial, subscription.StatusActive}).
			Where("subscription_expiration IS NOT NULL AND subscription_expiration < ?", subscription.DateOf(today))
	}
}
