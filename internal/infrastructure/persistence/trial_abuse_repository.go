package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/persistence/models"
)

// GormTrialAbuseRepository implements subscription.TrialAbuseRepository using GORM
type GormTrialAbuseRepository struct {
	db *gorm.DB
}

// NewGormTrialAbuseRepository creates a new GormTrialAbuseRepository
func NewGormTrialAbuseRepository(db *gorm.DB) *GormTrialAbuseRepository {
	return &GormTrialAbuseRepository{db: db}
}

func (r *GormTrialAbuseRepository) records(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).Model(&models.TrialAbuseRecordModel{})
}

// Create appends a record
func (r *GormTrialAbuseRepository) Create(ctx context.Context, record *subscription.TrialAbuseRecord) error {
	return conn(ctx, r.db).Create(models.TrialAbuseRecordModelFromDomain(record)).Error
}

// FindByID finds a record by ID
func (r *GormTrialAbuseRepository) FindByID(ctx context.Context, id uuid.UUID) (*subscription.TrialAbuseRecord, error) {
	var model models.TrialAbuseRecordModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// HasBlockedIP checks every record ever written for ip, not only the window
func (r *GormTrialAbuseRepository) HasBlockedIP(ctx context.Context, ip string) (bool, error) {
	var count int64
	err := r.records(ctx).Where("origin_ip = ? AND blocked = ?", ip, true).Count(&count).Error
	return count > 0, err
}

// CountByIPSince counts records from ip created at or after since
func (r *GormTrialAbuseRepository) CountByIPSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.records(ctx).Where("origin_ip = ? AND created_at >= ?", ip, since.UTC()).Count(&count).Error
	return count, err
}

// CountByTenantEmailSince counts records whose tenant e-mail is one of emails
func (r *GormTrialAbuseRepository) CountByTenantEmailSince(ctx context.Context, emails []string, since time.Time) (int64, error) {
	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		if e = subscription.NormalizeEmail(e); e != "" {
			normalized = append(normalized, e)
		}
	}
	if len(normalized) == 0 {
		return 0, nil
	}
	var count int64
	err := r.records(ctx).Where("tenant_email IN ? AND created_at >= ?", normalized, since.UTC()).Count(&count).Error
	return count, err
}

// CountByAnyEmailSince counts records where either stored e-mail is email
func (r *GormTrialAbuseRepository) CountByAnyEmailSince(ctx context.Context, email string, since time.Time) (int64, error) {
	email = subscription.NormalizeEmail(email)
	if email == "" {
		return 0, nil
	}
	var count int64
	err := r.records(ctx).
		Where("(tenant_email = ? OR user_email = ?) AND created_at >= ?", email, email, since.UTC()).
		Count(&count).Error
	return count, err
}

// Block flags one record
func (r *GormTrialAbuseRepository) Block(ctx context.Context, id uuid.UUID, reason string) error {
	result := r.records(ctx).Where("id = ?", id).Updates(map[string]any{"blocked": true, "block_reason": reason})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// BlockIP flags every record from ip; with no prior records it appends a
// blocked marker so the next sign-up from ip is refused.
func (r *GormTrialAbuseRepository) BlockIP(ctx context.Context, ip, reason string) (int64, error) {
	result := r.records(ctx).Where("origin_ip = ?", ip).Updates(map[string]any{"blocked": true, "block_reason": reason})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		return result.RowsAffected, nil
	}
	marker := subscription.NewTrialAbuseRecord(ip, "", "", "", nil)
	marker.Block(reason)
	if err := r.Create(ctx, marker); err != nil {
		return 0, err
	}
	return 1, nil
}
