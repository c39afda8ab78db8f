package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
)

// TenantRepository persists tenants
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	// FindActiveBySlug matches the slug case-insensitively among active tenants.
	FindActiveBySlug(ctx context.Context, slug string) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Tenant, int64, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, tenant *Tenant) error
	// Update persists a mutated tenant; the stored version must equal Version-1.
	Update(ctx context.Context, tenant *Tenant) error
	// Delete fails with ErrTenantHasDependents while users or payment reports reference the tenant.
	Delete(ctx context.Context, id uuid.UUID) error
	// NormalizeExpired flips one lapsed trial/active tenant to expired.
	// It reports whether a row changed; concurrent callers converge.
	NormalizeExpired(ctx context.Context, id uuid.UUID, today time.Time) (bool, error)
	// SweepExpired flips every lapsed trial/active tenant to expired.
	SweepExpired(ctx context.Context, today time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[subscription.Status]int64, error)
}

// UserRepository persists users
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByUsername matches case-insensitively.
	FindByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
