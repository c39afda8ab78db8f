package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mpp365/backend/internal/domain/subscription"
)

type tenantKey struct{}
type principalKey struct{}

// TenantContext is the tenant snapshot attached to a request. It is never
// mutated after it is attached; a refreshed snapshot replaces it instead.
type TenantContext struct {
	ID                uuid.UUID
	Name              string
	Slug              string
	Status            subscription.Status
	Type              subscription.Type
	Expiration        *time.Time
	EquipmentIncluded bool
	SetupFeePaid      bool
	ChosenPlan        string
}

// Snapshot evaluates the attached tenant's subscription
func (tc *TenantContext) Snapshot(today time.Time) subscription.Snapshot {
	return subscription.Evaluate(tc.Status, tc.Expiration, today)
}

// WithStatus returns a copy carrying a different stored status
func (tc *TenantContext) WithStatus(status subscription.Status) *TenantContext {
	cp := *tc
	cp.Status = status
	return &cp
}

// WithTenant attaches the tenant snapshot to ctx
func WithTenant(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, tenantKey{}, tc)
}

// TenantFromContext returns the tenant attached to ctx, if any
func TenantFromContext(ctx context.Context) (*TenantContext, bool) {
	tc, ok := ctx.Value(tenantKey{}).(*TenantContext)
	return tc, ok && tc != nil
}

// Principal is the authenticated user of a request
type Principal struct {
	UserID     uuid.UUID
	TenantID   *uuid.UUID
	TenantSlug string
	Username   string
	Role       Role
	Privileged bool
}

// Can reports whether the principal's role grants capability
func (p *Principal) Can(c Capability) bool {
	if p.Privileged {
		return true
	}
	return HasCapability(p.Role, c)
}

// WithPrincipal attaches the authenticated user to ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated user attached to ctx, if any
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
