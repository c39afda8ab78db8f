package identity

import (
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
)

// Aggregate type constants
const (
	AggregateTypeTenant = subscription.AggregateTypeTenant
	AggregateTypeUser   = "User"
)

// Event type constants
const (
	EventTypeTenantRegistered = "TenantRegistered"
	EventTypeUserCreated      = "UserCreated"
)

// TenantRegisteredEvent is published when a trial sign-up creates a tenant
type TenantRegisteredEvent struct {
	shared.BaseDomainEvent
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Email      string `json:"email"`
	ChosenPlan string `json:"chosen_plan,omitempty"`
}

// NewTenantRegisteredEvent creates a new TenantRegisteredEvent
func NewTenantRegisteredEvent(t *Tenant) *TenantRegisteredEvent {
	return &TenantRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantRegistered, AggregateTypeTenant, t.ID, t.ID),
		Name:            t.Name,
		Slug:            t.Slug,
		Email:           t.Email,
		ChosenPlan:      t.ChosenPlan,
	}
}

// UserCreatedEvent is published when a user account is created
type UserCreatedEvent struct {
	shared.BaseDomainEvent
	Username   string `json:"username"`
	Role       Role   `json:"role"`
	Privileged bool   `json:"privileged"`
}

// NewUserCreatedEvent creates a new UserCreatedEvent
func NewUserCreatedEvent(u *User) *UserCreatedEvent {
	var tenantID = u.ID
	if u.TenantID != nil {
		tenantID = *u.TenantID
	}
	return &UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserCreated, AggregateTypeUser, u.ID, tenantID),
		Username:        u.Username,
		Role:            u.Role,
		Privileged:      u.Privileged,
	}
}
