package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/auth"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Username string
	Password string
	IP       string // Client IP for login tracking
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	Tokens *auth.TokenPair `json:"tokens"`
	User   UserInfo        `json:"user"`
}

// UserInfo contains basic user information returned after login
type UserInfo struct {
	ID         uuid.UUID     `json:"id"`
	TenantID   *uuid.UUID    `json:"tenant_id,omitempty"`
	TenantSlug string        `json:"tenant_slug,omitempty"`
	Username   string        `json:"username"`
	FullName   string        `json:"full_name,omitempty"`
	Email      string        `json:"email,omitempty"`
	Role       identity.Role `json:"role"`
	Privileged bool          `json:"privileged"`
	// Home is where the client should land after signing in.
	Home string `json:"home"`
}

// LogoutInput carries the tokens to revoke
type LogoutInput struct {
	AccessTokenID  string
	AccessTokenTTL time.Duration
	RefreshToken   string
}

// RegisterInput is the trial sign-up form
type RegisterInput struct {
	TenantName    string `json:"tenant_name" binding:"required,max=200"`
	TaxID         string `json:"tax_id" binding:"required,max=20"`
	TenantEmail   string `json:"tenant_email" binding:"required,email"`
	TenantPhone   string `json:"tenant_phone" binding:"omitempty,max=30"`
	TenantAddress string `json:"tenant_address" binding:"omitempty,max=500"`
	FullName      string `json:"full_name" binding:"required,max=150"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone" binding:"omitempty,max=30"`
	Username      string `json:"username" binding:"required,min=3,max=100"`
	Password      string `json:"password" binding:"required,min=8"`
	AcceptTerms   bool   `json:"accept_terms"`
	// PlanCode comes from the ?plan= query parameter.
	PlanCode string `json:"-"`
	OriginIP string `json:"-"`
}

// RegisterResult is returned after a successful sign-up
type RegisterResult struct {
	TenantID   uuid.UUID             `json:"tenant_id"`
	TenantSlug string                `json:"tenant_slug"`
	UserID     uuid.UUID             `json:"user_id"`
	Snapshot   subscription.Snapshot `json:"subscription"`
	Tokens     *auth.TokenPair       `json:"tokens"`
}

// TenantDTO is the back-office view of a tenant
type TenantDTO struct {
	ID                     uuid.UUID           `json:"id"`
	Name                   string              `json:"name"`
	Slug                   string              `json:"slug"`
	TaxID                  string              `json:"tax_id,omitempty"`
	Email                  string              `json:"email,omitempty"`
	Phone                  string              `json:"phone,omitempty"`
	Active                 bool                `json:"active"`
	SubscriptionType       subscription.Type   `json:"subscription_type"`
	SubscriptionStatus     subscription.Status `json:"subscription_status"`
	SubscriptionStart      *time.Time          `json:"subscription_start,omitempty"`
	SubscriptionExpiration *time.Time          `json:"subscription_expiration,omitempty"`
	DaysRemaining          int                 `json:"days_remaining"`
	SetupFeePaid           bool                `json:"setup_fee_paid"`
	EquipmentIncluded      bool                `json:"equipment_included"`
	ChosenPlan             string              `json:"chosen_plan,omitempty"`
	CreatedAt              time.Time           `json:"created_at"`
}

// ToTenantDTO converts a domain tenant evaluated on today
func ToTenantDTO(t *identity.Tenant, today time.Time) TenantDTO {
	return TenantDTO{
		ID:                     t.ID,
		Name:                   t.Name,
		Slug:                   t.Slug,
		TaxID:                  t.TaxID,
		Email:                  t.Email,
		Phone:                  t.Phone,
		Active:                 t.Active,
		SubscriptionType:       t.SubscriptionType,
		SubscriptionStatus:     t.SubscriptionStatus,
		SubscriptionStart:      t.SubscriptionStart,
		SubscriptionExpiration: t.SubscriptionExpiration,
		DaysRemaining:          subscription.DaysRemaining(t.SubscriptionExpiration, today),
		SetupFeePaid:           t.SetupFeePaid,
		EquipmentIncluded:      t.EquipmentIncluded,
		ChosenPlan:             t.ChosenPlan,
		CreatedAt:              t.CreatedAt,
	}
}

// SubscriptionContract is the four-field view other modules rely on
type SubscriptionContract struct {
	Slug              string              `json:"slug"`
	Status            subscription.Status `json:"status"`
	Expiration        *time.Time          `json:"expiration,omitempty"`
	DaysRemaining     int                 `json:"days_remaining"`
	EquipmentIncluded bool                `json:"equipment_included"`
}
