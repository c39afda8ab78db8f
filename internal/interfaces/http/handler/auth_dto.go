package handler

import (
	"github.com/mpp365/backend/internal/application/identity"
	"github.com/mpp365/backend/internal/domain/subscription"
)

// =====================
// Auth Request DTOs
// =====================

// LoginRequest represents the login form. It binds from JSON or a posted form.
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" form:"password" binding:"required,max=128"`
}

// RefreshTokenRequest carries a refresh token; the refresh cookie is used when empty
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// =====================
// Auth Response DTOs
// =====================

// LoginResponse represents the response body for successful login or refresh
type LoginResponse = identity.LoginResult

// RegisterResponse represents the response body for a successful sign-up
type RegisterResponse = identity.RegisterResult

// ProfileResponse is the signed-in user's profile page
type ProfileResponse struct {
	Username   string                `json:"username"`
	Role       string                `json:"role"`
	Privileged bool                  `json:"privileged"`
	TenantSlug string                `json:"tenant_slug"`
	TenantName string                `json:"tenant_name"`
	ChosenPlan string                `json:"chosen_plan,omitempty"`
	Equipment  bool                  `json:"equipment_included"`
	Snapshot   subscription.Snapshot `json:"subscription"`
}
