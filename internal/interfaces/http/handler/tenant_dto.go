package handler

import "github.com/mpp365/backend/internal/application/identity"

// TenantResponse represents a tenant in back-office responses
type TenantResponse = identity.TenantDTO

// SubscriptionContractResponse is the subscription contract other modules read
type SubscriptionContractResponse = identity.SubscriptionContract

// SimulateRequest picks a subscription scenario to apply
type SimulateRequest struct {
	Scenario string `json:"scenario" binding:"required"`
}

// TenantStatsResponse counts tenants per stored subscription status
type TenantStatsResponse struct {
	ByStatus map[string]int64 `json:"by_status"`
	Total    int64            `json:"total"`
}

// TenantSlugURI binds the :slug path parameter of the back-office routes
type TenantSlugURI struct {
	Slug string `uri:"slug" binding:"required,slug"`
}
