package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mpp365/backend/internal/application/identity"
	"github.com/mpp365/backend/internal/interfaces/http/middleware"
)

// TenantHandler serves the operator tenant picker, the back-office tenant
// tools and the subscription contract API
type TenantHandler struct {
	BaseHandler
	tenantService *identity.TenantService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantService *identity.TenantService) *TenantHandler {
	return &TenantHandler{
		tenantService: tenantService,
	}
}

// SelectTenant godoc
// @Summary      Operator tenant picker
// @Description  Lists tenants so a privileged operator can enter one
// @Tags         tenants
// @Produce      json
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        search    query string false "Name, slug or email"
// @Success      200 {object} dto.Response{data=[]TenantResponse,meta=dto.Meta}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /select-tenant/ [get]
func (h *TenantHandler) SelectTenant(c *gin.Context) {
	h.List(c)
}

// List godoc
// @Summary      List tenants
// @Description  Paginated tenant list with each tenant's evaluated subscription state
// @Tags         tenants
// @Produce      json
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        search    query string false "Name, slug or email"
// @Success      200 {object} dto.Response{data=[]TenantResponse,meta=dto.Meta}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/tenants [get]
func (h *TenantHandler) List(c *gin.Context) {
	filter, err := bindListFilter(c)
	if err != nil {
		h.BindError(c, err)
		return
	}
	tenants, total, err := h.tenantService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, tenants, total, filter.Page, filter.Limit())
}

// bindSlug reads the :slug path parameter and answers 400 when it is not a
// well-formed tenant slug
func (h *TenantHandler) bindSlug(c *gin.Context) (string, bool) {
	var uri TenantSlugURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return "", false
	}
	return uri.Slug, true
}

// Get godoc
// @Summary      Get a tenant
// @Tags         tenants
// @Produce      json
// @Param        slug path string true "Tenant slug"
// @Success      200 {object} dto.Response{data=TenantResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/tenants/{slug} [get]
func (h *TenantHandler) Get(c *gin.Context) {
	slug, ok := h.bindSlug(c)
	if !ok {
		return
	}
	tenant, err := h.tenantService.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// Simulate godoc
// @Summary      Apply a subscription scenario
// @Description  Rewrites the tenant's subscription window (warn7, danger3, danger1, expired5, trial2, reset)
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        slug    path string          true "Tenant slug"
// @Param        request body SimulateRequest true "Scenario"
// @Success      200 {object} dto.Response{data=TenantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/tenants/{slug}/simulate [post]
func (h *TenantHandler) Simulate(c *gin.Context) {
	slug, ok := h.bindSlug(c)
	if !ok {
		return
	}
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	tenant, err := h.tenantService.Simulate(c.Request.Context(), slug, req.Scenario)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// Cancel godoc
// @Summary      Cancel a subscription
// @Tags         tenants
// @Produce      json
// @Param        slug path string true "Tenant slug"
// @Success      200 {object} dto.Response{data=TenantResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/tenants/{slug}/cancel [post]
func (h *TenantHandler) Cancel(c *gin.Context) {
	slug, ok := h.bindSlug(c)
	if !ok {
		return
	}
	tenant, err := h.tenantService.Cancel(c.Request.Context(), slug)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// Deactivate godoc
// @Summary      Deactivate a tenant
// @Description  Hides the tenant from slug resolution; its data is kept
// @Tags         tenants
// @Produce      json
// @Param        slug path string true "Tenant slug"
// @Success      200 {object} dto.Response{data=MessageData}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/tenants/{slug}/deactivate [post]
func (h *TenantHandler) Deactivate(c *gin.Context) {
	slug, ok := h.bindSlug(c)
	if !ok {
		return
	}
	if err := h.tenantService.Deactivate(c.Request.Context(), slug); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Tenant deactivated"})
}

// Delete godoc
// @Summary      Delete a tenant
// @Description  Only tenants that own no records can be deleted
// @Tags         tenants
// @Produce      json
// @Param        slug path string true "Tenant slug"
// @Success      200 {object} dto.Response{data=MessageData}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/tenants/{slug} [delete]
func (h *TenantHandler) Delete(c *gin.Context) {
	slug, ok := h.bindSlug(c)
	if !ok {
		return
	}
	if err := h.tenantService.Delete(c.Request.Context(), slug); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Tenant deleted"})
}

// Stats godoc
// @Summary      Tenant counts per subscription status
// @Tags         tenants
// @Produce      json
// @Success      200 {object} dto.Response{data=TenantStatsResponse}
// @Security     BearerAuth
// @Router       /back-office/tenants/stats [get]
func (h *TenantHandler) Stats(c *gin.Context) {
	counts, err := h.tenantService.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := TenantStatsResponse{ByStatus: make(map[string]int64, len(counts))}
	for status, n := range counts {
		resp.ByStatus[string(status)] = n
		resp.Total += n
	}
	h.Success(c, resp)
}

// Contract godoc
// @Summary      Subscription contract
// @Description  Status, expiration, days remaining and the equipment flag of an active tenant
// @Tags         tenants
// @Produce      json
// @Param        slug path string true "Tenant slug"
// @Success      200 {object} dto.Response{data=SubscriptionContractResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /api/v1/tenants/{slug}/subscription [get]
func (h *TenantHandler) Contract(c *gin.Context) {
	slug := c.Param("slug")
	// tenant users may only read their own contract
	if p := middleware.GetPrincipal(c); p == nil || (!p.Privileged && !strings.EqualFold(p.TenantSlug, slug)) {
		h.Forbidden(c, "Access to this tenant is forbidden")
		return
	}
	contract, err := h.tenantService.Contract(c.Request.Context(), slug)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, contract)
}
