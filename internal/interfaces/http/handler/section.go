package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/interfaces/http/middleware"
)

// Sections are the business modules served under a tenant slug
var Sections = []string{
	"proyectos",
	"empleados",
	"planillas",
	"gastos",
	"clientes",
	"proveedores",
	"maquinarias",
	"usos-maquinaria",
}

// SectionResponse is the shell every tenant page renders around its module
type SectionResponse struct {
	TenantSlug   string                `json:"tenant_slug"`
	TenantName   string                `json:"tenant_name"`
	Section      string                `json:"section"`
	Subscription subscription.Snapshot `json:"subscription"`
}

// SectionHandler serves the tenant dashboard and the business section shells
type SectionHandler struct {
	BaseHandler
	clock    subscription.Clock
	sections map[string]bool
}

// NewSectionHandler creates a new SectionHandler
func NewSectionHandler(clock subscription.Clock) *SectionHandler {
	sections := make(map[string]bool, len(Sections))
	for _, s := range Sections {
		sections[s] = true
	}
	return &SectionHandler{clock: clock, sections: sections}
}

// Dashboard godoc
// @Summary      Tenant dashboard
// @Tags         sections
// @Produce      json
// @Param        slug path string true "Tenant slug"
// @Success      200 {object} dto.Response{data=SectionResponse}
// @Security     BearerAuth
// @Router       /{slug}/ [get]
func (h *SectionHandler) Dashboard(c *gin.Context) {
	h.render(c, "dashboard")
}

// Section godoc
// @Summary      Business section
// @Description  Sections: proyectos, empleados, planillas, gastos, clientes, proveedores, maquinarias, usos-maquinaria
// @Tags         sections
// @Produce      json
// @Param        slug    path string true "Tenant slug"
// @Param        section path string true "Section"
// @Success      200 {object} dto.Response{data=SectionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{slug}/{section}/ [get]
func (h *SectionHandler) Section(c *gin.Context) {
	section := c.Param("section")
	if !h.sections[section] {
		h.NotFound(c, "Page not found")
		return
	}
	h.render(c, section)
}

func (h *SectionHandler) render(c *gin.Context, section string) {
	tenant := middleware.GetTenant(c)
	if tenant == nil {
		h.NotFound(c, "Tenant not found")
		return
	}
	snap, ok := middleware.GetSubscriptionSnapshot(c)
	if !ok {
		snap = tenant.Snapshot(h.clock.Today())
	}
	h.Success(c, SectionResponse{
		TenantSlug:   tenant.Slug,
		TenantName:   tenant.Name,
		Section:      section,
		Subscription: snap,
	})
}
