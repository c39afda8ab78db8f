package router

import (
	"github.com/gin-gonic/gin"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/interfaces/http/handler"
	"github.com/mpp365/backend/internal/interfaces/http/middleware"
)

// Handlers groups every HTTP handler the site mounts
type Handlers struct {
	System       *handler.SystemHandler
	Auth         *handler.AuthHandler
	Registration *handler.RegistrationHandler
	Tenants      *handler.TenantHandler
	Subscription *handler.SubscriptionHandler
	Sections     *handler.SectionHandler
	Payments     *handler.PaymentReviewHandler
	TrialAbuse   *handler.TrialAbuseHandler
}

// Mount registers the whole route tree on r. authLimit guards the
// credential endpoints and may be nil.
func Mount(r *Router, h Handlers, authLimit gin.HandlerFunc) {
	public := NewDomainGroup("public", "")
	public.GET("/health", h.System.Health)
	public.GET("/terms/", h.System.Terms)
	public.POST("/logout/", h.Auth.Logout)
	r.RegisterSite(public)

	credentials := NewDomainGroup("credentials", "")
	if authLimit != nil {
		credentials.Use(authLimit)
	}
	credentials.POST("/login/", h.Auth.Login)
	credentials.POST("/login/refresh/", h.Auth.RefreshToken)
	credentials.POST("/register/", h.Registration.Register)
	credentials.POST("/registro/", h.Registration.Register)
	r.RegisterSite(credentials)

	r.RegisterSite(backOfficeRoutes(h))
	r.RegisterSite(tenantRoutes(h))

	tenants := NewDomainGroup("tenants", "/tenants").Use(middleware.RequireAuth())
	tenants.GET("/:slug/subscription", h.Tenants.Contract)
	r.Register(tenants)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)
	r.Register(system)
}

func backOfficeRoutes(h Handlers) *DomainGroup {
	operator := NewDomainGroup("operator", "").Use(middleware.RequirePrivileged())
	operator.GET("/select-tenant/", h.Tenants.SelectTenant)

	bo := operator.Group("back-office", "/back-office")

	tenants := bo.Group("back-office-tenants", "/tenants")
	tenants.GET("", h.Tenants.List)
	tenants.GET("/stats", h.Tenants.Stats)
	tenants.GET("/:slug", h.Tenants.Get)
	tenants.POST("/:slug/simulate", h.Tenants.Simulate)
	tenants.POST("/:slug/cancel", h.Tenants.Cancel)
	tenants.POST("/:slug/deactivate", h.Tenants.Deactivate)
	tenants.DELETE("/:slug", h.Tenants.Delete)

	payments := bo.Group("back-office-payments", "/payments")
	payments.GET("", h.Payments.List)
	payments.GET("/export", h.Payments.Export)
	payments.GET("/:id/proof", h.Payments.Proof)
	payments.POST("/:id/confirm", h.Payments.Confirm)
	payments.POST("/:id/reject", h.Payments.Reject)
	payments.POST("/:id/notes", h.Payments.AddNote)

	bo.POST("/trial-records/:id/block", h.TrialAbuse.BlockRecord)
	bo.POST("/trial-ips/block", h.TrialAbuse.BlockIP)
	return operator
}

func tenantRoutes(h Handlers) *DomainGroup {
	tenant := NewDomainGroup("tenant", "/:slug").Use(middleware.RequireAuth())
	tenant.GET("/", h.Sections.Dashboard)
	tenant.GET("/"+middleware.RenewalSegment+"/", h.Subscription.Renewal)
	tenant.GET("/reportar-pago/", h.Subscription.ListPayments)
	tenant.POST("/reportar-pago/",
		middleware.RequireCapability(identity.CapReportPayment),
		h.Subscription.SubmitPayment,
	)
	tenant.GET("/reportar-pago/:id/comprobante", h.Subscription.PaymentProof)
	tenant.GET("/perfil/", h.Subscription.Profile)
	tenant.GET("/:section/", h.Sections.Section)
	return tenant
}
