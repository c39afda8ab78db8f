package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	subscriptionapp "github.com/mpp365/backend/internal/application/subscription"
	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/interfaces/http/middleware"
)

// SubscriptionHandler serves the tenant-facing subscription pages
type SubscriptionHandler struct {
	BaseHandler
	renewal *subscriptionapp.RenewalService
	reports *subscriptionapp.PaymentReportService
	clock   subscription.Clock
	logger  *zap.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(
	renewal *subscriptionapp.RenewalService,
	reports *subscriptionapp.PaymentReportService,
	clock subscription.Clock,
	logger *zap.Logger,
) *SubscriptionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionHandler{
		renewal: renewal,
		reports: reports,
		clock:   clock,
		logger:  logger,
	}
}

// ============================================================================
// Request/Response DTOs
// ============================================================================

// SubmitPaymentRequest is the multipart payment report form. The proof file
// travels in the "proof" part.
type SubmitPaymentRequest struct {
	Amount      string `form:"amount" binding:"required"`
	PaymentDate string `form:"payment_date" binding:"required"`
	Method      string `form:"method" binding:"required"`
	PlanCode    string `form:"plan_code" binding:"required"`
	Note        string `form:"note" binding:"omitempty,max=1000"`
}

// PaymentReportResponse is the API view of a payment report
type PaymentReportResponse = subscriptionapp.PaymentReportResponse

// RenewalResponse is the renewal page data
type RenewalResponse = subscriptionapp.RenewalOverview

// ProofLinkResponse is a presigned proof download link
type ProofLinkResponse = subscriptionapp.ProofLink

const paymentDateLayout = "2006-01-02"

// ============================================================================
// Handlers
// ============================================================================

// Renewal godoc
// @Summary      Renewal page
// @Description  Subscription snapshot, plans on offer, bank accounts, payment contact and recent reports
// @Tags         subscription
// @Produce      json
// @Param        slug path string true "Tenant slug"
// @Success      200 {object} dto.Response{data=RenewalResponse}
// @Security     BearerAuth
// @Router       /{slug}/renovar-licencia/ [get]
func (h *SubscriptionHandler) Renewal(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	if tenant == nil {
		h.NotFound(c, "Tenant not found")
		return
	}
	overview, err := h.renewal.Overview(c.Request.Context(), tenant)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, overview)
}

// SubmitPayment godoc
// @Summary      Report a payment
// @Description  Records a pending payment report with an optional proof (PDF, JPEG or PNG, at most 10 MB)
// @Tags         subscription
// @Accept       multipart/form-data
// @Produce      json
// @Param        slug         path     string true  "Tenant slug"
// @Param        amount       formData string true  "Amount paid"
// @Param        payment_date formData string true  "Payment date (YYYY-MM-DD)"
// @Param        method       formData string true  "Payment method"
// @Param        plan_code    formData string true  "Plan paid for"
// @Param        note         formData string false "Note for the reviewer"
// @Param        proof        formData file   false "Proof of payment"
// @Success      201 {object} dto.Response{data=PaymentReportResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      415 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{slug}/reportar-pago/ [post]
func (h *SubscriptionHandler) SubmitPayment(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	if tenant == nil {
		h.NotFound(c, "Tenant not found")
		return
	}

	var req SubmitPaymentRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.ValidationFailed(c, "amount", "Must be a decimal number")
		return
	}
	paid, err := time.Parse(paymentDateLayout, req.PaymentDate)
	if err != nil {
		h.ValidationFailed(c, "payment_date", "Must be a date in YYYY-MM-DD format")
		return
	}

	input := subscriptionapp.SubmitPaymentReportInput{
		TenantID:    tenant.ID,
		Amount:      amount,
		PaymentDate: paid,
		Method:      subscription.PaymentMethod(req.Method),
		PlanCode:    req.PlanCode,
		Note:        req.Note,
	}
	if fh, err := c.FormFile("proof"); err == nil {
		f, err := fh.Open()
		if err != nil {
			h.logger.Warn("Failed to open uploaded proof", zap.String("tenant_slug", tenant.Slug), zap.Error(err))
			h.BadRequest(c, "Unable to read proof of payment")
			return
		}
		defer f.Close()
		input.Proof = f
		input.ProofSize = fh.Size
		input.ProofName = fh.Filename
	}

	report, err := h.reports.Submit(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, report)
}

// ListPayments godoc
// @Summary      List the tenant's payment reports
// @Tags         subscription
// @Produce      json
// @Param        slug      path  string true  "Tenant slug"
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]PaymentReportResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /{slug}/reportar-pago/ [get]
func (h *SubscriptionHandler) ListPayments(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	if tenant == nil {
		h.NotFound(c, "Tenant not found")
		return
	}
	filter, err := bindListFilter(c)
	if err != nil {
		h.BindError(c, err)
		return
	}
	reports, total, err := h.reports.ListForTenant(c.Request.Context(), tenant.ID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, reports, total, filter.Page, filter.Limit())
}

// PaymentProof godoc
// @Summary      Download link for a payment proof
// @Description  Returns a presigned link; reports of other tenants are not found
// @Tags         subscription
// @Produce      json
// @Param        slug path string true "Tenant slug"
// @Param        id   path string true "Payment report ID"
// @Success      200 {object} dto.Response{data=ProofLinkResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{slug}/reportar-pago/{id}/comprobante [get]
func (h *SubscriptionHandler) PaymentProof(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	if tenant == nil {
		h.NotFound(c, "Tenant not found")
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	link, err := h.reports.ProofURL(c.Request.Context(), &tenant.ID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, link)
}

// Profile godoc
// @Summary      Profile page
// @Description  The signed-in user with the tenant's subscription state
// @Tags         subscription
// @Produce      json
// @Param        slug path string true "Tenant slug"
// @Success      200 {object} dto.Response{data=ProfileResponse}
// @Security     BearerAuth
// @Router       /{slug}/perfil/ [get]
func (h *SubscriptionHandler) Profile(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	p := middleware.GetPrincipal(c)
	if tenant == nil || p == nil {
		h.NotFound(c, "Tenant not found")
		return
	}
	h.Success(c, ProfileResponse{
		Username:   p.Username,
		Role:       string(p.Role),
		Privileged: p.Privileged,
		TenantSlug: tenant.Slug,
		TenantName: tenant.Name,
		ChosenPlan: tenant.ChosenPlan,
		Equipment:  tenant.EquipmentIncluded,
		Snapshot:   h.snapshot(c, tenant),
	})
}

// snapshot prefers the one computed by the subscription gate
func (h *SubscriptionHandler) snapshot(c *gin.Context, tenant *identity.TenantContext) subscription.Snapshot {
	if snap, ok := middleware.GetSubscriptionSnapshot(c); ok {
		return snap
	}
	return tenant.Snapshot(h.clock.Today())
}
