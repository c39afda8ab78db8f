package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	subscriptionapp "github.com/mpp365/backend/internal/application/subscription"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/export"
	"github.com/mpp365/backend/internal/interfaces/http/middleware"
)

// ReviewNoteRequest carries an operator note
type ReviewNoteRequest struct {
	Note string `json:"note" form:"note" binding:"omitempty,max=1000"`
}

// BlockRequest carries the reason for a trial ban
type BlockRequest struct {
	Reason string `json:"reason" form:"reason" binding:"required,max=500"`
}

// BlockIPRequest bans an origin IP from new trials
type BlockIPRequest struct {
	IP     string `json:"ip" form:"ip" binding:"required,ip"`
	Reason string `json:"reason" form:"reason" binding:"required,max=500"`
}

// ConfirmResponse is the outcome of a payment confirmation
type ConfirmResponse = subscriptionapp.ConfirmResult

// PaymentReviewHandler is the back-office payment review desk
type PaymentReviewHandler struct {
	BaseHandler
	confirmation *subscriptionapp.ConfirmationService
	reports      *subscriptionapp.PaymentReportService
	exporter     *subscriptionapp.PaymentExportService
	logger       *zap.Logger
}

// NewPaymentReviewHandler creates a new PaymentReviewHandler
func NewPaymentReviewHandler(
	confirmation *subscriptionapp.ConfirmationService,
	reports *subscriptionapp.PaymentReportService,
	exporter *subscriptionapp.PaymentExportService,
	logger *zap.Logger,
) *PaymentReviewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentReviewHandler{
		confirmation: confirmation,
		reports:      reports,
		exporter:     exporter,
		logger:       logger,
	}
}

// reportStatus reads ?status=, defaulting to pending
func (h *PaymentReviewHandler) reportStatus(c *gin.Context) (subscription.ReportStatus, bool) {
	status := subscription.ReportStatus(c.DefaultQuery("status", string(subscription.ReportPending)))
	switch status {
	case subscription.ReportPending, subscription.ReportConfirmed, subscription.ReportRejected:
		return status, true
	}
	h.ValidationFailed(c, "status", "Must be one of: pending confirmed rejected")
	return "", false
}

// List godoc
// @Summary      List payment reports
// @Description  Reports of every tenant in one review state, newest first
// @Tags         back-office
// @Produce      json
// @Param        status    query string false "pending, confirmed or rejected" default(pending)
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]PaymentReportResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/payments [get]
func (h *PaymentReviewHandler) List(c *gin.Context) {
	status, ok := h.reportStatus(c)
	if !ok {
		return
	}
	filter, err := bindListFilter(c)
	if err != nil {
		h.BindError(c, err)
		return
	}
	reports, total, err := h.reports.ListByStatus(c.Request.Context(), status, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, reports, total, filter.Page, filter.Limit())
}

// Confirm godoc
// @Summary      Confirm a payment
// @Description  Marks the report confirmed and activates the paid plan on the tenant. Confirming twice is a no-op.
// @Tags         back-office
// @Produce      json
// @Param        id path string true "Payment report ID"
// @Success      200 {object} dto.Response{data=ConfirmResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/payments/{id}/confirm [post]
func (h *PaymentReviewHandler) Confirm(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	result, err := h.confirmation.Confirm(c.Request.Context(), id, middleware.GetPrincipal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reject godoc
// @Summary      Reject a payment
// @Tags         back-office
// @Accept       json
// @Produce      json
// @Param        id      path string            true  "Payment report ID"
// @Param        request body ReviewNoteRequest false "Reason shown to the tenant"
// @Success      200 {object} dto.Response{data=PaymentReportResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/payments/{id}/reject [post]
func (h *PaymentReviewHandler) Reject(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req ReviewNoteRequest
	if err := c.ShouldBind(&req); err != nil && c.Request.ContentLength > 0 {
		h.BindError(c, err)
		return
	}
	report, err := h.confirmation.Reject(c.Request.Context(), id, middleware.GetPrincipal(c), req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// AddNote godoc
// @Summary      Annotate a payment report
// @Tags         back-office
// @Accept       json
// @Produce      json
// @Param        id      path string            true "Payment report ID"
// @Param        request body ReviewNoteRequest true "Note"
// @Success      200 {object} dto.Response{data=PaymentReportResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/payments/{id}/notes [post]
func (h *PaymentReviewHandler) AddNote(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req ReviewNoteRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if req.Note == "" {
		h.ValidationFailed(c, "note", "This field is required")
		return
	}
	report, err := h.confirmation.AddAdminNote(c.Request.Context(), id, middleware.GetPrincipal(c), req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Proof godoc
// @Summary      Download link for any tenant's payment proof
// @Tags         back-office
// @Produce      json
// @Param        id path string true "Payment report ID"
// @Success      200 {object} dto.Response{data=ProofLinkResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/payments/{id}/proof [get]
func (h *PaymentReviewHandler) Proof(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	link, err := h.reports.ProofURL(c.Request.Context(), nil, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, link)
}

// Export godoc
// @Summary      Export payment reports
// @Description  Downloads the reports in one review state as an XLSX workbook
// @Tags         back-office
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        status query string false "pending, confirmed or rejected" default(pending)
// @Success      200 {file} binary
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/payments/export [get]
func (h *PaymentReviewHandler) Export(c *gin.Context) {
	status, ok := h.reportStatus(c)
	if !ok {
		return
	}
	data, err := h.exporter.ExportByStatus(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("Payment export failed", zap.String("status", string(status)), zap.Error(err))
		h.HandleError(c, err)
		return
	}
	filename := fmt.Sprintf("payments-%s-%s.xlsx", status, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.XLSXContentType, data)
}

// TrialAbuseHandler lets the operator ban sign-up sources
type TrialAbuseHandler struct {
	BaseHandler
	abuse *subscriptionapp.TrialAbuseService
}

// NewTrialAbuseHandler creates a new TrialAbuseHandler
func NewTrialAbuseHandler(abuse *subscriptionapp.TrialAbuseService) *TrialAbuseHandler {
	return &TrialAbuseHandler{abuse: abuse}
}

// BlockRecord godoc
// @Summary      Block a trial record
// @Description  Flags the ledger record; its origin IP can no longer start trials
// @Tags         back-office
// @Accept       json
// @Produce      json
// @Param        id      path string       true "Trial record ID"
// @Param        request body BlockRequest true "Reason"
// @Success      200 {object} dto.Response{data=MessageData}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/trial-records/{id}/block [post]
func (h *TrialAbuseHandler) BlockRecord(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req BlockRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if err := h.abuse.BlockRecord(c.Request.Context(), id, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Trial record blocked"})
}

// BlockIP godoc
// @Summary      Block an origin IP
// @Tags         back-office
// @Accept       json
// @Produce      json
// @Param        request body BlockIPRequest true "IP and reason"
// @Success      200 {object} dto.Response{data=CountData}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /back-office/trial-ips/block [post]
func (h *TrialAbuseHandler) BlockIP(c *gin.Context) {
	var req BlockIPRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	n, err := h.abuse.BlockIP(c.Request.Context(), req.IP, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CountData{Count: n})
}
