package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/application/identity"
)

// RegistrationHandler serves the trial sign-up form
type RegistrationHandler struct {
	BaseHandler
	registration *identity.RegistrationService
	cookies      SessionCookies
	logger       *zap.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(registration *identity.RegistrationService, cookies SessionCookies, logger *zap.Logger) *RegistrationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationHandler{
		registration: registration,
		cookies:      cookies,
		logger:       logger,
	}
}

// Register godoc
// @Summary      Start a free trial
// @Description  Creates a trial company with its owner account and signs the owner in.
// @Description  The optional plan query parameter records the plan the visitor picked on the pricing page.
// @Tags         registration
// @Accept       json
// @Produce      json
// @Param        plan    query string                 false "Chosen plan code"
// @Param        request body  identity.RegisterInput true  "Sign-up form"
// @Success      201 {object} dto.Response{data=RegisterResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /register/ [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req identity.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.PlanCode = c.Query("plan")
	req.OriginIP = c.ClientIP()

	result, err := h.registration.Register(c.Request.Context(), req)
	if err != nil {
		if identity.IsTrialRejection(err) {
			h.logger.Info("Trial sign-up refused",
				zap.String("ip", req.OriginIP),
				zap.String("reason", err.Error()))
		}
		h.HandleError(c, err)
		return
	}

	h.cookies.Set(c, result.Tokens)
	h.Created(c, result)
}
