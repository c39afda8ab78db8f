package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/application/identity"
	"github.com/mpp365/backend/internal/infrastructure/auth"
	"github.com/mpp365/backend/internal/infrastructure/config"
	"github.com/mpp365/backend/internal/interfaces/http/middleware"
)

// RefreshTokenCookie holds the refresh token of a browser session
const RefreshTokenCookie = "refresh_token"

// SessionCookies writes and clears the session cookies
type SessionCookies struct {
	cfg config.CookieConfig
}

// NewSessionCookies creates a SessionCookies for the configured domain and policy
func NewSessionCookies(cfg config.CookieConfig) SessionCookies {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return SessionCookies{cfg: cfg}
}

// Set stores both tokens as HttpOnly cookies
func (s SessionCookies) Set(c *gin.Context, tokens *auth.TokenPair) {
	if tokens == nil {
		return
	}
	c.SetSameSite(s.sameSite())
	c.SetCookie(middleware.AccessTokenCookie, tokens.AccessToken, maxAge(tokens.AccessTokenExpiresAt),
		s.cfg.Path, s.cfg.Domain, s.cfg.Secure, true)
	c.SetCookie(RefreshTokenCookie, tokens.RefreshToken, maxAge(tokens.RefreshTokenExpiresAt),
		s.cfg.Path, s.cfg.Domain, s.cfg.Secure, true)
}

// Clear expires both session cookies
func (s SessionCookies) Clear(c *gin.Context) {
	c.SetSameSite(s.sameSite())
	c.SetCookie(middleware.AccessTokenCookie, "", -1, s.cfg.Path, s.cfg.Domain, s.cfg.Secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, s.cfg.Path, s.cfg.Domain, s.cfg.Secure, true)
}

func (s SessionCookies) sameSite() http.SameSite {
	switch strings.ToLower(s.cfg.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func maxAge(expiresAt time.Time) int {
	secs := int(time.Until(expiresAt).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *identity.AuthService
	cookies     SessionCookies
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identity.AuthService, cookies SessionCookies, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		logger:      logger,
	}
}

// Login godoc
// @Summary      User login
// @Description  Authenticate with username and password. The token pair is returned and also set as HttpOnly cookies.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=LoginResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /login/ [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity.LoginInput{
		Username: req.Username,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.cookies.Set(c, result.Tokens)
	h.Success(c, result)
}

// RefreshToken godoc
// @Summary      Refresh the session
// @Description  Exchange a refresh token (body or cookie) for a new pair. The old refresh token is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest false "Refresh token"
// @Success      200 {object} dto.Response{data=LoginResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /login/refresh/ [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	_ = c.ShouldBind(&req)
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(RefreshTokenCookie)
	}
	if token == "" {
		h.Unauthorized(c, "Refresh token required")
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		h.cookies.Clear(c)
		h.HandleError(c, err)
		return
	}

	h.cookies.Set(c, result.Tokens)
	h.Success(c, result)
}

// Logout godoc
// @Summary      User logout
// @Description  Revoke the session tokens and clear the session cookies. Anonymous calls only clear cookies.
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=MessageData}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /logout/ [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	input := identity.LogoutInput{}
	if claims := middleware.GetClaims(c); claims != nil {
		input.AccessTokenID = claims.ID
		input.AccessTokenTTL = claims.RemainingTTL()
	}
	var req RefreshTokenRequest
	_ = c.ShouldBind(&req)
	input.RefreshToken = req.RefreshToken
	if input.RefreshToken == "" {
		input.RefreshToken, _ = c.Cookie(RefreshTokenCookie)
	}

	if err := h.authService.Logout(c.Request.Context(), input); err != nil {
		h.logger.Error("Failed to revoke session", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	h.cookies.Clear(c)
	h.Success(c, MessageData{Message: "Logged out successfully"})
}
