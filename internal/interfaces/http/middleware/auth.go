package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/infrastructure/auth"
	"github.com/mpp365/backend/internal/infrastructure/logger"
	"github.com/mpp365/backend/internal/interfaces/http/dto"
)

// Auth context keys
const (
	PrincipalKey      = "principal"
	ClaimsKey         = "jwt_claims"
	AuthHeaderKey     = "Authorization"
	BearerPrefix      = "Bearer "
	AccessTokenCookie = "access_token"
	LoginPath         = "/login/"
)

// AuthConfig holds configuration for the session middleware
type AuthConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// Blacklist is optional; revoked tokens are treated as anonymous
	Blacklist auth.TokenBlacklist
	Logger    *zap.Logger
}

// OptionalAuthWithConfig attaches the principal when the request carries a
// valid access token. Missing, invalid, expired and revoked tokens all leave
// the request anonymous.
func OptionalAuthWithConfig(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" || cfg.JWTService == nil {
			c.Next()
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			log.Debug("Ignoring invalid access token",
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if cfg.Blacklist != nil && claims.ID != "" {
			revoked, err := cfg.Blacklist.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				log.Warn("Token blacklist unavailable",
					zap.String("request_id", c.GetString(RequestIDKey)),
					zap.Error(err),
				)
			} else if revoked {
				c.Next()
				return
			}
		}

		principal, err := claims.Principal()
		if err != nil {
			log.Debug("Ignoring token with malformed claims", zap.Error(err))
			c.Next()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(PrincipalKey, principal)

		ctx := identity.WithPrincipal(c.Request.Context(), principal)
		ctx, _ = logger.WithUserID(ctx, logger.L(ctx), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// extractToken reads the bearer header first, then the session cookie
func extractToken(c *gin.Context) string {
	if header := c.GetHeader(AuthHeaderKey); header != "" {
		if strings.HasPrefix(header, BearerPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// RequireAuth rejects anonymous requests. API and JSON clients get 401,
// browsers are sent to the login page.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetPrincipal(c) != nil {
			c.Next()
			return
		}
		if wantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized,
				"Authentication required",
				c.GetString(RequestIDKey),
			))
			return
		}
		c.Redirect(http.StatusFound, LoginPath)
		c.Abort()
	}
}

// RequirePrivileged only lets the platform operator through
func RequirePrivileged() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			RequireAuth()(c)
			return
		}
		if !p.Privileged {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden,
				"Operator access required",
				c.GetString(RequestIDKey),
			))
			return
		}
		c.Next()
	}
}

// RequireCapability lets through principals whose role grants capability
func RequireCapability(capability identity.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			RequireAuth()(c)
			return
		}
		if !p.Can(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden,
				"You do not have permission to perform this action",
				c.GetString(RequestIDKey),
			))
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated user, or nil for anonymous requests
func GetPrincipal(c *gin.Context) *identity.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*identity.Principal); ok {
			return p
		}
	}
	return nil
}

// GetClaims returns the validated access token claims, or nil
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
