package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/infrastructure/logger"
	"github.com/mpp365/backend/internal/infrastructure/telemetry"
)

// TenantKey stores the resolved *identity.TenantContext in gin.Context
const TenantKey = "tenant"

// DefaultTenantIndependent lists first path segments that never name a tenant
var DefaultTenantIndependent = []string{
	"login", "logout", "register", "registro", "terms", "select-tenant",
	"back-office", "static", "media", "api", "health", "favicon.ico",
}

// TenantLookup finds an active tenant by slug, ignoring case
type TenantLookup interface {
	FindActiveBySlug(ctx context.Context, slug string) (*identity.Tenant, error)
}

// TenantResolverConfig holds configuration for the tenant resolver
type TenantResolverConfig struct {
	Lookup            TenantLookup
	TenantIndependent []string
	Logger            *zap.Logger
}

// TenantResolverWithConfig resolves the tenant named by the first path
// segment and keeps authenticated users inside their own tenant.
func TenantResolverWithConfig(cfg TenantResolverConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	independent := cfg.TenantIndependent
	if independent == nil {
		independent = DefaultTenantIndependent
	}
	skip := make(map[string]struct{}, len(independent))
	for _, s := range independent {
		skip[strings.ToLower(s)] = struct{}{}
	}

	return func(c *gin.Context) {
		segment, rest := splitFirstSegment(c.Request.URL.Path)
		if segment == "" {
			c.Next()
			return
		}
		if _, ok := skip[strings.ToLower(segment)]; ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		tenant, err := cfg.Lookup.FindActiveBySlug(ctx, segment)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				log.Error("Tenant lookup failed",
					zap.String("slug", segment),
					zap.String("request_id", c.GetString(RequestIDKey)),
					zap.Error(err),
				)
			}
			c.Next()
			return
		}
		tc := tenant.Context()

		if p := GetPrincipal(c); p != nil && !p.Privileged {
			if p.TenantID == nil {
				log.Error("Authenticated user has no tenant",
					zap.String("user_id", p.UserID.String()),
					zap.String("username", p.Username),
					zap.String("path", c.Request.URL.Path),
				)
				c.Redirect(http.StatusFound, LoginPath)
				c.Abort()
				return
			}
			if *p.TenantID != tc.ID {
				target := "/" + p.TenantSlug + rest
				if q := c.Request.URL.RawQuery; q != "" {
					target += "?" + q
				}
				log.Info("Redirecting cross-tenant request",
					zap.String("user_id", p.UserID.String()),
					zap.String("requested", tc.Slug),
					zap.String("own", p.TenantSlug),
				)
				c.Redirect(http.StatusFound, target)
				c.Abort()
				return
			}
		}

		attachTenant(c, tc)
		telemetry.SetAttributes(trace.SpanFromContext(c.Request.Context()),
			telemetry.SpanAttrTenantID, tc.ID.String(),
			telemetry.SpanAttrTenantSlug, tc.Slug,
		)
		c.Next()
	}
}

// attachTenant stores tc on both the gin and the request context
func attachTenant(c *gin.Context, tc *identity.TenantContext) {
	c.Set(TenantKey, tc)
	ctx := identity.WithTenant(c.Request.Context(), tc)
	ctx, _ = logger.WithTenant(ctx, logger.L(ctx), tc.ID.String(), tc.Slug)
	c.Request = c.Request.WithContext(ctx)
}

// GetTenant returns the tenant resolved for the request, or nil
func GetTenant(c *gin.Context) *identity.TenantContext {
	if v, ok := c.Get(TenantKey); ok {
		if tc, ok := v.(*identity.TenantContext); ok {
			return tc
		}
	}
	return nil
}

// splitFirstSegment splits "/acme/gastos/1" into "acme" and "/gastos/1"
func splitFirstSegment(path string) (string, string) {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i], trimmed[i:]
	}
	return trimmed, ""
}

// secondSegment returns the path segment after the tenant slug
func secondSegment(path string) string {
	_, rest := splitFirstSegment(path)
	seg, _ := splitFirstSegment(rest)
	return seg
}
