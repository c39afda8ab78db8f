package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mpp365/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	Enabled bool
	// SkipPathPrefixes don't need profiling labels (health checks, assets).
	SkipPathPrefixes []string
}

// DefaultProfilingConfig returns default profiling middleware configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPathPrefixes: []string{"/health", "/static/", "/media/"},
	}
}

// ProfilingWithConfig attaches route, method and tenant labels to the
// profile samples of the rest of the chain. Register it after the tenant
// resolver so the tenant label is known.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		var tenant string
		if tc := GetTenant(c); tc != nil {
			tenant = tc.Slug
		}
		labels := telemetry.HTTPRequestLabels(c.FullPath(), c.Request.Method, tenant)

		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
