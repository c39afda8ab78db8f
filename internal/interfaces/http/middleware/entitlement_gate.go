package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/interfaces/http/dto"
)

// DefaultEquipmentPrefixes are the tenant sections of the equipment module
var DefaultEquipmentPrefixes = []string{"maquinarias", "usos-maquinaria"}

// EntitlementGateConfig holds configuration for the feature entitlement gate
type EntitlementGateConfig struct {
	Catalog  *subscription.Catalog
	Prefixes []string
	Logger   *zap.Logger
	Metrics  GateMetrics
}

// EntitlementGateWithConfig answers equipment-module requests from tenants
// whose plan lacks the module with an upgrade offer. It must run after the
// subscription gate so expired tenants see the renewal block first.
func EntitlementGateWithConfig(cfg EntitlementGateConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = subscription.DefaultCatalog()
	}
	prefixes := cfg.Prefixes
	if prefixes == nil {
		prefixes = DefaultEquipmentPrefixes
	}
	gated := make(map[string]struct{}, len(prefixes))
	for _, p := range prefixes {
		gated[strings.ToLower(p)] = struct{}{}
	}

	return func(c *gin.Context) {
		tc := GetTenant(c)
		if tc == nil {
			c.Next()
			return
		}
		if _, ok := gated[strings.ToLower(secondSegment(c.Request.URL.Path))]; !ok {
			c.Next()
			return
		}
		if p := GetPrincipal(c); p != nil && p.Privileged {
			c.Next()
			return
		}
		if subscription.InTrial(tc.Status) || tc.EquipmentIncluded {
			c.Next()
			return
		}

		offer := catalog.UpgradeFor(tc.ChosenPlan)
		log.Warn("Equipment module not included in plan",
			zap.String("tenant", tc.Slug),
			zap.String("plan", offer.CurrentPlan),
			zap.String("path", c.Request.URL.Path),
		)
		if cfg.Metrics != nil {
			cfg.Metrics.RecordGateDenial(c.Request.Context(), "entitlement", string(offer.CurrentTier))
		}

		resp := dto.NewErrorResponseWithRequestID(
			dto.ErrCodeUpgradeRequired,
			"Your plan does not include the equipment module",
			c.GetString(RequestIDKey),
		)
		resp.Data = offer
		c.AbortWithStatusJSON(http.StatusForbidden, resp)
	}
}
