package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/subscription"
)

const (
	// SubscriptionNoticeHeader carries the renewal banner level to clients
	SubscriptionNoticeHeader = "X-Subscription-Notice"
	// SubscriptionSnapshotKey stores the evaluated subscription.Snapshot in gin.Context
	SubscriptionSnapshotKey = "subscription_snapshot"
	// RenewalSegment is the tenant page every blocked request is sent to
	RenewalSegment = "renovar-licencia"
)

// DefaultAllowWhileExpired lists tenant pages reachable while expired
var DefaultAllowWhileExpired = []string{RenewalSegment, "reportar-pago", "perfil"}

// ExpiryNormalizer persists the expired status of a lapsed tenant
type ExpiryNormalizer interface {
	NormalizeExpired(ctx context.Context, tenant *identity.TenantContext) (bool, error)
}

// GateMetrics counts requests refused by a gate
type GateMetrics interface {
	RecordGateDenial(ctx context.Context, gate, reason string)
}

// SubscriptionGateConfig holds configuration for the subscription access gate
type SubscriptionGateConfig struct {
	Normalizer        ExpiryNormalizer
	Clock             subscription.Clock
	AllowWhileExpired []string
	Logger            *zap.Logger
	Metrics           GateMetrics
}

// SubscriptionGateWithConfig blocks expired and cancelled tenants from
// everything except the renewal pages. Lapsed trial and active tenants are
// normalized to expired on first sight.
func SubscriptionGateWithConfig(cfg SubscriptionGateConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	allow := cfg.AllowWhileExpired
	if allow == nil {
		allow = DefaultAllowWhileExpired
	}
	allowed := make(map[string]struct{}, len(allow))
	for _, s := range allow {
		allowed[strings.ToLower(s)] = struct{}{}
	}

	return func(c *gin.Context) {
		tc := GetTenant(c)
		if tc == nil {
			c.Next()
			return
		}
		if p := GetPrincipal(c); p != nil && p.Privileged {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		today := cfg.Clock.Today()

		if subscription.NeedsNormalization(tc.Status, tc.Expiration, today) {
			if cfg.Normalizer != nil {
				if _, err := cfg.Normalizer.NormalizeExpired(ctx, tc); err != nil {
					log.Error("Failed to persist expired status",
						zap.String("tenant_id", tc.ID.String()),
						zap.String("request_id", c.GetString(RequestIDKey)),
						zap.Error(err),
					)
				}
			}
			tc = tc.WithStatus(subscription.StatusExpired)
			attachTenant(c, tc)
		}

		snap := tc.Snapshot(today)
		c.Set(SubscriptionSnapshotKey, snap)
		if snap.Alert.Level != subscription.AlertNone {
			c.Header(SubscriptionNoticeHeader, string(snap.Alert.Level))
		}

		if !subscription.Blocks(tc.Status) {
			c.Next()
			return
		}
		if _, ok := allowed[strings.ToLower(secondSegment(c.Request.URL.Path))]; ok {
			c.Next()
			return
		}

		log.Info("Subscription blocked request",
			zap.String("tenant", tc.Slug),
			zap.String("status", string(tc.Status)),
			zap.String("path", c.Request.URL.Path),
		)
		if cfg.Metrics != nil {
			cfg.Metrics.RecordGateDenial(ctx, "subscription", string(tc.Status))
		}
		c.Redirect(http.StatusFound, RenewalPath(tc.Slug))
		c.Abort()
	}
}

// RenewalPath is the renewal page of the tenant
func RenewalPath(slug string) string {
	return "/" + slug + "/" + RenewalSegment + "/"
}

// GetSubscriptionSnapshot returns the snapshot evaluated by the gate
func GetSubscriptionSnapshot(c *gin.Context) (subscription.Snapshot, bool) {
	if v, ok := c.Get(SubscriptionSnapshotKey); ok {
		snap, ok := v.(subscription.Snapshot)
		return snap, ok
	}
	return subscription.Snapshot{}, false
}
