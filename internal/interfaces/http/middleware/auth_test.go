package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/infrastructure/auth"
	"github.com/mpp365/backend/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
	})
}

func tenantPrincipal(slug string, role identity.Role) *identity.Principal {
	tid := uuid.New()
	return &identity.Principal{
		UserID:     uuid.New(),
		TenantID:   &tid,
		TenantSlug: slug,
		Username:   "user-" + slug,
		Role:       role,
	}
}

func operatorPrincipal() *identity.Principal {
	return &identity.Principal{UserID: uuid.New(), Username: "operator", Role: identity.RoleOwner, Privileged: true}
}

func accessTokenFor(t *testing.T, svc *auth.JWTService, p *identity.Principal) string {
	t.Helper()
	pair, err := svc.GenerateTokenPair(p)
	require.NoError(t, err)
	return pair.AccessToken
}

// withPrincipal stands in for OptionalAuth in gate tests
func withPrincipal(p *identity.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			c.Set(PrincipalKey, p)
			c.Request = c.Request.WithContext(identity.WithPrincipal(c.Request.Context(), p))
		}
		c.Next()
	}
}

type failingBlacklist struct{}

func (failingBlacklist) Revoke(context.Context, string, time.Duration) error { return errors.New("down") }
func (failingBlacklist) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("down")
}

func newAuthRouter(cfg AuthConfig, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(OptionalAuthWithConfig(cfg))
	r.Use(mw...)
	r.GET("/whoami", func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		ctxP, ok := identity.PrincipalFromContext(c.Request.Context())
		if !ok || ctxP.UserID != p.UserID {
			c.String(http.StatusInternalServerError, "context mismatch")
			return
		}
		c.String(http.StatusOK, p.Username)
	})
	r.GET("/api/v1/whoami", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestOptionalAuth(t *testing.T) {
	svc := newTestJWTService()
	p := tenantPrincipal("acme", identity.RoleOwner)
	token := accessTokenFor(t, svc, p)

	tests := []struct {
		name    string
		prepare func(req *http.Request)
		want    string
	}{
		{"no token", func(*http.Request) {}, "anonymous"},
		{"bearer header", func(req *http.Request) { req.Header.Set(AuthHeaderKey, BearerPrefix+token) }, p.Username},
		{"session cookie", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
		}, p.Username},
		{"garbage token", func(req *http.Request) { req.Header.Set(AuthHeaderKey, BearerPrefix+"not-a-jwt") }, "anonymous"},
		{"non bearer scheme", func(req *http.Request) { req.Header.Set(AuthHeaderKey, "Basic abc") }, "anonymous"},
	}

	r := newAuthRouter(AuthConfig{JWTService: svc})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			tt.prepare(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestOptionalAuth_RefreshTokenIsNotASession(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(tenantPrincipal("acme", identity.RoleOwner))
	require.NoError(t, err)

	r := newAuthRouter(AuthConfig{JWTService: svc})
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.RefreshToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "anonymous", w.Body.String())
}

func TestOptionalAuth_Blacklist(t *testing.T) {
	svc := newTestJWTService()
	p := tenantPrincipal("acme", identity.RoleOwner)
	token := accessTokenFor(t, svc, p)
	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	t.Run("revoked token is anonymous", func(t *testing.T) {
		bl := auth.NewInMemoryTokenBlacklist()
		require.NoError(t, bl.Revoke(context.Background(), claims.ID, time.Minute))

		r := newAuthRouter(AuthConfig{JWTService: svc, Blacklist: bl})
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "anonymous", w.Body.String())
	})

	t.Run("blacklist outage keeps the session", func(t *testing.T) {
		r := newAuthRouter(AuthConfig{JWTService: svc, Blacklist: failingBlacklist{}})
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, p.Username, w.Body.String())
	})
}

func TestRequireAuth(t *testing.T) {
	svc := newTestJWTService()
	r := newAuthRouter(AuthConfig{JWTService: svc}, RequireAuth())

	t.Run("browser is redirected to login", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, LoginPath, w.Header().Get("Location"))
	})

	t.Run("api client gets 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_UNAUTHORIZED")
	})

	t.Run("json accept gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("authenticated passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+accessTokenFor(t, svc, tenantPrincipal("acme", identity.RoleReadOnly)))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequirePrivileged(t *testing.T) {
	tests := []struct {
		name      string
		principal *identity.Principal
		wantCode  int
	}{
		{"operator", operatorPrincipal(), http.StatusOK},
		{"tenant owner", tenantPrincipal("acme", identity.RoleOwner), http.StatusForbidden},
		{"anonymous", nil, http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(withPrincipal(tt.principal), RequirePrivileged())
			r.GET("/back-office/payments", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/back-office/payments", nil))
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRequireCapability(t *testing.T) {
	tests := []struct {
		name      string
		principal *identity.Principal
		wantCode  int
	}{
		{"owner reports payments", tenantPrincipal("acme", identity.RoleOwner), http.StatusOK},
		{"readonly cannot", tenantPrincipal("acme", identity.RoleReadOnly), http.StatusForbidden},
		{"operator bypasses roles", operatorPrincipal(), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(withPrincipal(tt.principal), RequireCapability(identity.CapReportPayment))
			r.POST("/acme/reportar-pago/", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/acme/reportar-pago/", nil))
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
