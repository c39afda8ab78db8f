package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
)

type stubLookup struct {
	tenants map[string]*identity.Tenant
	err     error
}

func newStubLookup(tenants ...*identity.Tenant) *stubLookup {
	l := &stubLookup{tenants: map[string]*identity.Tenant{}}
	for _, t := range tenants {
		l.tenants[strings.ToUpper(t.Slug)] = t
	}
	return l
}

func (l *stubLookup) FindActiveBySlug(_ context.Context, slug string) (*identity.Tenant, error) {
	if l.err != nil {
		return nil, l.err
	}
	if t, ok := l.tenants[strings.ToUpper(slug)]; ok && t.Active {
		return t, nil
	}
	return nil, shared.ErrNotFound
}

func newTestTenant(slug string, status subscription.Status, expiration time.Time) *identity.Tenant {
	exp := subscription.DateOf(expiration)
	return &identity.Tenant{
		BaseAggregateRoot:      shared.NewBaseAggregateRoot(),
		Name:                   slug,
		Slug:                   slug,
		Active:                 true,
		SubscriptionType:       subscription.TypeMonthly,
		SubscriptionStatus:     status,
		SubscriptionExpiration: &exp,
	}
}

// principalFor builds a tenant user that belongs to t
func principalFor(t *identity.Tenant, role identity.Role) *identity.Principal {
	id := t.ID
	return &identity.Principal{UserID: uuid.New(), TenantID: &id, TenantSlug: t.Slug, Username: "user-" + t.Slug, Role: role}
}

func newResolverRouter(lookup TenantLookup, p *identity.Principal, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(withPrincipal(p), TenantResolverWithConfig(TenantResolverConfig{Lookup: lookup, Logger: log}))
	handler := func(c *gin.Context) {
		tc := GetTenant(c)
		if tc == nil {
			c.String(http.StatusOK, "none")
			return
		}
		ctxTenant, ok := identity.TenantFromContext(c.Request.Context())
		if !ok || ctxTenant.ID != tc.ID {
			c.String(http.StatusInternalServerError, "context mismatch")
			return
		}
		c.String(http.StatusOK, tc.Slug)
	}
	r.GET("/:slug/*rest", handler)
	r.GET("/", handler)
	return r
}

func TestTenantResolver_Resolution(t *testing.T) {
	acme := newTestTenant("ACME", subscription.StatusActive, time.Now().AddDate(0, 1, 0))
	inactive := newTestTenant("GONE", subscription.StatusActive, time.Now().AddDate(0, 1, 0))
	inactive.Active = false
	r := newResolverRouter(newStubLookup(acme, inactive), nil, nil)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"root has no tenant", "/", "none"},
		{"slug resolves", "/ACME/gastos/", "ACME"},
		{"slug is case-insensitive", "/acme/gastos/", "ACME"},
		{"unknown slug", "/nobody/gastos/", "none"},
		{"inactive tenant", "/gone/gastos/", "none"},
		{"tenant-independent segment", "/login/", "none"},
		{"api is tenant-independent", "/api/v1/tenants/acme/subscription", "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestTenantResolver_LookupErrorMeansNoTenant(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newResolverRouter(&stubLookup{err: errors.New("db down")}, nil, zap.New(core))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/acme/gastos/", nil))

	assert.Equal(t, "none", w.Body.String())
	require.Equal(t, 1, logs.FilterMessage("Tenant lookup failed").Len())
}

func TestTenantResolver_CrossTenantRedirect(t *testing.T) {
	acme := newTestTenant("ACME", subscription.StatusActive, time.Now().AddDate(0, 1, 0))
	beta := newTestTenant("BETA", subscription.StatusActive, time.Now().AddDate(0, 1, 0))
	lookup := newStubLookup(acme, beta)

	t.Run("own tenant passes", func(t *testing.T) {
		r := newResolverRouter(lookup, principalFor(acme, identity.RoleOwner), nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ACME/gastos/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ACME", w.Body.String())
	})

	t.Run("other tenant redirects to own slug keeping rest and query", func(t *testing.T) {
		r := newResolverRouter(lookup, principalFor(acme, identity.RoleOwner), nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/BETA/gastos/12/?page=2", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/ACME/gastos/12/?page=2", w.Header().Get("Location"))
	})

	t.Run("operator may enter any tenant", func(t *testing.T) {
		r := newResolverRouter(lookup, operatorPrincipal(), nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/BETA/gastos/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "BETA", w.Body.String())
	})

	t.Run("user without tenant is sent to login", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		orphan := &identity.Principal{UserID: uuid.New(), Username: "orphan", Role: identity.RoleOwner}
		r := newResolverRouter(lookup, orphan, zap.New(core))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ACME/gastos/", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, LoginPath, w.Header().Get("Location"))
		entries := logs.FilterMessage("Authenticated user has no tenant").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	})
}

func TestSplitFirstSegment(t *testing.T) {
	tests := []struct {
		path, seg, rest string
	}{
		{"/", "", ""},
		{"/acme", "acme", ""},
		{"/acme/", "acme", "/"},
		{"/acme/gastos/1", "acme", "/gastos/1"},
	}
	for _, tt := range tests {
		seg, rest := splitFirstSegment(tt.path)
		assert.Equal(t, tt.seg, seg, tt.path)
		assert.Equal(t, tt.rest, rest, tt.path)
	}
	assert.Equal(t, "renovar-licencia", secondSegment("/acme/renovar-licencia/"))
	assert.Equal(t, "", secondSegment("/acme"))
}
