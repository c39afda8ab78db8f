package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/interfaces/http/dto"
	"github.com/mpp365/backend/internal/interfaces/http/middleware"
)

func newAuthRouter(f *handlerFixture) *gin.Engine {
	h := NewAuthHandler(f.authService, f.cookies, nil)
	r := gin.New()
	r.POST("/login/", h.Login)
	r.POST("/login/refresh/", h.RefreshToken)
	// logout reads the claims the auth middleware stores
	r.POST("/logout/", func(c *gin.Context) {
		if raw, err := c.Cookie(middleware.AccessTokenCookie); err == nil {
			if claims, err := f.jwt.ValidateAccessToken(raw); err == nil {
				c.Set(middleware.ClaimsKey, claims)
			}
		}
		c.Next()
	}, h.Logout)
	return r
}

func login(t *testing.T, r http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	return serveJSON(r, http.MethodPost, "/login/", LoginRequest{Username: username, Password: password})
}

func TestAuthHandler_Login(t *testing.T) {
	f := newHandlerFixture(t)
	tenant := f.seedTenant(t, "Acme Construcciones")
	f.seedUser(t, tenant, "jdoe", identity.RoleOwner)
	r := newAuthRouter(f)

	t.Run("sets session cookies and returns the landing page", func(t *testing.T) {
		w := login(t, r, "jdoe", testPassword)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body LoginResponse
		decodeData(t, w, &body)
		require.NotNil(t, body.Tokens)
		assert.NotEmpty(t, body.Tokens.AccessToken)
		assert.Equal(t, "ACME-CONSTRUCCIONES", body.User.TenantSlug)
		assert.Equal(t, "/ACME-CONSTRUCCIONES/", body.User.Home)

		access := cookieByName(w, middleware.AccessTokenCookie)
		require.NotNil(t, access)
		assert.True(t, access.HttpOnly)
		assert.Equal(t, body.Tokens.AccessToken, access.Value)
		assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
		require.NotNil(t, cookieByName(w, RefreshTokenCookie))
	})

	t.Run("wrong password", func(t *testing.T) {
		w := login(t, r, "jdoe", "not-the-password")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidCredentials, decodeError(t, w).Code)
		assert.Nil(t, cookieByName(w, middleware.AccessTokenCookie))
	})

	t.Run("unknown user looks like a wrong password", func(t *testing.T) {
		w := login(t, r, "nobody", testPassword)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidCredentials, decodeError(t, w).Code)
	})

	t.Run("missing password", func(t *testing.T) {
		w := serveJSON(r, http.MethodPost, "/login/", map[string]string{"username": "jdoe"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		info := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeValidation, info.Code)
		require.NotEmpty(t, info.Details)
		assert.Equal(t, "password", info.Details[0].Field)
	})

	t.Run("form post", func(t *testing.T) {
		w := serve(r, http.MethodPost, "/login/",
			strings.NewReader("username=jdoe&password="+testPassword), "application/x-www-form-urlencoded")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthHandler_Login_OperatorLandsOnTenantPicker(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedOperator(t)

	w := login(t, newAuthRouter(f), "admin", testPassword)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body LoginResponse
	decodeData(t, w, &body)
	assert.True(t, body.User.Privileged)
	assert.Equal(t, "/select-tenant/", body.User.Home)
}

func TestAuthHandler_Login_InactiveTenant(t *testing.T) {
	f := newHandlerFixture(t)
	tenant := f.seedTenant(t, "Dormida")
	f.seedUser(t, tenant, "sleepy", identity.RoleOwner)
	require.NoError(t, f.tenantSvc.Deactivate(context.Background(), tenant.Slug))

	w := login(t, newAuthRouter(f), "sleepy", testPassword)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrCodeTenantInactive, decodeError(t, w).Code)
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	f := newHandlerFixture(t)
	tenant := f.seedTenant(t, "Acme")
	f.seedUser(t, tenant, "jdoe", identity.RoleOwner)
	r := newAuthRouter(f)

	w := login(t, r, "jdoe", testPassword)
	require.Equal(t, http.StatusOK, w.Code)
	refresh := cookieByName(w, RefreshTokenCookie)
	require.NotNil(t, refresh)

	t.Run("from cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login/refresh/", nil)
		req.AddCookie(refresh)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var body LoginResponse
		decodeData(t, w, &body)
		assert.NotEqual(t, refresh.Value, body.Tokens.RefreshToken)
		assert.NotNil(t, cookieByName(w, middleware.AccessTokenCookie))
	})

	t.Run("rotated token is refused", func(t *testing.T) {
		w := serveJSON(r, http.MethodPost, "/login/refresh/", RefreshTokenRequest{RefreshToken: refresh.Value})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, decodeError(t, w).Code)

		cleared := cookieByName(w, RefreshTokenCookie)
		require.NotNil(t, cleared)
		assert.Empty(t, cleared.Value)
	})

	t.Run("no token", func(t *testing.T) {
		w := serve(r, http.MethodPost, "/login/refresh/", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, decodeError(t, w).Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	f := newHandlerFixture(t)
	tenant := f.seedTenant(t, "Acme")
	f.seedUser(t, tenant, "jdoe", identity.RoleOwner)
	r := newAuthRouter(f)

	w := login(t, r, "jdoe", testPassword)
	require.Equal(t, http.StatusOK, w.Code)
	access := cookieByName(w, middleware.AccessTokenCookie)
	refresh := cookieByName(w, RefreshTokenCookie)

	req := httptest.NewRequest(http.MethodPost, "/logout/", nil)
	req.AddCookie(access)
	req.AddCookie(refresh)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)

	require.Equal(t, http.StatusOK, out.Code, out.Body.String())
	var body MessageData
	decodeData(t, out, &body)
	assert.Equal(t, "Logged out successfully", body.Message)
	cleared := cookieByName(out, middleware.AccessTokenCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	claims, err := f.jwt.ValidateAccessToken(access.Value)
	require.NoError(t, err)
	revoked, err := f.blacklist.IsRevoked(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	again := serveJSON(r, http.MethodPost, "/login/refresh/", RefreshTokenRequest{RefreshToken: refresh.Value})
	assert.Equal(t, http.StatusUnauthorized, again.Code)
}

func TestAuthHandler_Logout_Anonymous(t *testing.T) {
	f := newHandlerFixture(t)
	w := serve(newAuthRouter(f), http.MethodPost, "/logout/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionCookies_SameSite(t *testing.T) {
	tests := []struct {
		in   string
		want http.SameSite
	}{
		{"strict", http.SameSiteStrictMode},
		{"None", http.SameSiteNoneMode},
		{"lax", http.SameSiteLaxMode},
		{"", http.SameSiteLaxMode},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s := SessionCookies{}
			s.cfg.SameSite = tt.in
			assert.Equal(t, tt.want, s.sameSite())
		})
	}
}
