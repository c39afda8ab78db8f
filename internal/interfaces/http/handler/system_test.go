package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mpp365/backend/internal/domain/subscription"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newSystemRouter(db Pinger) *gin.Engine {
	h := NewSystemHandler("mpp365", "1.2.3", db, nil)
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/terms/", h.Terms)
	r.GET("/system/info", h.GetSystemInfo)
	return r
}

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler("mpp365", "1.2.3", nil, nil)
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("database reachable", func(t *testing.T) {
		r := newSystemRouter(pingerFunc(func(context.Context) error { return nil }))
		w := serve(r, http.MethodGet, "/health", nil, "")

		assert.Equal(t, http.StatusOK, w.Code)
		var body HealthResponse
		decodeData(t, w, &body)
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "ok", body.Database)
	})

	t.Run("database unreachable", func(t *testing.T) {
		r := newSystemRouter(pingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") }))
		w := serve(r, http.MethodGet, "/health", nil, "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp, _ := decodeResponse(t, w)
		assert.False(t, resp.Success)
		var body HealthResponse
		decodeData(t, w, &body)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "unreachable", body.Database)
	})

	t.Run("no database configured", func(t *testing.T) {
		w := serve(newSystemRouter(nil), http.MethodGet, "/health", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSystemHandler_Terms(t *testing.T) {
	w := serve(newSystemRouter(nil), http.MethodGet, "/terms/", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	var body TermsResponse
	decodeData(t, w, &body)
	assert.Equal(t, TermsVersion, body.Version)
	assert.Equal(t, subscription.TrialDays, body.TrialDays)
	assert.Equal(t, "accept_terms", body.AcceptField)
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	w := serve(newSystemRouter(nil), http.MethodGet, "/system/info", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	var body SystemInfoResponse
	decodeData(t, w, &body)
	assert.Equal(t, "mpp365", body.Name)
	assert.Equal(t, "1.2.3", body.Version)
	assert.NotEmpty(t, body.GoVersion)
	assert.NotEmpty(t, body.Uptime)
}
