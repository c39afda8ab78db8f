package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/interfaces/http/dto"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func newSubscriptionRouter(f *handlerFixture, p *identity.Principal, tenant *identity.Tenant) *gin.Engine {
	h := NewSubscriptionHandler(f.renewal, f.reportSvc, f.clock, nil)
	r := gin.New()
	t := r.Group("/:slug", asUser(p, tenant))
	t.GET("/renovar-licencia/", h.Renewal)
	t.GET("/reportar-pago/", h.ListPayments)
	t.POST("/reportar-pago/", h.SubmitPayment)
	t.GET("/reportar-pago/:id/comprobante", h.PaymentProof)
	t.GET("/perfil/", h.Profile)
	return r
}

type paymentForm struct {
	fields    map[string]string
	proof     []byte
	proofName string
}

func (p paymentForm) encode(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range p.fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if p.proof != nil {
		fw, err := mw.CreateFormFile("proof", p.proofName)
		require.NoError(t, err)
		_, err = fw.Write(p.proof)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func validPaymentFields() map[string]string {
	return map[string]string{
		"amount":       "2500.00",
		"payment_date": "2026-03-18",
		"method":       string(subscription.MethodBankTransferBAC),
		"plan_code":    "mensual_completo",
		"note":         "Transferencia 12345",
	}
}

type subscriptionFixture struct {
	*handlerFixture
	tenant *identity.Tenant
	owner  *identity.User
	router *gin.Engine
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	f := newHandlerFixture(t)
	tenant := f.seedTenant(t, "Acme")
	owner := f.seedUser(t, tenant, "acmeowner", identity.RoleOwner)
	return &subscriptionFixture{
		handlerFixture: f,
		tenant:         tenant,
		owner:          owner,
		router:         newSubscriptionRouter(f, owner.Principal(tenant.Slug), tenant),
	}
}

func (s *subscriptionFixture) submit(t *testing.T, form paymentForm) *httptest.ResponseRecorder {
	body, ct := form.encode(t)
	return serve(s.router, http.MethodPost, "/"+s.tenant.Slug+"/reportar-pago/", body, ct)
}

func TestSubscriptionHandler_Renewal(t *testing.T) {
	s := newSubscriptionFixture(t)
	s.seedReport(t, s.tenant.ID, "mensual_nuevo_completo")

	w := serve(s.router, http.MethodGet, "/"+s.tenant.Slug+"/renovar-licencia/", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body RenewalResponse
	decodeData(t, w, &body)
	assert.Equal(t, s.tenant.Slug, body.TenantSlug)
	assert.Equal(t, subscription.StatusTrial, body.Subscription.Status)
	assert.Equal(t, subscription.TrialDays, body.Subscription.DaysRemaining)
	assert.NotEmpty(t, body.Plans)
	assert.NotEmpty(t, body.PaymentMethods)
	require.Len(t, body.BankAccounts, 1)
	assert.Equal(t, "BAC", body.BankAccounts[0].Bank)
	assert.Equal(t, "HNL", body.Currency)
	assert.Equal(t, "pagos@mpp365.hn", body.Contact.Email)
	assert.Len(t, body.RecentReports, 1)
}

func TestSubscriptionHandler_Renewal_NoTenant(t *testing.T) {
	f := newHandlerFixture(t)
	r := newSubscriptionRouter(f, nil, nil)

	w := serve(r, http.MethodGet, "/GHOST/renovar-licencia/", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptionHandler_SubmitPayment(t *testing.T) {
	s := newSubscriptionFixture(t)

	t.Run("with png proof", func(t *testing.T) {
		w := s.submit(t, paymentForm{fields: validPaymentFields(), proof: pngHeader, proofName: "voucher.png"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var body PaymentReportResponse
		decodeData(t, w, &body)
		assert.Equal(t, subscription.ReportPending, body.Status)
		assert.True(t, body.HasProof)
		assert.Equal(t, "2500", body.Amount.String())
		assert.Equal(t, s.tenant.ID, body.TenantID)

		report, err := s.reports.FindByID(context.Background(), body.ID)
		require.NoError(t, err)
		obj, ok := s.store.Get(report.ProofKey)
		require.True(t, ok)
		assert.Equal(t, "image/png", obj.ContentType)
	})

	t.Run("without proof", func(t *testing.T) {
		w := s.submit(t, paymentForm{fields: validPaymentFields()})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var body PaymentReportResponse
		decodeData(t, w, &body)
		assert.False(t, body.HasProof)
	})

	t.Run("proof of the wrong type", func(t *testing.T) {
		w := s.submit(t, paymentForm{fields: validPaymentFields(), proof: []byte("plain text receipt"), proofName: "voucher.png"})
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		assert.Equal(t, dto.ErrCodeProofInvalidType, decodeError(t, w).Code)
	})

	validation := []struct {
		name  string
		field string
		value string
	}{
		{"amount not a number", "amount", "dos mil"},
		{"bad date", "payment_date", "18/03/2026"},
	}
	for _, tt := range validation {
		t.Run(tt.name, func(t *testing.T) {
			fields := validPaymentFields()
			fields[tt.field] = tt.value
			w := s.submit(t, paymentForm{fields: fields})

			assert.Equal(t, http.StatusBadRequest, w.Code)
			info := decodeError(t, w)
			assert.Equal(t, dto.ErrCodeValidation, info.Code)
			require.Len(t, info.Details, 1)
			assert.Equal(t, tt.field, info.Details[0].Field)
		})
	}

	t.Run("missing plan", func(t *testing.T) {
		fields := validPaymentFields()
		delete(fields, "plan_code")
		w := s.submit(t, paymentForm{fields: fields})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown plan", func(t *testing.T) {
		fields := validPaymentFields()
		fields["plan_code"] = "platinum"
		w := s.submit(t, paymentForm{fields: fields})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeUnknownPlan, decodeError(t, w).Code)
	})
}

func TestSubscriptionHandler_ListPayments(t *testing.T) {
	s := newSubscriptionFixture(t)
	other := s.seedTenant(t, "Otra")
	s.seedReport(t, s.tenant.ID, "mensual_completo")
	s.seedReport(t, s.tenant.ID, "anual_1_completo")
	s.seedReport(t, other.ID, "mensual_completo")

	w := serve(s.router, http.MethodGet, "/"+s.tenant.Slug+"/reportar-pago/", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp, _ := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
	var reports []PaymentReportResponse
	decodeData(t, w, &reports)
	for _, r := range reports {
		assert.Equal(t, s.tenant.ID, r.TenantID)
	}
}

func TestSubscriptionHandler_PaymentProof(t *testing.T) {
	s := newSubscriptionFixture(t)
	w := s.submit(t, paymentForm{fields: validPaymentFields(), proof: pngHeader, proofName: "voucher.png"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created PaymentReportResponse
	decodeData(t, w, &created)

	t.Run("own report", func(t *testing.T) {
		w := serve(s.router, http.MethodGet, "/"+s.tenant.Slug+"/reportar-pago/"+created.ID.String()+"/comprobante", nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var link ProofLinkResponse
		decodeData(t, w, &link)
		u, err := url.Parse(link.URL)
		require.NoError(t, err)
		assert.True(t, strings.Contains(u.Path, s.tenant.ID.String()))
		assert.True(t, link.ExpiresAt.After(s.today))
	})

	t.Run("report of another tenant", func(t *testing.T) {
		other := s.seedTenant(t, "Otra")
		r := newSubscriptionRouter(s.handlerFixture, nil, other)
		w := serve(r, http.MethodGet, "/"+other.Slug+"/reportar-pago/"+created.ID.String()+"/comprobante", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("report without proof", func(t *testing.T) {
		plain := s.seedReport(t, s.tenant.ID, "mensual_completo")
		w := serve(s.router, http.MethodGet, "/"+s.tenant.Slug+"/reportar-pago/"+plain.ID.String()+"/comprobante", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := serve(s.router, http.MethodGet, "/"+s.tenant.Slug+"/reportar-pago/abc/comprobante", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSubscriptionHandler_Profile(t *testing.T) {
	s := newSubscriptionFixture(t)

	w := serve(s.router, http.MethodGet, "/"+s.tenant.Slug+"/perfil/", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body ProfileResponse
	decodeData(t, w, &body)
	assert.Equal(t, "acmeowner", body.Username)
	assert.Equal(t, string(identity.RoleOwner), body.Role)
	assert.Equal(t, s.tenant.Slug, body.TenantSlug)
	assert.True(t, body.Equipment)
	assert.Equal(t, subscription.StatusTrial, body.Snapshot.Status)
}
