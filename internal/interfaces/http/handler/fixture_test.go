package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	identityapp "github.com/mpp365/backend/internal/application/identity"
	subscriptionapp "github.com/mpp365/backend/internal/application/subscription"
	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/auth"
	"github.com/mpp365/backend/internal/infrastructure/config"
	"github.com/mpp365/backend/internal/infrastructure/persistence"
	"github.com/mpp365/backend/internal/infrastructure/persistence/models"
	"github.com/mpp365/backend/internal/infrastructure/storage"
	"github.com/mpp365/backend/internal/interfaces/http/dto"
	"github.com/mpp365/backend/internal/interfaces/http/middleware"
)

const testPassword = "Secret123!"

// handlerFixture wires the application services over an in-memory sqlite
// database, the way the server does over postgres
type handlerFixture struct {
	today     time.Time
	clock     subscription.Clock
	db        *gorm.DB
	tenants   *persistence.GormTenantRepository
	users     *persistence.GormUserRepository
	reports   *persistence.GormPaymentReportRepository
	abuse     *persistence.GormTrialAbuseRepository
	store     *storage.MemoryStore
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
	cookies   SessionCookies

	authService  *identityapp.AuthService
	registration *identityapp.RegistrationService
	tenantSvc    *identityapp.TenantService
	confirmation *subscriptionapp.ConfirmationService
	reportSvc    *subscriptionapp.PaymentReportService
	renewal      *subscriptionapp.RenewalService
	exporter     *subscriptionapp.PaymentExportService
	abuseSvc     *subscriptionapp.TrialAbuseService
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })

	today := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	f := &handlerFixture{
		today:     today,
		clock:     subscription.FixedClock(today),
		db:        db,
		tenants:   persistence.NewGormTenantRepository(db),
		users:     persistence.NewGormUserRepository(db),
		reports:   persistence.NewGormPaymentReportRepository(db),
		abuse:     persistence.NewGormTrialAbuseRepository(db),
		store:     storage.NewMemoryStore("", time.Minute),
		blacklist: auth.NewInMemoryTokenBlacklist(),
		cookies:   NewSessionCookies(config.CookieConfig{Path: "/", SameSite: "lax"}),
		jwt: auth.NewJWTService(config.JWTConfig{
			Secret:                 "test-secret-key-that-is-at-least-32-chars",
			AccessTokenExpiration:  15 * time.Minute,
			RefreshTokenExpiration: 24 * time.Hour,
			Issuer:                 "mpp365-test",
		}),
	}
	catalog := subscription.DefaultCatalog()
	tx := persistence.NewTxManager(db)

	f.authService = identityapp.NewAuthService(f.users, f.tenants, f.jwt, f.blacklist, nil)
	limiter := subscriptionapp.NewTrialLimiter(f.abuse, subscriptionapp.DefaultTrialLimits(), nil)
	f.registration = identityapp.NewRegistrationService(f.tenants, f.users, f.abuse, limiter, tx,
		catalog, f.clock, f.authService, nil)
	f.tenantSvc = identityapp.NewTenantService(f.tenants, f.clock, nil)
	f.confirmation = subscriptionapp.NewConfirmationService(f.reports, f.tenants, tx, catalog, f.clock, nil)
	f.reportSvc = subscriptionapp.NewPaymentReportService(f.reports, f.store, catalog, 0, nil)
	f.renewal = subscriptionapp.NewRenewalService(f.reports, catalog, f.clock, config.BillingConfig{
		Currency:     "HNL",
		ContactEmail: "pagos@mpp365.hn",
		BankAccounts: []config.BankAccount{{Bank: "BAC", AccountNumber: "730000000", Holder: "MPP365", Kind: "checking"}},
	})
	f.exporter = subscriptionapp.NewPaymentExportService(f.reports, f.tenants, "HNL", nil)
	f.abuseSvc = subscriptionapp.NewTrialAbuseService(f.abuse, nil)
	return f
}

// seedTenant stores a trial tenant that signed up today
func (f *handlerFixture) seedTenant(t *testing.T, name string) *identity.Tenant {
	t.Helper()
	tenant, err := identity.NewTrialTenant(identity.TrialSignup{Name: name, Email: "info@example.hn"}, f.today)
	require.NoError(t, err)
	require.NoError(t, f.tenants.Create(context.Background(), tenant))
	return tenant
}

// seedUser stores a tenant user with testPassword
func (f *handlerFixture) seedUser(t *testing.T, tenant *identity.Tenant, username string, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser(tenant.ID, username, testPassword, role)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

// seedOperator stores the privileged back-office user
func (f *handlerFixture) seedOperator(t *testing.T) *identity.User {
	t.Helper()
	u, err := identity.NewOperator("admin", testPassword)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *handlerFixture) seedReport(t *testing.T, tenantID uuid.UUID, planCode string) *subscription.PaymentReport {
	t.Helper()
	r, err := subscription.NewPaymentReport(tenantID, decimal.NewFromInt(2500), f.today,
		subscription.MethodBankTransferBAC, planCode, "")
	require.NoError(t, err)
	require.NoError(t, f.reports.Create(context.Background(), r))
	return r
}

// asUser attaches principal and, when given, tenant the way the auth and
// resolver middleware do
func asUser(p *identity.Principal, tenant *identity.Tenant) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if p != nil {
			c.Set(middleware.PrincipalKey, p)
			ctx = identity.WithPrincipal(ctx, p)
		}
		if tenant != nil {
			tc := tenant.Context()
			c.Set(middleware.TenantKey, tc)
			ctx = identity.WithTenant(ctx, tc)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func serve(r http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }

func serveJSON(r http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	return serve(r, method, path, body, "application/json")
}

// decodeResponse unmarshals the envelope, leaving data as raw JSON
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) (dto.Response, json.RawMessage) {
	t.Helper()
	var envelope struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	return envelope.Response, envelope.Data
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	_, data := decodeResponse(t, w)
	require.NoError(t, json.Unmarshal(data, out), string(data))
}

func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
