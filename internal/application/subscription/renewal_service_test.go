package subscription

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/config"
)

func TestRenewalService_Overview(t *testing.T) {
	ctx := context.Background()
	today := day(2025, 5, 1)
	billing := config.BillingConfig{
		Currency:     "HNL",
		ContactName:  "Pagos",
		ContactEmail: "pagos@example.hn",
		BankAccounts: []config.BankAccount{{Bank: "BAC", AccountNumber: "7300-1", Holder: "MPP365"}},
	}

	t.Run("basic tenant gets an upgrade offer and renewal plans", func(t *testing.T) {
		repo := new(MockPaymentReportRepository)
		repo.On("FindByTenant", ctx, mock.Anything, mock.Anything).Return([]subscription.PaymentReport{}, int64(0), nil)
		svc := NewRenewalService(repo, subscription.DefaultCatalog(), subscription.FixedClock(today), billing)

		exp := day(2025, 5, 20)
		tc := &identity.TenantContext{
			ID:           uuid.New(),
			Slug:         "ACME",
			Status:       subscription.StatusActive,
			Expiration:   &exp,
			SetupFeePaid: true,
			ChosenPlan:   "mensual_basico",
		}

		out, err := svc.Overview(ctx, tc)
		require.NoError(t, err)
		assert.Equal(t, 19, out.Subscription.DaysRemaining)
		require.NotNil(t, out.Upgrade)
		assert.Equal(t, "mensual_completo", out.Upgrade.UpgradePlan)
		assert.True(t, out.Upgrade.PriceDelta.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, "HNL", out.Currency)
		assert.Len(t, out.BankAccounts, 1)
		assert.Len(t, out.PaymentMethods, 5)

		require.Len(t, out.Plans, 2)
		for _, g := range out.Plans {
			for _, p := range g.Plans {
				assert.False(t, p.NewCustomer, "setup fee already paid")
				assert.False(t, p.Legacy)
				assert.Equal(t, g.Tier, p.Tier)
			}
		}
	})

	t.Run("trial tenant sees new-customer plans and no upgrade", func(t *testing.T) {
		repo := new(MockPaymentReportRepository)
		repo.On("FindByTenant", ctx, mock.Anything, mock.Anything).Return([]subscription.PaymentReport{}, int64(0), nil)
		svc := NewRenewalService(repo, subscription.DefaultCatalog(), subscription.FixedClock(today), billing)

		exp := day(2025, 5, 3)
		tc := &identity.TenantContext{ID: uuid.New(), Slug: "NEW", Status: subscription.StatusTrial, Expiration: &exp, EquipmentIncluded: true}

		out, err := svc.Overview(ctx, tc)
		require.NoError(t, err)
		assert.Nil(t, out.Upgrade)
		assert.Equal(t, subscription.AlertDanger, out.Subscription.Alert.Level)
		for _, g := range out.Plans {
			for _, p := range g.Plans {
				assert.True(t, p.NewCustomer)
			}
		}
	})
}
