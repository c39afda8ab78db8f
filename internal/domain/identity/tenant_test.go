package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpp365/backend/internal/domain/subscription"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newAcme(t *testing.T, today time.Time) *Tenant {
	t.Helper()
	tenant, err := NewTrialTenant(TrialSignup{
		Name:           "Acme",
		Email:          "Owner@Acme.hn",
		RegistrationIP: "10.0.0.1",
		ChosenPlan:     "mensual_basico",
	}, today)
	require.NoError(t, err)
	return tenant
}

func TestNewTrialTenant(t *testing.T) {
	today := day(2025, 1, 1)

	t.Run("starts a 15 day trial with equipment", func(t *testing.T) {
		tenant := newAcme(t, today)

		assert.Equal(t, "ACME", tenant.Slug)
		assert.Equal(t, "owner@acme.hn", tenant.Email)
		assert.True(t, tenant.Active)
		assert.Equal(t, subscription.StatusTrial, tenant.SubscriptionStatus)
		assert.Equal(t, subscription.TypeTrial, tenant.SubscriptionType)
		assert.Equal(t, today, *tenant.SubscriptionStart)
		assert.Equal(t, day(2025, 1, 16), *tenant.SubscriptionExpiration)
		assert.True(t, tenant.EquipmentIncluded)
		assert.Equal(t, "mensual_basico", tenant.ChosenPlan)
		assert.Len(t, tenant.GetDomainEvents(), 1)
	})

	t.Run("trial plan marker is not stored", func(t *testing.T) {
		tenant, err := NewTrialTenant(TrialSignup{Name: "Acme", ChosenPlan: "trial"}, today)
		require.NoError(t, err)
		assert.Empty(t, tenant.ChosenPlan)
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewTrialTenant(TrialSignup{Name: "  "}, today)
		assert.Error(t, err)
	})

	t.Run("fails when name has no slug characters", func(t *testing.T) {
		_, err := NewTrialTenant(TrialSignup{Name: "!!!"}, today)
		assert.Error(t, err)
	})

	t.Run("slug suffix", func(t *testing.T) {
		tenant := newAcme(t, today)
		tenant.WithSlugSuffix(3)
		assert.Equal(t, "ACME-3", tenant.Slug)
		tenant.WithSlugSuffix(1)
		assert.Equal(t, "ACME", tenant.Slug)
	})
}

func TestTenantMarkExpired(t *testing.T) {
	tenant := newAcme(t, day(2025, 1, 1))

	assert.False(t, tenant.MarkExpired(day(2025, 1, 16)))
	assert.Equal(t, subscription.StatusTrial, tenant.SubscriptionStatus)

	assert.True(t, tenant.MarkExpired(day(2025, 1, 17)))
	assert.Equal(t, subscription.StatusExpired, tenant.SubscriptionStatus)

	assert.False(t, tenant.MarkExpired(day(2025, 1, 18)))
}

func TestTenantActivateSubscription(t *testing.T) {
	catalog := subscription.DefaultCatalog()
	basic, err := catalog.Lookup("mensual_basico")
	require.NoError(t, err)
	complete, err := catalog.Lookup("anual_1_nuevo_completo")
	require.NoError(t, err)

	t.Run("stacks on unexpired time", func(t *testing.T) {
		tenant := newAcme(t, day(2025, 1, 1))

		act, err := tenant.ActivateSubscription(basic, day(2025, 1, 10))
		require.NoError(t, err)

		assert.True(t, act.Stacked)
		assert.Equal(t, day(2025, 1, 16), act.Start)
		assert.Equal(t, day(2025, 2, 15), act.Expiration)
		assert.Equal(t, subscription.StatusActive, tenant.SubscriptionStatus)
		assert.Equal(t, subscription.TypeMonthly, tenant.SubscriptionType)
		assert.False(t, tenant.EquipmentIncluded)
		assert.Equal(t, "mensual_basico", tenant.ChosenPlan)
	})

	t.Run("stacks when expiring today", func(t *testing.T) {
		tenant := newAcme(t, day(2025, 1, 1))

		act, err := tenant.ActivateSubscription(basic, day(2025, 1, 16))
		require.NoError(t, err)
		assert.True(t, act.Stacked)
		assert.Equal(t, day(2025, 2, 15), act.Expiration)
	})

	t.Run("restarts from today after lapse", func(t *testing.T) {
		tenant := newAcme(t, day(2025, 1, 1))
		tenant.MarkExpired(day(2025, 2, 1))

		act, err := tenant.ActivateSubscription(complete, day(2025, 3, 1))
		require.NoError(t, err)

		assert.False(t, act.Stacked)
		assert.Equal(t, day(2025, 3, 1), act.Start)
		assert.Equal(t, day(2026, 1, 25), act.Expiration)
		assert.Equal(t, subscription.TypeYearly, tenant.SubscriptionType)
		assert.True(t, tenant.EquipmentIncluded)
		assert.True(t, tenant.SetupFeePaid)
	})

	t.Run("cancelled subscription is reactivated from today", func(t *testing.T) {
		tenant := newAcme(t, day(2025, 1, 1))
		require.NoError(t, tenant.Cancel())
		assert.ErrorIs(t, tenant.Cancel(), ErrSubscriptionClosed)

		act, err := tenant.ActivateSubscription(basic, day(2025, 1, 2))
		require.NoError(t, err)

		assert.False(t, act.Stacked)
		assert.Equal(t, day(2025, 1, 2), act.Start)
		assert.Equal(t, subscription.AddDays(day(2025, 1, 2), basic.CadenceDays()), act.Expiration)
		assert.Equal(t, subscription.StatusActive, tenant.SubscriptionStatus)
	})
}

func TestTenantContext(t *testing.T) {
	tenant := newAcme(t, day(2025, 1, 1))
	tc := tenant.Context()

	assert.Equal(t, tenant.ID, tc.ID)
	assert.Equal(t, "ACME", tc.Slug)

	*tenant.SubscriptionExpiration = day(2030, 1, 1)
	assert.Equal(t, day(2025, 1, 16), *tc.Expiration)

	expired := tc.WithStatus(subscription.StatusExpired)
	assert.Equal(t, subscription.StatusTrial, tc.Status)
	assert.Equal(t, subscription.StatusExpired, expired.Status)
}
