package subscription

import (
	"context"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/config"
)

const recentReportsShown = 5

// RenewalService assembles the renewal page
type RenewalService struct {
	reports subscription.PaymentReportRepository
	catalog *subscription.Catalog
	clock   subscription.Clock
	billing config.BillingConfig
}

// NewRenewalService creates a new RenewalService
func NewRenewalService(reports subscription.PaymentReportRepository, catalog *subscription.Catalog, clock subscription.Clock, billing config.BillingConfig) *RenewalService {
	return &RenewalService{
		reports: reports,
		catalog: catalog,
		clock:   clock,
		billing: billing,
	}
}

// Overview returns the subscription state, the plans the tenant may buy and
// the payment instructions
func (s *RenewalService) Overview(ctx context.Context, tenant *identity.TenantContext) (*RenewalOverview, error) {
	snap := tenant.Snapshot(s.clock.Today())

	out := &RenewalOverview{
		TenantSlug:        tenant.Slug,
		Subscription:      snap,
		CurrentPlan:       tenant.ChosenPlan,
		EquipmentIncluded: tenant.EquipmentIncluded,
		SetupFeePaid:      tenant.SetupFeePaid,
		Plans:             groupByTier(s.catalog.Offered(tenant.SetupFeePaid)),
		PaymentMethods:    subscription.PaymentMethods(),
		BankAccounts:      s.billing.BankAccounts,
		Currency:          s.billing.Currency,
		Contact: Contact{
			Name:     s.billing.ContactName,
			Email:    s.billing.ContactEmail,
			WhatsApp: s.billing.ContactWhatsApp,
		},
	}
	if !tenant.EquipmentIncluded && !snap.InTrial {
		offer := s.catalog.UpgradeFor(tenant.ChosenPlan)
		out.Upgrade = &offer
	}

	filter := shared.DefaultFilter()
	filter.PageSize = recentReportsShown
	reports, _, err := s.reports.FindByTenant(ctx, tenant.ID, filter)
	if err != nil {
		return nil, err
	}
	out.RecentReports = ToPaymentReportResponses(reports)
	return out, nil
}

func groupByTier(plans []subscription.Plan) []PlanGroup {
	var groups []PlanGroup
	for _, p := range plans {
		if n := len(groups); n > 0 && groups[n-1].Tier == p.Tier {
			groups[n-1].Plans = append(groups[n-1].Plans, p)
			continue
		}
		groups = append(groups, PlanGroup{Tier: p.Tier, Plans: []subscription.Plan{p}})
	}
	return groups
}
