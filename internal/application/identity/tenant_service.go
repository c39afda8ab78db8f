package identity

import (
	"context"
	"sort"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"go.uber.org/zap"
)

// Scenario names accepted by Simulate
const (
	ScenarioWarn7    = "warn7"
	ScenarioDanger3  = "danger3"
	ScenarioDanger1  = "danger1"
	ScenarioExpired5 = "expired5"
	ScenarioTrial2   = "trial2"
	ScenarioReset    = "reset"
)

type scenario struct {
	status subscription.Status
	typ    subscription.Type
	offset int
}

var scenarios = map[string]scenario{
	ScenarioWarn7:    {subscription.StatusActive, subscription.TypeMonthly, 7},
	ScenarioDanger3:  {subscription.StatusActive, subscription.TypeMonthly, 3},
	ScenarioDanger1:  {subscription.StatusActive, subscription.TypeMonthly, 1},
	ScenarioExpired5: {subscription.StatusExpired, subscription.TypeMonthly, -5},
	ScenarioTrial2:   {subscription.StatusTrial, subscription.TypeTrial, 2},
	ScenarioReset:    {subscription.StatusActive, subscription.TypeMonthly, 30},
}

// Scenarios lists the simulation scenario names
func Scenarios() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var ErrUnknownScenario = shared.NewDomainError("INVALID_INPUT", "Unknown simulation scenario")

// TenantService handles back-office tenant operations
type TenantService struct {
	tenantRepo identity.TenantRepository
	clock      subscription.Clock
	logger     *zap.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(tenantRepo identity.TenantRepository, clock subscription.Clock, logger *zap.Logger) *TenantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantService{
		tenantRepo: tenantRepo,
		clock:      clock,
		logger:     logger,
	}
}

// List returns tenants matching filter
func (s *TenantService) List(ctx context.Context, filter shared.Filter) ([]TenantDTO, int64, error) {
	tenants, total, err := s.tenantRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	today := s.clock.Today()
	out := make([]TenantDTO, len(tenants))
	for i := range tenants {
		out[i] = ToTenantDTO(&tenants[i], today)
	}
	return out, total, nil
}

// GetBySlug returns one tenant, active or not
func (s *TenantService) GetBySlug(ctx context.Context, slug string) (*TenantDTO, error) {
	t, err := s.tenantRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	dto := ToTenantDTO(t, s.clock.Today())
	return &dto, nil
}

// Contract returns the subscription fields other modules depend on
func (s *TenantService) Contract(ctx context.Context, slug string) (*SubscriptionContract, error) {
	t, err := s.tenantRepo.FindActiveBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	snap := t.Snapshot(s.clock.Today())
	return &SubscriptionContract{
		Slug:              t.Slug,
		Status:            snap.Status,
		Expiration:        t.SubscriptionExpiration,
		DaysRemaining:     snap.DaysRemaining,
		EquipmentIncluded: t.EquipmentIncluded,
	}, nil
}

// Simulate rewrites a tenant's subscription window to exercise the
// renewal banners and the expiry gate
func (s *TenantService) Simulate(ctx context.Context, slug, name string) (*TenantDTO, error) {
	sc, ok := scenarios[name]
	if !ok {
		return nil, ErrUnknownScenario
	}
	t, err := s.tenantRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	today := s.clock.Today()
	t.SetSubscriptionWindow(sc.status, sc.typ, subscription.AddDays(today, sc.offset))
	if err := s.tenantRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("Subscription scenario applied",
		zap.String("tenant_slug", t.Slug),
		zap.String("scenario", name))
	dto := ToTenantDTO(t, today)
	return &dto, nil
}

// Cancel closes a tenant's subscription
func (s *TenantService) Cancel(ctx context.Context, slug string) (*TenantDTO, error) {
	t, err := s.tenantRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := t.Cancel(); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("Subscription cancelled", zap.String("tenant_slug", t.Slug))
	dto := ToTenantDTO(t, s.clock.Today())
	return &dto, nil
}

// Deactivate hides a tenant from slug resolution
func (s *TenantService) Deactivate(ctx context.Context, slug string) error {
	t, err := s.tenantRepo.FindBySlug(ctx, slug)
	if err != nil {
		return err
	}
	t.Deactivate()
	if err := s.tenantRepo.Update(ctx, t); err != nil {
		return err
	}
	s.logger.Info("Tenant deactivated", zap.String("tenant_slug", t.Slug))
	return nil
}

// Delete removes a tenant that owns no records
func (s *TenantService) Delete(ctx context.Context, slug string) error {
	t, err := s.tenantRepo.FindBySlug(ctx, slug)
	if err != nil {
		return err
	}
	return s.tenantRepo.Delete(ctx, t.ID)
}

// Stats counts tenants per stored subscription status
func (s *TenantService) Stats(ctx context.Context) (map[subscription.Status]int64, error) {
	return s.tenantRepo.CountByStatus(ctx)
}
