package identity

import (
	"context"
	"errors"
	"strings"

	subscriptionapp "github.com/mpp365/backend/internal/application/subscription"
	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"go.uber.org/zap"
)

const maxSlugAttempts = 50

var (
	ErrTermsNotAccepted = shared.NewDomainError("TERMS_NOT_ACCEPTED", "You must accept the terms of service")
	ErrUsernameTaken    = shared.NewDomainError("ALREADY_EXISTS", "Username is already taken")
	ErrSlugExhausted    = shared.NewDomainError("ALREADY_EXISTS", "A company with this name already exists")
)

// TrialGate decides whether a sign-up may start a trial
type TrialGate interface {
	Check(ctx context.Context, in subscriptionapp.TrialAttempt) error
}

// RegistrationService creates a trial tenant together with its owner account
type RegistrationService struct {
	tenantRepo     identity.TenantRepository
	userRepo       identity.UserRepository
	abuseRepo      subscription.TrialAbuseRepository
	limiter        TrialGate
	tx             subscriptionapp.Transactor
	catalog        *subscription.Catalog
	clock          subscription.Clock
	authService    *AuthService
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	tenantRepo identity.TenantRepository,
	userRepo identity.UserRepository,
	abuseRepo subscription.TrialAbuseRepository,
	limiter TrialGate,
	tx subscriptionapp.Transactor,
	catalog *subscription.Catalog,
	clock subscription.Clock,
	authService *AuthService,
	logger *zap.Logger,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		tenantRepo:  tenantRepo,
		userRepo:    userRepo,
		abuseRepo:   abuseRepo,
		limiter:     limiter,
		tx:          tx,
		catalog:     catalog,
		clock:       clock,
		authService: authService,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *RegistrationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Register validates the sign-up, runs the trial limiter and then creates
// the tenant, its owner and the ledger record in one transaction.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if !in.AcceptTerms {
		return nil, ErrTermsNotAccepted
	}
	plan := strings.TrimSpace(in.PlanCode)
	if plan != "" && plan != subscription.TrialPlanCode && !s.catalog.Has(plan) {
		return nil, subscription.ErrUnknownPlan
	}

	if err := s.limiter.Check(ctx, subscriptionapp.TrialAttempt{
		OriginIP:    in.OriginIP,
		TenantEmail: in.TenantEmail,
		UserEmail:   in.Email,
	}); err != nil {
		return nil, err
	}

	today := s.clock.Today()
	tenant, err := identity.NewTrialTenant(identity.TrialSignup{
		Name:           in.TenantName,
		TaxID:          in.TaxID,
		Email:          in.TenantEmail,
		Phone:          in.TenantPhone,
		Address:        in.TenantAddress,
		RegistrationIP: in.OriginIP,
		ChosenPlan:     plan,
	}, today)
	if err != nil {
		return nil, err
	}

	var (
		owner  *identity.User
		events []shared.DomainEvent
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		taken, err := s.userRepo.ExistsByUsername(ctx, in.Username)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}

		if err := s.assignSlug(ctx, tenant); err != nil {
			return err
		}
		// The registration event is rebuilt so it carries the final slug.
		tenant.ClearDomainEvents()
		if err := s.tenantRepo.Create(ctx, tenant); err != nil {
			return err
		}

		owner, err = identity.NewUser(tenant.ID, in.Username, in.Password, identity.RoleOwner)
		if err != nil {
			return err
		}
		if err := owner.SetProfile(in.FullName, in.Email, in.Phone); err != nil {
			return err
		}
		if err := s.userRepo.Create(ctx, owner); err != nil {
			return err
		}

		tid := tenant.ID
		record := subscription.NewTrialAbuseRecord(in.OriginIP, in.TenantEmail, in.Email, in.TaxID, &tid)
		if err := s.abuseRepo.Create(ctx, record); err != nil {
			return err
		}

		events = append(events, identity.NewTenantRegisteredEvent(tenant))
		events = append(events, owner.GetDomainEvents()...)
		owner.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trial tenant registered",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("tenant_slug", tenant.Slug),
		zap.String("origin_ip", in.OriginIP),
		zap.String("chosen_plan", tenant.ChosenPlan))

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish domain events", zap.Error(err))
		}
	}

	result := &RegisterResult{
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
		UserID:     owner.ID,
		Snapshot:   tenant.Snapshot(today),
	}
	if s.authService != nil {
		tokens, err := s.authService.IssueTokens(owner, tenant.Slug)
		if err != nil {
			// The account exists; the user can still sign in manually.
			s.logger.Error("Failed to issue tokens after registration", zap.Error(err))
		} else {
			result.Tokens = tokens
		}
	}
	return result, nil
}

// assignSlug appends -2, -3, ... until the slug is free
func (s *RegistrationService) assignSlug(ctx context.Context, tenant *identity.Tenant) error {
	for n := 1; n <= maxSlugAttempts; n++ {
		tenant.WithSlugSuffix(n)
		exists, err := s.tenantRepo.ExistsBySlug(ctx, tenant.Slug)
		if err != nil {
			return err
		}
		if !exists {
			return nil
		}
	}
	return ErrSlugExhausted
}

// IsTrialRejection reports whether err came from the trial limiter
func IsTrialRejection(err error) bool {
	return errors.Is(err, subscriptionapp.ErrTrialLimit)
}
