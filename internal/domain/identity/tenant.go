package identity

import (
	"strconv"
	"strings"
	"time"

	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
)

var (
	ErrTenantHasDependents = shared.NewDomainError("TENANT_HAS_DEPENDENTS", "Tenant still owns users or payment records")
	ErrSubscriptionClosed  = shared.NewDomainError("INVALID_STATE", "Subscription is cancelled")
)

// Tenant is an isolated customer account and the aggregate root of its subscription
type Tenant struct {
	shared.BaseAggregateRoot
	Name                   string
	Slug                   string
	TaxID                  string
	Email                  string
	Phone                  string
	Address                string
	Active                 bool
	SubscriptionType       subscription.Type
	SubscriptionStatus     subscription.Status
	SubscriptionStart      *time.Time
	SubscriptionExpiration *time.Time
	SetupFeePaid           bool
	EquipmentIncluded      bool
	RegistrationIP         string
	ChosenPlan             string
}

// TrialSignup carries the sign-up details a new tenant is created from
type TrialSignup struct {
	Name           string
	TaxID          string
	Email          string
	Phone          string
	Address        string
	RegistrationIP string
	ChosenPlan     string
}

// NewTrialTenant creates a tenant in its 15-day trial. The equipment module is
// enabled for the trial regardless of the plan chosen at sign-up.
func NewTrialTenant(in TrialSignup, today time.Time) (*Tenant, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateTenantName(name); err != nil {
		return nil, err
	}
	slug := Slugify(name)
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name must contain letters or digits")
	}

	chosen := strings.TrimSpace(in.ChosenPlan)
	if chosen == subscription.TrialPlanCode {
		chosen = ""
	}

	start := subscription.DateOf(today)
	expiration := subscription.AddDays(start, subscription.TrialDays)

	t := &Tenant{
		BaseAggregateRoot:      shared.NewBaseAggregateRoot(),
		Name:                   name,
		Slug:                   slug,
		TaxID:                  strings.TrimSpace(in.TaxID),
		Email:                  subscription.NormalizeEmail(in.Email),
		Phone:                  strings.TrimSpace(in.Phone),
		Address:                strings.TrimSpace(in.Address),
		Active:                 true,
		SubscriptionType:       subscription.TypeTrial,
		SubscriptionStatus:     subscription.StatusTrial,
		SubscriptionStart:      &start,
		SubscriptionExpiration: &expiration,
		EquipmentIncluded:      true,
		RegistrationIP:         strings.TrimSpace(in.RegistrationIP),
		ChosenPlan:             chosen,
	}
	t.AddDomainEvent(NewTenantRegisteredEvent(t))
	return t, nil
}

// WithSlugSuffix disambiguates a colliding slug: ACME -> ACME-2
func (t *Tenant) WithSlugSuffix(n int) {
	base := Slugify(t.Name)
	if n <= 1 {
		t.Slug = base
		return
	}
	t.Slug = base + SlugSeparator + strconv.Itoa(n)
}

// Snapshot evaluates the subscription on the given day
func (t *Tenant) Snapshot(today time.Time) subscription.Snapshot {
	return subscription.Evaluate(t.SubscriptionStatus, t.SubscriptionExpiration, today)
}

// MarkExpired applies the lazy expired transition. It reports whether the
// stored status changed; calling it on a non-lapsed or already expired
// tenant is a no-op.
func (t *Tenant) MarkExpired(today time.Time) bool {
	if !subscription.NeedsNormalization(t.SubscriptionStatus, t.SubscriptionExpiration, today) {
		return false
	}
	t.SubscriptionStatus = subscription.StatusExpired
	t.Touch()
	t.IncrementVersion()
	return true
}

// Activation describes the outcome of applying a confirmed payment
type Activation struct {
	Start      time.Time
	Expiration time.Time
	// Stacked is true when the paid period was appended to unexpired time.
	Stacked bool
}

// ActivateSubscription applies a confirmed payment for plan. Unexpired time is
// never lost: while the current expiration is today or later the new period
// starts at the old expiration. A cancelled subscription is reactivated from
// today.
func (t *Tenant) ActivateSubscription(plan subscription.Plan, today time.Time) (Activation, error) {
	today = subscription.DateOf(today)
	days := plan.CadenceDays()

	var act Activation
	if t.SubscriptionStatus != subscription.StatusCancelled &&
		t.SubscriptionExpiration != nil && !subscription.DateOf(*t.SubscriptionExpiration).Before(today) {
		act.Start = subscription.DateOf(*t.SubscriptionExpiration)
		act.Stacked = true
	} else {
		act.Start = today
	}
	act.Expiration = subscription.AddDays(act.Start, days)

	t.SubscriptionType = plan.Cadence.SubscriptionType()
	t.SubscriptionStatus = subscription.StatusActive
	t.EquipmentIncluded = plan.IncludesEquipment
	if plan.NewCustomer {
		t.SetupFeePaid = true
	}
	t.ChosenPlan = plan.Code
	start, exp := act.Start, act.Expiration
	t.SubscriptionStart = &start
	t.SubscriptionExpiration = &exp
	t.Touch()
	t.IncrementVersion()
	return act, nil
}

// Cancel closes the subscription; access is blocked like an expired one
func (t *Tenant) Cancel() error {
	if t.SubscriptionStatus == subscription.StatusCancelled {
		return ErrSubscriptionClosed
	}
	t.SubscriptionStatus = subscription.StatusCancelled
	t.Touch()
	t.IncrementVersion()
	return nil
}

// Deactivate hides the tenant from slug resolution
func (t *Tenant) Deactivate() {
	t.Active = false
	t.Touch()
	t.IncrementVersion()
}

// SetSubscriptionWindow overwrites status and dates; used by the operator simulation tool
func (t *Tenant) SetSubscriptionWindow(status subscription.Status, typ subscription.Type, expiration time.Time) {
	exp := subscription.DateOf(expiration)
	t.SubscriptionStatus = status
	t.SubscriptionType = typ
	t.SubscriptionExpiration = &exp
	t.Touch()
	t.IncrementVersion()
}

// Context returns the immutable request-scoped copy of this tenant
func (t *Tenant) Context() *TenantContext {
	v := &TenantContext{
		ID:                t.ID,
		Name:              t.Name,
		Slug:              t.Slug,
		Status:            t.SubscriptionStatus,
		Type:              t.SubscriptionType,
		EquipmentIncluded: t.EquipmentIncluded,
		SetupFeePaid:      t.SetupFeePaid,
		ChosenPlan:        t.ChosenPlan,
	}
	if t.SubscriptionExpiration != nil {
		exp := *t.SubscriptionExpiration
		v.Expiration = &exp
	}
	return v
}

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}
