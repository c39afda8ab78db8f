package subscription

import (
	"sort"

	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Tier is the feature tier of a plan
type Tier string

const (
	TierBasic    Tier = "basico"
	TierComplete Tier = "completo"
)

// Cadence is the billing period of a plan
type Cadence string

const (
	CadenceMonthly Cadence = "monthly"
	CadenceYearly1 Cadence = "yearly-1"
	CadenceYearly2 Cadence = "yearly-2"
)

// Days returns the number of days one payment of this cadence buys
func (c Cadence) Days() int {
	switch c {
	case CadenceYearly1:
		return 330
	case CadenceYearly2:
		return 690
	default:
		return 30
	}
}

// SubscriptionType returns the billing family the tenant moves to
func (c Cadence) SubscriptionType() Type {
	if c == CadenceYearly1 || c == CadenceYearly2 {
		return TypeYearly
	}
	return TypeMonthly
}

// TrialPlanCode is the sign-up marker meaning "no plan chosen yet"
const TrialPlanCode = "trial"

// ErrUnknownPlan is returned for plan codes missing from the catalogue
var ErrUnknownPlan = shared.NewDomainError("UNKNOWN_PLAN", "Unknown plan code")

// Plan is one purchasable subscription option
type Plan struct {
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	Tier              Tier            `json:"tier"`
	Cadence           Cadence         `json:"cadence"`
	Price             decimal.Decimal `json:"price"`
	IncludesEquipment bool            `json:"includes_equipment"`
	NewCustomer       bool            `json:"new_customer"`
	Legacy            bool            `json:"legacy,omitempty"`
	// UpgradeCode names the complete-tier plan with the same cadence and
	// customer variant; empty for plans that already include everything.
	UpgradeCode string `json:"upgrade_code,omitempty"`
}

// CadenceDays is the subscription length bought by this plan
func (p Plan) CadenceDays() int {
	return p.Cadence.Days()
}

// Catalog is the enumerated plan table
type Catalog struct {
	plans map[string]Plan
}

// NewCatalog builds a catalogue from plans, keyed by code
func NewCatalog(plans ...Plan) *Catalog {
	c := &Catalog{plans: make(map[string]Plan, len(plans))}
	for _, p := range plans {
		c.plans[p.Code] = p
	}
	return c
}

// Lookup resolves a plan code
func (c *Catalog) Lookup(code string) (Plan, error) {
	p, ok := c.plans[code]
	if !ok {
		return Plan{}, ErrUnknownPlan
	}
	return p, nil
}

// Has reports whether code is in the catalogue
func (c *Catalog) Has(code string) bool {
	_, ok := c.plans[code]
	return ok
}

// Offered returns the non-legacy plans a tenant may buy, sorted by tier then price.
// New-customer variants are only offered while the setup fee is unpaid.
func (c *Catalog) Offered(setupFeePaid bool) []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		if p.Legacy || p.NewCustomer == setupFeePaid {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}

// UpgradeOffer describes what a basic-tier tenant has to pay to unlock the equipment module
type UpgradeOffer struct {
	CurrentTier  Tier            `json:"current_tier"`
	RequiredTier Tier            `json:"required_tier"`
	CurrentPlan  string          `json:"current_plan"`
	UpgradePlan  string          `json:"upgrade_plan"`
	PriceDelta   decimal.Decimal `json:"price_delta"`
}

// DefaultBasicPlan is the reference plan when a tenant's plan is unknown
const DefaultBasicPlan = "mensual_basico"

// UpgradeFor computes the upgrade offer for the tenant's current plan code
func (c *Catalog) UpgradeFor(currentCode string) UpgradeOffer {
	current, err := c.Lookup(currentCode)
	if err != nil {
		current, _ = c.Lookup(DefaultBasicPlan)
	}

	offer := UpgradeOffer{
		CurrentTier:  current.Tier,
		RequiredTier: TierComplete,
		CurrentPlan:  current.Code,
		PriceDelta:   decimal.Zero,
	}
	if current.UpgradeCode == "" {
		offer.UpgradePlan = current.Code
		return offer
	}
	target, err := c.Lookup(current.UpgradeCode)
	if err != nil {
		return offer
	}
	offer.UpgradePlan = target.Code
	offer.PriceDelta = target.Price.Sub(current.Price)
	return offer
}

func plan(code, name string, tier Tier, cadence Cadence, price int64, newCustomer bool, upgrade string) Plan {
	return Plan{
		Code:              code,
		Name:              name,
		Tier:              tier,
		Cadence:           cadence,
		Price:             decimal.NewFromInt(price),
		IncludesEquipment: tier == TierComplete,
		NewCustomer:       newCustomer,
		UpgradeCode:       upgrade,
	}
}

func legacy(p Plan) Plan {
	p.Legacy = true
	return p
}

// DefaultCatalog returns the published price list (HNL)
func DefaultCatalog() *Catalog {
	return NewCatalog(
		plan("mensual_nuevo_basico", "Plan Mensual Básico", TierBasic, CadenceMonthly, 10000, true, "mensual_nuevo_completo"),
		plan("anual_1_nuevo_basico", "Plan Anual Básico (1 año)", TierBasic, CadenceYearly1, 28700, true, "anual_1_nuevo_completo"),
		plan("anual_2_nuevo_basico", "Plan Anual Básico (2 años)", TierBasic, CadenceYearly2, 49100, true, "anual_2_nuevo_completo"),
		plan("mensual_basico", "Renovación Mensual Básica", TierBasic, CadenceMonthly, 2000, false, "mensual_completo"),
		plan("anual_1_basico", "Renovación Anual Básica (1 año)", TierBasic, CadenceYearly1, 18700, false, "anual_1_completo"),
		plan("anual_2_basico", "Renovación Anual Básica (2 años)", TierBasic, CadenceYearly2, 39100, false, "anual_2_completo"),

		plan("mensual_nuevo_completo", "Plan Mensual Completo", TierComplete, CadenceMonthly, 12500, true, ""),
		plan("anual_1_nuevo_completo", "Plan Anual Completo (1 año)", TierComplete, CadenceYearly1, 33375, true, ""),
		plan("anual_2_nuevo_completo", "Plan Anual Completo (2 años)", TierComplete, CadenceYearly2, 58875, true, ""),
		plan("mensual_completo", "Renovación Mensual Completa", TierComplete, CadenceMonthly, 2500, false, ""),
		plan("anual_1_completo", "Renovación Anual Completa (1 año)", TierComplete, CadenceYearly1, 23375, false, ""),
		plan("anual_2_completo", "Renovación Anual Completa (2 años)", TierComplete, CadenceYearly2, 48875, false, ""),

		legacy(plan("mensual_nuevo", "Plan Mensual", TierComplete, CadenceMonthly, 12500, true, "")),
		legacy(plan("anual_1_nuevo", "Plan Anual (1 año)", TierComplete, CadenceYearly1, 33375, true, "")),
		legacy(plan("anual_2_nuevo", "Plan Anual (2 años)", TierComplete, CadenceYearly2, 58875, true, "")),
		legacy(plan("mensual", "Renovación Mensual", TierComplete, CadenceMonthly, 2500, false, "")),
		legacy(plan("anual_1", "Renovación Anual (1 año)", TierComplete, CadenceYearly1, 23375, false, "")),
		legacy(plan("anual_2", "Renovación Anual (2 años)", TierComplete, CadenceYearly2, 48875, false, "")),
	)
}
