// Package subscription holds the subscription lifecycle rules: status
// evaluation, the plan catalogue, payment reports and the trial-abuse ledger.
package subscription

// Status is the stored lifecycle state of a tenant subscription
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every subscription status
func AllStatuses() []Status {
	return []Status{StatusTrial, StatusActive, StatusExpired, StatusCancelled}
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusTrial, StatusActive, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Type is the billing family of a subscription
type Type string

const (
	TypeTrial   Type = "trial"
	TypeMonthly Type = "monthly"
	TypeYearly  Type = "yearly"
)

// IsValid reports whether t is a known subscription type
func (t Type) IsValid() bool {
	switch t {
	case TypeTrial, TypeMonthly, TypeYearly:
		return true
	}
	return false
}

// TrialDays is the length of the evaluation period granted at sign-up
const TrialDays = 15
