package subscription

import "time"

// IsExpired is the authoritative lapse check: expiration < today.
// A missing expiration date is never considered lapsed.
func IsExpired(expiration *time.Time, today time.Time) bool {
	if expiration == nil {
		return false
	}
	return DateOf(*expiration).Before(DateOf(today))
}

// IsUsable reports whether the subscription currently grants access
func IsUsable(status Status, expiration *time.Time, today time.Time) bool {
	if status != StatusTrial && status != StatusActive {
		return false
	}
	if expiration == nil {
		return false
	}
	return !IsExpired(expiration, today)
}

// DaysRemaining returns max(0, expiration - today), or 0 when unset
func DaysRemaining(expiration *time.Time, today time.Time) int {
	if expiration == nil {
		return 0
	}
	days := DaysBetween(today, *expiration)
	if days < 0 {
		return 0
	}
	return days
}

// InTrial reports whether the stored status is trial
func InTrial(status Status) bool {
	return status == StatusTrial
}

// Snapshot is the evaluated state of a subscription on a given day
type Snapshot struct {
	Status        Status     `json:"status"`
	Expiration    *time.Time `json:"expiration,omitempty"`
	Today         time.Time  `json:"today"`
	Usable        bool       `json:"usable"`
	Expired       bool       `json:"expired"`
	InTrial       bool       `json:"in_trial"`
	DaysRemaining int        `json:"days_remaining"`
	Alert         Alert      `json:"alert"`
}

// Evaluate computes the full snapshot. It has no side effects; callers that
// observe Expired with a non-expired stored status own the normalization.
func Evaluate(status Status, expiration *time.Time, today time.Time) Snapshot {
	expired := IsExpired(expiration, today)
	days := DaysRemaining(expiration, today)
	effective := status
	if expired && (status == StatusTrial || status == StatusActive) {
		effective = StatusExpired
	}
	return Snapshot{
		Status:        effective,
		Expiration:    expiration,
		Today:         DateOf(today),
		Usable:        IsUsable(status, expiration, today),
		Expired:       expired,
		InTrial:       InTrial(status),
		DaysRemaining: days,
		Alert:         AlertFor(effective, days, expired),
	}
}

// NeedsNormalization reports whether the stored status must be rewritten to expired
func NeedsNormalization(status Status, expiration *time.Time, today time.Time) bool {
	return (status == StatusTrial || status == StatusActive) && IsExpired(expiration, today)
}

// Blocks reports whether a tenant in this state is denied non-renewal access
func Blocks(status Status) bool {
	return status == StatusExpired || status == StatusCancelled
}
