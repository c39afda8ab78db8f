package subscription

import "fmt"

// AlertLevel is the severity of the renewal banner
type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertWarning  AlertLevel = "warning"
	AlertDanger   AlertLevel = "danger"
	AlertCritical AlertLevel = "critical"
)

// Banner thresholds in days remaining
const (
	WarningThreshold = 7
	DangerThreshold  = 3
)

// Alert is the banner shown above every tenant page
type Alert struct {
	Level   AlertLevel `json:"level"`
	Message string     `json:"message,omitempty"`
}

// AlertFor maps the days-remaining count onto the 7/3/1/0 banner contract
func AlertFor(status Status, daysRemaining int, expired bool) Alert {
	if expired || status == StatusExpired {
		return Alert{Level: AlertCritical, Message: "Your subscription has expired. Renew now to keep using the system."}
	}
	if status == StatusCancelled {
		return Alert{Level: AlertCritical, Message: "Your subscription was cancelled. Contact support to reactivate it."}
	}

	label := "subscription"
	if status == StatusTrial {
		label = "trial"
	}

	switch {
	case daysRemaining == 0:
		return Alert{Level: AlertCritical, Message: fmt.Sprintf("Your %s ends today. Renew now.", label)}
	case daysRemaining == 1:
		return Alert{Level: AlertDanger, Message: fmt.Sprintf("Your %s ends tomorrow. Renew now.", label)}
	case daysRemaining <= DangerThreshold:
		return Alert{Level: AlertDanger, Message: fmt.Sprintf("Your %s ends in %d days. Renew now.", label, daysRemaining)}
	case daysRemaining <= WarningThreshold:
		return Alert{Level: AlertWarning, Message: fmt.Sprintf("Your %s ends in %d days.", label, daysRemaining)}
	}
	return Alert{Level: AlertNone}
}
