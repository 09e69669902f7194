package analyzer

import "strings"

// Intent is the classified purpose of a customer question.
type Intent string

// The closed set of intents the classifier may return.
const (
	IntentGreeting        Intent = "greeting"
	IntentFarewell        Intent = "farewell"
	IntentOwnPlan         Intent = "own_plan"
	IntentMobileInternet  Intent = "mobile_internet"
	IntentTariffPlans     Intent = "tariff_plans"
	IntentHomeInternet    Intent = "home_internet"
	IntentHardware        Intent = "hardware"
	IntentComparison      Intent = "comparison"
	IntentUpgrade         Intent = "upgrade"
	IntentBilling         Intent = "billing"
	IntentTroubleshooting Intent = "troubleshooting"
	IntentGeneral         Intent = "general"
)

// Intents lists every known intent in display order.
var Intents = []Intent{
	IntentGreeting, IntentFarewell, IntentOwnPlan, IntentMobileInternet,
	IntentTariffPlans, IntentHomeInternet, IntentHardware, IntentComparison,
	IntentUpgrade, IntentBilling, IntentTroubleshooting, IntentGeneral,
}

// ParseIntent normalises s and maps anything unknown to IntentGeneral.
func ParseIntent(s string) Intent {
	in := Intent(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Intents {
		if in == known {
			return in
		}
	}
	return IntentGeneral
}

// Direct reports whether the intent is answered with a canned reply.
func (i Intent) Direct() bool {
	switch i {
	case IntentGreeting, IntentFarewell, IntentOwnPlan:
		return true
	default:
		return false
	}
}

// WantsComparison reports whether the catalog comparison block applies.
func (i Intent) WantsComparison() bool {
	return i == IntentUpgrade || i == IntentComparison
}
