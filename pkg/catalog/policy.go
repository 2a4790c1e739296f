package catalog

// ChangePolicy picks the phase a target plan starts at when a subscription
// moves from one plan to another. An empty result means the first phase.
type ChangePolicy func(from, to Plan) PhaseType

// DefaultChangePolicy always starts the target plan at its first phase.
func DefaultChangePolicy(_, _ Plan) PhaseType {
	return ""
}

// SkipTrialOnSameBillingPeriod starts the target plan after its trial when
// the billing period is unchanged.
func SkipTrialOnSameBillingPeriod(from, to Plan) PhaseType {
	if from.BillingPeriod != to.BillingPeriod {
		return ""
	}
	if len(to.Phases) < 2 || to.Phases[0].Type != PhaseTrial {
		return ""
	}
	return to.Phases[1].Type
}
