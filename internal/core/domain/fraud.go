package domain

// ScorePolicy holds the fraud-score penalties and risk thresholds. All
// values are points on the 0-100 score scale.
type ScorePolicy struct {
	MissingFieldPenalty   int
	FaceMismatchPenalty   int
	UnderagePenalty       int
	ImplausibleAgePenalty int

	MediumRiskThreshold int
	HighRiskThreshold   int

	AdultAge        int
	MaxPlausibleAge int
}

func DefaultScorePolicy() ScorePolicy {
	return ScorePolicy{
		MissingFieldPenalty:   15,
		FaceMismatchPenalty:   40,
		UnderagePenalty:       30,
		ImplausibleAgePenalty: 40,

		MediumRiskThreshold: 30,
		HighRiskThreshold:   60,

		AdultAge:        18,
		MaxPlausibleAge: 120,
	}
}

func (p ScorePolicy) normalize() ScorePolicy {
	def := DefaultScorePolicy()
	out := p
	if out.MissingFieldPenalty <= 0 {
		out.MissingFieldPenalty = def.MissingFieldPenalty
	}
	if out.FaceMismatchPenalty <= 0 {
		out.FaceMismatchPenalty = def.FaceMismatchPenalty
	}
	if out.UnderagePenalty <= 0 {
		out.UnderagePenalty = def.UnderagePenalty
	}
	if out.ImplausibleAgePenalty <= 0 {
		out.ImplausibleAgePenalty = def.ImplausibleAgePenalty
	}
	if out.MediumRiskThreshold <= 0 {
		out.MediumRiskThreshold = def.MediumRiskThreshold
	}
	if out.HighRiskThreshold <= out.MediumRiskThreshold {
		out.HighRiskThreshold = def.HighRiskThreshold
	}
	if out.AdultAge <= 0 {
		out.AdultAge = def.AdultAge
	}
	if out.MaxPlausibleAge <= out.AdultAge {
		out.MaxPlausibleAge = def.MaxPlausibleAge
	}
	return out
}

// Normalize fills zero or inconsistent policy values with defaults.
func (p ScorePolicy) Normalize() ScorePolicy {
	return p.normalize()
}

// RiskFor maps a fraud score onto a risk level using the policy thresholds.
func (p ScorePolicy) RiskFor(score int) RiskLevel {
	switch {
	case score >= p.HighRiskThreshold:
		return RiskHigh
	case score >= p.MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
