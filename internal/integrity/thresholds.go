// Package integrity holds the risk thresholds shared by the risk accumulator
// and the pure builder of per-session integrity reports.
package integrity

import "github.com/stemsi/exstem-proctor/internal/model"

const (
	MinRisk = 0
	MaxRisk = 100

	// AutoSubmitThreshold force-finalizes a session once its risk reaches it.
	AutoSubmitThreshold = 80

	// MultipleFacesDelta is added for a camera check that saw more than one face.
	MultipleFacesDelta = 30

	// FraudAlertThreshold lists a session on the admin fraud-alert board.
	FraudAlertThreshold = 30

	HighRiskThreshold     = 70
	ModerateRiskThreshold = 40
)

// ClampRisk bounds a score to [MinRisk, MaxRisk].
func ClampRisk(score int) int {
	if score < MinRisk {
		return MinRisk
	}
	if score > MaxRisk {
		return MaxRisk
	}
	return score
}

// NextRisk is the score after applying delta to current.
func NextRisk(current, delta int) int {
	return ClampRisk(current + delta)
}

// ShouldAutoSubmit reports whether score forces a session to end.
func ShouldAutoSubmit(score int) bool {
	return score >= AutoSubmitThreshold
}

// Level classifies a risk score for reporting.
func Level(score int) model.RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return model.RiskLevelHigh
	case score >= ModerateRiskThreshold:
		return model.RiskLevelModerate
	default:
		return model.RiskLevelLow
	}
}
