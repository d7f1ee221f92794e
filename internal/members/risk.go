package members

import (
	"math"
	"strconv"
)

// Tier is the churn risk bucket derived from a score.
type Tier string

const (
	TierCritical Tier = "critical"
	TierAtRisk   Tier = "at_risk"
	TierSafe     Tier = "safe"
	TierUnknown  Tier = "unknown"
)

const (
	criticalThreshold = 70.0
	atRiskThreshold   = 60.0
)

// TierFor maps a churn score onto its tier. A nil score is unscored.
// Every label, color and guidance string is derived from this mapping.
func TierFor(score *float64) Tier {
	switch {
	case score == nil:
		return TierUnknown
	case *score >= criticalThreshold:
		return TierCritical
	case *score >= atRiskThreshold:
		return TierAtRisk
	default:
		return TierSafe
	}
}

// Label is the human readable tier name.
func (t Tier) Label() string {
	switch t {
	case TierCritical:
		return "Critical Risk"
	case TierAtRisk:
		return "At Risk"
	case TierSafe:
		return "Safe"
	default:
		return "Unknown"
	}
}

// Color is the presentation token clients use for badges and borders.
func (t Tier) Color() string {
	switch t {
	case TierCritical:
		return "red"
	case TierAtRisk:
		return "yellow"
	case TierSafe:
		return "green"
	default:
		return "gray"
	}
}

// Guidance is the recommended next step for the tier.
func (t Tier) Guidance() string {
	switch t {
	case TierCritical:
		return "Immediate personal phone call/outreach."
	case TierAtRisk:
		return `Monitor engagement or send a "Checking In" text.`
	case TierSafe:
		return "No action needed."
	default:
		return ""
	}
}

// FormatPercent renders a score as a rounded percentage. Unscored members
// render as "0%".
func FormatPercent(score *float64) string {
	if score == nil {
		return "0%"
	}
	return strconv.FormatFloat(math.Round(*score), 'f', 0, 64) + "%"
}

// RiskView bundles the tier-derived presentation fields.
type RiskView struct {
	Tier     Tier   `json:"tier"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Guidance string `json:"guidance"`
	Percent  string `json:"percent"`
}

// ViewFor builds the presentation fields for a score.
func ViewFor(score *float64) RiskView {
	tier := TierFor(score)
	return RiskView{
		Tier:     tier,
		Label:    tier.Label(),
		Color:    tier.Color(),
		Guidance: tier.Guidance(),
		Percent:  FormatPercent(score),
	}
}
