package domain

import (
	"context"
)

// Severity tiers, ordered by priority. Higher tiers queue earlier.
const (
	TierLow    = 1
	TierMedium = 2
	TierHigh   = 3
)

// Severity is the triage outcome for one receipt: a continuous score on
// the 0..10 scale and the discrete tier used for queue ordering.
type Severity struct {
	Score float64 `json:"score"`
	Tier  int     `json:"tier"`
}

// TierName returns the display name for a severity tier
func TierName(tier int) string {
	switch tier {
	case TierHigh:
		return "HIGH"
	case TierMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// TierBoundaries maps a continuous score onto a discrete tier.
// Scores at or below LowMax are low, at or below MediumMax are medium,
// everything above is high.
type TierBoundaries struct {
	LowMax    float64
	MediumMax float64
}

// TierFor buckets a score into a tier
func (b TierBoundaries) TierFor(score float64) int {
	switch {
	case score <= b.LowMax:
		return TierLow
	case score <= b.MediumMax:
		return TierMedium
	default:
		return TierHigh
	}
}

// SeverityClassifier derives a severity from an uploaded artifact and the
// declared symptoms. Implementations must be deterministic for identical
// input and must degrade rather than block when inference is unavailable.
type SeverityClassifier interface {
	Classify(ctx context.Context, ref ArtifactRef, symptomText string) (Severity, error)
}
