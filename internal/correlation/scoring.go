package correlation

import (
	"math"
	"time"

	"github.com/stayops-systems/sentinel/internal/models"
)

// Scoring policy constants. The base score is the sum of three bounded
// components; the rule's risk multiplier then scales it, capped at 100.
// Kept together so they can be tuned and tested without touching the
// engine's control flow.
const (
	// MaxRiskScore is the ceiling of every computed risk score.
	MaxRiskScore = 100

	// CountDensityWeight scales the event-count ratio (count/minEvents).
	// A group at exactly minEvents scores CountDensityWeight.
	CountDensityWeight = 25.0
	// CountDensityCap bounds the event-count component.
	CountDensityCap = 50

	// TimeDensityWeight scales events-per-minute into the time component.
	TimeDensityWeight = 6.0
	// TimeDensityCap bounds the time component. An instantaneous burst
	// (zero span) scores the full cap.
	TimeDensityCap = 30

	// DiversityPerAction is the per-distinct-action contribution.
	DiversityPerAction = 5
	// DiversityCap bounds the action-diversity component.
	DiversityCap = 20
)

// Indicator confidence policy.
const (
	// IndicatorBaseConfidence is the floor for extracted indicators.
	IndicatorBaseConfidence = 50
	// IndicatorPerOccurrence is added per repeated occurrence beyond the first.
	IndicatorPerOccurrence = 10
	// IndicatorMaxConfidence caps extracted indicator confidence.
	IndicatorMaxConfidence = 95
)

// baseScore computes the unscaled risk of a correlated group.
func baseScore(pattern *models.CorrelationPattern, rule *models.CorrelationRule) int {
	countDensity := int(math.Round(float64(pattern.EventCount) / float64(rule.MinEvents) * CountDensityWeight))
	if countDensity > CountDensityCap {
		countDensity = CountDensityCap
	}

	timeDensity := TimeDensityCap
	if pattern.TimeSpan > 0 {
		perMinute := float64(pattern.EventCount) / pattern.TimeSpan.Minutes()
		timeDensity = int(math.Round(perMinute * TimeDensityWeight))
		if timeDensity > TimeDensityCap {
			timeDensity = TimeDensityCap
		}
	}

	diversity := len(pattern.ActionTypes) * DiversityPerAction
	if diversity > DiversityCap {
		diversity = DiversityCap
	}

	return countDensity + timeDensity + diversity
}

// riskScore applies the rule multiplier and the global cap.
func riskScore(pattern *models.CorrelationPattern, rule *models.CorrelationRule) int {
	score := int(math.Round(float64(baseScore(pattern, rule)) * rule.RiskMultiplier))
	if score > MaxRiskScore {
		score = MaxRiskScore
	}
	return score
}

// indicatorConfidence grows with occurrence count, capped below certainty.
func indicatorConfidence(occurrences int) int {
	c := IndicatorBaseConfidence + (occurrences-1)*IndicatorPerOccurrence
	if c > IndicatorMaxConfidence {
		c = IndicatorMaxConfidence
	}
	return c
}

// frequency returns events per minute over the span; a zero span counts
// the whole group in one minute.
func frequency(count int, span time.Duration) float64 {
	if span <= 0 {
		return float64(count)
	}
	return float64(count) / span.Minutes()
}
