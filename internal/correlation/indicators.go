package correlation

import (
	"strings"

	"github.com/stayops-systems/sentinel/internal/models"
)

// extractIndicators derives indicators of compromise from a correlated
// group: one per distinct IP, one per distinct actor, and a pattern
// indicator when the group spans more than one action type.
func extractIndicators(group []models.SecurityEvent, rule *models.CorrelationRule) []models.ThreatIndicator {
	ipCounts := make(map[string]int)
	actorCounts := make(map[string]int)
	var ipOrder, actorOrder []string
	actions := make(map[string]struct{})
	var actionOrder []string

	for i := range group {
		e := &group[i]
		if e.IPAddress != "" {
			if ipCounts[e.IPAddress] == 0 {
				ipOrder = append(ipOrder, e.IPAddress)
			}
			ipCounts[e.IPAddress]++
		}
		if e.ActorID != "" {
			if actorCounts[e.ActorID] == 0 {
				actorOrder = append(actorOrder, e.ActorID)
			}
			actorCounts[e.ActorID]++
		}
		if _, seen := actions[e.Action]; !seen {
			actions[e.Action] = struct{}{}
			actionOrder = append(actionOrder, e.Action)
		}
	}

	first := group[0].Timestamp
	last := group[len(group)-1].Timestamp

	indicators := make([]models.ThreatIndicator, 0, len(ipOrder)+len(actorOrder)+1)
	for _, ip := range ipOrder {
		indicators = append(indicators, models.ThreatIndicator{
			Type:       models.IndicatorIP,
			Value:      ip,
			Confidence: indicatorConfidence(ipCounts[ip]),
			Source:     rule.ID,
			FirstSeen:  first,
			LastSeen:   last,
		})
	}
	for _, actor := range actorOrder {
		indicators = append(indicators, models.ThreatIndicator{
			Type:       models.IndicatorActor,
			Value:      actor,
			Confidence: indicatorConfidence(actorCounts[actor]),
			Source:     rule.ID,
			FirstSeen:  first,
			LastSeen:   last,
		})
	}
	if len(actionOrder) > 1 {
		indicators = append(indicators, models.ThreatIndicator{
			Type:       models.IndicatorPattern,
			Value:      strings.Join(actionOrder, ","),
			Confidence: rule.Confidence,
			Source:     rule.ID,
			FirstSeen:  first,
			LastSeen:   last,
		})
	}
	return indicators
}
