package dedup

import "github.com/hazardwatch/alert-engine/internal/domain"

// Recommendation lists are severity-tiered and cumulative: each tier appends
// to everything below it rather than replacing, so a critical alert carries
// the full ladder of guidance.

var baseRecommendations = map[domain.HazardType][]string{
	domain.HazardEarthquake: {
		"Drop, cover, and hold on during shaking",
		"Stay away from windows and heavy furniture",
	},
	domain.HazardFlood: {
		"Avoid walking or driving through flood water",
		"Move valuables and electrical items above expected water level",
	},
	domain.HazardCyclone: {
		"Secure loose outdoor objects",
		"Stock drinking water, food, and batteries for 72 hours",
	},
	domain.HazardStorm: {
		"Stay indoors and away from trees and power lines",
		"Unplug sensitive electrical equipment",
	},
	domain.HazardHeatwave: {
		"Drink water regularly, avoid alcohol and caffeine",
		"Avoid outdoor exertion during midday hours",
	},
}

var tierAdditions = map[domain.HazardType]map[domain.Severity][]string{
	domain.HazardEarthquake: {
		domain.SeverityMedium: {
			"Check gas, water, and electrical lines for damage",
		},
		domain.SeverityHigh: {
			"Expect aftershocks; move to open ground away from damaged structures",
			"Keep emergency supplies and sturdy shoes within reach",
		},
		domain.SeverityCritical: {
			"Evacuate damaged buildings immediately",
			"Follow instructions from local emergency services",
		},
	},
	domain.HazardFlood: {
		domain.SeverityMedium: {
			"Prepare an evacuation bag with documents and medication",
		},
		domain.SeverityHigh: {
			"Move to higher ground; do not wait for an evacuation order",
			"Disconnect mains electricity if water is entering the building",
		},
		domain.SeverityCritical: {
			"Evacuate the area now via designated routes",
			"Do not return until authorities declare the area safe",
		},
	},
	domain.HazardCyclone: {
		domain.SeverityMedium: {
			"Reinforce doors and tape or shutter windows",
		},
		domain.SeverityHigh: {
			"Move to the strongest interior room away from windows",
			"Expect extended power and communication outages",
		},
		domain.SeverityCritical: {
			"Evacuate coastal and low-lying areas immediately",
			"Remain sheltered through the eye of the storm",
		},
	},
	domain.HazardStorm: {
		domain.SeverityMedium: {
			"Postpone travel until the storm passes",
		},
		domain.SeverityHigh: {
			"Seek substantial shelter; avoid temporary structures",
		},
		domain.SeverityCritical: {
			"Treat all downed lines as live; report and keep clear",
			"Follow instructions from local emergency services",
		},
	},
	domain.HazardHeatwave: {
		domain.SeverityMedium: {
			"Check on elderly neighbours and those living alone",
		},
		domain.SeverityHigh: {
			"Use cooling centres if home cooling is unavailable",
			"Never leave children or animals in parked vehicles",
		},
		domain.SeverityCritical: {
			"Watch for heat stroke: confusion, dry skin, rapid pulse",
			"Call emergency services for anyone losing consciousness",
		},
	},
}

// RecommendationsFor returns the cumulative guidance list for a hazard at a
// severity: the base list plus the additions of every tier up to and
// including the alert's own.
func RecommendationsFor(h domain.HazardType, s domain.Severity) []string {
	out := append([]string{}, baseRecommendations[h]...)
	for _, tier := range domain.Severities {
		if tier.Rank() > s.Rank() {
			break
		}
		out = append(out, tierAdditions[h][tier]...)
	}
	return out
}
