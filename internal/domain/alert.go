package domain

import (
	"fmt"
	"time"
)

// HazardType is the concrete hazard an alert warns about. Within one source
// category different measurement magnitudes can select different hazard
// types (wind speed picks storm below the cyclone boundary, cyclone above).
type HazardType string

const (
	HazardEarthquake HazardType = "earthquake"
	HazardFlood      HazardType = "flood"
	HazardCyclone    HazardType = "cyclone"
	HazardStorm      HazardType = "storm"
	HazardHeatwave   HazardType = "heatwave"
)

// HazardTypes lists every hazard type the classifier can emit.
var HazardTypes = []HazardType{HazardEarthquake, HazardFlood, HazardCyclone, HazardStorm, HazardHeatwave}

// ParseHazardType validates a hazard type string from a subscription filter.
func ParseHazardType(s string) (HazardType, error) {
	for _, h := range HazardTypes {
		if HazardType(s) == h {
			return h, nil
		}
	}
	return "", fmt.Errorf("unknown hazard type %q", s)
}

// Severity is one of the four alert tiers.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists the tiers in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank orders severities for comparison; unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// Status is the lifecycle state of an alert.
type Status string

const (
	StatusActive     Status = "active"
	StatusMonitoring Status = "monitoring"
	StatusResolved   Status = "resolved"
	StatusExpired    Status = "expired"
)

// order ranks statuses along the monotonic lifecycle: active, then
// monitoring, then resolved or expired. The last two are terminal; no
// reactivation.
func (s Status) order() int {
	switch s {
	case StatusActive:
		return 0
	case StatusMonitoring:
		return 1
	case StatusResolved, StatusExpired:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether the status may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	a, b := s.order(), next.order()
	if a < 0 || b < 0 {
		return false
	}
	return b > a
}

// ParseStatus validates a status string from an external caller.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusMonitoring, StatusResolved, StatusExpired:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// CandidateAlert is a classification result that has not yet been checked
// against deduplication.
type CandidateAlert struct {
	HazardType   HazardType
	Severity     Severity
	Location     Location
	Measurements map[string]float64
	Source       string
	CapturedAt   time.Time
}

// Alert is the unit of output. Severity is derivable from the measurement
// snapshot via the threshold tables in force at creation time; after creation
// only explicit status updates mutate it.
type Alert struct {
	ID              string             `json:"id"`
	HazardType      HazardType         `json:"hazard_type"`
	Severity        Severity           `json:"severity"`
	Status          Status             `json:"status"`
	Location        Location           `json:"location"`
	Measurements    map[string]float64 `json:"measurements"`
	Source          string             `json:"source"`
	Recommendations []string           `json:"recommendations"`

	// Oracle enrichment, zero-valued when the oracle path was skipped.
	Probability float64 `json:"probability,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	ModelID     string  `json:"model_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
