// Package predict turns one sensor's history plus its threshold spec into a
// Prediction: trend classification, time-to-threshold extrapolation and an
// urgency tier for maintenance planning.
package predict

import (
	"math"
	"time"

	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/history"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/thresholds"
)

// Urgency describes proximity to a threshold breach
type Urgency string

const (
	UrgencyNone     Urgency = "none"
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Rank returns the ordinal position of the urgency (none=0 .. critical=4)
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyHigh:
		return 3
	case UrgencyCritical:
		return 4
	default:
		return 0
	}
}

// TrendDirection classifies where a metric is heading relative to its
// unsafe side
type TrendDirection string

const (
	TrendUnknown   TrendDirection = "unknown"
	TrendStable    TrendDirection = "stable"
	TrendImproving TrendDirection = "improving"
	TrendDegrading TrendDirection = "degrading"
)

// Confidence reflects how many distinct days fed the trend fit
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Prediction is the per-sensor analysis result. Days-to-threshold fields are
// nil when no crossing is projected within the extrapolation horizon.
type Prediction struct {
	Truck     string `json:"truck"`
	Metric    string `json:"metric"`
	Component string `json:"component"`
	Unit      string `json:"unit"`

	CurrentValue   float64        `json:"currentValue"`
	TrendPerDay    *float64       `json:"trendPerDay,omitempty"`
	TrendDirection TrendDirection `json:"trendDirection"`
	DaysToWarning  *float64       `json:"daysToWarning,omitempty"`
	DaysToCritical *float64       `json:"daysToCritical,omitempty"`

	Urgency    Urgency    `json:"urgency"`
	Confidence Confidence `json:"confidence"`
	Action     string     `json:"action"`
	RepairCost float64    `json:"repairCost"`

	SampleDays int       `json:"sampleDays"`
	AnalyzedAt time.Time `json:"analyzedAt"`
}

const (
	// stableEpsilon is the slope magnitude below which a trend counts as flat
	stableEpsilon = 0.01

	// maxHorizonDays caps extrapolation; crossings projected further out are
	// noise, not signal
	maxHorizonDays = 365

	highConfidenceDays = 7
)

// Predictor applies the threshold catalog to sensor histories
type Predictor struct {
	catalog thresholds.Catalog
}

func New(catalog thresholds.Catalog) *Predictor {
	return &Predictor{catalog: catalog}
}

// Analyze produces a Prediction for one sensor, or nil when the metric is
// unmonitored or the history is empty.
func (p *Predictor) Analyze(truck, metric string, h *history.History) *Prediction {
	spec, ok := p.catalog.Get(metric)
	if !ok {
		return nil // unmonitored metric
	}

	current, ok := h.Current()
	if !ok {
		return nil
	}

	pred := &Prediction{
		Truck:        truck,
		Metric:       metric,
		Component:    spec.Component,
		Unit:         spec.Unit,
		CurrentValue: current,
		Action:       spec.Action,
		RepairCost:   spec.RepairCost,
		AnalyzedAt:   time.Now().UTC(),
	}

	slope, sampleDays, hasTrend := h.Trend()
	pred.SampleDays = sampleDays
	pred.Confidence = confidenceFor(sampleDays)

	if !hasTrend {
		pred.TrendDirection = TrendUnknown
	} else {
		s := slope
		pred.TrendPerDay = &s
		pred.TrendDirection = classify(slope, spec.Direction)

		if pred.TrendDirection == TrendDegrading && slope != 0 {
			pred.DaysToWarning = daysTo(current, spec.Warning, slope)
			pred.DaysToCritical = daysTo(current, spec.Critical, slope)
		}
	}

	pred.Urgency = urgencyFor(current, spec, pred)

	return pred
}

func classify(slope float64, dir thresholds.Direction) TrendDirection {
	if math.Abs(slope) < stableEpsilon {
		return TrendStable
	}
	towardBad := slope > 0
	if dir == thresholds.LowerIsBad {
		towardBad = slope < 0
	}
	if towardBad {
		return TrendDegrading
	}
	return TrendImproving
}

// daysTo extrapolates the crossing of threshold at the current slope.
// Already-past thresholds clamp to 0; crossings beyond the horizon are
// reported as no estimate.
func daysTo(current, threshold, slope float64) *float64 {
	days := (threshold - current) / slope
	if days < 0 {
		days = 0
	}
	if days > maxHorizonDays {
		return nil
	}
	return &days
}

// urgencyFor applies the classification ladder, current value first, trend
// second. A value already past critical is Critical even if improving, and a
// bad-but-improving sensor never escalates beyond what the current value
// alone implies.
func urgencyFor(current float64, spec thresholds.Spec, pred *Prediction) Urgency {
	switch {
	case spec.Breached(current):
		return UrgencyCritical
	case pred.DaysToCritical != nil && *pred.DaysToCritical <= 3:
		return UrgencyCritical
	case pred.DaysToCritical != nil && *pred.DaysToCritical <= 7:
		return UrgencyHigh
	case spec.BreachedWarning(current):
		return UrgencyMedium
	case pred.DaysToWarning != nil && *pred.DaysToWarning <= 7:
		return UrgencyMedium
	case pred.DaysToWarning != nil && *pred.DaysToWarning <= 30:
		return UrgencyLow
	case pred.TrendDirection == TrendDegrading:
		// Degrading with no near-term crossing still merits a look
		return UrgencyLow
	default:
		return UrgencyNone
	}
}

func confidenceFor(sampleDays int) Confidence {
	switch {
	case sampleDays >= highConfidenceDays:
		return ConfidenceHigh
	case sampleDays >= history.MinTrendDays:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
