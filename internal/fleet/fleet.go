// Package fleet rolls per-truck predictions into fleet-wide summaries:
// urgency counts, the top critical items and systemic-pattern
// recommendations across trucks.
package fleet

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/predict"
)

// SystemicThreshold is the number of distinct trucks that must share a
// component issue before it is reported as a fleet-wide pattern
const SystemicThreshold = 3

// DefaultTopCritical caps the critical_items list in a summary
const DefaultTopCritical = 10

// Summary is the fleet-wide rollup
type Summary struct {
	GeneratedAt      time.Time               `json:"generatedAt"`
	TotalTrucks      int                     `json:"totalTrucks"`
	TrucksWithIssues int                     `json:"trucksWithIssues"`
	Counts           map[predict.Urgency]int `json:"counts"`
	CriticalItems    []*predict.Prediction   `json:"criticalItems"`
	Recommendations  []string                `json:"recommendations"`
}

// BuildSummary aggregates the analyze-fleet output. topN <= 0 uses
// DefaultTopCritical.
func BuildSummary(byTruck map[string][]*predict.Prediction, topN int) *Summary {
	if topN <= 0 {
		topN = DefaultTopCritical
	}

	s := &Summary{
		GeneratedAt: time.Now().UTC(),
		TotalTrucks: len(byTruck),
		Counts: map[predict.Urgency]int{
			predict.UrgencyNone:     0,
			predict.UrgencyLow:      0,
			predict.UrgencyMedium:   0,
			predict.UrgencyHigh:     0,
			predict.UrgencyCritical: 0,
		},
	}

	var critical []*predict.Prediction
	for _, preds := range byTruck {
		issues := false
		for _, p := range preds {
			s.Counts[p.Urgency]++
			if p.Urgency != predict.UrgencyNone {
				issues = true
			}
			if p.Urgency == predict.UrgencyCritical {
				critical = append(critical, p)
			}
		}
		if issues {
			s.TrucksWithIssues++
		}
	}

	SortByDaysToCritical(critical)
	if len(critical) > topN {
		critical = critical[:topN]
	}
	s.CriticalItems = critical

	s.Recommendations = buildRecommendations(byTruck)

	return s
}

// Alerts filters the Critical/High predictions, the sole feed for external
// notification dispatch.
func Alerts(preds []*predict.Prediction) []*predict.Prediction {
	var out []*predict.Prediction
	for _, p := range preds {
		if p.Urgency == predict.UrgencyCritical || p.Urgency == predict.UrgencyHigh {
			out = append(out, p)
		}
	}
	return out
}

// SortByDaysToCritical orders predictions by ascending days-to-critical,
// estimates before no-estimate, ties broken by truck then metric.
func SortByDaysToCritical(preds []*predict.Prediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		a, b := preds[i].DaysToCritical, preds[j].DaysToCritical
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		if preds[i].Truck != preds[j].Truck {
			return preds[i].Truck < preds[j].Truck
		}
		return preds[i].Metric < preds[j].Metric
	})
}

type componentKey struct {
	Metric    string
	Component string
}

// buildRecommendations groups Critical/High predictions by (metric,
// component). Groups spanning SystemicThreshold distinct trucks become one
// fleet-wide recommendation; remaining critical items get per-truck notes.
// An all-clear fleet gets an explicit healthy line so an empty result is
// distinguishable from a broken pipeline.
func buildRecommendations(byTruck map[string][]*predict.Prediction) []string {
	groups := make(map[componentKey]map[string]bool)
	var urgent []*predict.Prediction

	for truck, preds := range byTruck {
		for _, p := range preds {
			if p.Urgency != predict.UrgencyCritical && p.Urgency != predict.UrgencyHigh {
				continue
			}
			urgent = append(urgent, p)
			key := componentKey{Metric: p.Metric, Component: p.Component}
			if groups[key] == nil {
				groups[key] = make(map[string]bool)
			}
			groups[key][truck] = true
		}
	}

	if len(urgent) == 0 {
		return []string{"fleet healthy: no critical or high urgency issues detected"}
	}

	systemic := make(map[componentKey]bool)
	var recs []string
	for key, trucks := range groups {
		if len(trucks) < SystemicThreshold {
			continue
		}
		systemic[key] = true
		names := make([]string, 0, len(trucks))
		for t := range trucks {
			names = append(names, t)
		}
		sort.Strings(names)
		recs = append(recs, fmt.Sprintf(
			"%d trucks show %s problems in %s (%s): check for a fleet-wide root cause",
			len(names), key.Metric, key.Component, strings.Join(names, ", ")))
	}
	sort.Strings(recs)

	SortByDaysToCritical(urgent)
	for _, p := range urgent {
		if p.Urgency != predict.UrgencyCritical {
			continue
		}
		if systemic[componentKey{Metric: p.Metric, Component: p.Component}] {
			continue
		}
		recs = append(recs, fmt.Sprintf("%s: %s %s at %.1f %s, %s (est. $%.0f)",
			p.Truck, p.Component, p.Metric, p.CurrentValue, p.Unit, p.Action, p.RepairCost))
	}

	return recs
}
