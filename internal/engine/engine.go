// Package engine owns the fleet's mutable state: the per-(truck, metric)
// sensor histories. Ingestion, analysis and cleanup all serialize on one
// lock; the persistence gateway only mirrors and restores this state, it is
// never a second writer of truth.
package engine

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/fleet"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/history"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/logger"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/persist"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/predict"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/thresholds"
)

// Options tune the per-sensor series and the fleet summary
type Options struct {
	Retention   time.Duration // reading retention window, default 30d
	MaxReadings int           // per-series capacity cap, default 1000
	TopCritical int           // critical items kept in a fleet summary
}

// Engine is the predictive-maintenance core. One instance per process,
// passed explicitly to every collaborator.
type Engine struct {
	mu     sync.RWMutex
	trucks map[string]map[string]*history.History

	catalog   thresholds.Catalog
	predictor *predict.Predictor
	gateway   *persist.Gateway
	opts      Options
}

// New constructs the engine and restores prior state through the gateway.
// A nil gateway disables persistence (the engine runs memory-only).
func New(catalog thresholds.Catalog, gateway *persist.Gateway, opts Options) *Engine {
	e := &Engine{
		trucks:    make(map[string]map[string]*history.History),
		catalog:   catalog,
		predictor: predict.New(catalog),
		gateway:   gateway,
		opts:      opts,
	}

	if gateway != nil {
		e.restore(gateway.Load())
	}

	return e
}

// restore replays a snapshot through Add so retention and capacity rules
// apply to reloaded data as well
func (e *Engine) restore(snap *persist.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for truck, metrics := range snap.Trucks {
		for metric, series := range metrics {
			h := e.historyLocked(truck, metric)
			for _, r := range series.Readings {
				h.Add(r.Timestamp, r.Value)
			}
		}
	}
}

func (e *Engine) historyLocked(truck, metric string) *history.History {
	metrics := e.trucks[truck]
	if metrics == nil {
		metrics = make(map[string]*history.History)
		e.trucks[truck] = metrics
	}
	h := metrics[metric]
	if h == nil {
		h = history.New(e.opts.Retention, e.opts.MaxReadings)
		metrics[metric] = h
	}
	return h
}

// AddSensorReading records one sample. A nil or non-finite value is skipped
// silently; a zero timestamp means "now". Metrics outside the threshold
// catalog are still recorded, monitoring is decided at analysis time.
func (e *Engine) AddSensorReading(truck, metric string, value *float64, ts time.Time) {
	if truck == "" || metric == "" || value == nil {
		return
	}
	if math.IsNaN(*value) || math.IsInf(*value, 0) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.historyLocked(truck, metric).Add(ts, *value)
}

// ProcessSensorBatch records one timestamped batch of samples for a truck.
// Nil-valued metrics are skipped.
func (e *Engine) ProcessSensorBatch(truck string, values map[string]*float64, ts time.Time) {
	for metric, value := range values {
		e.AddSensorReading(truck, metric, value, ts)
	}
}

// AnalyzeTruck analyzes every recorded metric of one truck and returns the
// non-nil predictions, most urgent first, ties broken by ascending
// days-to-critical.
func (e *Engine) AnalyzeTruck(truck string) []*predict.Prediction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.analyzeTruckLocked(truck)
}

func (e *Engine) analyzeTruckLocked(truck string) []*predict.Prediction {
	metrics := e.trucks[truck]
	if metrics == nil {
		return nil
	}

	var preds []*predict.Prediction
	for metric, h := range metrics {
		if p := e.predictor.Analyze(truck, metric, h); p != nil {
			preds = append(preds, p)
		}
	}

	sort.SliceStable(preds, func(i, j int) bool {
		if ri, rj := preds[i].Urgency.Rank(), preds[j].Urgency.Rank(); ri != rj {
			return ri > rj
		}
		a, b := preds[i].DaysToCritical, preds[j].DaysToCritical
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return preds[i].Metric < preds[j].Metric
	})

	return preds
}

// AnalyzeFleet analyzes every truck and returns the ones with at least one
// prediction.
func (e *Engine) AnalyzeFleet() map[string][]*predict.Prediction {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string][]*predict.Prediction)
	for truck := range e.trucks {
		if preds := e.analyzeTruckLocked(truck); len(preds) > 0 {
			out[truck] = preds
		}
	}
	return out
}

// TruckStatus is one truck's maintenance rollup
type TruckStatus struct {
	Truck       string                  `json:"truck"`
	Counts      map[predict.Urgency]int `json:"counts"`
	Predictions []*predict.Prediction   `json:"predictions"`
}

// GetTruckMaintenanceStatus returns a truck's rollup, or nil for an unknown
// truck.
func (e *Engine) GetTruckMaintenanceStatus(truck string) *TruckStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, ok := e.trucks[truck]; !ok {
		return nil
	}

	preds := e.analyzeTruckLocked(truck)
	status := &TruckStatus{
		Truck:       truck,
		Counts:      make(map[predict.Urgency]int),
		Predictions: preds,
	}
	for _, p := range preds {
		status.Counts[p.Urgency]++
	}
	return status
}

// GetFleetSummary builds the fleet-wide rollup
func (e *Engine) GetFleetSummary() *fleet.Summary {
	return fleet.BuildSummary(e.AnalyzeFleet(), e.opts.TopCritical)
}

// GetMaintenanceAlerts returns a truck's Critical/High predictions only.
// This is the sole feed for external notification dispatch.
func (e *Engine) GetMaintenanceAlerts(truck string) []*predict.Prediction {
	return fleet.Alerts(e.AnalyzeTruck(truck))
}

// SensorTrendView exposes one sensor's trend state for dashboards
type SensorTrendView struct {
	Truck        string               `json:"truck"`
	Metric       string               `json:"metric"`
	CurrentValue float64              `json:"currentValue"`
	TrendPerDay  *float64             `json:"trendPerDay,omitempty"`
	Warning      float64              `json:"warning"`
	Critical     float64              `json:"critical"`
	Unit         string               `json:"unit"`
	Daily        []history.DailyPoint `json:"dailyHistory"`
}

// GetSensorTrend returns the trend view for one sensor, or nil when the
// sensor is unknown, empty or unmonitored.
func (e *Engine) GetSensorTrend(truck, metric string) *SensorTrendView {
	spec, ok := e.catalog.Get(metric)
	if !ok {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	metrics := e.trucks[truck]
	if metrics == nil {
		return nil
	}
	h := metrics[metric]
	if h == nil {
		return nil
	}
	current, ok := h.Current()
	if !ok {
		return nil
	}

	view := &SensorTrendView{
		Truck:        truck,
		Metric:       metric,
		CurrentValue: current,
		Warning:      spec.Warning,
		Critical:     spec.Critical,
		Unit:         spec.Unit,
		Daily:        h.DailyAverages(),
	}
	if slope, _, ok := h.Trend(); ok {
		view.TrendPerDay = &slope
	}
	return view
}

// CleanupInactiveTrucks drops the entire state of trucks that are absent
// from activeIDs and whose every metric last reported more than
// maxInactiveDays ago. A truck in activeIDs is never removed; one fresh
// metric retains the whole truck. Returns the number removed.
func (e *Engine) CleanupInactiveTrucks(activeIDs []string, maxInactiveDays int) int {
	active := make(map[string]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = true
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -maxInactiveDays)

	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for truck, metrics := range e.trucks {
		if active[truck] {
			continue
		}

		fresh := false
		for _, h := range metrics {
			if last, ok := h.LastTimestamp(); ok && last.After(cutoff) {
				fresh = true
				break
			}
		}
		if fresh {
			continue
		}

		delete(e.trucks, truck)
		removed++
		logger.Info("removed inactive truck", "truck", truck, "metrics", len(metrics))
	}

	return removed
}

// ActiveTrucks returns the IDs of trucks with any reading newer than the
// given window. The scheduler feeds this to CleanupInactiveTrucks.
func (e *Engine) ActiveTrucks(within time.Duration) []string {
	cutoff := time.Now().UTC().Add(-within)

	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []string
	for truck, metrics := range e.trucks {
		for _, h := range metrics {
			if last, ok := h.LastTimestamp(); ok && last.After(cutoff) {
				out = append(out, truck)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// TruckCount returns the number of tracked trucks
func (e *Engine) TruckCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.trucks)
}

// snapshot serializes all histories for persistence
func (e *Engine) snapshot() *persist.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := persist.NewSnapshot()
	for truck, metrics := range e.trucks {
		m := make(map[string]persist.Series, len(metrics))
		for metric, h := range metrics {
			m[metric] = persist.Series{Readings: h.Snapshot()}
		}
		snap.Trucks[truck] = m
	}
	return snap
}

// Save mirrors the current state through the gateway. Failures are logged
// and buffered by the gateway; the engine keeps running.
func (e *Engine) Save() error {
	if e.gateway == nil {
		return nil
	}
	return e.gateway.Save(e.snapshot())
}

// Flush retries any buffered snapshot and flushes the backend
func (e *Engine) Flush() error {
	if e.gateway == nil {
		return nil
	}
	return e.gateway.Flush()
}
