// Package scheduler drives the periodic work of the engine: fleet analysis,
// alert dispatch, state saves and inactive-truck cleanup.
package scheduler

import (
	"context"
	"time"

	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/alerting"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/engine"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/logger"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/predict"
)

type Scheduler struct {
	engine     *engine.Engine
	dispatcher *alerting.Dispatcher

	interval     time.Duration
	cleanupEvery time.Duration
	inactiveDays int

	lastCleanup time.Time
}

// New creates a scheduler. dispatcher may be nil to disable alerting.
func New(e *engine.Engine, d *alerting.Dispatcher, interval, cleanupEvery time.Duration, inactiveDays int) *Scheduler {
	return &Scheduler{
		engine:       e,
		dispatcher:   d,
		interval:     interval,
		cleanupEvery: cleanupEvery,
		inactiveDays: inactiveDays,
		lastCleanup:  time.Now(),
	}
}

// Run executes analysis cycles until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Первый цикл сразу
	s.cycle()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle()
		}
	}
}

func (s *Scheduler) cycle() {
	summary := s.engine.GetFleetSummary()
	logger.Info("fleet analysis",
		"trucks", summary.TotalTrucks,
		"withIssues", summary.TrucksWithIssues,
		"critical", summary.Counts[predict.UrgencyCritical],
		"high", summary.Counts[predict.UrgencyHigh],
	)

	if s.dispatcher != nil {
		delivered := 0
		for truck := range s.engine.AnalyzeFleet() {
			delivered += s.dispatcher.Dispatch(s.engine.GetMaintenanceAlerts(truck))
		}
		if delivered > 0 {
			logger.Info("alerts dispatched", "count", delivered)
		}
	}

	if err := s.engine.Save(); err != nil {
		logger.Warn("periodic save failed", "error", err)
	}

	if s.cleanupEvery > 0 && time.Since(s.lastCleanup) > s.cleanupEvery {
		s.lastCleanup = time.Now()
		active := s.engine.ActiveTrucks(time.Duration(s.inactiveDays) * 24 * time.Hour)
		if removed := s.engine.CleanupInactiveTrucks(active, s.inactiveDays); removed > 0 {
			logger.Info("inactive trucks removed", "count", removed)
		}
	}
}
