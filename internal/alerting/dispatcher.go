// Package alerting dispatches maintenance alerts to a notification channel,
// deduplicating repeats so a sensor that stays critical across analysis
// cycles produces one notification per suppression window, not one per
// cycle. Delivery itself (SMS, email) lives behind the Notifier interface.
package alerting

import (
	"sync"
	"time"

	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/logger"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/predict"
)

// Notifier delivers one alert to an external channel
type Notifier interface {
	Notify(p *predict.Prediction) error
}

// LogNotifier writes alerts to the structured log. It stands in for real
// delivery channels in development and tests.
type LogNotifier struct{}

func (LogNotifier) Notify(p *predict.Prediction) error {
	logger.Warn("maintenance alert",
		"truck", p.Truck,
		"metric", p.Metric,
		"component", p.Component,
		"urgency", string(p.Urgency),
		"value", p.CurrentValue,
		"action", p.Action,
	)
	return nil
}

const DefaultSuppression = 4 * time.Hour

// Dispatcher fans alerts out to the notifier, suppressing duplicates by
// murmur2 hash of (truck, metric, urgency) within the TTL.
type Dispatcher struct {
	mu       sync.Mutex
	notifier Notifier
	ttl      time.Duration
	seen     map[uint32]time.Time
}

// NewDispatcher creates a dispatcher. ttl <= 0 uses DefaultSuppression.
func NewDispatcher(n Notifier, ttl time.Duration) *Dispatcher {
	if ttl <= 0 {
		ttl = DefaultSuppression
	}
	return &Dispatcher{
		notifier: n,
		ttl:      ttl,
		seen:     make(map[uint32]time.Time),
	}
}

// Dispatch notifies each prediction not seen within the TTL and returns the
// number delivered. A failed delivery is not marked seen, so it is retried
// on the next cycle.
func (d *Dispatcher) Dispatch(preds []*predict.Prediction) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for key, at := range d.seen {
		if now.Sub(at) > d.ttl {
			delete(d.seen, key)
		}
	}

	delivered := 0
	for _, p := range preds {
		key := hash32(p.Truck + "|" + p.Metric + "|" + string(p.Urgency))
		if _, dup := d.seen[key]; dup {
			continue
		}

		if err := d.notifier.Notify(p); err != nil {
			logger.Error("alert delivery failed",
				"truck", p.Truck, "metric", p.Metric, "error", err)
			continue
		}

		d.seen[key] = now
		delivered++
	}

	return delivered
}
