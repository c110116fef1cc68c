// Package history implements the bounded per-(truck, metric) time series
// feeding trend analysis: UTC-normalized ordered readings, a retention
// window, a hard capacity cap, daily-bucket aggregation and OLS trend
// extraction over the daily means.
package history

import (
	"time"
)

// Reading одна точка данных с временной меткой
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// DailyPoint is one UTC calendar day reduced to the mean of its readings
type DailyPoint struct {
	Day   time.Time `json:"day"` // midnight UTC
	Mean  float64   `json:"mean"`
	Count int       `json:"count"`
}

// History holds the readings of one sensor, oldest first
type History struct {
	readings    []Reading
	retention   time.Duration
	maxReadings int
}

const (
	DefaultRetention   = 30 * 24 * time.Hour
	DefaultMaxReadings = 1000

	// MinTrendDays is the minimum number of distinct daily buckets
	// required before a trend is reported
	MinTrendDays = 3
)

// New creates an empty history. Non-positive arguments fall back to the
// package defaults.
func New(retention time.Duration, maxReadings int) *History {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if maxReadings <= 0 {
		maxReadings = DefaultMaxReadings
	}
	return &History{
		retention:   retention,
		maxReadings: maxReadings,
	}
}

// Add inserts a reading, keeping the series ordered, then prunes entries
// older than the retention window and drops the oldest past the capacity
// cap. A zero timestamp means "now". Naive callers are assumed to pass UTC;
// anything else is converted.
func (h *History) Add(ts time.Time, value float64) {
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	r := Reading{Timestamp: ts, Value: value}

	n := len(h.readings)
	if n == 0 || !ts.Before(h.readings[n-1].Timestamp) {
		h.readings = append(h.readings, r)
	} else {
		// Late sample: insert at its timestamp position
		i := n
		for i > 0 && h.readings[i-1].Timestamp.After(ts) {
			i--
		}
		h.readings = append(h.readings, Reading{})
		copy(h.readings[i+1:], h.readings[i:])
		h.readings[i] = r
	}

	h.prune()
}

func (h *History) prune() {
	cutoff := time.Now().UTC().Add(-h.retention)

	i := 0
	for i < len(h.readings) && h.readings[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		h.readings = h.readings[i:]
	}

	if over := len(h.readings) - h.maxReadings; over > 0 {
		h.readings = h.readings[over:]
	}
}

// Len returns the number of retained readings
func (h *History) Len() int {
	return len(h.readings)
}

// Current returns the most recent value
func (h *History) Current() (float64, bool) {
	if len(h.readings) == 0 {
		return 0, false
	}
	return h.readings[len(h.readings)-1].Value, true
}

// LastTimestamp returns the timestamp of the most recent reading
func (h *History) LastTimestamp() (time.Time, bool) {
	if len(h.readings) == 0 {
		return time.Time{}, false
	}
	return h.readings[len(h.readings)-1].Timestamp, true
}

// Snapshot returns a copy of the retained readings, oldest first
func (h *History) Snapshot() []Reading {
	out := make([]Reading, len(h.readings))
	copy(out, h.readings)
	return out
}

// DailyAverages groups readings by UTC calendar day and returns the ordered
// (day, mean) sequence. Bucketing by day keeps the trend robust to bursty
// ingestion: a day with 50 samples weighs the same as a day with 2.
func (h *History) DailyAverages() []DailyPoint {
	if len(h.readings) == 0 {
		return nil
	}

	var days []DailyPoint
	var sum float64
	var count int
	current := h.readings[0].Timestamp.Truncate(24 * time.Hour)

	flush := func() {
		days = append(days, DailyPoint{Day: current, Mean: sum / float64(count), Count: count})
	}

	for _, r := range h.readings {
		day := r.Timestamp.Truncate(24 * time.Hour)
		if !day.Equal(current) {
			flush()
			current = day
			sum, count = 0, 0
		}
		sum += r.Value
		count++
	}
	flush()

	return days
}

// Trend computes the ordinary-least-squares slope of the daily means against
// their calendar-day offset, in units per day. days reports how many distinct
// daily buckets fed the fit. ok is false with fewer than MinTrendDays buckets
// or a zero regression denominator.
func (h *History) Trend() (perDay float64, days int, ok bool) {
	buckets := h.DailyAverages()
	if len(buckets) < MinTrendDays {
		return 0, len(buckets), false
	}

	first := buckets[0].Day
	xs := make([]float64, len(buckets))
	var xMean, yMean float64
	for i, b := range buckets {
		xs[i] = b.Day.Sub(first).Hours() / 24
		xMean += xs[i]
		yMean += b.Mean
	}
	n := float64(len(buckets))
	xMean /= n
	yMean /= n

	var num, den float64
	for i, b := range buckets {
		dx := xs[i] - xMean
		num += dx * (b.Mean - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, len(buckets), false
	}

	return num / den, len(buckets), true
}
