package predict

import (
	"math"
	"testing"
	"time"

	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/history"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/thresholds"
)

func testCatalog() thresholds.Catalog {
	return thresholds.Catalog{
		"oil_pressure": {
			Warning: 25, Critical: 20, Direction: thresholds.LowerIsBad,
			Unit: "psi", Component: "engine", Action: "inspect oil pump", RepairCost: 1200,
		},
		"coolant_temp": {
			Warning: 105, Critical: 115, Direction: thresholds.HigherIsBad,
			Unit: "C", Component: "cooling system", Action: "check coolant", RepairCost: 800,
		},
	}
}

// dailySeries builds one reading per day ending today, values[len-1] most recent
func dailySeries(t *testing.T, values []float64) *history.History {
	t.Helper()
	h := history.New(90*24*time.Hour, 1000)
	now := time.Now().UTC()
	for i, v := range values {
		h.Add(now.AddDate(0, 0, i-len(values)+1), v)
	}
	return h
}

func near(got *float64, want, tol float64) bool {
	return got != nil && math.Abs(*got-want) <= tol
}

func TestAnalyze_UnmonitoredMetric(t *testing.T) {
	p := New(testCatalog())
	h := dailySeries(t, []float64{1, 2, 3})

	if got := p.Analyze("T1", "cabin_temp", h); got != nil {
		t.Errorf("expected nil for unmonitored metric, got %+v", got)
	}
}

func TestAnalyze_EmptyHistory(t *testing.T) {
	p := New(testCatalog())
	h := history.New(0, 0)

	if got := p.Analyze("T1", "oil_pressure", h); got != nil {
		t.Errorf("expected nil for empty history, got %+v", got)
	}
}

func TestAnalyze_NoTrend(t *testing.T) {
	p := New(testCatalog())
	h := dailySeries(t, []float64{40, 40}) // 2 buckets, no trend

	pred := p.Analyze("T1", "oil_pressure", h)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.TrendDirection != TrendUnknown {
		t.Errorf("expected unknown trend, got %s", pred.TrendDirection)
	}
	if pred.Confidence != ConfidenceLow {
		t.Errorf("expected low confidence, got %s", pred.Confidence)
	}
	if pred.Urgency != UrgencyNone {
		t.Errorf("expected urgency none, got %s", pred.Urgency)
	}
}

func TestAnalyze_AlreadyPastCritical(t *testing.T) {
	// 10 days at -2/day, 35 -> 17; current 17 is past critical 20
	values := make([]float64, 10)
	for i := range values {
		values[i] = 35 - 2*float64(i)
	}
	h := dailySeries(t, values)

	pred := New(testCatalog()).Analyze("T1", "oil_pressure", h)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.Urgency != UrgencyCritical {
		t.Errorf("expected critical, got %s", pred.Urgency)
	}
	if !near(pred.DaysToCritical, 0, 1e-9) {
		t.Errorf("expected days_to_critical 0, got %v", pred.DaysToCritical)
	}
	if pred.TrendDirection != TrendDegrading {
		t.Errorf("expected degrading, got %s", pred.TrendDirection)
	}
}

func TestAnalyze_CrossingInTwoDays(t *testing.T) {
	// coolant_temp +3/day, current 109: critical 115 in 2 days
	h := dailySeries(t, []float64{97, 100, 103, 106, 109})

	pred := New(testCatalog()).Analyze("T1", "coolant_temp", h)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.Urgency != UrgencyCritical {
		t.Errorf("expected critical, got %s", pred.Urgency)
	}
	if !near(pred.DaysToCritical, 2, 0.5) {
		t.Errorf("expected days_to_critical ~2, got %v", pred.DaysToCritical)
	}
}

func TestAnalyze_EndToEndOilPressure(t *testing.T) {
	// 10 daily points at -0.5/day: 35.0 .. 30.5
	values := make([]float64, 10)
	for i := range values {
		values[i] = 35 - 0.5*float64(i)
	}
	h := dailySeries(t, values)

	pred := New(testCatalog()).Analyze("T1", "oil_pressure", h)
	if pred == nil {
		t.Fatal("expected a prediction")
	}

	if pred.TrendPerDay == nil || math.Abs(*pred.TrendPerDay-(-0.5)) > 0.01 {
		t.Errorf("expected trend -0.5/day, got %v", pred.TrendPerDay)
	}
	if !near(pred.DaysToWarning, 11, 0.5) {
		t.Errorf("expected days_to_warning ~11, got %v", pred.DaysToWarning)
	}
	if !near(pred.DaysToCritical, 21, 0.5) {
		t.Errorf("expected days_to_critical ~21, got %v", pred.DaysToCritical)
	}
	if pred.Urgency != UrgencyLow {
		t.Errorf("expected low urgency, got %s", pred.Urgency)
	}
	if pred.Confidence != ConfidenceHigh {
		t.Errorf("expected high confidence with 10 sample days, got %s", pred.Confidence)
	}
	if pred.Component != "engine" || pred.RepairCost != 1200 {
		t.Errorf("threshold metadata not carried: %+v", pred)
	}
}

func TestAnalyze_ImprovingPastCriticalStaysCritical(t *testing.T) {
	// Recovering, but current 17 is still past critical 20 (lower is bad)
	h := dailySeries(t, []float64{14, 15, 16, 17})

	pred := New(testCatalog()).Analyze("T1", "oil_pressure", h)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.TrendDirection != TrendImproving {
		t.Errorf("expected improving, got %s", pred.TrendDirection)
	}
	if pred.Urgency != UrgencyCritical {
		t.Errorf("current value past critical must stay critical, got %s", pred.Urgency)
	}
	if pred.DaysToCritical != nil {
		t.Errorf("no extrapolation while improving, got %v", pred.DaysToCritical)
	}
}

func TestAnalyze_ImprovingPastWarningIsMedium(t *testing.T) {
	// Recovering, current 23 past warning 25 but above critical 20
	h := dailySeries(t, []float64{21, 21.7, 22.4, 23})

	pred := New(testCatalog()).Analyze("T1", "oil_pressure", h)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.Urgency != UrgencyMedium {
		t.Errorf("current value past warning floors at medium, got %s", pred.Urgency)
	}
}

func TestAnalyze_StableInRange(t *testing.T) {
	h := dailySeries(t, []float64{40, 40, 40, 40, 40})

	pred := New(testCatalog()).Analyze("T1", "oil_pressure", h)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.TrendDirection != TrendStable {
		t.Errorf("expected stable, got %s", pred.TrendDirection)
	}
	if pred.Urgency != UrgencyNone {
		t.Errorf("expected none, got %s", pred.Urgency)
	}
}

func TestAnalyze_DegradingBeyondHorizon(t *testing.T) {
	// -0.02/day from 40: warning 25 is 750 days out, past the horizon
	values := make([]float64, 10)
	for i := range values {
		values[i] = 40 - 0.02*float64(i)
	}
	h := dailySeries(t, values)

	pred := New(testCatalog()).Analyze("T1", "oil_pressure", h)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.TrendDirection != TrendDegrading {
		t.Errorf("expected degrading, got %s", pred.TrendDirection)
	}
	if pred.DaysToWarning != nil || pred.DaysToCritical != nil {
		t.Errorf("crossings beyond the horizon must have no estimate, got %v / %v",
			pred.DaysToWarning, pred.DaysToCritical)
	}
	// Degrading with no near-term crossing still reports low
	if pred.Urgency != UrgencyLow {
		t.Errorf("expected low, got %s", pred.Urgency)
	}
}

func TestConfidenceTiers(t *testing.T) {
	tests := []struct {
		days int
		want Confidence
	}{
		{2, ConfidenceLow},
		{3, ConfidenceMedium},
		{6, ConfidenceMedium},
		{7, ConfidenceHigh},
		{12, ConfidenceHigh},
	}

	for _, tt := range tests {
		if got := confidenceFor(tt.days); got != tt.want {
			t.Errorf("confidenceFor(%d) = %s, want %s", tt.days, got, tt.want)
		}
	}
}

func TestUrgencyRankOrdering(t *testing.T) {
	order := []Urgency{UrgencyNone, UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("%s should rank above %s", order[i], order[i-1])
		}
	}
}
