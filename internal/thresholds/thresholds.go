// Package thresholds holds the per-metric configuration that drives all
// urgency classification: warning/critical values, the direction in which a
// metric goes bad, and repair metadata for reporting.
package thresholds

import "fmt"

// Direction describes which side of the threshold is unsafe
type Direction string

const (
	HigherIsBad Direction = "higher_is_bad"
	LowerIsBad  Direction = "lower_is_bad"
)

// Spec is the monitoring configuration for one metric
type Spec struct {
	Warning    float64   `yaml:"warning"`
	Critical   float64   `yaml:"critical"`
	Direction  Direction `yaml:"direction"`
	Unit       string    `yaml:"unit"`
	Component  string    `yaml:"component"`
	Action     string    `yaml:"action"`
	RepairCost float64   `yaml:"repair_cost"`
}

// Breached reports whether value is at or past the critical threshold
func (s Spec) Breached(value float64) bool {
	if s.Direction == LowerIsBad {
		return value <= s.Critical
	}
	return value >= s.Critical
}

// BreachedWarning reports whether value is at or past the warning threshold
func (s Spec) BreachedWarning(value float64) bool {
	if s.Direction == LowerIsBad {
		return value <= s.Warning
	}
	return value >= s.Warning
}

// Validate checks that the thresholds are ordered consistently with Direction
func (s Spec) Validate() error {
	switch s.Direction {
	case HigherIsBad:
		if s.Warning >= s.Critical {
			return fmt.Errorf("warning %.2f must be below critical %.2f when higher is bad", s.Warning, s.Critical)
		}
	case LowerIsBad:
		if s.Warning <= s.Critical {
			return fmt.Errorf("warning %.2f must be above critical %.2f when lower is bad", s.Warning, s.Critical)
		}
	default:
		return fmt.Errorf("unknown direction %q", s.Direction)
	}
	return nil
}

// Catalog maps metric name to its monitoring spec. Metrics without an entry
// are recorded but never analyzed.
type Catalog map[string]Spec

// Get returns the spec for a metric
func (c Catalog) Get(metric string) (Spec, bool) {
	s, ok := c[metric]
	return s, ok
}

// Default returns the built-in catalog for the standard truck sensor set
func Default() Catalog {
	return Catalog{
		"oil_pressure": {
			Warning: 25, Critical: 20, Direction: LowerIsBad,
			Unit: "psi", Component: "engine",
			Action: "inspect oil pump and check for leaks", RepairCost: 1200,
		},
		"coolant_temp": {
			Warning: 105, Critical: 115, Direction: HigherIsBad,
			Unit: "C", Component: "cooling system",
			Action: "check coolant level, radiator and thermostat", RepairCost: 800,
		},
		"battery_voltage": {
			Warning: 12.2, Critical: 11.8, Direction: LowerIsBad,
			Unit: "V", Component: "electrical",
			Action: "test battery and alternator output", RepairCost: 350,
		},
		"tire_pressure": {
			Warning: 95, Critical: 85, Direction: LowerIsBad,
			Unit: "psi", Component: "tires",
			Action: "inflate and inspect for slow leaks", RepairCost: 600,
		},
		"brake_wear_pct": {
			Warning: 70, Critical: 85, Direction: HigherIsBad,
			Unit: "%", Component: "brakes",
			Action: "schedule brake pad replacement", RepairCost: 900,
		},
		"transmission_temp": {
			Warning: 110, Critical: 120, Direction: HigherIsBad,
			Unit: "C", Component: "transmission",
			Action: "check transmission fluid level and cooler", RepairCost: 2500,
		},
		"def_level": {
			Warning: 15, Critical: 5, Direction: LowerIsBad,
			Unit: "%", Component: "emissions",
			Action: "refill DEF before derate engages", RepairCost: 150,
		},
		"fuel_pressure": {
			Warning: 45, Critical: 35, Direction: LowerIsBad,
			Unit: "psi", Component: "fuel system",
			Action: "replace fuel filter, inspect lift pump", RepairCost: 450,
		},
	}
}
