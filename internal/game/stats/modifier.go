package stats

import (
	"fmt"
	"math"
)

// Kind selects how a modifier's magnitude combines with a derived stat.
type Kind string

const (
	// Flat magnitudes are summed onto the formula base.
	Flat Kind = "flat"
	// Percent magnitudes are summed and applied as ×(1 + Σpercent)
	// to the flat-adjusted value.
	Percent Kind = "percent"
	// Override replaces the computed value entirely; when several
	// overrides target the same stat, the last one added wins.
	Override Kind = "override"
)

// PermanentDuration marks a modifier that never decays.
const PermanentDuration = -1.0

// Modifier is a named adjustment to one derived stat. A ledger holds at most
// one modifier per name; adding a modifier under an existing name replaces it.
type Modifier struct {
	// Name is the unique key within a ledger (e.g. "ring_of_vigor").
	Name string `json:"name" yaml:"name"`
	// Stat is the derived stat this modifier targets, by name.
	// Modifiers hold only the label, never a reference into a ledger.
	Stat string `json:"stat" yaml:"stat"`
	// Kind is one of Flat, Percent, Override.
	Kind Kind `json:"kind" yaml:"kind"`
	// Magnitude is the adjustment value. For Percent, 0.25 means +25%.
	Magnitude float64 `json:"magnitude" yaml:"magnitude"`
	// Duration is the remaining lifetime in seconds; negative = permanent.
	Duration float64 `json:"duration" yaml:"duration"`
}

// Permanent reports whether the modifier never expires.
func (m Modifier) Permanent() bool {
	return m.Duration < 0
}

// Validate checks the modifier for values that would corrupt a ledger.
//
// Postcondition: Returns nil iff Name, Stat, and Kind are set, Magnitude is
// finite, and Duration is either negative (permanent) or a finite value > 0.
func (m Modifier) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("modifier name must not be empty")
	}
	if m.Stat == "" {
		return fmt.Errorf("modifier %q: target stat must not be empty", m.Name)
	}
	switch m.Kind {
	case Flat, Percent, Override:
	default:
		return fmt.Errorf("modifier %q: unknown kind %q", m.Name, m.Kind)
	}
	if math.IsNaN(m.Magnitude) || math.IsInf(m.Magnitude, 0) {
		return fmt.Errorf("modifier %q: magnitude must be finite, got %v", m.Name, m.Magnitude)
	}
	if math.IsNaN(m.Duration) || math.IsInf(m.Duration, 1) {
		return fmt.Errorf("modifier %q: duration must be finite, got %v", m.Name, m.Duration)
	}
	if m.Duration == 0 {
		return fmt.Errorf("modifier %q: duration must be > 0 or negative for permanent", m.Name)
	}
	return nil
}

// NewTimed builds a timed modifier that decays over duration seconds.
//
// Postcondition: Returns a valid Modifier or a non-nil error; invalid input
// never produces a storable modifier.
func NewTimed(name, stat string, kind Kind, magnitude, duration float64) (Modifier, error) {
	m := Modifier{Name: name, Stat: stat, Kind: kind, Magnitude: magnitude, Duration: duration}
	if duration <= 0 {
		return Modifier{}, fmt.Errorf("modifier %q: timed duration must be > 0, got %v", name, duration)
	}
	if err := m.Validate(); err != nil {
		return Modifier{}, err
	}
	return m, nil
}

// NewPermanent builds a modifier that persists until removed by name.
//
// Postcondition: Returns a valid Modifier or a non-nil error.
func NewPermanent(name, stat string, kind Kind, magnitude float64) (Modifier, error) {
	m := Modifier{Name: name, Stat: stat, Kind: kind, Magnitude: magnitude, Duration: PermanentDuration}
	if err := m.Validate(); err != nil {
		return Modifier{}, err
	}
	return m, nil
}
