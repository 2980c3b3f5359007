// Package stats implements the per-entity stat ledger: core attributes,
// derived stats recomputed from formulas and modifiers, and the timed
// modifier list. A Ledger is exclusively owned by its entity and is not safe
// for concurrent use; the simulation loop serialises access.
package stats

import "fmt"

// Ledger holds one entity's stat state: core attributes, cached derived stat
// values, and the active modifier list in insertion order.
//
// Invariant: at most one modifier per name. Adding a modifier with an
// existing name replaces it in place and resets its remaining duration.
// Invariant: derived values are only written by ApplyModifiers, except for
// tracked stats, which persist as running totals and are clamped into
// [0, max] on every recomputation.
type Ledger struct {
	formulas  *Formulas
	attrs     map[string]float64
	derived   map[string]float64
	modifiers []Modifier
}

// NewLedger creates a ledger with the given core attributes, computes every
// derived stat once, and fills each tracked stat to its max.
//
// Precondition: formulas must be non-nil.
// Postcondition: Every registered derived stat has a cached value; every
// tracked stat equals its linked max.
func NewLedger(formulas *Formulas, attrs map[string]float64) *Ledger {
	if formulas == nil {
		panic("stats.NewLedger: formulas must be non-nil")
	}
	l := &Ledger{
		formulas: formulas,
		attrs:    make(map[string]float64, len(attrs)),
		derived:  make(map[string]float64),
	}
	for name, v := range attrs {
		l.attrs[name] = v
	}
	l.ApplyModifiers()
	for tracked, maxStat := range formulas.tracked {
		if maxVal, ok := l.derived[maxStat]; ok {
			l.derived[tracked] = maxVal
		}
	}
	return l
}

// Attribute returns a core attribute value. Unknown names yield (0, false),
// never an error.
func (l *Ledger) Attribute(name string) (float64, bool) {
	v, ok := l.attrs[name]
	return v, ok
}

// SetAttribute sets a core attribute. This is the mutation surface for
// equipment and progression systems; the change is reflected in derived stats
// at the next ApplyModifiers pass.
func (l *Ledger) SetAttribute(name string, value float64) {
	l.attrs[name] = value
}

// Attributes returns a copy of the core attribute map.
func (l *Ledger) Attributes() map[string]float64 {
	out := make(map[string]float64, len(l.attrs))
	for name, v := range l.attrs {
		out[name] = v
	}
	return out
}

// Derived returns the cached value of a derived stat. It never triggers
// recomputation; ApplyModifiers is the sole recomputation step. Unknown
// names yield (0, false).
func (l *Ledger) Derived(name string) (float64, bool) {
	v, ok := l.derived[name]
	return v, ok
}

// SetDerived writes a derived stat value directly. Intended only for
// current-value-tracking stats (health, stamina, shield, oxygen) whose
// running totals are owned by downstream systems; the ledger does not clamp
// on write. Writes to formula-backed stats are overwritten by the next
// ApplyModifiers pass.
func (l *Ledger) SetDerived(name string, value float64) {
	l.derived[name] = value
}

// AddModifier inserts m, or replaces the modifier with the same name in
// place, resetting the remaining duration to m's duration.
//
// Postcondition: Returns a non-nil error iff m fails validation; the ledger
// is never left holding an invalid modifier.
func (l *Ledger) AddModifier(m Modifier) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("adding modifier: %w", err)
	}
	for i := range l.modifiers {
		if l.modifiers[i].Name == m.Name {
			l.modifiers[i] = m
			return nil
		}
	}
	l.modifiers = append(l.modifiers, m)
	return nil
}

// RemoveModifier removes the modifier with the given name. No-op when absent.
func (l *Ledger) RemoveModifier(name string) {
	for i := range l.modifiers {
		if l.modifiers[i].Name == name {
			l.modifiers = append(l.modifiers[:i], l.modifiers[i+1:]...)
			return
		}
	}
}

// Modifier returns the active modifier with the given name, if present.
func (l *Ledger) Modifier(name string) (Modifier, bool) {
	for _, m := range l.modifiers {
		if m.Name == name {
			return m, true
		}
	}
	return Modifier{}, false
}

// Modifiers returns a copy of the active modifier list in evaluation order.
func (l *Ledger) Modifiers() []Modifier {
	out := make([]Modifier, len(l.modifiers))
	copy(out, l.modifiers)
	return out
}

// UpdateModifiers decrements every timed modifier's remaining duration by dt
// and removes those that reach zero or below. Permanent modifiers are
// untouched. Returns the names of expired modifiers.
//
// Postcondition: No remaining timed modifier has Duration <= 0.
func (l *Ledger) UpdateModifiers(dt float64) []string {
	var expired []string
	kept := l.modifiers[:0]
	for _, m := range l.modifiers {
		if !m.Permanent() {
			m.Duration -= dt
			if m.Duration <= 0 {
				expired = append(expired, m.Name)
				continue
			}
		}
		kept = append(kept, m)
	}
	l.modifiers = kept
	return expired
}

// ApplyModifiers recomputes every derived stat from scratch: the formula base
// from current core attributes, plus all Flat modifiers, times
// (1 + Σpercent), then replaced by the last Override targeting that stat, if
// any. Tracked stats are not recomputed; their running totals are clamped
// into [0, linked max]. Modifiers targeting unknown stats are skipped.
//
// Postcondition: Calling twice with no intervening state change yields
// identical derived values.
func (l *Ledger) ApplyModifiers() {
	attrs := Attributes(l.attrs)
	for name, formula := range l.formulas.formulas {
		base := formula(attrs)
		flat := 0.0
		percent := 0.0
		override := 0.0
		hasOverride := false
		for _, m := range l.modifiers {
			if m.Stat != name {
				continue
			}
			switch m.Kind {
			case Flat:
				flat += m.Magnitude
			case Percent:
				percent += m.Magnitude
			case Override:
				override = m.Magnitude
				hasOverride = true
			}
		}
		value := (base + flat) * (1 + percent)
		if hasOverride {
			value = override
		}
		l.derived[name] = value
	}
	for tracked, maxStat := range l.formulas.tracked {
		maxVal, ok := l.derived[maxStat]
		if !ok {
			continue
		}
		cur := l.derived[tracked]
		if cur < 0 {
			cur = 0
		}
		if cur > maxVal {
			cur = maxVal
		}
		l.derived[tracked] = cur
	}
}
