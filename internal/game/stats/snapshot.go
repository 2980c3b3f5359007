package stats

// Snapshot is the persistence form of a ledger: core attributes, the running
// totals of tracked stats, and the active modifier list with remaining
// durations, captured verbatim.
type Snapshot struct {
	Attributes map[string]float64 `json:"attributes"`
	Tracked    map[string]float64 `json:"tracked"`
	Modifiers  []Modifier         `json:"modifiers"`
}

// Snapshot captures the ledger's persistent state. Pure derived stats are
// not serialised; they are recomputed on restore.
func (l *Ledger) Snapshot() Snapshot {
	s := Snapshot{
		Attributes: make(map[string]float64, len(l.attrs)),
		Tracked:    make(map[string]float64, len(l.formulas.tracked)),
		Modifiers:  make([]Modifier, len(l.modifiers)),
	}
	for name, v := range l.attrs {
		s.Attributes[name] = v
	}
	for tracked := range l.formulas.tracked {
		if v, ok := l.derived[tracked]; ok {
			s.Tracked[tracked] = v
		}
	}
	copy(s.Modifiers, l.modifiers)
	return s
}

// RestoreSnapshot replaces the ledger's attributes, tracked stat totals, and
// modifier list with the snapshot's contents, then recomputes derived stats
// once. Remaining durations are restored verbatim; elapsed decay is not
// re-run.
func (l *Ledger) RestoreSnapshot(s Snapshot) {
	l.attrs = make(map[string]float64, len(s.Attributes))
	for name, v := range s.Attributes {
		l.attrs[name] = v
	}
	l.modifiers = make([]Modifier, len(s.Modifiers))
	copy(l.modifiers, s.Modifiers)
	for tracked, v := range s.Tracked {
		l.derived[tracked] = v
	}
	l.ApplyModifiers()
}
