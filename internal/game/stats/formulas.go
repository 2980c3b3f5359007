package stats

// Canonical core attribute names. Attributes are open strings; these are the
// names the default formulas read.
const (
	Strength = "strength"
	Vitality = "vitality"
	Agility  = "agility"
	Focus    = "focus"
)

// Canonical derived stat names.
const (
	MaxHealth  = "max_health"
	MaxStamina = "max_stamina"
	MaxShield  = "max_shield"
	MaxOxygen  = "max_oxygen"
	CritChance = "crit_chance"

	CurrentHealth  = "current_health"
	CurrentStamina = "current_stamina"
	CurrentShield  = "current_shield"
	CurrentOxygen  = "current_oxygen"
)

// Attributes is a read-only view of a ledger's core attributes passed to
// formulas. Missing names read as 0.
type Attributes map[string]float64

// At returns the attribute value, or 0 when the name is unknown.
func (a Attributes) At(name string) float64 {
	return a[name]
}

// Formula computes a derived stat's base value from core attributes, before
// any modifiers apply.
type Formula func(a Attributes) float64

// Formulas maps derived stat names to their base formulas and links
// current-value-tracking stats to the max stat that clamps them. One Formulas
// instance is shared by every ledger of the same ruleset.
type Formulas struct {
	formulas map[string]Formula
	tracked  map[string]string // tracked stat -> max stat
}

// NewFormulas returns an empty formula set.
func NewFormulas() *Formulas {
	return &Formulas{
		formulas: make(map[string]Formula),
		tracked:  make(map[string]string),
	}
}

// Register adds or replaces the base formula for a derived stat.
//
// Precondition: name must be non-empty and f non-nil.
func (f *Formulas) Register(name string, fn Formula) {
	if name == "" {
		panic("stats.Formulas.Register: name must be non-empty")
	}
	if fn == nil {
		panic("stats.Formulas.Register: formula must be non-nil")
	}
	f.formulas[name] = fn
}

// Track links a current-value stat to the max stat that bounds it. Tracked
// stats persist as running totals across recomputation; they are clamped into
// [0, max] instead of being recomputed from a formula.
//
// Precondition: name and maxStat must be non-empty.
func (f *Formulas) Track(name, maxStat string) {
	if name == "" || maxStat == "" {
		panic("stats.Formulas.Track: name and maxStat must be non-empty")
	}
	f.tracked[name] = maxStat
}

// Tracked reports whether name is a current-value-tracking stat, and if so,
// which max stat clamps it.
func (f *Formulas) Tracked(name string) (string, bool) {
	maxStat, ok := f.tracked[name]
	return maxStat, ok
}

// Names returns the registered derived stat names. Order is unspecified;
// derived stats are independent of each other.
func (f *Formulas) Names() []string {
	out := make([]string, 0, len(f.formulas))
	for name := range f.formulas {
		out = append(out, name)
	}
	return out
}

// Default returns the stock formula set: health, stamina, shield, and oxygen
// pools plus crit chance, with the four current-value stats tracked against
// their max pools.
func Default() *Formulas {
	f := NewFormulas()
	f.Register(MaxHealth, func(a Attributes) float64 {
		return 50 + 10*a.At(Vitality)
	})
	f.Register(MaxStamina, func(a Attributes) float64 {
		return 20 + 5*a.At(Agility)
	})
	f.Register(MaxShield, func(a Attributes) float64 {
		return 5 * a.At(Focus)
	})
	f.Register(MaxOxygen, func(a Attributes) float64 {
		return 30
	})
	f.Register(CritChance, func(a Attributes) float64 {
		c := 0.05 + 0.005*a.At(Agility)
		if c > 1 {
			c = 1
		}
		return c
	})
	f.Track(CurrentHealth, MaxHealth)
	f.Track(CurrentStamina, MaxStamina)
	f.Track(CurrentShield, MaxShield)
	f.Track(CurrentOxygen, MaxOxygen)
	return f
}
