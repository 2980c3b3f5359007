// Package damage implements the damage resolution pipeline: shield
// absorption, crit/block multipliers per damage-type rule, scripted damage
// hooks, and damage-over-time scheduling.
package damage

import "github.com/google/uuid"

// Type identifies a damage type for rule-table routing.
type Type string

// Stock damage types. The rule table accepts any Type; unknown types resolve
// with the default rule.
const (
	TypePhysical Type = "physical"
	TypeFire     Type = "fire"
	TypePoison   Type = "poison"
	TypeEnergy   Type = "energy"
)

// Vec3 is a world-space position or direction carried through to VFX and
// knockback consumers. The resolution layer never interprets it.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Event is a raw damage intent: deal Amount of Type from Source to Target.
// Events are transient; the pipeline consumes each exactly once and never
// stores it.
//
// Crit is decided upstream (attack roll, ability logic) and carried as a
// boolean; the pipeline applies the multiplier but never rolls.
type Event struct {
	// ID identifies the intent for logging and tracing.
	ID uuid.UUID
	// TargetID is the entity this damage is aimed at.
	TargetID string
	// SourceID is the attacking entity; empty for environmental damage.
	SourceID string
	// Amount is the raw damage before shields and multipliers.
	Amount float64
	// Type routes the event through the damage-type rule table.
	Type Type
	// Position and Direction feed knockback and VFX consumers.
	Position  Vec3
	Direction Vec3
	// IgnoreShield skips shield absorption entirely.
	IgnoreShield bool
	// Crit marks the event as a critical hit, already decided upstream.
	Crit bool
}

// NewEvent builds a damage intent with a fresh ID.
func NewEvent(targetID, sourceID string, amount float64, typ Type) Event {
	return Event{
		ID:       uuid.New(),
		TargetID: targetID,
		SourceID: sourceID,
		Amount:   amount,
		Type:     typ,
	}
}

// Result is the outcome of resolving one Event. Exactly one Result is
// produced per consumed Event (dropped events excepted) and placed on the
// result queue for that tick's consumers: health application, UI, audio,
// VFX.
type Result struct {
	// EventID is the ID of the resolved intent.
	EventID uuid.UUID
	// TargetID and SourceID mirror the intent.
	TargetID string
	SourceID string
	// OriginalAmount is the raw intent amount.
	OriginalAmount float64
	// FinalAmount is the damage after shield, crit/block, and hooks; >= 0.
	FinalAmount float64
	// ShieldedAmount is how much the target's shield absorbed.
	ShieldedAmount float64
	// Type is the damage type of the intent.
	Type Type
	// Crit and Block report which multipliers applied.
	Crit  bool
	Block bool
	// Position and Direction pass through from the intent.
	Position  Vec3
	Direction Vec3
}
