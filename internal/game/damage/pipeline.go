package damage

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/event"
)

// DefenseSnapshot is the read-only view of a target's defensive state at
// resolution time: remaining shield buffer and whether the target is
// blocking. The simulation loop builds it from the target's ledger; the
// pipeline never looks up components itself.
type DefenseSnapshot struct {
	Shield   float64
	Blocking bool
}

// HookInfo is the resolution context handed to an optional damage hook after
// the multiplier passes. Hooks may replace the running amount (scripted
// resistances and vulnerabilities); the pipeline clamps afterwards.
type HookInfo struct {
	Type           string
	Amount         float64
	OriginalAmount float64
	Crit           bool
	Block          bool
	TargetID       string
	SourceID       string
}

// Pipeline resolves damage intents into results. It reads defensive state
// through injected callbacks, never mutates target health, and emits exactly
// one Result per resolved Event onto the result queue.
//
// Pipeline is not safe for concurrent use; the simulation loop owns it.
type Pipeline struct {
	rules   *RuleTable
	results *event.Queue[Result]
	logger  *zap.Logger

	// DefenseFor returns the target's defensive snapshot, or false when the
	// target no longer resolves (despawned). Missing targets drop the event
	// silently; despawn races are expected, not errors.
	DefenseFor func(id string) (DefenseSnapshot, bool)
	// SpendShield deducts absorbed damage from the target's shield buffer.
	// The owning system clamps; the pipeline only reports the spend.
	SpendShield func(id string, amount float64)

	hook func(HookInfo) (float64, bool)
}

// NewPipeline creates a Pipeline emitting onto results.
//
// Precondition: rules, results, and logger must be non-nil. DefenseFor must
// be set before the first Resolve call.
func NewPipeline(rules *RuleTable, results *event.Queue[Result], logger *zap.Logger) *Pipeline {
	if rules == nil || results == nil || logger == nil {
		panic("damage.NewPipeline: rules, results, and logger must be non-nil")
	}
	return &Pipeline{rules: rules, results: results, logger: logger}
}

// SetHook installs the optional post-multiplier damage hook. nil disables.
func (p *Pipeline) SetHook(hook func(HookInfo) (float64, bool)) {
	p.hook = hook
}

// Results returns the queue this pipeline emits onto.
func (p *Pipeline) Results() *event.Queue[Result] {
	return p.results
}

// Resolve consumes one damage intent. Resolution order: shield absorption
// (unless the intent or the type rule bypasses it), crit multiplier, block
// multiplier, optional damage hook, clamp to >= 0, emit Result.
//
// A zero or negative Amount still produces a zero-effect Result so consumers
// can distinguish "attack landed for 0" from "no event". An unresolvable
// target drops the event with a debug log and no Result.
func (p *Pipeline) Resolve(ev Event) {
	def, ok := p.DefenseFor(ev.TargetID)
	if !ok {
		p.logger.Debug("dropping damage event for missing target",
			zap.String("event_id", ev.ID.String()),
			zap.String("target", ev.TargetID),
		)
		return
	}

	rule := p.rules.RuleFor(ev.Type)
	amount := ev.Amount
	if amount < 0 {
		amount = 0
	}

	shielded := 0.0
	if !ev.IgnoreShield && !rule.PierceShield && def.Shield > 0 && amount > 0 {
		shielded = def.Shield
		if shielded > amount {
			shielded = amount
		}
		amount -= shielded
		if p.SpendShield != nil {
			p.SpendShield(ev.TargetID, shielded)
		}
	}

	// Crit before block: a block reduces the already-amplified amount.
	if ev.Crit {
		amount *= rule.CritMultiplier
	}
	if def.Blocking {
		amount *= rule.BlockMultiplier
	}

	if p.hook != nil {
		if adjusted, ok := p.hook(HookInfo{
			Type:           string(ev.Type),
			Amount:         amount,
			OriginalAmount: ev.Amount,
			Crit:           ev.Crit,
			Block:          def.Blocking,
			TargetID:       ev.TargetID,
			SourceID:       ev.SourceID,
		}); ok {
			amount = adjusted
		}
	}

	if amount < 0 {
		amount = 0
	}

	p.results.Push(Result{
		EventID:        ev.ID,
		TargetID:       ev.TargetID,
		SourceID:       ev.SourceID,
		OriginalAmount: ev.Amount,
		FinalAmount:    amount,
		ShieldedAmount: shielded,
		Type:           ev.Type,
		Crit:           ev.Crit,
		Block:          def.Blocking,
		Position:       ev.Position,
		Direction:      ev.Direction,
	})
}
