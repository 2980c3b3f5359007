// Package sim runs the fixed-step simulation loop that orders the stat and
// damage subsystems within each tick: targeted modifier commands, modifier
// decay and recomputation, over-time effect ticks, damage resolution, and the
// result drain, in that order.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/damage"
	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/rng"
	"github.com/cory-johannsen/arena/internal/game/stats"
)

// modifierCommand is a modifier application aimed at one entity. Commands
// carry an explicit target; nothing is ever broadcast to every ledger.
type modifierCommand struct {
	targetID string
	modifier stats.Modifier
}

// Loop owns every per-entity ledger and the damage machinery, and advances
// them with a fixed-step tick. All mutation happens inside Step; Loop is not
// safe for concurrent use, and RunContext's ticker goroutine is intended to
// be the only caller once started.
type Loop struct {
	formulas *stats.Formulas
	engine   *stats.Engine
	dots     *damage.Scheduler
	pipeline *damage.Pipeline
	roller   *rng.Roller
	logger   *zap.Logger

	pending  *event.Queue[damage.Event]
	results  *event.Queue[damage.Result]
	modCmds  *event.Queue[modifierCommand]
	blocking map[string]bool

	consumers []func(damage.Result)
}

// NewLoop wires a simulation loop from its collaborators.
//
// Precondition: formulas, rules, roller, and logger must be non-nil.
func NewLoop(formulas *stats.Formulas, rules *damage.RuleTable, roller *rng.Roller, logger *zap.Logger) *Loop {
	if formulas == nil || rules == nil || roller == nil || logger == nil {
		panic("sim.NewLoop: formulas, rules, roller, and logger must be non-nil")
	}
	l := &Loop{
		formulas: formulas,
		engine:   stats.NewEngine(),
		dots:     damage.NewScheduler(),
		roller:   roller,
		logger:   logger,
		pending:  event.NewQueue[damage.Event](),
		results:  event.NewQueue[damage.Result](),
		modCmds:  event.NewQueue[modifierCommand](),
		blocking: make(map[string]bool),
	}
	l.pipeline = damage.NewPipeline(rules, l.results, logger)
	l.pipeline.DefenseFor = l.defenseFor
	l.pipeline.SpendShield = l.spendShield
	return l
}

// SetDamageHook installs the optional scripted damage hook on the pipeline.
func (l *Loop) SetDamageHook(hook func(damage.HookInfo) (float64, bool)) {
	l.pipeline.SetHook(hook)
}

// Spawn creates a ledger for a new entity with the given core attributes and
// returns its generated ID.
func (l *Loop) Spawn(attrs map[string]float64) string {
	id := uuid.NewString()
	l.SpawnWithID(id, attrs)
	return id
}

// SpawnWithID creates a ledger under a caller-chosen ID (restores, tests).
//
// Precondition: id must be non-empty.
// Postcondition: Ledger(id) returns the new ledger; tracked stats are full.
func (l *Loop) SpawnWithID(id string, attrs map[string]float64) *stats.Ledger {
	ledger := stats.NewLedger(l.formulas, attrs)
	l.engine.Register(id, ledger)
	l.logger.Debug("entity spawned", zap.String("entity", id))
	return ledger
}

// Despawn removes the entity's ledger and block state. Damage events already
// queued against it are dropped at resolution time by the missing-target
// check; standing over-time effects keep emitting until they elapse, their
// intents likewise dropped.
func (l *Loop) Despawn(id string) {
	l.engine.Unregister(id)
	delete(l.blocking, id)
	l.logger.Debug("entity despawned", zap.String("entity", id))
}

// Ledger returns the entity's stat ledger for direct reads and equipment
// mutation.
func (l *Loop) Ledger(id string) (*stats.Ledger, bool) {
	return l.engine.Ledger(id)
}

// SetBlocking marks whether the entity is currently blocking. The flag feeds
// the defensive snapshot the pipeline reads at resolution time.
func (l *Loop) SetBlocking(id string, blocking bool) {
	if _, ok := l.engine.Ledger(id); !ok {
		return
	}
	l.blocking[id] = blocking
}

// QueueDamage enqueues a damage intent for resolution during the next Step.
func (l *Loop) QueueDamage(ev damage.Event) {
	l.pending.Push(ev)
}

// QueueModifier enqueues a modifier application against one explicit target,
// applied at the start of the next Step. A missing target drops the command
// silently; an invalid modifier is logged and dropped.
func (l *Loop) QueueModifier(targetID string, m stats.Modifier) {
	l.modCmds.Push(modifierCommand{targetID: targetID, modifier: m})
}

// AddOverTime registers a standing damage-over-time effect and returns its
// cancellation key.
func (l *Loop) AddOverTime(effect damage.OverTime) (uuid.UUID, error) {
	if _, ok := l.engine.Ledger(effect.TargetID); !ok {
		return uuid.Nil, fmt.Errorf("adding over-time effect: unknown target %q", effect.TargetID)
	}
	return l.dots.Add(effect)
}

// CancelOverTime removes a standing effect. Intents already queued from it
// still resolve this tick.
func (l *Loop) CancelOverTime(key uuid.UUID) {
	l.dots.Cancel(key)
}

// Attack builds a damage intent from source against target, rolling the crit
// flag from the source's crit_chance derived stat, and queues it. The
// returned event reports the rolled flag.
func (l *Loop) Attack(sourceID, targetID string, amount float64, typ damage.Type) damage.Event {
	ev := damage.NewEvent(targetID, sourceID, amount, typ)
	if ledger, ok := l.engine.Ledger(sourceID); ok {
		if chance, ok := ledger.Derived(stats.CritChance); ok {
			ev.Crit = l.roller.Chance(chance)
		}
	}
	l.QueueDamage(ev)
	return ev
}

// OnResult registers a consumer invoked for every result during the drain
// step, in registration order. Consumers must not retain the result queue;
// results are gone after the drain.
func (l *Loop) OnResult(fn func(damage.Result)) {
	if fn == nil {
		panic("sim.Loop.OnResult: consumer must be non-nil")
	}
	l.consumers = append(l.consumers, fn)
}

// Step advances the simulation by dt seconds. Fixed order: targeted modifier
// commands, modifier decay-then-recompute across all ledgers, over-time
// ticks, damage resolution, result drain. Damage amounts therefore always
// reflect this tick's freshly recomputed stats, and results reach consumers
// exactly once.
func (l *Loop) Step(dt float64) {
	for _, cmd := range l.modCmds.Drain() {
		ledger, ok := l.engine.Ledger(cmd.targetID)
		if !ok {
			continue
		}
		if err := ledger.AddModifier(cmd.modifier); err != nil {
			l.logger.Warn("dropping invalid modifier",
				zap.String("entity", cmd.targetID),
				zap.String("modifier", cmd.modifier.Name),
				zap.Error(err),
			)
		}
	}

	l.engine.Step(dt)

	for _, ev := range l.dots.Advance(dt) {
		l.pending.Push(ev)
	}

	for _, ev := range l.pending.Drain() {
		l.pipeline.Resolve(ev)
	}

	for _, res := range l.results.Drain() {
		for _, fn := range l.consumers {
			fn(res)
		}
	}
}

// RunContext drives Step at a fixed interval until ctx is cancelled. Each
// tick advances the simulation by exactly interval, independent of wall-clock
// jitter.
//
// Precondition: interval must be > 0.
func (l *Loop) RunContext(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		panic("sim.Loop.RunContext: interval must be > 0")
	}
	dt := interval.Seconds()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Step(dt)
		}
	}
}

// defenseFor builds the pipeline's read-only defensive snapshot for id.
func (l *Loop) defenseFor(id string) (damage.DefenseSnapshot, bool) {
	ledger, ok := l.engine.Ledger(id)
	if !ok {
		return damage.DefenseSnapshot{}, false
	}
	shield, _ := ledger.Derived(stats.CurrentShield)
	return damage.DefenseSnapshot{
		Shield:   shield,
		Blocking: l.blocking[id],
	}, true
}

// spendShield deducts absorbed damage from the target's shield running
// total, clamped at zero. The next recompute clamps against max as usual.
func (l *Loop) spendShield(id string, amount float64) {
	ledger, ok := l.engine.Ledger(id)
	if !ok {
		return
	}
	cur, _ := ledger.Derived(stats.CurrentShield)
	cur -= amount
	if cur < 0 {
		cur = 0
	}
	ledger.SetDerived(stats.CurrentShield, cur)
}
