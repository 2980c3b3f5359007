package damage

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// OverTime is a standing effect (poison, burn) that periodically re-emits
// damage intents on its target until its duration elapses.
type OverTime struct {
	TargetID      string
	SourceID      string
	DamagePerTick float64
	// TickFrequency is the seconds between emitted ticks.
	TickFrequency float64
	// TotalDuration is the effect lifetime in seconds.
	TotalDuration float64
	Type          Type

	elapsed  float64
	lastTick float64
}

// Validate checks the effect for values that would corrupt the scheduler.
func (o OverTime) Validate() error {
	if o.TargetID == "" {
		return fmt.Errorf("over-time effect: target must not be empty")
	}
	if math.IsNaN(o.DamagePerTick) || math.IsInf(o.DamagePerTick, 0) {
		return fmt.Errorf("over-time effect: damage per tick must be finite, got %v", o.DamagePerTick)
	}
	if !(o.TickFrequency > 0) || math.IsInf(o.TickFrequency, 1) {
		return fmt.Errorf("over-time effect: tick frequency must be > 0, got %v", o.TickFrequency)
	}
	if !(o.TotalDuration > 0) || math.IsInf(o.TotalDuration, 1) {
		return fmt.Errorf("over-time effect: total duration must be > 0, got %v", o.TotalDuration)
	}
	return nil
}

// Scheduler advances standing over-time effects and emits one damage intent
// per effect per due tick. Effects are visited in insertion order.
//
// A single large dt that skips several tick intervals still emits only one
// intent: the last-tick marker snaps forward to the current elapsed time, so
// catch-up ticks are dropped, not queued.
//
// Scheduler is not safe for concurrent use; the simulation loop owns it.
type Scheduler struct {
	effects map[uuid.UUID]*OverTime
	order   []uuid.UUID
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{effects: make(map[uuid.UUID]*OverTime)}
}

// Add registers the effect and returns its cancellation key.
//
// Postcondition: Returns a non-nil error iff the effect fails validation.
func (s *Scheduler) Add(effect OverTime) (uuid.UUID, error) {
	if err := effect.Validate(); err != nil {
		return uuid.Nil, err
	}
	key := uuid.New()
	s.effects[key] = &effect
	s.order = append(s.order, key)
	return key, nil
}

// Cancel removes the effect under key. No-op when absent. Damage intents
// already emitted from a cancelled effect still resolve; cancellation is
// never retroactive.
func (s *Scheduler) Cancel(key uuid.UUID) {
	if _, ok := s.effects[key]; !ok {
		return
	}
	delete(s.effects, key)
	for i, other := range s.order {
		if other == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Active reports whether the effect under key is still running.
func (s *Scheduler) Active(key uuid.UUID) bool {
	_, ok := s.effects[key]
	return ok
}

// Len returns the number of standing effects.
func (s *Scheduler) Len() int {
	return len(s.effects)
}

// Advance moves every effect forward by dt and returns the emitted damage
// intents. Each effect emits at most one intent per Advance call. Effects
// whose elapsed time reaches TotalDuration are removed after emitting any
// due final tick.
func (s *Scheduler) Advance(dt float64) []Event {
	var emitted []Event
	var done []uuid.UUID
	for _, key := range s.order {
		o := s.effects[key]
		o.elapsed += dt
		if o.elapsed-o.lastTick >= o.TickFrequency {
			emitted = append(emitted, NewEvent(o.TargetID, o.SourceID, o.DamagePerTick, o.Type))
			o.lastTick = o.elapsed
		}
		if o.elapsed >= o.TotalDuration {
			done = append(done, key)
		}
	}
	for _, key := range done {
		s.Cancel(key)
	}
	return emitted
}
