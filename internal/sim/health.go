package sim

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/damage"
	"github.com/cory-johannsen/arena/internal/game/stats"
)

// NewHealthApplier returns the reference result consumer: it subtracts each
// result's final amount from the target's current_health running total,
// clamped at zero. Downstream systems (UI flash, audio, VFX) register their
// own consumers alongside it.
//
// Precondition: loop and logger must be non-nil.
func NewHealthApplier(loop *Loop, logger *zap.Logger) func(damage.Result) {
	if loop == nil || logger == nil {
		panic("sim.NewHealthApplier: loop and logger must be non-nil")
	}
	return func(res damage.Result) {
		ledger, ok := loop.Ledger(res.TargetID)
		if !ok {
			return
		}
		cur, ok := ledger.Derived(stats.CurrentHealth)
		if !ok {
			return
		}
		next := cur - res.FinalAmount
		if next < 0 {
			next = 0
		}
		ledger.SetDerived(stats.CurrentHealth, next)
		if next == 0 && cur > 0 {
			logger.Info("entity health depleted",
				zap.String("entity", res.TargetID),
				zap.String("source", res.SourceID),
				zap.String("damage_type", string(res.Type)),
			)
		}
	}
}
