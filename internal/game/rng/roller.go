package rng

import "go.uber.org/zap"

// chanceResolution is the granularity of probability checks: probabilities
// are resolved in steps of 1/10000.
const chanceResolution = 10000

// Roller wraps a Source and logger to provide logged probability checks.
// Every check is logged at debug level with the probability and outcome.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller that rolls with src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil || logger == nil {
		panic("rng.NewRoller: src and logger must be non-nil")
	}
	return &Roller{src: src, logger: logger}
}

// Chance reports a success with probability p. Values outside [0, 1] are
// clamped; p <= 0 never succeeds and p >= 1 always succeeds.
func (r *Roller) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	roll := r.src.Intn(chanceResolution)
	hit := float64(roll) < p*chanceResolution
	r.logger.Debug("chance roll",
		zap.Float64("probability", p),
		zap.Int("roll", roll),
		zap.Bool("hit", hit),
	)
	return hit
}
