package damage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/damage"
)

func poisonEffect() damage.OverTime {
	return damage.OverTime{
		TargetID:      "orc",
		SourceID:      "hero",
		DamagePerTick: 5,
		TickFrequency: 1.0,
		TotalDuration: 3.0,
		Type:          damage.TypePoison,
	}
}

func TestScheduler_TicksAtFrequencyThenExpires(t *testing.T) {
	s := damage.NewScheduler()
	key, err := s.Add(poisonEffect())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		emitted := s.Advance(1.0)
		require.Len(t, emitted, 1, "tick %d", i)
		assert.Equal(t, "orc", emitted[0].TargetID)
		assert.Equal(t, 5.0, emitted[0].Amount)
		assert.Equal(t, damage.TypePoison, emitted[0].Type)
	}

	assert.False(t, s.Active(key), "removed once elapsed reaches total duration")
	assert.Empty(t, s.Advance(1.0))
}

func TestScheduler_SubFrequencySteps_NoEmission(t *testing.T) {
	s := damage.NewScheduler()
	_, err := s.Add(poisonEffect())
	require.NoError(t, err)

	assert.Empty(t, s.Advance(0.4))
	assert.Empty(t, s.Advance(0.4))
	emitted := s.Advance(0.4)
	require.Len(t, emitted, 1, "accumulated 1.2s crosses the 1.0s interval")
}

func TestScheduler_LargeStep_CatchUpTicksDropped(t *testing.T) {
	s := damage.NewScheduler()
	key, err := s.Add(poisonEffect())
	require.NoError(t, err)

	// A single 3.5s step covers three tick intervals and the full duration:
	// one final tick is emitted, never a burst of three.
	emitted := s.Advance(3.5)
	require.Len(t, emitted, 1)
	assert.False(t, s.Active(key))
}

func TestScheduler_LastTickSnapsToElapsed(t *testing.T) {
	s := damage.NewScheduler()
	effect := poisonEffect()
	effect.TotalDuration = 10.0
	_, err := s.Add(effect)
	require.NoError(t, err)

	require.Len(t, s.Advance(2.5), 1)
	// lastTick snapped to 2.5, so the next interval ends at 3.5.
	assert.Empty(t, s.Advance(0.9))
	require.Len(t, s.Advance(0.1), 1)
}

func TestScheduler_Cancel_StopsEmission(t *testing.T) {
	s := damage.NewScheduler()
	key, err := s.Add(poisonEffect())
	require.NoError(t, err)

	s.Cancel(key)
	assert.False(t, s.Active(key))
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Advance(1.0))

	s.Cancel(key) // absent: no-op
}

func TestScheduler_IndependentEffects(t *testing.T) {
	s := damage.NewScheduler()
	fast := poisonEffect()
	slow := poisonEffect()
	slow.TickFrequency = 2.0
	slow.TotalDuration = 4.0
	slow.Type = damage.TypeFire
	_, err := s.Add(fast)
	require.NoError(t, err)
	_, err = s.Add(slow)
	require.NoError(t, err)

	emitted := s.Advance(1.0)
	require.Len(t, emitted, 1, "only the 1s effect is due")
	assert.Equal(t, damage.TypePoison, emitted[0].Type)

	emitted = s.Advance(1.0)
	require.Len(t, emitted, 2, "both due at t=2")
}

func TestScheduler_AddInvalid_Rejected(t *testing.T) {
	s := damage.NewScheduler()
	for name, mutate := range map[string]func(*damage.OverTime){
		"empty target":       func(o *damage.OverTime) { o.TargetID = "" },
		"zero frequency":     func(o *damage.OverTime) { o.TickFrequency = 0 },
		"negative frequency": func(o *damage.OverTime) { o.TickFrequency = -1 },
		"zero duration":      func(o *damage.OverTime) { o.TotalDuration = 0 },
	} {
		effect := poisonEffect()
		mutate(&effect)
		_, err := s.Add(effect)
		assert.Error(t, err, name)
	}
	assert.Zero(t, s.Len())
}

func TestScheduler_EachEventHasFreshID(t *testing.T) {
	s := damage.NewScheduler()
	_, err := s.Add(poisonEffect())
	require.NoError(t, err)

	first := s.Advance(1.0)
	second := s.Advance(1.0)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID)
}
