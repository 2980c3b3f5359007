package sim_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/damage"
	"github.com/cory-johannsen/arena/internal/game/rng"
	"github.com/cory-johannsen/arena/internal/game/stats"
	"github.com/cory-johannsen/arena/internal/sim"
)

// fixedSource always returns the same roll, making crit outcomes
// deterministic.
type fixedSource struct {
	roll int
}

func (s *fixedSource) Intn(n int) int { return s.roll }

func newLoop(t *testing.T, src rng.Source) *sim.Loop {
	t.Helper()
	if src == nil {
		src = &fixedSource{roll: 9999}
	}
	return sim.NewLoop(stats.Default(), damage.NewRuleTable(), rng.NewRoller(src, zap.NewNop()), zap.NewNop())
}

// collectResults registers a consumer that appends every result to the
// returned slice.
func collectResults(loop *sim.Loop) *[]damage.Result {
	var out []damage.Result
	loop.OnResult(func(res damage.Result) {
		out = append(out, res)
	})
	return &out
}

func TestSpawn_LedgerStartsFull(t *testing.T) {
	loop := newLoop(t, nil)
	id := loop.Spawn(map[string]float64{stats.Vitality: 5})

	ledger, ok := loop.Ledger(id)
	require.True(t, ok)
	hp, _ := ledger.Derived(stats.CurrentHealth)
	assert.Equal(t, 100.0, hp)
}

func TestQueueDamage_ResolvedOnStep(t *testing.T) {
	loop := newLoop(t, nil)
	results := collectResults(loop)
	id := loop.Spawn(map[string]float64{stats.Vitality: 5})

	loop.QueueDamage(damage.NewEvent(id, "env", 25, damage.TypePhysical))
	assert.Empty(t, *results, "nothing resolves before the tick")

	loop.Step(0.05)
	require.Len(t, *results, 1)
	assert.Equal(t, 25.0, (*results)[0].FinalAmount)

	loop.Step(0.05)
	assert.Len(t, *results, 1, "each result reaches consumers exactly once")
}

func TestQueueModifier_AppliedBeforeDamageSameTick(t *testing.T) {
	loop := newLoop(t, nil)
	results := collectResults(loop)
	// Focus 10 gives max_shield 50; spawning fills current_shield to 50.
	loop.SpawnWithID("orc", map[string]float64{stats.Focus: 10})

	// Queue a shield-draining override and a hit in the same tick: the
	// modifier pass runs first, so the hit meets the shrunken shield.
	m, err := stats.NewPermanent("emp", stats.MaxShield, stats.Override, 0)
	require.NoError(t, err)
	loop.QueueModifier("orc", m)
	loop.QueueDamage(damage.NewEvent("orc", "hero", 30, damage.TypePhysical))

	loop.Step(0.05)
	require.Len(t, *results, 1)
	assert.Equal(t, 0.0, (*results)[0].ShieldedAmount, "shield was clamped to the new max before resolution")
	assert.Equal(t, 30.0, (*results)[0].FinalAmount)
}

func TestQueueModifier_MissingTarget_Dropped(t *testing.T) {
	loop := newLoop(t, nil)
	m, err := stats.NewPermanent("buff", stats.MaxHealth, stats.Flat, 10)
	require.NoError(t, err)
	loop.QueueModifier("ghost", m)
	loop.Step(0.05) // must not panic
}

func TestQueueModifier_InvalidModifier_LoggedAndDropped(t *testing.T) {
	loop := newLoop(t, nil)
	id := loop.Spawn(map[string]float64{stats.Vitality: 5})

	loop.QueueModifier(id, stats.Modifier{Name: "bad", Stat: stats.MaxHealth, Kind: "wat", Duration: -1})
	loop.Step(0.05)

	ledger, _ := loop.Ledger(id)
	assert.Empty(t, ledger.Modifiers())
}

func TestShieldAbsorption_PersistsAcrossTicks(t *testing.T) {
	loop := newLoop(t, nil)
	// max_shield 30
	loop.SpawnWithID("orc", map[string]float64{stats.Focus: 6})
	results := collectResults(loop)

	loop.QueueDamage(damage.NewEvent("orc", "hero", 20, damage.TypePhysical))
	loop.Step(0.05)
	require.Len(t, *results, 1)
	assert.Equal(t, 20.0, (*results)[0].ShieldedAmount)

	// 10 shield remains for the next hit.
	loop.QueueDamage(damage.NewEvent("orc", "hero", 20, damage.TypePhysical))
	loop.Step(0.05)
	require.Len(t, *results, 2)
	assert.Equal(t, 10.0, (*results)[1].ShieldedAmount)
	assert.Equal(t, 10.0, (*results)[1].FinalAmount)
}

func TestSetBlocking_HalvesDamage(t *testing.T) {
	loop := newLoop(t, nil)
	loop.SpawnWithID("orc", nil)
	results := collectResults(loop)

	loop.SetBlocking("orc", true)
	loop.QueueDamage(damage.NewEvent("orc", "hero", 40, damage.TypePhysical))
	loop.Step(0.05)

	require.Len(t, *results, 1)
	assert.True(t, (*results)[0].Block)
	assert.Equal(t, 20.0, (*results)[0].FinalAmount)
}

func TestDespawn_QueuedDamageDropped(t *testing.T) {
	loop := newLoop(t, nil)
	results := collectResults(loop)
	loop.SpawnWithID("orc", nil)

	loop.QueueDamage(damage.NewEvent("orc", "hero", 10, damage.TypePhysical))
	loop.Despawn("orc")
	loop.Step(0.05)

	assert.Empty(t, *results)
}

func TestAttack_CritRolledFromSourceCritChance(t *testing.T) {
	// crit_chance with agility 0 is 0.05; a roll of 0 is always below it.
	loop := newLoop(t, &fixedSource{roll: 0})
	results := collectResults(loop)
	loop.SpawnWithID("hero", nil)
	loop.SpawnWithID("orc", nil)

	ev := loop.Attack("hero", "orc", 10, damage.TypePhysical)
	assert.True(t, ev.Crit)

	loop.Step(0.05)
	require.Len(t, *results, 1)
	assert.True(t, (*results)[0].Crit)
	assert.Equal(t, 20.0, (*results)[0].FinalAmount, "default rule doubles crits")
}

func TestAttack_NoCritOnHighRoll(t *testing.T) {
	loop := newLoop(t, &fixedSource{roll: 9999})
	loop.SpawnWithID("hero", nil)
	loop.SpawnWithID("orc", nil)

	ev := loop.Attack("hero", "orc", 10, damage.TypePhysical)
	assert.False(t, ev.Crit)
}

func TestAddOverTime_TicksThroughPipeline(t *testing.T) {
	loop := newLoop(t, nil)
	results := collectResults(loop)
	loop.SpawnWithID("orc", nil)

	key, err := loop.AddOverTime(damage.OverTime{
		TargetID:      "orc",
		SourceID:      "hero",
		DamagePerTick: 5,
		TickFrequency: 1.0,
		TotalDuration: 2.0,
		Type:          damage.TypePoison,
	})
	require.NoError(t, err)

	loop.Step(1.0)
	loop.Step(1.0)
	loop.Step(1.0)

	require.Len(t, *results, 2)
	for _, res := range *results {
		assert.Equal(t, 5.0, res.FinalAmount)
		assert.Equal(t, damage.TypePoison, res.Type)
	}
	loop.CancelOverTime(key) // already expired: no-op
}

func TestAddOverTime_UnknownTarget_Errors(t *testing.T) {
	loop := newLoop(t, nil)
	_, err := loop.AddOverTime(damage.OverTime{
		TargetID:      "ghost",
		DamagePerTick: 5,
		TickFrequency: 1.0,
		TotalDuration: 2.0,
		Type:          damage.TypePoison,
	})
	assert.Error(t, err)
}

func TestCancelOverTime_StopsTicks(t *testing.T) {
	loop := newLoop(t, nil)
	results := collectResults(loop)
	loop.SpawnWithID("orc", nil)

	key, err := loop.AddOverTime(damage.OverTime{
		TargetID:      "orc",
		SourceID:      "hero",
		DamagePerTick: 5,
		TickFrequency: 1.0,
		TotalDuration: 10.0,
		Type:          damage.TypePoison,
	})
	require.NoError(t, err)

	loop.Step(1.0)
	require.Len(t, *results, 1)
	loop.CancelOverTime(key)
	loop.Step(1.0)
	assert.Len(t, *results, 1)
}

func TestStep_ModifierExpiryBeforeResolution(t *testing.T) {
	loop := newLoop(t, nil)
	results := collectResults(loop)
	// Shield exists only through a timed buff on max_shield.
	loop.SpawnWithID("orc", nil)
	m, err := stats.NewTimed("barrier", stats.MaxShield, stats.Flat, 50, 1.0)
	require.NoError(t, err)
	loop.QueueModifier("orc", m)
	loop.Step(1.0) // applied, then decayed to expiry within the same tick

	loop.QueueDamage(damage.NewEvent("orc", "hero", 10, damage.TypePhysical))
	loop.Step(1.0)

	require.Len(t, *results, 1)
	assert.Equal(t, 0.0, (*results)[0].ShieldedAmount, "expired barrier gives no shield")
}

func TestHealthApplier_SubtractsAndClamps(t *testing.T) {
	loop := newLoop(t, nil)
	loop.OnResult(sim.NewHealthApplier(loop, zap.NewNop()))
	// max_health 50 with no vitality
	loop.SpawnWithID("orc", nil)

	loop.QueueDamage(damage.NewEvent("orc", "hero", 30, damage.TypePhysical))
	loop.Step(0.05)
	ledger, _ := loop.Ledger("orc")
	hp, _ := ledger.Derived(stats.CurrentHealth)
	assert.Equal(t, 20.0, hp)

	loop.QueueDamage(damage.NewEvent("orc", "hero", 999, damage.TypePhysical))
	loop.Step(0.05)
	hp, _ = ledger.Derived(stats.CurrentHealth)
	assert.Equal(t, 0.0, hp, "health clamps at zero")
}

func TestConsumers_InvokedInRegistrationOrder(t *testing.T) {
	loop := newLoop(t, nil)
	loop.SpawnWithID("orc", nil)

	var order []string
	loop.OnResult(func(damage.Result) { order = append(order, "first") })
	loop.OnResult(func(damage.Result) { order = append(order, "second") })

	loop.QueueDamage(damage.NewEvent("orc", "hero", 1, damage.TypePhysical))
	loop.Step(0.05)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRunContext_StopsOnCancel(t *testing.T) {
	loop := newLoop(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		loop.RunContext(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunContext did not stop after cancel")
	}
}

func TestNewLoop_NilArgs_Panics(t *testing.T) {
	assert.Panics(t, func() {
		sim.NewLoop(nil, damage.NewRuleTable(), rng.NewRoller(&fixedSource{}, zap.NewNop()), zap.NewNop())
	})
}
