package stats_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/stats"
)

func TestNewTimed_Valid(t *testing.T) {
	m, err := stats.NewTimed("haste", stats.MaxStamina, stats.Flat, 10, 5.0)
	require.NoError(t, err)
	assert.Equal(t, "haste", m.Name)
	assert.Equal(t, 5.0, m.Duration)
	assert.False(t, m.Permanent())
}

func TestNewTimed_ZeroDuration_Rejected(t *testing.T) {
	_, err := stats.NewTimed("haste", stats.MaxStamina, stats.Flat, 10, 0)
	assert.Error(t, err)
}

func TestNewTimed_NegativeDuration_Rejected(t *testing.T) {
	// Permanent modifiers come from NewPermanent; a negative timed duration
	// is caller error, not an implicit permanent.
	_, err := stats.NewTimed("haste", stats.MaxStamina, stats.Flat, 10, -3)
	assert.Error(t, err)
}

func TestNewPermanent_Valid(t *testing.T) {
	m, err := stats.NewPermanent("ring", stats.MaxHealth, stats.Flat, 25)
	require.NoError(t, err)
	assert.True(t, m.Permanent())
}

func TestValidate_NaNMagnitude_Rejected(t *testing.T) {
	_, err := stats.NewPermanent("bad", stats.MaxHealth, stats.Flat, math.NaN())
	assert.Error(t, err)
}

func TestValidate_InfMagnitude_Rejected(t *testing.T) {
	_, err := stats.NewPermanent("bad", stats.MaxHealth, stats.Flat, math.Inf(1))
	assert.Error(t, err)
}

func TestValidate_UnknownKind_Rejected(t *testing.T) {
	m := stats.Modifier{Name: "bad", Stat: stats.MaxHealth, Kind: "exponential", Magnitude: 1, Duration: -1}
	assert.Error(t, m.Validate())
}

func TestValidate_EmptyName_Rejected(t *testing.T) {
	m := stats.Modifier{Stat: stats.MaxHealth, Kind: stats.Flat, Magnitude: 1, Duration: -1}
	assert.Error(t, m.Validate())
}

func TestValidate_EmptyStat_Rejected(t *testing.T) {
	m := stats.Modifier{Name: "bad", Kind: stats.Flat, Magnitude: 1, Duration: -1}
	assert.Error(t, m.Validate())
}
