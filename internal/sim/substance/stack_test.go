package substance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playasim/internal/sim/catalogs"
)

// speedCatalog has a single substance with a +50% speed contribution.
func speedCatalog() *catalogs.Catalog {
	c := catalogs.Builtin()
	c.Substances[catalogs.SubstanceSugarRush] = catalogs.SubstanceDef{
		Kind: catalogs.SubstanceSugarRush, Label: "Speed boost", DurationSeconds: 5, SpeedPct: 50,
	}
	c.Substances[catalogs.SubstanceDrowsy] = catalogs.SubstanceDef{
		Kind: catalogs.SubstanceDrowsy, Label: "Drowsy", DurationSeconds: 5, TimeScalePct: 100, SpeedPct: -400,
	}
	return c
}

func TestSpeedBoost_AppliesAndExpires(t *testing.T) {
	s := NewStack(5, speedCatalog())
	_, ok := s.Add(Effect{Kind: catalogs.SubstanceSugarRush, Intensity: 1, RemainingSeconds: 5})
	require.True(t, ok)
	assert.InDelta(t, 1.5, s.SpeedMultiplier(), 1e-9)

	// Ticking happens in real seconds no matter how fast game time runs.
	for i := 0; i < 40; i++ {
		s.Tick(0.125)
	}
	assert.Equal(t, 0, s.Len())
	assert.InDelta(t, 1.0, s.SpeedMultiplier(), 1e-9)
}

func TestTick_RemovesExactlyAtZero(t *testing.T) {
	s := NewStack(5, speedCatalog())
	s.Add(Effect{Kind: catalogs.SubstanceSugarRush, Intensity: 1, RemainingSeconds: 2})
	s.Add(Effect{Kind: catalogs.SubstanceDrowsy, Intensity: 1, RemainingSeconds: 3})

	assert.Empty(t, s.Tick(1.5))
	expired := s.Tick(0.5)
	require.Len(t, expired, 1)
	assert.Equal(t, catalogs.SubstanceSugarRush, expired[0].Kind)
	assert.Equal(t, 1, s.Len())
}

func TestTick_KeepsEffectWithTimeLeft(t *testing.T) {
	s := NewStack(5, speedCatalog())
	s.Add(Effect{Kind: catalogs.SubstanceSugarRush, Intensity: 1, RemainingSeconds: 1})

	assert.Empty(t, s.Tick(0.99995))
	require.Equal(t, 1, s.Len())
	assert.Greater(t, s.Active()[0].RemainingSeconds, float32(0))

	require.Len(t, s.Tick(0.00005), 1)
	assert.Equal(t, 0, s.Len())
}

func TestTick_IgnoresBadDelta(t *testing.T) {
	s := NewStack(5, speedCatalog())
	s.Add(Effect{Kind: catalogs.SubstanceSugarRush, Intensity: 1, RemainingSeconds: 2})
	s.Tick(-10)
	assert.Equal(t, float32(2), s.Active()[0].RemainingSeconds)
}

func TestSpeedMultiplier_Floor(t *testing.T) {
	s := NewStack(5, speedCatalog())
	s.Add(Effect{Kind: catalogs.SubstanceDrowsy, Intensity: 1, RemainingSeconds: 5})
	assert.Equal(t, MinMultiplier, s.SpeedMultiplier())
}

func TestTimeScaleMultiplier_Product(t *testing.T) {
	s := NewStack(5, speedCatalog())
	assert.Equal(t, 1.0, s.TimeScaleMultiplier())
	s.Add(Effect{Kind: catalogs.SubstanceDrowsy, Intensity: 1, RemainingSeconds: 5})
	s.Add(Effect{Kind: catalogs.SubstanceDrowsy, Intensity: 0.5, RemainingSeconds: 5})
	assert.InDelta(t, 2*1.5, s.TimeScaleMultiplier(), 1e-9)
}

func TestAdd_AtCapacityEvictsSoonestToExpire(t *testing.T) {
	s := NewStack(2, speedCatalog())
	s.Add(Effect{Kind: catalogs.SubstanceSugarRush, Intensity: 1, RemainingSeconds: 4})
	s.Add(Effect{Kind: catalogs.SubstanceDrowsy, Intensity: 1, RemainingSeconds: 1})

	evicted, ok := s.Add(Effect{Kind: catalogs.SubstanceSugarRush, Intensity: 1, RemainingSeconds: 3})
	require.True(t, ok)
	require.NotNil(t, evicted)
	assert.Equal(t, catalogs.SubstanceDrowsy, evicted.Kind)
	assert.Equal(t, 2, s.Len())

	// Shorter than everything live: rejected, stack unchanged.
	evicted, ok = s.Add(Effect{Kind: catalogs.SubstanceDrowsy, Intensity: 1, RemainingSeconds: 0.5})
	assert.False(t, ok)
	assert.Nil(t, evicted)
	assert.Equal(t, 2, s.Len())
}

func TestAdd_RejectsInvalid(t *testing.T) {
	s := NewStack(2, speedCatalog())
	_, ok := s.Add(Effect{Kind: catalogs.SubstanceNone, Intensity: 1, RemainingSeconds: 3})
	assert.False(t, ok)
	_, ok = s.Add(Effect{Kind: catalogs.SubstanceSugarRush, Intensity: 1, RemainingSeconds: 0})
	assert.False(t, ok)
	_, ok = s.Add(Effect{Kind: catalogs.SubstanceSugarRush, Intensity: 0, RemainingSeconds: 1})
	assert.False(t, ok)
}

func TestPerSecondAndKinds(t *testing.T) {
	s := NewStack(5, catalogs.Builtin())
	s.Add(Effect{Kind: catalogs.SubstanceDrowsy, Intensity: 1, RemainingSeconds: 5})
	s.Add(Effect{Kind: catalogs.SubstanceElectrolytes, Intensity: 2, RemainingSeconds: 5})
	s.Add(Effect{Kind: catalogs.SubstanceDrowsy, Intensity: 1, RemainingSeconds: 5})

	ps := s.PerSecond()
	assert.InDelta(t, 0.4, ps.Energy, 1e-9)
	assert.InDelta(t, 0.2, ps.Thirst, 1e-9)
	assert.Equal(t, []catalogs.SubstanceKind{catalogs.SubstanceElectrolytes, catalogs.SubstanceDrowsy}, s.Kinds())
}
