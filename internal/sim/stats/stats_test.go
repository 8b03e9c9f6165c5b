package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/tuning"
)

func rates() tuning.Decay { return tuning.Defaults().Decay }

func TestRestMultiplier(t *testing.T) {
	assert.Equal(t, 0.0, RestMultiplier(false, false))
	assert.Equal(t, 1.0, RestMultiplier(true, false))
	assert.Equal(t, 2.0, RestMultiplier(false, true))
	assert.Equal(t, 3.0, RestMultiplier(true, true))
}

func TestDecay_RestingInRestAreaTriplesRegen(t *testing.T) {
	s := Fresh()
	s.Energy = 10
	r := rates()
	d := Decay(DecayInput{DeltaSeconds: 1, Stats: s, Resting: true, InRestArea: true, Rates: r})
	assert.InDelta(t, 3*r.EnergyRegenPerSecond, d.Energy, 1e-9)

	next := Apply(s, d)
	assert.InDelta(t, 10+3*r.EnergyRegenPerSecond, next.Energy, 1e-9)
}

func TestDecay_MovementAcceleratesThirst(t *testing.T) {
	s := Fresh()
	r := rates()
	still := Decay(DecayInput{DeltaSeconds: 1, Stats: s, Rates: r})
	moving := Decay(DecayInput{DeltaSeconds: 1, Distance: 100, Stats: s, Rates: r})
	assert.Less(t, moving.Thirst, still.Thirst)
	assert.Less(t, moving.Hunger, still.Hunger)
	assert.Less(t, moving.Bathroom, still.Bathroom)
	assert.InDelta(t, -(r.ThirstPerSecond + 100*r.ThirstPerUnit), moving.Thirst, 1e-12)
}

func TestDecay_ThirstFactor(t *testing.T) {
	s := Fresh()
	base := Decay(DecayInput{DeltaSeconds: 1, Stats: s, Rates: rates()})
	storm := Decay(DecayInput{DeltaSeconds: 1, Stats: s, Rates: rates(), ThirstFactor: 2})
	assert.InDelta(t, 2*base.Thirst, storm.Thirst, 1e-12)
}

func TestDecay_DriftTowardNeutralWithoutOvershoot(t *testing.T) {
	r := rates()
	s := Fresh()
	s.Mood = 90
	s.Energy = 39.99
	d := Decay(DecayInput{DeltaSeconds: 10, Stats: s, Rates: r})
	assert.InDelta(t, -r.DriftPerSecond*10, d.Mood, 1e-12)
	assert.InDelta(t, 0.01, d.Energy, 1e-9)

	s.Mood = 50
	d = Decay(DecayInput{DeltaSeconds: 10, Stats: s, Rates: r})
	assert.Equal(t, 0.0, d.Mood)
}

func TestDecay_StarvingDrains(t *testing.T) {
	r := rates()
	s := Fresh()
	s.Mood = 50
	s.Energy = 50
	s.Hunger = 0
	d := Decay(DecayInput{DeltaSeconds: 2, Stats: s, Rates: r})
	assert.InDelta(t, -2*r.StarvingDrainPerSecond, d.Energy, 1e-12)
	assert.InDelta(t, -2*r.StarvingDrainPerSecond, d.Mood, 1e-12)
}

func TestDecay_BadInputsAreZeroed(t *testing.T) {
	d := Decay(DecayInput{DeltaSeconds: math.NaN(), Distance: math.Inf(1), Stats: Fresh(), Rates: rates()})
	assert.Equal(t, 0.0, d.Thirst)
	d = Decay(DecayInput{DeltaSeconds: -3, Distance: -10, Stats: Fresh(), Rates: rates()})
	assert.Equal(t, 0.0, d.Hunger)
}

func TestGaugesStayBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := Fresh()
	cat := catalogs.Builtin()
	for i := 0; i < 5000; i++ {
		in := DecayInput{
			Distance:     rng.Float64() * 500,
			DeltaSeconds: rng.Float64() * 5,
			Stats:        s,
			Resting:      rng.Intn(2) == 0,
			InRestArea:   rng.Intn(2) == 0,
			Rates:        rates(),
		}
		s = Apply(s, Decay(in))
		k := catalogs.ItemKind(1 + rng.Intn(len(catalogs.AllItemKinds())))
		it, _ := cat.Item(k)
		s = ApplyEffect(s, it.OnConsume, rng.Float64()*10-5)
		for _, g := range []float64{s.Energy, s.Mood, s.Thirst, s.Hunger, s.Bathroom, s.Speed, s.LightBattery} {
			require.GreaterOrEqual(t, g, GaugeMin)
			require.LessOrEqual(t, g, GaugeMax)
		}
	}
}

func TestClamp_NaN(t *testing.T) {
	s := PlayerStats{Energy: math.NaN(), Mood: 250, Thirst: -4, Coins: -7, Karma: 1e6}
	c := s.Clamp()
	assert.Equal(t, 0.0, c.Energy)
	assert.Equal(t, 100.0, c.Mood)
	assert.Equal(t, 0.0, c.Thirst)
	assert.Equal(t, int64(-7), c.Coins)
	assert.Equal(t, int64(1e6), c.Karma)
}
