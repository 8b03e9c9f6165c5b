package gametime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const realTime = 1.0 / 60 // one simulated minute per sixty real seconds

func TestAdvance_SixtySecondsIsOneMinute(t *testing.T) {
	t0 := New(8)
	t1 := Advance(t0, 60, 1, realTime)
	assert.Equal(t, t0.TotalMinutes+1, t1.TotalMinutes)
	assert.Equal(t, 8, t1.Hour)
	assert.Equal(t, 1, t1.Minute)
}

func TestAdvance_SplitEqualsWhole(t *testing.T) {
	for _, n := range []int{2, 3, 4, 7, 60, 600} {
		whole := Advance(New(0), 60, 1, realTime)
		split := New(0)
		for i := 0; i < n; i++ {
			split = Advance(split, 60/float64(n), 1, realTime)
		}
		require.Equal(t, whole.TotalMinutes, split.TotalMinutes, "n=%d", n)
		assert.InDelta(t, whole.Carry, split.Carry, 1e-6, "n=%d", n)
	}
}

func TestAdvance_CarryAccumulates(t *testing.T) {
	tm := New(0)
	tm = Advance(tm, 0.4, 1, 1)
	assert.Equal(t, int64(0), tm.TotalMinutes)
	tm = Advance(tm, 0.4, 1, 1)
	assert.Equal(t, int64(0), tm.TotalMinutes)
	tm = Advance(tm, 0.4, 1, 1)
	assert.Equal(t, int64(1), tm.TotalMinutes)
	assert.InDelta(t, 0.2, tm.Carry, 1e-9)
}

func TestAdvance_RolloverKeepsTotalDerivable(t *testing.T) {
	tm := FromTotal(23*60 + 59)
	tm = Advance(tm, 2, 1, 1)
	assert.Equal(t, 2, tm.Day)
	assert.Equal(t, 0, tm.Hour)
	assert.Equal(t, 1, tm.Minute)

	for i := 0; i < 5000; i++ {
		tm = Advance(tm, 0.37, 3.3, 1.7)
		want := int64(tm.Day-1)*MinutesPerDay + int64(tm.Hour)*MinutesPerHour + int64(tm.Minute)
		require.Equal(t, want, tm.TotalMinutes)
		require.GreaterOrEqual(t, tm.Carry, 0.0)
		require.Less(t, tm.Carry, 1.0)
	}
}

func TestAdvance_ScaleMultiplies(t *testing.T) {
	tm := Advance(New(0), 10, 3, 1)
	assert.Equal(t, int64(30), tm.TotalMinutes)
}

func TestAdvance_RejectsBadInput(t *testing.T) {
	t0 := New(5)
	assert.Equal(t, t0, Advance(t0, -5, 1, 1))
	assert.Equal(t, t0, Advance(t0, math.NaN(), 1, 1))
	assert.Equal(t, t0, Advance(t0, 1, math.Inf(1), 1))
	assert.Equal(t, t0, Advance(t0, 1, 0, 1))
}

func TestHoursCrossedAndNight(t *testing.T) {
	a := FromTotal(19*60 + 50)
	b := Advance(a, 20, 1, 1)
	assert.Equal(t, 1, HoursCrossed(a, b))
	assert.False(t, a.IsNight())
	assert.True(t, b.IsNight())
	assert.Equal(t, "Day 1 20:10", b.String())
}
