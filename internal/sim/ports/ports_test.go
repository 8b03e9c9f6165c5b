package ports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededRng_Deterministic(t *testing.T) {
	a := NewSeededRng(42)
	b := NewSeededRng(42)
	for i := 0; i < 100; i++ {
		x, y := a.Float64(), b.Float64()
		require.Equal(t, x, y)
		require.GreaterOrEqual(t, x, 0.0)
		require.Less(t, x, 1.0)
	}

	first := NewSeededRng(7).Float64()
	a.SetSeed(7)
	assert.Equal(t, first, a.Float64())
}

func TestManualClock_FiresOnlyPendingFrames(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))
	fired := 0
	var loop func()
	loop = func() {
		fired++
		c.ScheduleFrame(loop)
	}
	c.ScheduleFrame(loop)

	c.Advance(16 * time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, c.Pending())

	c.Advance(16 * time.Millisecond)
	assert.Equal(t, 2, fired)
	assert.Equal(t, time.Unix(0, 0).Add(32*time.Millisecond), c.Now())
}

func TestManualClock_Cancel(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))
	fired := false
	h := c.ScheduleFrame(func() { fired = true })
	c.CancelFrame(h)
	c.Advance(time.Second)
	assert.False(t, fired)
}

func TestNotificationLog_KeepsNewest(t *testing.T) {
	l := NewNotificationLog(2)
	l.AddNotification(Notification{Message: "a", Category: CategoryInfo})
	l.AddNotification(Notification{Message: "b", Category: CategoryCoin})
	l.AddNotification(Notification{Message: "c", Category: CategoryCoin})

	all := l.All()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Message)
	assert.Len(t, l.ByCategory(CategoryCoin), 2)
}

func TestLogAudio_Mute(t *testing.T) {
	a := NewLogAudio(nil)
	assert.False(t, a.IsMuted())
	a.SetMuted(true)
	assert.True(t, a.IsMuted())
	a.PlaySound("coin", 1)
}
