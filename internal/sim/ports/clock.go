package ports

import (
	"sort"
	"sync"
	"time"
)

// TickerClock schedules each frame interval after the previous one was requested.
// Callbacks run on timer goroutines, one at a time as long as the caller only reschedules from
// inside its callback.
type TickerClock struct {
	interval time.Duration

	mu     sync.Mutex
	next   FrameHandle
	timers map[FrameHandle]*time.Timer
}

func NewTickerClock(rateHz int) *TickerClock {
	if rateHz <= 0 {
		rateHz = 60
	}
	return &TickerClock{
		interval: time.Second / time.Duration(rateHz),
		timers:   map[FrameHandle]*time.Timer{},
	}
}

func (c *TickerClock) Now() time.Time { return time.Now() }

func (c *TickerClock) ScheduleFrame(cb func()) FrameHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	h := c.next
	c.timers[h] = time.AfterFunc(c.interval, func() {
		c.mu.Lock()
		_, live := c.timers[h]
		delete(c.timers, h)
		c.mu.Unlock()
		if live {
			cb()
		}
	})
	return h
}

func (c *TickerClock) CancelFrame(h FrameHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[h]; ok {
		t.Stop()
		delete(c.timers, h)
	}
}

// ManualClock is a test clock: time only moves on Advance, and pending frames fire in handle order.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	next    FrameHandle
	pending map[FrameHandle]func()
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start, pending: map[FrameHandle]func(){}}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) ScheduleFrame(cb func()) FrameHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.pending[c.next] = cb
	return c.next
}

func (c *ManualClock) CancelFrame(h FrameHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, h)
}

// Pending is the number of scheduled, not yet fired frames.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Advance moves time forward by d and fires the frames that were pending before the call.
// Frames scheduled by those callbacks wait for the next Advance.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	hs := make([]FrameHandle, 0, len(c.pending))
	for h := range c.pending {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	cbs := make([]func(), 0, len(hs))
	for _, h := range hs {
		cbs = append(cbs, c.pending[h])
		delete(c.pending, h)
	}
	c.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}
