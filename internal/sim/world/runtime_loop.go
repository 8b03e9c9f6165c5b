package world

import "context"

// Start schedules frames on the clock. Each frame measures dt from the clock, drains the command
// queue, steps once and schedules the next frame.
func (e *Engine) Start() {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	if e.running || e.closed.Load() {
		return
	}
	e.running = true
	e.last = e.clock.Now()
	e.frame = e.clock.ScheduleFrame(e.onFrame)
	e.log.Info("frame loop started")
}

// Stop cancels the pending frame. A step already in progress runs to completion.
func (e *Engine) Stop() {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	e.clock.CancelFrame(e.frame)
	e.log.Info("frame loop stopped")
}

func (e *Engine) Running() bool {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	return e.running
}

// Run drives the frame loop until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.Start()
	defer e.Stop()
	<-ctx.Done()
	return ctx.Err()
}

func (e *Engine) onFrame() {
	e.loopMu.Lock()
	if !e.running {
		e.loopMu.Unlock()
		return
	}
	now := e.clock.Now()
	dt := now.Sub(e.last).Seconds()
	e.last = now
	e.loopMu.Unlock()

	e.Step(dt, e.drain())

	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	if e.running {
		e.frame = e.clock.ScheduleFrame(e.onFrame)
	}
}
