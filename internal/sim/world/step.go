package world

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/flock"
	"playasim/internal/sim/gametime"
	"playasim/internal/sim/geom"
	"playasim/internal/sim/multiworld"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/stats"
	"playasim/internal/sim/vehicle"
)

// Step runs one tick with dt real seconds and the given commands, in order. It returns the tick
// number and the state digest after the tick.
func (e *Engine) Step(dt float64, cmds []Command) (uint64, string) {
	e.stepMu.Lock()
	defer e.stepMu.Unlock()
	return e.stepInternal(dt, cmds)
}

func (e *Engine) stepInternal(dt float64, cmds []Command) (uint64, string) {
	dt = clampDelta(dt, e.tuning.MaxDeltaSeconds)
	s := &e.state
	s.Tick++

	for _, c := range cmds {
		e.applyCommand(c)
	}
	if !s.Player.Pos.Finite() {
		spawn := e.worlds.CurrentSpec().Spawn.Vec()
		s.Player.Pos, s.Player.LastPos = spawn, spawn
	}

	if !s.Paused && !s.GameOver && dt > 0 {
		e.advanceClock(dt)
		e.tickEffects(dt)
		e.decayStats(dt)
		if !s.GameOver {
			e.movePlayer(dt)
			e.interact()
			e.stepAgents(dt)
		}
	}

	digest := e.stateDigest()
	notes := e.flush()
	if e.tickLog != nil {
		entry := TickLogEntry{Tick: s.Tick, DT: dt, WorldID: e.worlds.CurrentWorldID(), Commands: cmds, Digest: digest}
		if err := e.tickLog.WriteTick(entry); err != nil {
			e.log.WithError(err).WithField("tick", s.Tick).Warn("tick log write failed")
		}
	}
	e.publishWith(digest, notes)
	return s.Tick, digest
}

// clampDelta maps NaN and negative deltas to 0 and caps catch-up after a stall at max.
func clampDelta(dt, max float64) float64 {
	if math.IsNaN(dt) || dt < 0 {
		return 0
	}
	if dt > max {
		return max
	}
	return dt
}

func (e *Engine) advanceClock(dt float64) {
	s := &e.state
	before := s.Time
	spec := e.worlds.CurrentSpec()
	scale := spec.TimeScale * s.Effects.TimeScaleMultiplier()
	s.Time = gametime.Advance(s.Time, dt, scale, e.tuning.MinutesPerSecond(spec.TimeProfile))
	if gametime.HoursCrossed(before, s.Time) <= 0 {
		return
	}
	e.rollWeather()
	if before.IsNight() != s.Time.IsNight() {
		msg := "The sun comes up"
		if s.Time.IsNight() {
			msg = "Night falls on the playa"
		}
		e.notify(msg, ports.CategoryInfo, 0, s.Player.Pos)
	}
}

func (e *Engine) tickEffects(dt float64) {
	for _, ex := range e.state.Effects.Tick(dt) {
		def, _ := e.catalog.Substance(ex.Kind)
		e.notify(fmt.Sprintf("%s wore off", def.Label), ports.CategoryEffect, 0, e.state.Player.Pos)
	}
}

func (e *Engine) decayStats(dt float64) {
	s := &e.state
	p := &s.Player
	inRest := e.worlds.InRestArea(p.Pos)
	regen := stats.RestMultiplier(p.Resting, inRest) > 0
	before := p.Stats

	d := stats.Decay(stats.DecayInput{
		Distance:     p.LastPos.Dist(p.Pos),
		DeltaSeconds: dt,
		Stats:        p.Stats,
		Resting:      p.Resting,
		InRestArea:   inRest,
		ThirstFactor: s.Weather.ThirstFactor(e.tuning.Weather),
		Rates:        e.tuning.Decay,
	})
	p.Stats = stats.Apply(p.Stats, d)
	p.Stats = stats.ApplyEffect(p.Stats, s.pending, 1)
	s.pending = catalogs.StatEffect{}
	p.Stats = stats.ApplyEffect(p.Stats, s.Effects.PerSecond(), dt)

	if n := flock.Cheering(e.simulatedCompanions(), p.Pos, e.tuning.Flock.CheerRadius); n > 0 {
		p.Stats.Mood += e.tuning.Flock.CheerMoodPerSecond * float64(n) * dt
	}
	if p.LightOn {
		p.Stats.LightBattery -= e.tuning.Player.LightDrainPerSecond * dt
	} else if regen {
		p.Stats.LightBattery += e.tuning.Player.LightChargePerSecond * dt
	}
	p.Stats = p.Stats.Clamp()

	if regen {
		s.restGain += p.Stats.Energy - before.Energy
		if math.Floor(p.Stats.Energy) > math.Floor(before.Energy) {
			e.notify(fmt.Sprintf("%+.1f energy", s.restGain), ports.CategoryStat, s.restGain, p.Pos)
			s.restGain = 0
		}
	} else {
		s.restGain = 0
	}
	if p.Resting && p.Stats.Energy >= stats.GaugeMax {
		p.Resting = false
		e.notify("Fully rested", ports.CategoryStat, 0, p.Pos)
	}
	if p.LightOn && p.Stats.LightBattery <= 0 {
		p.LightOn = false
		e.notify("Battery dead", ports.CategoryWarning, 0, p.Pos)
	}
	if p.Stats.Energy <= 0 {
		s.GameOver = true
		p.Input = geom.Vec2{}
		e.notify("You collapsed from exhaustion", ports.CategoryGameOver, 0, p.Pos)
		e.play("collapse", 1)
	}
}

// playerSpeed is the free-walking speed in units per second.
func (e *Engine) playerSpeed() float64 {
	s := &e.state
	t := e.tuning.Player
	factor := math.Max(t.MinSpeedFactor, s.Player.Stats.Speed/stats.GaugeMax)
	speed := t.BaseSpeed * factor * s.Effects.SpeedMultiplier() * s.Weather.SpeedFactor(e.tuning.Weather)
	if s.Player.Stats.Energy < t.TiredEnergy {
		speed *= t.TiredFactor
	}
	return speed
}

func (e *Engine) movePlayer(dt float64) {
	p := &e.state.Player
	p.LastPos = p.Pos
	speed := e.playerSpeed()

	var mounted *vehicle.Vehicle
	if p.MountedVehicle != "" {
		mounted = e.worlds.CurrentStore().Vehicle(p.MountedVehicle)
		if mounted == nil {
			p.MountedVehicle = ""
		}
	}

	next := p.Pos
	if mounted != nil {
		if vehicle.DriveMounted(mounted, p.Input, speed*e.tuning.Player.MountBonus, dt, e.tuning.Vehicles) {
			e.notify(fmt.Sprintf("%s ran out of fuel", mounted.ID), ports.CategoryVehicle, 0, mounted.Pos)
		}
		next = mounted.Pos
	} else if !p.Input.IsZero() {
		next = p.Pos.Add(p.Input.Scale(speed * dt))
	}
	if !p.Input.IsZero() {
		p.Heading = p.Input.Heading()
		p.Resting = false
	}
	if next == p.Pos {
		return
	}

	if tr, ok := e.worlds.CheckWorldTransition(next, e.tuning.Player.Size); ok {
		e.transition(tr)
		return
	}
	p.Pos = e.worlds.CurrentBounds().Clamp(next)
	if mounted != nil {
		mounted.Pos = p.Pos
		store := e.worlds.CurrentStore()
		refs := e.vehicles.RefuelAt(mounted, store.Cans, e.worlds.FuelStations())
		e.reportRefuels(store, refs)
	}
}

// transition moves the player, the mounted vehicle and any followers into tr.To.
func (e *Engine) transition(tr multiworld.Transition) {
	s := &e.state
	p := &s.Player
	from := e.worlds.CurrentSpec()
	to, ok := e.worlds.Spec(tr.To)
	if !ok {
		return
	}

	if p.MountedVehicle != "" && !e.worlds.MoveVehicle(p.MountedVehicle, tr.From, tr.To, tr.Pos) {
		p.MountedVehicle = ""
	}
	switch {
	case from.Enclosed && !to.Enclosed && p.TotemEquipped:
		for _, c := range s.Pools.SpawnFollowers(e.tuning.Flock.SpawnPerTransition, tr.Pos) {
			e.notify(fmt.Sprintf("%s is following you", c.ID), ports.CategoryInfo, 0, tr.Pos)
		}
	case !from.Enclosed && to.Enclosed:
		if back := s.Pools.RecallFollowers(tr.Pos); len(back) > 0 {
			e.notify(fmt.Sprintf("%d companions are back in camp", len(back)), ports.CategoryInfo, float64(len(back)), tr.Pos)
		}
	}
	if err := e.worlds.SetCurrent(tr.To); err != nil {
		e.log.WithError(err).Warn("world transition")
		return
	}
	p.Pos, p.LastPos = tr.Pos, tr.Pos
	e.rebuildIndex()

	e.log.WithFields(logrus.Fields{"from": tr.From, "to": tr.To, "portal": tr.PortalID}).Info("world transition")
	e.notify(fmt.Sprintf("Entered %s", tr.To), ports.CategoryWorld, 0, tr.Pos)
	e.play("portal", 1)
}

func (e *Engine) interact() {
	s := &e.state
	p := &s.Player
	t := e.tuning.Player
	store := e.worlds.CurrentStore()
	if store == nil {
		return
	}

	for _, ent := range e.index.QueryRadius(p.Pos, t.PickupRadius) {
		e.index.Remove(ent.ID)
		c, ok := store.TakeCollectible(ent.ID)
		if !ok {
			continue
		}
		switch c.Kind {
		case multiworld.CollectCoin:
			p.Stats.Coins += c.Value
			e.notify(fmt.Sprintf("+%d coins", c.Value), ports.CategoryCoin, float64(c.Value), c.Pos)
			e.play("coin", 0.8)
		case multiworld.CollectItem:
			def, _ := e.catalog.Item(c.Item)
			p.Inventory[c.Item]++
			e.notify(fmt.Sprintf("Picked up %s", def.Label), ports.CategoryItem, 1, c.Pos)
			e.play("pickup", 0.8)
		}
	}

	for _, m := range append([]multiworld.Moop(nil), store.Moop...) {
		if m.Pos.Dist(p.Pos) > t.PickupRadius || !store.RemoveMoop(m.ID) {
			continue
		}
		p.Stats.Karma += t.MoopKarma
		e.notify(fmt.Sprintf("%+d karma", t.MoopKarma), ports.CategoryKarma, float64(t.MoopKarma), m.Pos)
	}

	s.nearbyVehicle = ""
	if p.MountedVehicle == "" {
		if v := nearestVehicle(store, p.Pos, t.MountRadius, ""); v != nil {
			s.nearbyVehicle = v.ID
		}
	}
}

// simulatedCompanions is the pool that lives in the current world: the camp pool in an enclosed
// world, the active pool in the open one.
func (e *Engine) simulatedCompanions() []*flock.Companion {
	if e.worlds.CurrentSpec().Enclosed {
		return e.state.Pools.Camp
	}
	return e.state.Pools.Active
}

func (e *Engine) stepAgents(dt float64) {
	s := &e.state
	p := &s.Player
	spec := e.worlds.CurrentSpec()
	bounds := e.worlds.CurrentBounds()
	store := e.worlds.CurrentStore()

	res := e.vehicles.Step(vehicle.StepInput{
		Vehicles:  store.Vehicles,
		Cans:      store.Cans,
		Stations:  e.worlds.FuelStations(),
		Bounds:    bounds,
		DT:        dt,
		MountedID: p.MountedVehicle,
	})
	for _, ch := range res.Changes {
		if v := store.Vehicle(ch.VehicleID); v != nil {
			e.notify(fmt.Sprintf("%s %s", ch.VehicleID, stateVerb(ch.To)), ports.CategoryVehicle, 0, v.Pos)
		}
	}
	for _, id := range res.RanDry {
		if v := store.Vehicle(id); v != nil {
			e.notify(fmt.Sprintf("%s ran out of fuel", id), ports.CategoryVehicle, 0, v.Pos)
		}
	}
	e.reportRefuels(store, res.Refuels)

	events := e.flock.Step(flock.StepInput{
		Companions:    e.simulatedCompanions(),
		PlayerPos:     p.Pos,
		PlayerHeading: p.Heading,
		Follow:        p.TotemEquipped,
		Bounds:        bounds,
		Enclosed:      spec.Enclosed,
		DT:            dt,
	})
	for _, ev := range events {
		if ev.Kind == flock.EventHappy {
			e.notify(fmt.Sprintf("%s is having the best time", ev.CompanionID), ports.CategoryInfo, 0, ev.Pos)
		}
	}

	if spec.HomeCamp == nil || p.TotemEquipped {
		return
	}
	radius := spec.HomeCamp.R
	if radius <= 0 {
		radius = e.tuning.Flock.HomeRadius
	}
	campPos := spec.Spawn.Vec()
	if camp, ok := e.campSpec(); ok {
		campPos = camp.Spawn.Vec()
	}
	for _, c := range s.Pools.ReturnHome(spec.HomeCamp.Center(), radius, campPos) {
		e.notify(fmt.Sprintf("%s wandered home to camp", c.ID), ports.CategoryInfo, 0, spec.HomeCamp.Center())
	}
}

// reportRefuels removes the consumed cans and raises one notification per refuel.
func (e *Engine) reportRefuels(store *multiworld.Items, refs []vehicle.Refuel) {
	var cans []string
	for _, r := range refs {
		e.log.WithFields(logrus.Fields{"vehicle": r.VehicleID, "source": r.Source, "amount": r.Amount}).Debug("refuel")
		e.notify(fmt.Sprintf("%s refuelled %+.0f", r.VehicleID, r.Amount), ports.CategoryVehicle, r.Amount, r.Pos)
		if r.CanID != "" {
			cans = append(cans, r.CanID)
			e.play("refuel", 0.6)
		}
	}
	store.RemoveCans(cans)
}

func stateVerb(s vehicle.State) string {
	switch s {
	case vehicle.SeekFuel:
		return "is looking for fuel"
	case vehicle.Drive:
		return "is cruising"
	}
	return "stopped"
}

func (e *Engine) notify(msg string, cat ports.Category, value float64, pos geom.Vec2) {
	e.notes = append(e.notes, ports.Notification{Tick: e.state.Tick, Message: msg, Category: cat, Value: value, Pos: pos})
}

func (e *Engine) play(name string, volume float64) {
	if name == "" {
		return
	}
	e.sounds = append(e.sounds, sound{name: name, volume: volume})
}

// flush hands this tick's notifications and sounds to the ports, in the order they were raised.
func (e *Engine) flush() []ports.Notification {
	notes := e.notes
	for _, n := range notes {
		e.notifier.AddNotification(n)
	}
	if !e.audio.IsMuted() {
		for _, snd := range e.sounds {
			e.audio.PlaySound(snd.name, snd.volume)
		}
	}
	e.notes = nil
	e.sounds = e.sounds[:0]
	return notes
}
