package world

import (
	"fmt"
	"math"

	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/geom"
	"playasim/internal/sim/multiworld"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/substance"
	"playasim/internal/sim/vehicle"
)

type commandHandler func(e *Engine, c Command) error

var commandHandlers = map[CommandKind]commandHandler{
	CmdMove:       handleMove,
	CmdConsume:    handleConsume,
	CmdRest:       handleRest,
	CmdLight:      handleLight,
	CmdMount:      handleMount,
	CmdDismount:   handleDismount,
	CmdEquipTotem: handleEquipTotem,
	CmdDropMoop:   handleDropMoop,
	CmdPause:      handlePause,
	CmdRestart:    handleRestart,
}

// KnownCommand reports whether kind has a handler.
func KnownCommand(kind CommandKind) bool {
	_, ok := commandHandlers[kind]
	return ok
}

func (e *Engine) applyCommand(c Command) {
	h, ok := commandHandlers[c.Kind]
	if !ok {
		e.log.WithField("kind", c.Kind).Debug("unknown command")
		return
	}
	if e.state.GameOver && c.Kind != CmdRestart {
		return
	}
	if err := h(e, c); err != nil {
		e.log.WithError(err).WithField("kind", c.Kind).Debug("command ignored")
	}
}

func handleMove(e *Engine, c Command) error {
	dir := geom.V(c.DX, c.DY)
	if !dir.Finite() {
		e.state.Player.Input = geom.Vec2{}
		return fmt.Errorf("%w: non-finite direction", ErrBadCommand)
	}
	e.state.Player.Input = dir.ClampLen(1)
	return nil
}

func handleConsume(e *Engine, c Command) error {
	p := &e.state.Player
	k, err := catalogs.ParseItemKind(c.Item)
	if err != nil {
		return err
	}
	def, ok := e.catalog.Item(k)
	if !ok {
		return fmt.Errorf("%w: no definition for %s", ErrBadCommand, k)
	}
	if p.Inventory[k] <= 0 {
		e.notify(fmt.Sprintf("No %s left", def.Label), ports.CategoryWarning, 0, p.Pos)
		return nil
	}
	if !def.Consumable {
		e.notify(fmt.Sprintf("Cannot consume %s", def.Label), ports.CategoryWarning, 0, p.Pos)
		return nil
	}

	if def.Substance != catalogs.SubstanceNone {
		sdef, ok := e.catalog.Substance(def.Substance)
		if !ok {
			return fmt.Errorf("%w: no substance for %s", ErrBadCommand, k)
		}
		evicted, added := e.state.Effects.Add(substance.Effect{
			Kind:             def.Substance,
			Intensity:        def.Intensity,
			RemainingSeconds: sdef.DurationSeconds,
		})
		if !added {
			e.notify(fmt.Sprintf("Too much going on for %s", def.Label), ports.CategoryWarning, 0, p.Pos)
			return nil
		}
		if evicted != nil {
			old, _ := e.catalog.Substance(evicted.Kind)
			e.notify(fmt.Sprintf("%s wore off", old.Label), ports.CategoryEffect, 0, p.Pos)
		}
		e.state.pending = e.state.pending.Add(sdef.OnConsume.Scale(float64(def.Intensity)))
		e.notify(fmt.Sprintf("%s kicked in", sdef.Label), ports.CategoryEffect, 0, p.Pos)
	}

	p.Inventory[k]--
	if p.Inventory[k] == 0 {
		delete(p.Inventory, k)
	}
	e.state.pending = e.state.pending.Add(def.OnConsume)
	e.notify(fmt.Sprintf("Consumed %s", def.Label), ports.CategoryItem, 0, p.Pos)
	e.play(def.Sound, 1)
	return nil
}

func handleRest(e *Engine, c Command) error {
	p := &e.state.Player
	if c.On && p.MountedVehicle != "" {
		e.notify("Cannot rest while riding", ports.CategoryWarning, 0, p.Pos)
		return nil
	}
	if p.Resting == c.On {
		return nil
	}
	p.Resting = c.On
	if c.On {
		p.Input = geom.Vec2{}
		e.notify("Resting", ports.CategoryInfo, 0, p.Pos)
	}
	return nil
}

func handleLight(e *Engine, c Command) error {
	p := &e.state.Player
	if c.On && p.Stats.LightBattery <= 0 {
		e.notify("Battery dead", ports.CategoryWarning, 0, p.Pos)
		return nil
	}
	if p.LightOn != c.On {
		p.LightOn = c.On
		e.play("click", 0.5)
	}
	return nil
}

func handleMount(e *Engine, _ Command) error {
	p := &e.state.Player
	if p.MountedVehicle != "" {
		return nil
	}
	store := e.worlds.CurrentStore()
	v := nearestVehicle(store, p.Pos, e.tuning.Player.MountRadius, "")
	if v == nil {
		e.notify("Nothing to mount", ports.CategoryWarning, 0, p.Pos)
		return nil
	}
	p.MountedVehicle = v.ID
	p.Resting = false
	p.Pos, p.LastPos = v.Pos, v.Pos
	v.Vel = geom.Vec2{}
	v.HasWaypoint = false
	v.State = vehicle.Idle
	e.notify(fmt.Sprintf("Riding %s", v.ID), ports.CategoryVehicle, 0, p.Pos)
	e.play("mount", 1)
	return nil
}

func handleDismount(e *Engine, _ Command) error {
	p := &e.state.Player
	if p.MountedVehicle == "" {
		return nil
	}
	if v := e.worlds.CurrentStore().Vehicle(p.MountedVehicle); v != nil {
		v.Vel = geom.Vec2{}
		v.State = vehicle.Idle
	}
	e.notify(fmt.Sprintf("Left %s", p.MountedVehicle), ports.CategoryVehicle, 0, p.Pos)
	p.MountedVehicle = ""
	return nil
}

func handleEquipTotem(e *Engine, c Command) error {
	p := &e.state.Player
	if !c.On {
		p.TotemEquipped = false
		return nil
	}
	if p.Inventory[catalogs.ItemTotem] <= 0 {
		e.notify("Cannot equip: no totem", ports.CategoryWarning, 0, p.Pos)
		return nil
	}
	if !p.TotemEquipped {
		p.TotemEquipped = true
		e.notify("Totem raised, your camp follows", ports.CategoryItem, 0, p.Pos)
		e.play("chime", 1)
	}
	return nil
}

// handleDropMoop litters behind the player, outside the pickup radius.
func handleDropMoop(e *Engine, _ Command) error {
	p := &e.state.Player
	store := e.worlds.CurrentStore()
	if store == nil {
		return multiworld.ErrUnknownWorld
	}
	behind := geom.FromAngle(p.Heading + math.Pi).Scale(e.tuning.Player.PickupRadius * 2)
	pos := e.worlds.CurrentBounds().Clamp(p.Pos.Add(behind))
	store.AddMoop(multiworld.Moop{ID: store.NextID(e.worlds.CurrentWorldID() + "-moop"), Pos: pos})
	p.Stats.Karma += e.tuning.Player.DropMoopKarma
	e.notify(fmt.Sprintf("%+d karma", e.tuning.Player.DropMoopKarma), ports.CategoryKarma, float64(e.tuning.Player.DropMoopKarma), pos)
	return nil
}

func handlePause(e *Engine, c Command) error {
	e.state.Paused = c.On
	return nil
}

func handleRestart(e *Engine, c Command) error {
	e.reset(c.Seed)
	e.notify("A new burn begins", ports.CategoryInfo, 0, e.state.Player.Pos)
	return nil
}

// nearestVehicle returns the closest vehicle within radius of p, skipping skip. Vehicles are kept in
// id order, so ties go to the lower id.
func nearestVehicle(store *multiworld.Items, p geom.Vec2, radius float64, skip string) *vehicle.Vehicle {
	if store == nil {
		return nil
	}
	var best *vehicle.Vehicle
	bestD := radius
	for _, v := range store.Vehicles {
		if v.ID == skip {
			continue
		}
		if d := v.Pos.Dist(p); d <= bestD && (best == nil || d < bestD) {
			best, bestD = v, d
		}
	}
	return best
}
