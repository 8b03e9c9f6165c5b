package vehicle

import (
	"math"

	"playasim/internal/sim/geom"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/tuning"
)

type Controller struct {
	Tuning tuning.Vehicles
	Rng    ports.Rng
}

type StepInput struct {
	Vehicles []*Vehicle
	Cans     []FuelCan
	Stations []geom.Vec2
	Bounds   geom.Rect
	DT       float64
	// MountedID is driven by the player this tick and skipped here.
	MountedID string
}

type RefuelSource string

const (
	FromCan     RefuelSource = "can"
	FromStation RefuelSource = "station"
)

type Refuel struct {
	VehicleID string
	Source    RefuelSource
	CanID     string
	Amount    float64
	Pos       geom.Vec2
}

type StateChange struct {
	VehicleID string
	From, To  State
}

type StepResult struct {
	ConsumedCans []string
	Refuels      []Refuel
	Changes      []StateChange
	RanDry       []string
}

// target is the nearest refuel point for a vehicle, either a can or a station.
type target struct {
	pos   geom.Vec2
	canID string
	ok    bool
}

// Step advances every unmounted vehicle by in.DT. Vehicles are processed in slice order and a can
// consumed by one vehicle is gone for the rest of the step.
func (c *Controller) Step(in StepInput) StepResult {
	var res StepResult
	dt := in.DT
	if !(dt > 0) || math.IsInf(dt, 0) {
		return res
	}
	t := c.Tuning
	consumed := map[string]bool{}

	for _, v := range in.Vehicles {
		if v == nil || v.ID == in.MountedID {
			continue
		}
		if !v.Pos.Finite() {
			v.Pos = in.Bounds.Center()
		}
		if v.SpeedFactor <= 0 || math.IsNaN(v.SpeedFactor) {
			v.SpeedFactor = 1
		}

		prev := v.State
		v.State = Decide(v, t)
		if v.State != prev {
			res.Changes = append(res.Changes, StateChange{VehicleID: v.ID, From: prev, To: v.State})
		}

		moved := false
		switch v.State {
		case SeekFuel:
			tg := nearestFuel(v.Pos, in.Cans, consumed, in.Stations)
			if !tg.ok {
				v.Vel = geom.Vec2{}
				break
			}
			moved = c.steer(v, tg.pos, t.BaseSpeed*v.SpeedFactor*t.SeekSpeedFactor, dt)
		case Drive:
			if !v.HasWaypoint || v.Pos.Dist(v.Waypoint) < t.ArriveEpsilon || !in.Bounds.Contains(v.Waypoint) {
				v.Waypoint = c.randomPoint(in.Bounds)
				v.HasWaypoint = true
			}
			moved = c.steer(v, v.Waypoint, t.BaseSpeed*v.SpeedFactor, dt)
		default:
			v.Vel = geom.Vec2{}
		}

		if moved && burn(v, t.FuelPerSecond*dt) {
			res.RanDry = append(res.RanDry, v.ID)
		}
		v.Pos = in.Bounds.Clamp(v.Pos)

		for _, r := range c.refuel(v, in.Cans, in.Stations, consumed) {
			if r.CanID != "" {
				res.ConsumedCans = append(res.ConsumedCans, r.CanID)
			}
			res.Refuels = append(res.Refuels, r)
		}
	}
	return res
}

// steer moves v straight toward dst at speed without overshooting it.
func (c *Controller) steer(v *Vehicle, dst geom.Vec2, speed, dt float64) bool {
	d := dst.Sub(v.Pos)
	dist := d.Len()
	if dist == 0 || !(speed > 0) {
		v.Vel = geom.Vec2{}
		return false
	}
	v.Vel = d.Scale(speed / dist)
	step := math.Min(speed*dt, dist)
	v.Pos = v.Pos.Add(d.Scale(step / dist))
	return true
}

// RefuelAt tops v up from every can it overlaps and from a station in range. Consumed cans carry
// their CanID in the result; the caller removes them from the world.
func (c *Controller) RefuelAt(v *Vehicle, cans []FuelCan, stations []geom.Vec2) []Refuel {
	if v == nil {
		return nil
	}
	return c.refuel(v, cans, stations, map[string]bool{})
}

func (c *Controller) refuel(v *Vehicle, cans []FuelCan, stations []geom.Vec2, consumed map[string]bool) []Refuel {
	if !v.Fuelled() || v.Fuel >= v.FuelMax {
		return nil
	}
	t := c.Tuning
	reach := t.CanRadius + t.VehicleRadius
	var out []Refuel
	for _, can := range cans {
		if consumed[can.ID] || v.Pos.Dist(can.Pos) >= reach {
			continue
		}
		consumed[can.ID] = true
		before := v.Fuel
		v.Fuel = math.Min(v.FuelMax, v.Fuel+t.RefuelAmount)
		out = append(out, Refuel{VehicleID: v.ID, Source: FromCan, CanID: can.ID, Amount: v.Fuel - before, Pos: can.Pos})
		if v.Fuel >= v.FuelMax {
			return out
		}
	}
	for _, s := range stations {
		if v.Pos.Dist(s) < t.StationRadius {
			amount := v.FuelMax - v.Fuel
			v.Fuel = v.FuelMax
			return append(out, Refuel{VehicleID: v.ID, Source: FromStation, Amount: amount, Pos: s})
		}
	}
	return out
}

func (c *Controller) randomPoint(b geom.Rect) geom.Vec2 {
	return geom.V(ports.Range(c.Rng, b.Min.X, b.Max.X), ports.Range(c.Rng, b.Min.Y, b.Max.Y))
}

// nearestFuel picks the closest unconsumed can or station. Ties go to cans, then to slice order.
func nearestFuel(p geom.Vec2, cans []FuelCan, consumed map[string]bool, stations []geom.Vec2) target {
	best := target{}
	bestD := math.Inf(1)
	for _, can := range cans {
		if consumed[can.ID] {
			continue
		}
		if d := p.DistSq(can.Pos); d < bestD {
			best, bestD = target{pos: can.Pos, canID: can.ID, ok: true}, d
		}
	}
	for _, s := range stations {
		if d := p.DistSq(s); d < bestD {
			best, bestD = target{pos: s, ok: true}, d
		}
	}
	return best
}
