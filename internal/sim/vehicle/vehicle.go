// Package vehicle drives autonomous vehicles through a level-triggered Idle/SeekFuel/Drive cycle.
package vehicle

import (
	"fmt"

	"playasim/internal/sim/geom"
	"playasim/internal/sim/tuning"
)

type State uint8

const (
	Idle State = iota
	SeekFuel
	Drive
)

var stateNames = [...]string{
	Idle:     "idle",
	SeekFuel: "seek_fuel",
	Drive:    "drive",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown vehicle state %q", string(b))
}

type Kind string

const (
	KindArtCar Kind = "art_car"
	KindBike   Kind = "bike"
)

type Vehicle struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Pos         geom.Vec2 `json:"pos"`
	Vel         geom.Vec2 `json:"vel"`
	Fuel        float64   `json:"fuel"`
	FuelMax     float64   `json:"fuel_max"`
	State       State     `json:"state"`
	SpeedFactor float64   `json:"speed_factor"`
	Waypoint    geom.Vec2 `json:"waypoint"`
	HasWaypoint bool      `json:"has_waypoint"`
	Autopilot   bool      `json:"autopilot"`
}

// Fuelled reports whether the vehicle burns fuel at all. Bikes have FuelMax 0.
func (v *Vehicle) Fuelled() bool { return v.FuelMax > 0 }

func (v *Vehicle) Clone() *Vehicle {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// NeedsFuel is the SeekFuel entry condition.
func (v *Vehicle) NeedsFuel(t tuning.Vehicles) bool {
	return v.Fuelled() && v.Fuel < t.LowFuelThreshold
}

type FuelCan struct {
	ID  string    `json:"id"`
	Pos geom.Vec2 `json:"pos"`
}

// Decide recomputes the state from scratch. It holds no history, so calling it every tick is safe.
func Decide(v *Vehicle, t tuning.Vehicles) State {
	switch {
	case v.NeedsFuel(t):
		return SeekFuel
	case v.Autopilot:
		return Drive
	}
	return Idle
}

// DriveMounted moves a player-driven vehicle along dir at speed. The position is left unclamped;
// the caller checks world transitions first. A fuelled vehicle at zero fuel limps at the seek factor.
// It reports whether the tank ran dry during this step.
func DriveMounted(v *Vehicle, dir geom.Vec2, speed, dt float64, t tuning.Vehicles) (ranDry bool) {
	if v == nil || !(dt > 0) || !dir.Finite() || dir.IsZero() || !(speed > 0) {
		if v != nil {
			v.Vel = geom.Vec2{}
			v.State = Idle
		}
		return false
	}
	if v.Fuelled() && v.Fuel <= 0 {
		speed *= t.SeekSpeedFactor
	}
	v.Vel = dir.Norm().Scale(speed)
	v.Pos = v.Pos.Add(v.Vel.Scale(dt))
	v.State = Drive
	return burn(v, t.FuelPerSecond*dt)
}

// burn drains fuel, flooring at zero, and reports a transition to empty.
func burn(v *Vehicle, amount float64) bool {
	if !v.Fuelled() || v.Fuel <= 0 || !(amount > 0) {
		return false
	}
	v.Fuel -= amount
	if v.Fuel <= 0 {
		v.Fuel = 0
		return true
	}
	return false
}
