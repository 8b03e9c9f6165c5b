// Package stats holds the player's resource gauges and the pure decay function that moves them.
package stats

import (
	"math"

	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/tuning"
)

const (
	GaugeMin = 0.0
	GaugeMax = 100.0
)

// PlayerStats are the player's gauges. Float gauges live in [0,100]; coins and karma are unbounded.
type PlayerStats struct {
	Coins        int64   `json:"coins"`
	Karma        int64   `json:"karma"`
	Energy       float64 `json:"energy"`
	Mood         float64 `json:"mood"`
	Thirst       float64 `json:"thirst"`
	Hunger       float64 `json:"hunger"`
	Bathroom     float64 `json:"bathroom"`
	Speed        float64 `json:"speed"`
	LightBattery float64 `json:"light_battery"`
}

// Fresh is the state a new run starts in.
func Fresh() PlayerStats {
	return PlayerStats{
		Energy:       80,
		Mood:         60,
		Thirst:       80,
		Hunger:       80,
		Bathroom:     90,
		Speed:        100,
		LightBattery: 100,
	}
}

// Clamp forces every bounded gauge into [0,100]. NaN collapses to 0.
func (s PlayerStats) Clamp() PlayerStats {
	s.Energy = clampGauge(s.Energy)
	s.Mood = clampGauge(s.Mood)
	s.Thirst = clampGauge(s.Thirst)
	s.Hunger = clampGauge(s.Hunger)
	s.Bathroom = clampGauge(s.Bathroom)
	s.Speed = clampGauge(s.Speed)
	s.LightBattery = clampGauge(s.LightBattery)
	return s
}

func clampGauge(v float64) float64 {
	if math.IsNaN(v) || v < GaugeMin {
		return GaugeMin
	}
	if v > GaugeMax {
		return GaugeMax
	}
	return v
}

// Delta is an additive change to the bounded gauges.
type Delta struct {
	Energy   float64
	Mood     float64
	Thirst   float64
	Hunger   float64
	Bathroom float64
}

// Apply adds d to s and clamps.
func Apply(s PlayerStats, d Delta) PlayerStats {
	s.Energy += d.Energy
	s.Mood += d.Mood
	s.Thirst += d.Thirst
	s.Hunger += d.Hunger
	s.Bathroom += d.Bathroom
	return s.Clamp()
}

// ApplyEffect adds a catalog stat effect scaled by k and clamps.
func ApplyEffect(s PlayerStats, e catalogs.StatEffect, k float64) PlayerStats {
	if e.IsZero() || k == 0 || math.IsNaN(k) {
		return s
	}
	s.Energy += e.Energy * k
	s.Mood += e.Mood * k
	s.Thirst += e.Thirst * k
	s.Hunger += e.Hunger * k
	s.Bathroom += e.Bathroom * k
	s.Speed += e.Speed * k
	return s.Clamp()
}

type DecayInput struct {
	Distance     float64
	DeltaSeconds float64
	Stats        PlayerStats
	Resting      bool
	InRestArea   bool
	// ThirstFactor scales the thirst terms (weather); zero means 1.
	ThirstFactor float64
	Rates        tuning.Decay
}

// RestMultiplier: resting x1, standing in a rest area x2, resting in a rest area x3.
// Zero means no regeneration.
func RestMultiplier(resting, inRestArea bool) float64 {
	switch {
	case resting && inRestArea:
		return 3
	case inRestArea:
		return 2
	case resting:
		return 1
	}
	return 0
}

// Decay maps movement and elapsed time to a stat delta. It does not read or write anything else.
func Decay(in DecayInput) Delta {
	dt := in.DeltaSeconds
	dist := in.Distance
	if !(dt > 0) || math.IsInf(dt, 0) {
		dt = 0
	}
	if !(dist > 0) || math.IsInf(dist, 0) {
		dist = 0
	}
	r := in.Rates
	tf := in.ThirstFactor
	if tf <= 0 || math.IsNaN(tf) {
		tf = 1
	}

	d := Delta{
		Thirst:   -(r.ThirstPerSecond*dt + r.ThirstPerUnit*dist) * tf,
		Hunger:   -(r.HungerPerSecond*dt + r.HungerPerUnit*dist),
		Bathroom: -(r.BathroomPerSecond*dt + r.BathroomPerUnit*dist),
		Energy:   -r.EnergyPerUnit * dist,
	}

	if mult := RestMultiplier(in.Resting, in.InRestArea); mult > 0 {
		d.Energy += r.EnergyRegenPerSecond * mult * dt
	} else {
		d.Energy += drift(in.Stats.Energy, r.NeutralLow, r.NeutralHigh, r.DriftPerSecond*dt)
	}
	d.Mood += drift(in.Stats.Mood, r.NeutralLow, r.NeutralHigh, r.DriftPerSecond*dt)

	if in.Stats.Thirst <= GaugeMin || in.Stats.Hunger <= GaugeMin {
		d.Energy -= r.StarvingDrainPerSecond * dt
		d.Mood -= r.StarvingDrainPerSecond * dt
	}
	return d
}

// drift moves v toward [lo,hi] by at most step without crossing into the band's far side.
func drift(v, lo, hi, step float64) float64 {
	switch {
	case v < lo:
		return math.Min(step, lo-v)
	case v > hi:
		return -math.Min(step, v-hi)
	}
	return 0
}
