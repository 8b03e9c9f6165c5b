// Package flock steers companions toward a target (a follow slot behind the player or a wander
// point) with pairwise separation, and tracks which companions are out with the player.
package flock

import (
	"math"
	"sort"

	"playasim/internal/sim/geom"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/tuning"
)

// goldenAngle spreads coincident pairs over distinct directions.
const goldenAngle = 2.399963229728653

type Companion struct {
	ID     string    `json:"id"`
	Index  int       `json:"index"`
	Pos    geom.Vec2 `json:"pos"`
	Target geom.Vec2 `json:"target"`
	Speed  float64   `json:"speed"`
	Mood   float64   `json:"mood"`
}

func (c *Companion) Clone() *Companion {
	cp := *c
	return &cp
}

type EventKind string

const (
	EventRetarget EventKind = "retarget"
	// EventHappy fires when a companion's mood climbs past HappyMood.
	EventHappy EventKind = "happy"
)

const HappyMood = 80.0

type Event struct {
	CompanionID string
	Kind        EventKind
	Pos         geom.Vec2
}

type StepInput struct {
	Companions    []*Companion
	PlayerPos     geom.Vec2
	PlayerHeading float64
	Follow        bool
	Bounds        geom.Rect
	Enclosed      bool
	DT            float64
}

type Controller struct {
	Tuning tuning.Flock
	Rng    ports.Rng
}

// Step computes every steering and separation force from the current positions, then integrates.
func (c *Controller) Step(in StepInput) []Event {
	dt := in.DT
	if !(dt > 0) || math.IsInf(dt, 0) || len(in.Companions) == 0 {
		return nil
	}
	t := c.Tuning
	cs := sortedByIndex(in.Companions)
	var events []Event

	seek := make([]geom.Vec2, len(cs))
	for i, m := range cs {
		if !m.Pos.Finite() {
			m.Pos = in.Bounds.Center()
		}
		if in.Follow {
			seek[i] = seekVel(m.Pos, FollowSlot(in.PlayerPos, in.PlayerHeading, m.Index, t), t.FollowSpeed, dt)
			continue
		}
		if !m.Target.Finite() || m.Pos.Dist(m.Target) < t.ArriveEpsilon {
			m.Target = c.wanderTarget(m.Pos, in.Bounds, in.Enclosed)
			events = append(events, Event{CompanionID: m.ID, Kind: EventRetarget, Pos: m.Target})
		}
		speed := m.Speed
		if speed <= 0 {
			speed = t.WanderSpeed
		}
		seek[i] = seekVel(m.Pos, m.Target, speed, dt)
	}

	sep := Separation(cs, t)
	for i, m := range cs {
		m.Pos = m.Pos.Add(seek[i].Add(sep[i]).Scale(dt))
		if in.Enclosed {
			m.Pos = in.Bounds.Clamp(m.Pos)
		}

		before := m.Mood
		if m.Pos.Dist(in.PlayerPos) < t.CheerRadius {
			m.Mood += t.MoodGainPerSecond * dt
		} else {
			m.Mood -= t.MoodDecayPerSecond * dt
		}
		m.Mood = geom.Clamp(m.Mood, 0, 100)
		if before < HappyMood && m.Mood >= HappyMood {
			events = append(events, Event{CompanionID: m.ID, Kind: EventHappy, Pos: m.Pos})
		}
	}
	return events
}

// FollowSlot is the point a companion trails the player at. Index 0 sits straight behind; higher
// indices fan out alternately left and right.
func FollowSlot(player geom.Vec2, heading float64, index int, t tuning.Flock) geom.Vec2 {
	theta := heading + math.Pi + spread(index, t.FollowSpread)
	return player.Add(geom.FromAngle(theta).Scale(t.FollowDistance))
}

func spread(index int, step float64) float64 {
	if index <= 0 {
		return 0
	}
	k := float64((index + 1) / 2)
	if index%2 == 0 {
		k = -k
	}
	return k * step
}

// Separation returns the repulsive velocity for each companion, indexed like cs. Magnitude is
// SeparationStrength/d, capped at MaxSeparation, for every pair closer than AvoidRadius.
func Separation(cs []*Companion, t tuning.Flock) []geom.Vec2 {
	out := make([]geom.Vec2, len(cs))
	for i := 0; i < len(cs); i++ {
		for j := i + 1; j < len(cs); j++ {
			a, b := cs[i], cs[j]
			d := a.Pos.Sub(b.Pos)
			dist := d.Len()
			if dist >= t.AvoidRadius {
				continue
			}
			var dir geom.Vec2
			mag := t.MaxSeparation
			if dist == 0 {
				dir = geom.FromAngle(float64(a.Index)*goldenAngle + float64(b.Index))
			} else {
				dir = d.Scale(1 / dist)
				mag = math.Min(t.SeparationStrength/dist, t.MaxSeparation)
			}
			push := dir.Scale(mag)
			out[i] = out[i].Add(push)
			out[j] = out[j].Sub(push)
		}
	}
	return out
}

// Cheering counts companions within radius of p.
func Cheering(cs []*Companion, p geom.Vec2, radius float64) int {
	n := 0
	for _, m := range cs {
		if m.Pos.Dist(p) < radius {
			n++
		}
	}
	return n
}

func (c *Controller) wanderTarget(pos geom.Vec2, b geom.Rect, enclosed bool) geom.Vec2 {
	if enclosed {
		return geom.V(ports.Range(c.Rng, b.Min.X, b.Max.X), ports.Range(c.Rng, b.Min.Y, b.Max.Y))
	}
	theta := c.Rng.Float64() * 2 * math.Pi
	r := c.Tuning.WanderRadius * math.Sqrt(c.Rng.Float64())
	return pos.Add(geom.FromAngle(theta).Scale(r))
}

// seekVel heads for dst at speed but never further than dst in one step.
func seekVel(pos, dst geom.Vec2, speed, dt float64) geom.Vec2 {
	d := dst.Sub(pos)
	dist := d.Len()
	if dist == 0 || !(speed > 0) {
		return geom.Vec2{}
	}
	return d.Scale(math.Min(speed, dist/dt) / dist)
}

func sortedByIndex(cs []*Companion) []*Companion {
	out := make([]*Companion, 0, len(cs))
	for _, m := range cs {
		if m != nil {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
