package flock

import (
	"fmt"
	"math"
	"sort"

	"playasim/internal/sim/geom"
)

// Pools splits a fixed set of companions between the camp and the open world. Companions only
// move between the two slices, so Total never changes.
type Pools struct {
	Camp   []*Companion `json:"camp"`
	Active []*Companion `json:"active"`
}

// NewPools places n companions in camp on a small ring around home.
func NewPools(n int, home geom.Vec2, mood float64) *Pools {
	p := &Pools{}
	for i := 0; i < n; i++ {
		pos := home.Add(geom.FromAngle(float64(i) * goldenAngle).Scale(12 * math.Sqrt(float64(i+1))))
		p.Camp = append(p.Camp, &Companion{
			ID:     fmt.Sprintf("companion-%02d", i),
			Index:  i,
			Pos:    pos,
			Target: pos,
			Mood:   mood,
		})
	}
	return p
}

func (p *Pools) Total() int { return len(p.Camp) + len(p.Active) }

// SpawnFollowers moves up to n camp companions, lowest index first, into the open world at pos.
func (p *Pools) SpawnFollowers(n int, pos geom.Vec2) []*Companion {
	if n <= 0 || len(p.Camp) == 0 {
		return nil
	}
	sortPool(p.Camp)
	if n > len(p.Camp) {
		n = len(p.Camp)
	}
	moved := append([]*Companion(nil), p.Camp[:n]...)
	p.Camp = append(p.Camp[:0:0], p.Camp[n:]...)
	for _, m := range moved {
		m.Pos, m.Target = pos, pos
	}
	p.Active = append(p.Active, moved...)
	sortPool(p.Active)
	return moved
}

// RecallFollowers brings every active companion back to camp at pos.
func (p *Pools) RecallFollowers(pos geom.Vec2) []*Companion {
	moved := p.Active
	p.Active = nil
	for _, m := range moved {
		m.Pos, m.Target = pos, pos
	}
	p.Camp = append(p.Camp, moved...)
	sortPool(p.Camp)
	return moved
}

// ReturnHome sends active companions overlapping the home landmark back to camp. campPos is where
// they reappear.
func (p *Pools) ReturnHome(landmark geom.Vec2, radius float64, campPos geom.Vec2) []*Companion {
	var home, stay []*Companion
	for _, m := range p.Active {
		if m.Pos.Dist(landmark) < radius {
			home = append(home, m)
		} else {
			stay = append(stay, m)
		}
	}
	if len(home) == 0 {
		return nil
	}
	for _, m := range home {
		m.Pos, m.Target = campPos, campPos
	}
	p.Active = stay
	p.Camp = append(p.Camp, home...)
	sortPool(p.Camp)
	return home
}

func (p *Pools) Clone() *Pools {
	if p == nil {
		return nil
	}
	c := &Pools{}
	for _, m := range p.Camp {
		c.Camp = append(c.Camp, m.Clone())
	}
	for _, m := range p.Active {
		c.Active = append(c.Active, m.Clone())
	}
	return c
}

func sortPool(cs []*Companion) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Index < cs[j].Index })
}
