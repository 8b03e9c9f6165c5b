// Package substance tracks timed consumable effects and folds them into movement and time multipliers.
package substance

import (
	"math"
	"sort"

	"playasim/internal/sim/catalogs"
)

// MinMultiplier keeps an aggregate multiplier from freezing movement or time entirely.
const MinMultiplier = 0.1

type Effect struct {
	Kind             catalogs.SubstanceKind `json:"kind"`
	Intensity        float32                `json:"intensity"`
	RemainingSeconds float32                `json:"remaining_seconds"`
}

// Stack is a bounded multiset of effects owned by the player.
// Countdown always uses real elapsed seconds.
type Stack struct {
	max     int
	cat     *catalogs.Catalog
	effects []slot
}

// slot counts down in float64; Effect.RemainingSeconds is its float32 view.
type slot struct {
	Effect
	left float64
}

func NewStack(max int, cat *catalogs.Catalog) *Stack {
	if max <= 0 {
		max = 1
	}
	if cat == nil {
		cat = catalogs.Builtin()
	}
	return &Stack{max: max, cat: cat}
}

func (s *Stack) Len() int { return len(s.effects) }

// Active returns a copy of the live effects in insertion order.
func (s *Stack) Active() []Effect {
	out := make([]Effect, 0, len(s.effects))
	for _, sl := range s.effects {
		out = append(out, sl.Effect)
	}
	return out
}

// Add pushes e. At capacity the soonest-to-expire effect is evicted and returned; if e itself
// would expire before every live effect it is rejected instead (ok=false).
func (s *Stack) Add(e Effect) (evicted *Effect, ok bool) {
	if e.RemainingSeconds <= 0 || e.Intensity <= 0 || isBad32(e.RemainingSeconds) || isBad32(e.Intensity) {
		return nil, false
	}
	if _, known := s.cat.Substance(e.Kind); !known {
		return nil, false
	}
	in := slot{Effect: e, left: float64(e.RemainingSeconds)}
	if len(s.effects) < s.max {
		s.effects = append(s.effects, in)
		return nil, true
	}
	soonest := 0
	for i, cur := range s.effects {
		if cur.left < s.effects[soonest].left {
			soonest = i
		}
	}
	if in.left <= s.effects[soonest].left {
		return nil, false
	}
	old := s.effects[soonest].Effect
	s.effects = append(s.effects[:soonest], s.effects[soonest+1:]...)
	s.effects = append(s.effects, in)
	return &old, true
}

// Tick counts every effect down by real dt and returns the ones that expired.
func (s *Stack) Tick(dt float64) []Effect {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil
	}
	var expired []Effect
	live := s.effects[:0]
	for _, sl := range s.effects {
		sl.left -= dt
		sl.RemainingSeconds = float32(sl.left)
		if sl.left <= 0 {
			expired = append(expired, sl.Effect)
			continue
		}
		live = append(live, sl)
	}
	s.effects = live
	return expired
}

// SpeedMultiplier = max(0.1, 1 + Σ speed_pct × intensity / 100).
func (s *Stack) SpeedMultiplier() float64 {
	sum := 0.0
	for _, e := range s.effects {
		def, _ := s.cat.Substance(e.Kind)
		sum += def.SpeedPct * float64(e.Intensity)
	}
	return math.Max(MinMultiplier, 1+sum/100)
}

// TimeScaleMultiplier = max(0.1, Π (1 + time_scale_pct × intensity / 100)).
func (s *Stack) TimeScaleMultiplier() float64 {
	m := 1.0
	for _, e := range s.effects {
		def, _ := s.cat.Substance(e.Kind)
		m *= 1 + def.TimeScalePct*float64(e.Intensity)/100
	}
	return math.Max(MinMultiplier, m)
}

// PerSecond sums the continuous stat effects of every live effect, scaled by intensity.
func (s *Stack) PerSecond() catalogs.StatEffect {
	var out catalogs.StatEffect
	for _, e := range s.effects {
		def, _ := s.cat.Substance(e.Kind)
		out = out.Add(def.PerSecond.Scale(float64(e.Intensity)))
	}
	return out
}

// Kinds lists the distinct active kinds in enum order.
func (s *Stack) Kinds() []catalogs.SubstanceKind {
	seen := map[catalogs.SubstanceKind]bool{}
	var out []catalogs.SubstanceKind
	for _, e := range s.effects {
		if !seen[e.Kind] {
			seen[e.Kind] = true
			out = append(out, e.Kind)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func isBad32(v float32) bool {
	f := float64(v)
	return math.IsNaN(f) || math.IsInf(f, 0)
}
