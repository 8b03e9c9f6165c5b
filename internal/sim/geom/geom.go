package geom

import "math"

// Vec2 is a world-space point or direction. World units are pixels of the original map.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (a Vec2) Add(b Vec2) Vec2      { return Vec2{X: a.X + b.X, Y: a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2      { return Vec2{X: a.X - b.X, Y: a.Y - b.Y} }
func (a Vec2) Scale(k float64) Vec2 { return Vec2{X: a.X * k, Y: a.Y * k} }
func (a Vec2) Len() float64         { return math.Hypot(a.X, a.Y) }
func (a Vec2) Dist(b Vec2) float64  { return math.Hypot(a.X-b.X, a.Y-b.Y) }
func (a Vec2) IsZero() bool         { return a.X == 0 && a.Y == 0 }

func (a Vec2) DistSq(b Vec2) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// Finite reports whether both components are real numbers.
func (a Vec2) Finite() bool {
	return !math.IsNaN(a.X) && !math.IsNaN(a.Y) && !math.IsInf(a.X, 0) && !math.IsInf(a.Y, 0)
}

// Norm returns the unit vector in the direction of a, or the zero vector.
func (a Vec2) Norm() Vec2 {
	l := a.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vec2{}
	}
	return Vec2{X: a.X / l, Y: a.Y / l}
}

// ClampLen shortens a to at most max.
func (a Vec2) ClampLen(max float64) Vec2 {
	l := a.Len()
	if l <= max || l == 0 {
		return a
	}
	return a.Scale(max / l)
}

// Heading is the angle of a in radians.
func (a Vec2) Heading() float64 { return math.Atan2(a.Y, a.X) }

func FromAngle(theta float64) Vec2 { return Vec2{X: math.Cos(theta), Y: math.Sin(theta)} }

// Rect is an axis-aligned rectangle [Min, Max].
type Rect struct {
	Min Vec2 `json:"min" yaml:"min"`
	Max Vec2 `json:"max" yaml:"max"`
}

func RectWH(x, y, w, h float64) Rect { return Rect{Min: Vec2{X: x, Y: y}, Max: Vec2{X: x + w, Y: y + h}} }

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }
func (r Rect) Center() Vec2    { return Vec2{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2} }

func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Overlaps reports whether two rectangles share any area or edge.
func (r Rect) Overlaps(o Rect) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X && r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// Clamp moves p onto the nearest point inside r.
func (r Rect) Clamp(p Vec2) Vec2 {
	return Vec2{X: Clamp(p.X, r.Min.X, r.Max.X), Y: Clamp(p.Y, r.Min.Y, r.Max.Y)}
}

// Inset shrinks r by m on every side; a rectangle too small to shrink collapses to its center.
func (r Rect) Inset(m float64) Rect {
	out := Rect{Min: Vec2{X: r.Min.X + m, Y: r.Min.Y + m}, Max: Vec2{X: r.Max.X - m, Y: r.Max.Y - m}}
	if out.Min.X > out.Max.X {
		c := r.Center().X
		out.Min.X, out.Max.X = c, c
	}
	if out.Min.Y > out.Max.Y {
		c := r.Center().Y
		out.Min.Y, out.Max.Y = c, c
	}
	return out
}

// Around returns the square of half-size h centered on p.
func Around(p Vec2, h float64) Rect {
	return Rect{Min: Vec2{X: p.X - h, Y: p.Y - h}, Max: Vec2{X: p.X + h, Y: p.Y + h}}
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
