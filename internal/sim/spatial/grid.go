// Package spatial is a uniform-grid index over world-space points.
package spatial

import (
	"math"
	"sort"

	"playasim/internal/sim/geom"
)

// Entity is the index's view of a domain object. The owner keeps the authoritative state.
type Entity struct {
	ID     string    `json:"id"`
	Pos    geom.Vec2 `json:"pos"`
	Radius float64   `json:"radius"`
}

type slot struct {
	cell int
	idx  int
}

// Grid partitions [0,width]x[0,height] into square cells. Points outside the extent are kept in
// the nearest edge cell so they are never lost.
type Grid struct {
	width, height float64
	cellSize      float64
	cols, rows    int

	cells [][]Entity
	where map[string]slot
}

func NewGrid(width, height, cellSize float64) *Grid {
	g := &Grid{}
	g.reset(width, height, cellSize)
	return g
}

func (g *Grid) reset(width, height, cellSize float64) {
	if !(cellSize > 0) {
		cellSize = 64
	}
	if !(width > 0) {
		width = cellSize
	}
	if !(height > 0) {
		height = cellSize
	}
	g.width, g.height, g.cellSize = width, height, cellSize
	g.cols = int(math.Ceil(width / cellSize))
	g.rows = int(math.Ceil(height / cellSize))
	if g.cols < 1 {
		g.cols = 1
	}
	if g.rows < 1 {
		g.rows = 1
	}
	g.cells = make([][]Entity, g.cols*g.rows)
	g.where = map[string]slot{}
}

func (g *Grid) Len() int { return len(g.where) }

func (g *Grid) CellSize() float64 { return g.cellSize }

func (g *Grid) Dims() (cols, rows int) { return g.cols, g.rows }

func (g *Grid) Extent() (w, h float64) { return g.width, g.height }

func (g *Grid) cellCoord(v float64, n int) int {
	c := math.Floor(v / g.cellSize)
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c >= float64(n):
		return n - 1
	}
	return int(c)
}

func (g *Grid) cellOf(p geom.Vec2) int {
	return g.cellCoord(p.Y, g.rows)*g.cols + g.cellCoord(p.X, g.cols)
}

// Insert adds e; inserting a known id moves it instead.
func (g *Grid) Insert(e Entity) {
	if _, ok := g.where[e.ID]; ok {
		g.Remove(e.ID)
	}
	c := g.cellOf(e.Pos)
	g.cells[c] = append(g.cells[c], e)
	g.where[e.ID] = slot{cell: c, idx: len(g.cells[c]) - 1}
}

// Remove drops id from its bucket with a swap-delete. Unknown ids are a no-op.
func (g *Grid) Remove(id string) bool {
	s, ok := g.where[id]
	if !ok {
		return false
	}
	bucket := g.cells[s.cell]
	last := len(bucket) - 1
	if s.idx != last {
		bucket[s.idx] = bucket[last]
		g.where[bucket[s.idx].ID] = slot{cell: s.cell, idx: s.idx}
	}
	g.cells[s.cell] = bucket[:last]
	delete(g.where, id)
	return true
}

// Move updates an entity's position, changing buckets only when the cell changes.
func (g *Grid) Move(id string, pos geom.Vec2) bool {
	s, ok := g.where[id]
	if !ok {
		return false
	}
	if c := g.cellOf(pos); c == s.cell {
		g.cells[s.cell][s.idx].Pos = pos
		return true
	}
	e := g.cells[s.cell][s.idx]
	e.Pos = pos
	g.Remove(id)
	g.Insert(e)
	return true
}

func (g *Grid) Get(id string) (Entity, bool) {
	s, ok := g.where[id]
	if !ok {
		return Entity{}, false
	}
	return g.cells[s.cell][s.idx], true
}

// QueryRadius returns entities whose position lies within r of p, sorted by id.
func (g *Grid) QueryRadius(p geom.Vec2, r float64) []Entity {
	if !(r >= 0) || !p.Finite() {
		return nil
	}
	r2 := r * r
	var out []Entity
	g.visit(geom.Around(p, r), func(e Entity) {
		if e.Pos.DistSq(p) <= r2 {
			out = append(out, e)
		}
	})
	sortByID(out)
	return out
}

// QueryRect returns entities whose position lies inside [min,max], sorted by id.
func (g *Grid) QueryRect(min, max geom.Vec2) []Entity {
	if !min.Finite() || !max.Finite() {
		return nil
	}
	r := geom.Rect{Min: min, Max: max}
	var out []Entity
	g.visit(r, func(e Entity) {
		if r.Contains(e.Pos) {
			out = append(out, e)
		}
	})
	sortByID(out)
	return out
}

// visit walks every bucket whose cell intersects r. Clamping the cell range to the grid means
// out-of-extent entities stored in edge cells are still reached.
func (g *Grid) visit(r geom.Rect, fn func(Entity)) {
	minCX := g.cellCoord(r.Min.X, g.cols)
	maxCX := g.cellCoord(r.Max.X, g.cols)
	minCY := g.cellCoord(r.Min.Y, g.rows)
	maxCY := g.cellCoord(r.Max.Y, g.rows)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for _, e := range g.cells[cy*g.cols+cx] {
				fn(e)
			}
		}
	}
}

// All returns every entity, sorted by id.
func (g *Grid) All() []Entity {
	out := make([]Entity, 0, len(g.where))
	for _, b := range g.cells {
		out = append(out, b...)
	}
	sortByID(out)
	return out
}

// Rebuild throws the current contents away and re-indexes entities under new dimensions.
func (g *Grid) Rebuild(width, height, cellSize float64, entities []Entity) {
	g.reset(width, height, cellSize)
	for _, e := range entities {
		g.Insert(e)
	}
}

func sortByID(es []Entity) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}
