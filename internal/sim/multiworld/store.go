package multiworld

import (
	"fmt"
	"sort"

	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/geom"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/vehicle"
)

type CollectibleKind string

const (
	CollectCoin CollectibleKind = "coin"
	CollectItem CollectibleKind = "item"
)

type Collectible struct {
	ID    string            `json:"id"`
	Kind  CollectibleKind   `json:"kind"`
	Item  catalogs.ItemKind `json:"item,omitempty"`
	Value int64             `json:"value,omitempty"`
	Pos   geom.Vec2         `json:"pos"`
}

// Moop is litter; picking it up earns karma.
type Moop struct {
	ID  string    `json:"id"`
	Pos geom.Vec2 `json:"pos"`
}

// Items is one world's item store. Worlds that are not current keep their items frozen here.
type Items struct {
	Collectibles map[string]Collectible `json:"collectibles"`
	Moop         []Moop                 `json:"moop"`
	Cans         []vehicle.FuelCan      `json:"cans"`
	Vehicles     []*vehicle.Vehicle     `json:"vehicles"`

	seq uint64
}

func NewItems() *Items {
	return &Items{Collectibles: map[string]Collectible{}}
}

// NextID returns a store-unique, deterministic id.
func (s *Items) NextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

func (s *Items) AddCollectible(c Collectible) {
	s.Collectibles[c.ID] = c
}

// TakeCollectible removes and returns id. A stale id returns ok=false.
func (s *Items) TakeCollectible(id string) (Collectible, bool) {
	c, ok := s.Collectibles[id]
	if ok {
		delete(s.Collectibles, id)
	}
	return c, ok
}

// SortedCollectibles returns every collectible ordered by id.
func (s *Items) SortedCollectibles() []Collectible {
	out := make([]Collectible, 0, len(s.Collectibles))
	for _, c := range s.Collectibles {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Items) AddMoop(m Moop) { s.Moop = append(s.Moop, m) }

func (s *Items) RemoveMoop(id string) bool {
	for i, m := range s.Moop {
		if m.ID == id {
			s.Moop = append(s.Moop[:i], s.Moop[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Items) RemoveCans(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.Cans[:0]
	for _, c := range s.Cans {
		if !drop[c.ID] {
			kept = append(kept, c)
		}
	}
	n := len(s.Cans) - len(kept)
	s.Cans = kept
	return n
}

func (s *Items) Vehicle(id string) *vehicle.Vehicle {
	for _, v := range s.Vehicles {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// RemoveVehicle detaches id from the store. Unknown ids return nil.
func (s *Items) RemoveVehicle(id string) *vehicle.Vehicle {
	for i, v := range s.Vehicles {
		if v.ID == id {
			s.Vehicles = append(s.Vehicles[:i], s.Vehicles[i+1:]...)
			return v
		}
	}
	return nil
}

func (s *Items) AddVehicle(v *vehicle.Vehicle) {
	if v == nil {
		return
	}
	s.Vehicles = append(s.Vehicles, v)
	sort.SliceStable(s.Vehicles, func(i, j int) bool { return s.Vehicles[i].ID < s.Vehicles[j].ID })
}

type Counts struct {
	Coins    int `json:"coins"`
	Items    int `json:"items"`
	Moop     int `json:"moop"`
	Cans     int `json:"cans"`
	Vehicles int `json:"vehicles"`
}

func (s *Items) Counts() Counts {
	var c Counts
	for _, it := range s.Collectibles {
		if it.Kind == CollectCoin {
			c.Coins++
		} else {
			c.Items++
		}
	}
	c.Moop = len(s.Moop)
	c.Cans = len(s.Cans)
	c.Vehicles = len(s.Vehicles)
	return c
}

// Clone deep-copies the store for snapshots.
func (s *Items) Clone() *Items {
	c := &Items{
		Collectibles: make(map[string]Collectible, len(s.Collectibles)),
		Moop:         append([]Moop(nil), s.Moop...),
		Cans:         append([]vehicle.FuelCan(nil), s.Cans...),
		seq:          s.seq,
	}
	for k, v := range s.Collectibles {
		c.Collectibles[k] = v
	}
	for _, v := range s.Vehicles {
		c.Vehicles = append(c.Vehicles, v.Clone())
	}
	return c
}

// populate scatters spec.Population over the world. Draw order is fixed so a seed always yields
// the same layout.
func populate(spec WorldSpec, rng ports.Rng, cat *catalogs.Catalog) *Items {
	s := NewItems()
	p := spec.Population
	area := geom.RectWH(0, 0, spec.Width, spec.Height).Inset(p.Margin)
	at := func() geom.Vec2 {
		return geom.V(ports.Range(rng, area.Min.X, area.Max.X), ports.Range(rng, area.Min.Y, area.Max.Y))
	}

	for i := 0; i < p.Coins; i++ {
		s.AddCollectible(Collectible{ID: s.NextID(spec.ID + "-coin"), Kind: CollectCoin, Value: p.CoinValue, Pos: at()})
	}
	for _, k := range catalogs.AllItemKinds() {
		n := p.Items[k.String()]
		if _, ok := cat.Item(k); !ok {
			continue
		}
		for i := 0; i < n; i++ {
			s.AddCollectible(Collectible{ID: s.NextID(spec.ID + "-" + k.String()), Kind: CollectItem, Item: k, Pos: at()})
		}
	}
	for i := 0; i < p.Moop; i++ {
		s.AddMoop(Moop{ID: s.NextID(spec.ID + "-moop"), Pos: at()})
	}
	for i := 0; i < p.FuelCans; i++ {
		s.Cans = append(s.Cans, vehicle.FuelCan{ID: s.NextID(spec.ID + "-can"), Pos: at()})
	}
	for _, vs := range p.Vehicles {
		for i := 0; i < vs.Count; i++ {
			s.AddVehicle(&vehicle.Vehicle{
				ID:          s.NextID(spec.ID + "-" + string(vs.Kind)),
				Kind:        vs.Kind,
				Pos:         at(),
				Fuel:        vs.FuelMax,
				FuelMax:     vs.FuelMax,
				SpeedFactor: vs.SpeedFactor,
				Autopilot:   vs.Autopilot,
			})
		}
	}
	return s
}
