package multiworld

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"playasim/internal/protocol"
	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/geom"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/vehicle"
)

var ErrUnknownWorld = errors.New("unknown world")

// Transition is the result of stepping onto a portal.
type Transition struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	PortalID string    `json:"portal_id"`
	Pos      geom.Vec2 `json:"pos"`
}

type transitionKey struct {
	From string
	To   string
}

type TransitionMetric struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count uint64 `json:"count"`
}

// Manager tracks the current world, the portals between worlds and one item store per world.
// The simulation goroutine is the only writer; the lock lets transports read manifests and
// metrics concurrently.
type Manager struct {
	mu sync.RWMutex

	cfg       Config
	specs     map[string]WorldSpec
	portals   map[string][]PortalSpec
	manifest  []protocol.WorldRef
	defaultID string

	current     string
	stores      map[string]*Items
	transitions map[transitionKey]uint64
}

func NewManager(cfg Config) (*Manager, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:         cfg,
		specs:       map[string]WorldSpec{},
		portals:     map[string][]PortalSpec{},
		manifest:    cfg.Manifest(),
		defaultID:   cfg.DefaultWorldID,
		current:     cfg.DefaultWorldID,
		stores:      map[string]*Items{},
		transitions: map[transitionKey]uint64{},
	}
	for _, w := range cfg.Worlds {
		m.specs[w.ID] = w
		m.stores[w.ID] = NewItems()
	}
	for _, p := range cfg.Portals {
		m.portals[p.FromWorld] = append(m.portals[p.FromWorld], p)
	}
	return m, nil
}

func (m *Manager) Config() Config { return m.cfg }

func (m *Manager) DefaultWorldID() string { return m.defaultID }

func (m *Manager) WorldIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.specs))
	for id := range m.specs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) Manifest() []protocol.WorldRef {
	return append([]protocol.WorldRef(nil), m.manifest...)
}

func (m *Manager) CurrentWorldID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) CurrentSpec() WorldSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.specs[m.current]
}

func (m *Manager) CurrentWorldDimensions() (width, height float64) {
	s := m.CurrentSpec()
	return s.Width, s.Height
}

func (m *Manager) CurrentBounds() geom.Rect {
	w, h := m.CurrentWorldDimensions()
	return geom.RectWH(0, 0, w, h)
}

func (m *Manager) CurrentTimeScale() float64 {
	return m.CurrentSpec().TimeScale
}

func (m *Manager) Spec(id string) (WorldSpec, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.specs[id]
	return s, ok
}

// CheckWorldTransition tests the actor's square footprint against the current world's portals.
// Portals are tried in configuration order.
func (m *Manager) CheckWorldTransition(pos geom.Vec2, actorSize float64) (Transition, bool) {
	if !pos.Finite() {
		return Transition{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	foot := geom.Around(pos, actorSize/2)
	for _, p := range m.portals[m.current] {
		if foot.Overlaps(p.Rect.Rect()) {
			return Transition{From: m.current, To: p.ToWorld, PortalID: p.ID, Pos: geom.V(p.ToX, p.ToY)}, true
		}
	}
	return Transition{}, false
}

// SetCurrent switches the active world and counts the transition.
func (m *Manager) SetCurrent(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.specs[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownWorld, id)
	}
	if id != m.current {
		m.transitions[transitionKey{From: m.current, To: id}]++
	}
	m.current = id
	return nil
}

// Store returns a world's item store, or nil for an unknown id.
func (m *Manager) Store(id string) *Items {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stores[id]
}

func (m *Manager) CurrentStore() *Items { return m.Store(m.CurrentWorldID()) }

// MoveVehicle takes vehicle id out of world from and places it in world to at pos.
// Stale ids or unknown worlds leave both stores untouched.
func (m *Manager) MoveVehicle(id, from, to string, pos geom.Vec2) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dst := m.stores[from], m.stores[to]
	if src == nil || dst == nil || src.Vehicle(id) == nil {
		return false
	}
	v := src.RemoveVehicle(id)
	v.Pos = pos
	v.Vel = geom.Vec2{}
	v.HasWaypoint = false
	dst.AddVehicle(v)
	return true
}

// Populate rebuilds every store from the population tables and returns to the default world.
// Worlds are filled in configuration order.
func (m *Manager) Populate(rng ports.Rng, cat *catalogs.Catalog) {
	if cat == nil {
		cat = catalogs.Builtin()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.cfg.Worlds {
		m.stores[w.ID] = populate(w, rng, cat)
	}
	m.current = m.defaultID
}

// InRestArea reports whether p lies in any rest area of the current world.
func (m *Manager) InRestArea(p geom.Vec2) bool {
	for _, r := range m.CurrentSpec().RestAreas {
		if r.Rect().Contains(p) {
			return true
		}
	}
	return false
}

func (m *Manager) TransitionMetrics() []TransitionMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TransitionMetric, 0, len(m.transitions))
	for k, n := range m.transitions {
		out = append(out, TransitionMetric{From: k.From, To: k.To, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// FuelStations lists the current world's stations.
func (m *Manager) FuelStations() []geom.Vec2 {
	spec := m.CurrentSpec()
	out := make([]geom.Vec2, 0, len(spec.FuelStations))
	for _, s := range spec.FuelStations {
		out = append(out, s.Vec())
	}
	return out
}

// VehicleByID searches every store; it returns the owning world too.
func (m *Manager) VehicleByID(id string) (*vehicle.Vehicle, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.cfg.Worlds {
		if v := m.stores[w.ID].Vehicle(id); v != nil {
			return v, w.ID
		}
	}
	return nil, ""
}
