package multiworld

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"playasim/internal/protocol"
	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/geom"
	"playasim/internal/sim/vehicle"
)

const (
	TypeCamp  = "camp"
	TypePlaya = "playa"
)

type Config struct {
	DefaultWorldID string       `yaml:"default_world_id"`
	Companions     int          `yaml:"companions"`
	Worlds         []WorldSpec  `yaml:"worlds"`
	Portals        []PortalSpec `yaml:"portals,omitempty"`
}

type WorldSpec struct {
	ID          string  `yaml:"id"`
	Type        string  `yaml:"type"`
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	TimeProfile string  `yaml:"time_profile"`
	TimeScale   float64 `yaml:"time_scale"`
	// Enclosed worlds clamp companions to their bounds. Camps are always enclosed.
	Enclosed bool `yaml:"enclosed"`

	Spawn        PointSpec      `yaml:"spawn"`
	RestAreas    []RectSpec     `yaml:"rest_areas,omitempty"`
	HomeCamp     *CircleSpec    `yaml:"home_camp,omitempty"`
	FuelStations []PointSpec    `yaml:"fuel_stations,omitempty"`
	Population   PopulationSpec `yaml:"population"`
}

type PointSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (p PointSpec) Vec() geom.Vec2 { return geom.V(p.X, p.Y) }

type RectSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

func (r RectSpec) Rect() geom.Rect { return geom.RectWH(r.X, r.Y, r.W, r.H) }

type CircleSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	R float64 `yaml:"r"`
}

func (c CircleSpec) Center() geom.Vec2 { return geom.V(c.X, c.Y) }

type PortalSpec struct {
	ID        string   `yaml:"id"`
	FromWorld string   `yaml:"from_world"`
	Rect      RectSpec `yaml:"rect"`
	ToWorld   string   `yaml:"to_world"`
	ToX       float64  `yaml:"to_x"`
	ToY       float64  `yaml:"to_y"`
}

type PopulationSpec struct {
	Coins     int            `yaml:"coins"`
	CoinValue int64          `yaml:"coin_value"`
	Items     map[string]int `yaml:"items,omitempty"`
	Moop      int            `yaml:"moop"`
	FuelCans  int            `yaml:"fuel_cans"`
	Vehicles  []VehicleSpec  `yaml:"vehicles,omitempty"`
	// Margin keeps scattered entities away from the world edge.
	Margin float64 `yaml:"margin"`
}

type VehicleSpec struct {
	Kind        vehicle.Kind `yaml:"kind"`
	Count       int          `yaml:"count"`
	FuelMax     float64      `yaml:"fuel_max"`
	SpeedFactor float64      `yaml:"speed_factor"`
	Autopilot   bool         `yaml:"autopilot"`
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	cfg = Config{}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	return cfg, nil
}

// Defaults is a small camp joined to an open playa, enough to run without a worlds.yaml.
func Defaults() Config {
	return Config{
		DefaultWorldID: "camp",
		Companions:     4,
		Worlds: []WorldSpec{
			{
				ID:        "camp",
				Type:      TypeCamp,
				Width:     800,
				Height:    600,
				Spawn:     PointSpec{X: 400, Y: 300},
				RestAreas: []RectSpec{{X: 60, Y: 60, W: 160, H: 120}},
				Population: PopulationSpec{
					Coins: 5,
					Items: map[string]int{"water": 3, "burrito": 2, "totem": 1},
					Moop:  4,
					Vehicles: []VehicleSpec{
						{Kind: vehicle.KindBike, Count: 1},
					},
				},
			},
			{
				ID:           "playa",
				Type:         TypePlaya,
				Width:        4000,
				Height:       3000,
				Spawn:        PointSpec{X: 2200, Y: 1500},
				RestAreas:    []RectSpec{{X: 1700, Y: 900, W: 300, H: 200}},
				HomeCamp:     &CircleSpec{X: 2000, Y: 1500, R: 80},
				FuelStations: []PointSpec{{X: 600, Y: 600}, {X: 3400, Y: 2400}},
				Population: PopulationSpec{
					Coins:    40,
					Items:    map[string]int{"water": 10, "burrito": 6, "coffee": 4, "energy_drink": 3},
					Moop:     30,
					FuelCans: 8,
					Vehicles: []VehicleSpec{
						{Kind: vehicle.KindArtCar, Count: 3, FuelMax: 100, SpeedFactor: 0.6, Autopilot: true},
						{Kind: vehicle.KindBike, Count: 4},
					},
				},
			},
		},
		Portals: []PortalSpec{
			{ID: "camp_gate", FromWorld: "camp", Rect: RectSpec{X: 780, Y: 250, W: 20, H: 100}, ToWorld: "playa", ToX: 2200, ToY: 1500},
			{ID: "home_gate", FromWorld: "playa", Rect: RectSpec{X: 1960, Y: 1460, W: 40, H: 40}, ToWorld: "camp", ToX: 740, ToY: 300},
		},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	for i := range c.Worlds {
		w := &c.Worlds[i]
		w.ID = strings.TrimSpace(w.ID)
		w.Type = strings.ToLower(strings.TrimSpace(w.Type))
		if w.Type == TypeCamp {
			w.Enclosed = true
		}
		if strings.TrimSpace(w.TimeProfile) == "" {
			w.TimeProfile = w.Type
		}
		if w.TimeScale <= 0 {
			w.TimeScale = 1
		}
		if w.Population.CoinValue <= 0 {
			w.Population.CoinValue = 1
		}
		if w.Population.Margin <= 0 {
			w.Population.Margin = 20
		}
		for j := range w.Population.Vehicles {
			v := &w.Population.Vehicles[j]
			if v.SpeedFactor <= 0 {
				v.SpeedFactor = 1
			}
		}
	}
	for i := range c.Portals {
		p := &c.Portals[i]
		if strings.TrimSpace(p.ID) == "" {
			p.ID = fmt.Sprintf("%s_to_%s_%d", p.FromWorld, p.ToWorld, i)
		}
	}
	if c.Companions < 0 {
		c.Companions = 0
	}
}

// Validate reports configuration errors. These are fatal at load time and never surface in a tick.
func (c Config) Validate() error {
	c.Normalize()
	if len(c.Worlds) == 0 {
		return fmt.Errorf("worlds must not be empty")
	}
	seen := map[string]WorldSpec{}
	for _, w := range c.Worlds {
		if w.ID == "" {
			return fmt.Errorf("world id must not be empty")
		}
		if _, dup := seen[w.ID]; dup {
			return fmt.Errorf("duplicate world id: %s", w.ID)
		}
		seen[w.ID] = w
		if w.Type != TypeCamp && w.Type != TypePlaya {
			return fmt.Errorf("world %s type must be %q or %q", w.ID, TypeCamp, TypePlaya)
		}
		if !(w.Width > 0) || !(w.Height > 0) {
			return fmt.Errorf("world %s width and height must be > 0", w.ID)
		}
		bounds := geom.RectWH(0, 0, w.Width, w.Height)
		if !bounds.Contains(w.Spawn.Vec()) {
			return fmt.Errorf("world %s spawn (%g,%g) is outside the world", w.ID, w.Spawn.X, w.Spawn.Y)
		}
		for i, r := range w.RestAreas {
			if r.W <= 0 || r.H <= 0 {
				return fmt.Errorf("world %s rest_areas[%d] must have positive size", w.ID, i)
			}
		}
		if w.HomeCamp != nil && w.HomeCamp.R <= 0 {
			return fmt.Errorf("world %s home_camp radius must be > 0", w.ID)
		}
		for name, n := range w.Population.Items {
			if _, err := catalogs.ParseItemKind(name); err != nil {
				return fmt.Errorf("world %s population: %w", w.ID, err)
			}
			if n < 0 {
				return fmt.Errorf("world %s population item %s count must be >= 0", w.ID, name)
			}
		}
		for i, v := range w.Population.Vehicles {
			if v.Kind != vehicle.KindArtCar && v.Kind != vehicle.KindBike {
				return fmt.Errorf("world %s vehicles[%d] unknown kind %q", w.ID, i, v.Kind)
			}
			if v.Count < 0 || v.FuelMax < 0 {
				return fmt.Errorf("world %s vehicles[%d] count and fuel_max must be >= 0", w.ID, i)
			}
		}
	}
	if c.DefaultWorldID == "" {
		return fmt.Errorf("default_world_id must not be empty")
	}
	if _, ok := seen[c.DefaultWorldID]; !ok {
		return fmt.Errorf("default_world_id %q not found in worlds", c.DefaultWorldID)
	}
	portalIDs := map[string]bool{}
	for i, p := range c.Portals {
		if portalIDs[p.ID] {
			return fmt.Errorf("portals[%d] duplicate id %q", i, p.ID)
		}
		portalIDs[p.ID] = true
		if _, ok := seen[p.FromWorld]; !ok {
			return fmt.Errorf("portals[%d] from_world %q not found", i, p.FromWorld)
		}
		to, ok := seen[p.ToWorld]
		if !ok {
			return fmt.Errorf("portals[%d] to_world %q not found", i, p.ToWorld)
		}
		if p.Rect.W <= 0 || p.Rect.H <= 0 {
			return fmt.Errorf("portals[%d] rect must have positive size", i)
		}
		if !geom.RectWH(0, 0, to.Width, to.Height).Contains(geom.V(p.ToX, p.ToY)) {
			return fmt.Errorf("portals[%d] destination (%g,%g) is outside %s", i, p.ToX, p.ToY, p.ToWorld)
		}
	}
	return nil
}

// Manifest lists the worlds for the WELCOME frame.
func (c Config) Manifest() []protocol.WorldRef {
	out := make([]protocol.WorldRef, 0, len(c.Worlds))
	for _, w := range c.Worlds {
		out = append(out, protocol.WorldRef{
			WorldID:     w.ID,
			WorldType:   w.Type,
			Width:       w.Width,
			Height:      w.Height,
			TimeProfile: w.TimeProfile,
			TimeScale:   w.TimeScale,
			Enclosed:    w.Enclosed,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorldID < out[j].WorldID })
	return out
}

func (c Config) WorldSpecByID(id string) (WorldSpec, bool) {
	for _, w := range c.Worlds {
		if w.ID == id {
			return w, true
		}
	}
	return WorldSpec{}, false
}
