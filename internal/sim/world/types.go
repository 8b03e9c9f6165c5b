package world

import (
	"errors"
	"time"

	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/flock"
	"playasim/internal/sim/gametime"
	"playasim/internal/sim/geom"
	"playasim/internal/sim/multiworld"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/stats"
	"playasim/internal/sim/substance"
	"playasim/internal/sim/vehicle"
)

var (
	ErrStopped    = errors.New("engine stopped")
	ErrQueueFull  = errors.New("command queue full")
	ErrBadCommand = errors.New("bad command")
)

type CommandKind string

const (
	CmdMove       CommandKind = "move"
	CmdConsume    CommandKind = "consume"
	CmdRest       CommandKind = "rest"
	CmdLight      CommandKind = "light"
	CmdMount      CommandKind = "mount"
	CmdDismount   CommandKind = "dismount"
	CmdEquipTotem CommandKind = "equip_totem"
	CmdDropMoop   CommandKind = "drop_moop"
	CmdPause      CommandKind = "pause"
	CmdRestart    CommandKind = "restart"
)

// Command is one queued player intent. Only the fields of its kind are read.
type Command struct {
	Kind CommandKind `json:"kind"`
	DX   float64     `json:"dx,omitempty"`
	DY   float64     `json:"dy,omitempty"`
	Item string      `json:"item,omitempty"`
	On   bool        `json:"on,omitempty"`
	Seed int64       `json:"seed,omitempty"`
}

type WeatherKind string

const (
	WeatherClear     WeatherKind = "clear"
	WeatherDustStorm WeatherKind = "dust_storm"
)

type Weather struct {
	Kind WeatherKind `json:"kind"`
	// UntilMinute is the simulated total minute at which a storm clears.
	UntilMinute int64 `json:"until_minute,omitempty"`
}

type Player struct {
	Pos     geom.Vec2 `json:"pos"`
	LastPos geom.Vec2 `json:"last_pos"`
	// Input is the held direction, length at most 1. It persists until the next move command.
	Input   geom.Vec2 `json:"input"`
	Heading float64   `json:"heading"`

	Stats     stats.PlayerStats         `json:"stats"`
	Inventory map[catalogs.ItemKind]int `json:"inventory"`

	Resting        bool   `json:"resting"`
	LightOn        bool   `json:"light_on"`
	TotemEquipped  bool   `json:"totem_equipped"`
	MountedVehicle string `json:"mounted_vehicle,omitempty"`
}

// GameState is everything one tick reads and writes. The engine goroutine owns it.
type GameState struct {
	Tick     uint64
	Time     gametime.Time
	Weather  Weather
	Player   Player
	Effects  *substance.Stack
	Pools    *flock.Pools
	Paused   bool
	GameOver bool

	// pending holds one-shot stat effects queued by consume, applied during decay.
	pending catalogs.StatEffect
	// restGain accumulates regenerated energy until the integer part of the gauge moves.
	restGain float64
	nearbyVehicle string
}

// TickLogEntry is the replay record of one tick.
type TickLogEntry struct {
	Tick     uint64    `json:"tick"`
	DT       float64   `json:"dt"`
	WorldID  string    `json:"world_id"`
	Commands []Command `json:"commands,omitempty"`
	Digest   string    `json:"digest"`
}

// SessionInfo identifies one engine run in tick logs and the index.
type SessionInfo struct {
	Session       string    `json:"session"`
	Seed          int64     `json:"seed"`
	TuningDigest  string    `json:"tuning_digest"`
	CatalogDigest string    `json:"catalog_digest,omitempty"`
	Started       time.Time `json:"started"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// Snapshot is a read-only deep copy of the state after a tick.
type Snapshot struct {
	Tick          uint64                   `json:"tick"`
	Digest        string                   `json:"digest"`
	WorldID       string                   `json:"world_id"`
	Time          gametime.Time            `json:"time"`
	Clock         string                   `json:"clock"`
	Night         bool                     `json:"night"`
	Weather       Weather                  `json:"weather"`
	Player        Player                   `json:"player"`
	Effects       []substance.Effect       `json:"effects"`
	SpeedMult     float64                  `json:"speed_multiplier"`
	TimeScale     float64                  `json:"time_scale"`
	Vehicles      []*vehicle.Vehicle       `json:"vehicles"`
	Companions    []*flock.Companion       `json:"companions"`
	CampPool      int                      `json:"camp_pool"`
	ActivePool    int                      `json:"active_pool"`
	Collectibles  []multiworld.Collectible `json:"collectibles"`
	Moop          []multiworld.Moop        `json:"moop"`
	Cans          []vehicle.FuelCan        `json:"cans"`
	Counts        multiworld.Counts        `json:"counts"`
	NearbyVehicle string                   `json:"nearby_vehicle,omitempty"`
	Paused        bool                     `json:"paused"`
	GameOver      bool                     `json:"game_over"`
	Notifications []ports.Notification     `json:"notifications,omitempty"`
}

type sound struct {
	name   string
	volume float64
}
