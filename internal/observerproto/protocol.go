package observerproto

import "playasim/internal/protocol"

// Version is the observer protocol version (separate from the player WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// Radius limits collectibles and moop to this distance from the player. Zero means the default.
	Radius float64 `json:"radius"`
	// MaxItems caps the collectibles listed per frame.
	MaxItems int `json:"max_items"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string              `json:"protocol_version"`
	SessionID       string              `json:"session_id"`
	WorldID         string              `json:"world_id"`
	Tick            uint64              `json:"tick"`
	Seed            int64               `json:"seed"`
	FrameRateHz     int                 `json:"frame_rate_hz"`
	Worlds          []protocol.WorldRef `json:"worlds"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	WorldID         string `json:"world_id"`

	Clock   string `json:"clock"`
	Night   bool   `json:"night"`
	Weather string `json:"weather"`

	Player     PlayerState      `json:"player"`
	Companions []CompanionState `json:"companions,omitempty"`
	Vehicles   []VehicleState   `json:"vehicles,omitempty"`
	Items      []ItemState      `json:"items,omitempty"`
	Moop       [][2]float64     `json:"moop,omitempty"`
	Events     []EventEntry     `json:"events,omitempty"`
	Paused     bool             `json:"paused,omitempty"`
	GameOver   bool             `json:"game_over,omitempty"`
}

type PlayerState struct {
	Pos     [2]float64 `json:"pos"`
	Heading float64    `json:"heading"`
	Mounted string     `json:"mounted,omitempty"`
	Resting bool       `json:"resting,omitempty"`

	Energy int   `json:"energy"`
	Mood   int   `json:"mood"`
	Thirst int   `json:"thirst"`
	Hunger int   `json:"hunger"`
	Coins  int64 `json:"coins"`
	Karma  int64 `json:"karma"`

	Effects []string `json:"effects,omitempty"`
}

type CompanionState struct {
	ID   string     `json:"id"`
	Pos  [2]float64 `json:"pos"`
	Mood int        `json:"mood"`
}

type VehicleState struct {
	ID    string     `json:"id"`
	Kind  string     `json:"kind"`
	Pos   [2]float64 `json:"pos"`
	State string     `json:"state"`
	Fuel  float64    `json:"fuel"`
}

type ItemState struct {
	ID   string     `json:"id"`
	Kind string     `json:"kind"`
	Pos  [2]float64 `json:"pos"`
}

type EventEntry struct {
	Category string  `json:"category"`
	Message  string  `json:"message"`
	Value    float64 `json:"value,omitempty"`
}
