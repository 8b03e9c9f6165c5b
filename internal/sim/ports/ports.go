// Package ports declares the collaborators the simulation core calls into but does not implement:
// the frame clock, the deterministic random source, the audio sink and the notification sink.
// Stock implementations live next to the interfaces so hosts and tests can wire a core quickly.
package ports

import (
	"time"

	"playasim/internal/sim/geom"
)

// FrameHandle identifies a scheduled frame callback.
type FrameHandle uint64

// Clock is the host frame source.
type Clock interface {
	Now() time.Time
	ScheduleFrame(cb func()) FrameHandle
	CancelFrame(h FrameHandle)
}

// Rng is a seeded random source. Float64 returns a value in [0,1).
// A given seed must always yield the same sequence.
type Rng interface {
	SetSeed(seed int64)
	Float64() float64
}

// AudioPort is fire-and-forget; the core never reads anything back except the mute flag.
type AudioPort interface {
	PlaySound(name string, volume float64)
	IsMuted() bool
	SetMuted(muted bool)
}

// Category groups notifications for the UI.
type Category string

const (
	CategoryInfo     Category = "info"
	CategoryStat     Category = "stat"
	CategoryCoin     Category = "coin"
	CategoryKarma    Category = "karma"
	CategoryItem     Category = "item"
	CategoryEffect   Category = "effect"
	CategoryVehicle  Category = "vehicle"
	CategoryWorld    Category = "world"
	CategoryWarning  Category = "warning"
	CategoryGameOver Category = "game_over"
)

// Notification is a user-visible event.
type Notification struct {
	Tick     uint64    `json:"tick"`
	Message  string    `json:"message"`
	Category Category  `json:"category"`
	Value    float64   `json:"value,omitempty"`
	Pos      geom.Vec2 `json:"pos"`
}

// Notifier is the only channel through which the core reports user-visible events.
type Notifier interface {
	AddNotification(n Notification)
}
