package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type              string   `json:"type"`
	ProtocolVersion   string   `json:"protocol_version"`
	SupportedVersions []string `json:"supported_versions,omitempty"`
	ClientName        string   `json:"client_name"`
	// SnapshotEvery thins the feed to one snapshot per N ticks. Zero means every tick.
	SnapshotEvery int `json:"snapshot_every,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	CurrentWorldID  string         `json:"current_world_id"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
	WorldManifest   []WorldRef     `json:"world_manifest,omitempty"`
}

type WorldRef struct {
	WorldID     string  `json:"world_id"`
	WorldType   string  `json:"world_type"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	TimeProfile string  `json:"time_profile,omitempty"`
	TimeScale   float64 `json:"time_scale,omitempty"`
	Enclosed    bool    `json:"enclosed,omitempty"`
}

type WorldParams struct {
	FrameRateHz     int     `json:"frame_rate_hz"`
	MaxDeltaSeconds float64 `json:"max_delta_seconds"`
	Seed            int64   `json:"seed"`
}

type CatalogDigests struct {
	Consumables string `json:"consumables"`
	Tuning      string `json:"tuning"`
}

// CMD (client -> server): one command for the simulation queue.
type CmdMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Ref             string  `json:"ref,omitempty"`
	Cmd             CmdBody `json:"cmd"`
}

type CmdBody struct {
	Kind string  `json:"kind"`
	DX   float64 `json:"dx,omitempty"`
	DY   float64 `json:"dy,omitempty"`
	Item string  `json:"item,omitempty"`
	On   *bool   `json:"on,omitempty"`
	Seed *int64  `json:"seed,omitempty"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
	WorldID         string `json:"world_id,omitempty"`
}

// SNAPSHOT (server -> client). State is the engine's read-only snapshot, already encoded.
type SnapshotMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Tick            uint64          `json:"tick"`
	WorldID         string          `json:"world_id"`
	Digest          string          `json:"digest"`
	State           json.RawMessage `json:"state"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: message}
}
