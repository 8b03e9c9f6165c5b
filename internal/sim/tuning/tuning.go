package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	FrameRateHz     int     `yaml:"frame_rate_hz" json:"frame_rate_hz"`
	MaxDeltaSeconds float64 `yaml:"max_delta_seconds" json:"max_delta_seconds"`
	StartHour       int     `yaml:"start_hour" json:"start_hour"`
	SpatialCellSize float64 `yaml:"spatial_cell_size" json:"spatial_cell_size"`

	// Minutes of simulated time per real second, keyed by world time profile ("camp", "playa").
	TimeProfiles map[string]float64 `yaml:"time_profiles" json:"time_profiles"`

	Player    Player    `yaml:"player" json:"player"`
	Decay     Decay     `yaml:"decay" json:"decay"`
	Substance Substance `yaml:"substance" json:"substance"`
	Vehicles  Vehicles  `yaml:"vehicles" json:"vehicles"`
	Flock     Flock     `yaml:"flock" json:"flock"`
	Weather   Weather   `yaml:"weather" json:"weather"`
}

type Player struct {
	BaseSpeed            float64 `yaml:"base_speed" json:"base_speed"`
	MinSpeedFactor       float64 `yaml:"min_speed_factor" json:"min_speed_factor"`
	TiredEnergy          float64 `yaml:"tired_energy" json:"tired_energy"`
	TiredFactor          float64 `yaml:"tired_factor" json:"tired_factor"`
	Size                 float64 `yaml:"size" json:"size"`
	PickupRadius         float64 `yaml:"pickup_radius" json:"pickup_radius"`
	MountRadius          float64 `yaml:"mount_radius" json:"mount_radius"`
	MountBonus           float64 `yaml:"mount_bonus" json:"mount_bonus"`
	MoopKarma            int64   `yaml:"moop_karma" json:"moop_karma"`
	DropMoopKarma        int64   `yaml:"drop_moop_karma" json:"drop_moop_karma"`
	LightDrainPerSecond  float64 `yaml:"light_drain_per_second" json:"light_drain_per_second"`
	LightChargePerSecond float64 `yaml:"light_charge_per_second" json:"light_charge_per_second"`
}

type Decay struct {
	ThirstPerSecond        float64 `yaml:"thirst_per_second" json:"thirst_per_second"`
	ThirstPerUnit          float64 `yaml:"thirst_per_unit" json:"thirst_per_unit"`
	HungerPerSecond        float64 `yaml:"hunger_per_second" json:"hunger_per_second"`
	HungerPerUnit          float64 `yaml:"hunger_per_unit" json:"hunger_per_unit"`
	BathroomPerSecond      float64 `yaml:"bathroom_per_second" json:"bathroom_per_second"`
	BathroomPerUnit        float64 `yaml:"bathroom_per_unit" json:"bathroom_per_unit"`
	EnergyPerUnit          float64 `yaml:"energy_per_unit" json:"energy_per_unit"`
	EnergyRegenPerSecond   float64 `yaml:"energy_regen_per_second" json:"energy_regen_per_second"`
	DriftPerSecond         float64 `yaml:"drift_per_second" json:"drift_per_second"`
	NeutralLow             float64 `yaml:"neutral_low" json:"neutral_low"`
	NeutralHigh            float64 `yaml:"neutral_high" json:"neutral_high"`
	StarvingDrainPerSecond float64 `yaml:"starving_drain_per_second" json:"starving_drain_per_second"`
}

type Substance struct {
	MaxStack int `yaml:"max_stack" json:"max_stack"`
}

type Vehicles struct {
	BaseSpeed        float64 `yaml:"base_speed" json:"base_speed"`
	SeekSpeedFactor  float64 `yaml:"seek_speed_factor" json:"seek_speed_factor"`
	FuelPerSecond    float64 `yaml:"fuel_per_second" json:"fuel_per_second"`
	LowFuelThreshold float64 `yaml:"low_fuel_threshold" json:"low_fuel_threshold"`
	RefuelAmount     float64 `yaml:"refuel_amount" json:"refuel_amount"`
	VehicleRadius    float64 `yaml:"vehicle_radius" json:"vehicle_radius"`
	CanRadius        float64 `yaml:"can_radius" json:"can_radius"`
	StationRadius    float64 `yaml:"station_radius" json:"station_radius"`
	ArriveEpsilon    float64 `yaml:"arrive_epsilon" json:"arrive_epsilon"`
}

type Flock struct {
	WanderSpeed        float64 `yaml:"wander_speed" json:"wander_speed"`
	FollowSpeed        float64 `yaml:"follow_speed" json:"follow_speed"`
	FollowDistance     float64 `yaml:"follow_distance" json:"follow_distance"`
	FollowSpread       float64 `yaml:"follow_spread" json:"follow_spread"`
	ArriveEpsilon      float64 `yaml:"arrive_epsilon" json:"arrive_epsilon"`
	WanderRadius       float64 `yaml:"wander_radius" json:"wander_radius"`
	AvoidRadius        float64 `yaml:"avoid_radius" json:"avoid_radius"`
	SeparationStrength float64 `yaml:"separation_strength" json:"separation_strength"`
	MaxSeparation      float64 `yaml:"max_separation" json:"max_separation"`
	HomeRadius         float64 `yaml:"home_radius" json:"home_radius"`
	CheerRadius        float64 `yaml:"cheer_radius" json:"cheer_radius"`
	CheerMoodPerSecond float64 `yaml:"cheer_mood_per_second" json:"cheer_mood_per_second"`
	MoodGainPerSecond  float64 `yaml:"mood_gain_per_second" json:"mood_gain_per_second"`
	MoodDecayPerSecond float64 `yaml:"mood_decay_per_second" json:"mood_decay_per_second"`
	SpawnPerTransition int     `yaml:"spawn_per_transition" json:"spawn_per_transition"`
}

type Weather struct {
	DustStormChance       float64 `yaml:"dust_storm_chance" json:"dust_storm_chance"`
	DustStormHours        int     `yaml:"dust_storm_hours" json:"dust_storm_hours"`
	DustStormSpeedFactor  float64 `yaml:"dust_storm_speed_factor" json:"dust_storm_speed_factor"`
	DustStormThirstFactor float64 `yaml:"dust_storm_thirst_factor" json:"dust_storm_thirst_factor"`
}

func Defaults() Tuning {
	return Tuning{
		FrameRateHz:     60,
		MaxDeltaSeconds: 1.0,
		StartHour:       8,
		SpatialCellSize: 128,
		TimeProfiles: map[string]float64{
			"camp":  0.5,
			"playa": 1.0,
		},
		Player: Player{
			BaseSpeed:            180,
			MinSpeedFactor:       0.25,
			TiredEnergy:          10,
			TiredFactor:          0.5,
			Size:                 24,
			PickupRadius:         28,
			MountRadius:          48,
			MountBonus:           1.5,
			MoopKarma:            5,
			DropMoopKarma:        -10,
			LightDrainPerSecond:  0.5,
			LightChargePerSecond: 2,
		},
		Decay: Decay{
			ThirstPerSecond:        0.08,
			ThirstPerUnit:          0.002,
			HungerPerSecond:        0.05,
			HungerPerUnit:          0.001,
			BathroomPerSecond:      0.04,
			BathroomPerUnit:        0.0005,
			EnergyPerUnit:          0.004,
			EnergyRegenPerSecond:   1.0,
			DriftPerSecond:         0.05,
			NeutralLow:             40,
			NeutralHigh:            60,
			StarvingDrainPerSecond: 0.5,
		},
		Substance: Substance{MaxStack: 5},
		Vehicles: Vehicles{
			BaseSpeed:        120,
			SeekSpeedFactor:  0.75,
			FuelPerSecond:    0.5,
			LowFuelThreshold: 20,
			RefuelAmount:     40,
			VehicleRadius:    30,
			CanRadius:        10,
			StationRadius:    40,
			ArriveEpsilon:    8,
		},
		Flock: Flock{
			WanderSpeed:        40,
			FollowSpeed:        160,
			FollowDistance:     60,
			FollowSpread:       0.6,
			ArriveEpsilon:      6,
			WanderRadius:       400,
			AvoidRadius:        40,
			SeparationStrength: 800,
			MaxSeparation:      120,
			HomeRadius:         80,
			CheerRadius:        100,
			CheerMoodPerSecond: 0.2,
			MoodGainPerSecond:  1,
			MoodDecayPerSecond: 0.1,
			SpawnPerTransition: 1,
		},
		Weather: Weather{
			DustStormChance:       0.08,
			DustStormHours:        2,
			DustStormSpeedFactor:  0.6,
			DustStormThirstFactor: 1.5,
		},
	}
}

// Load reads tuning.yaml on top of Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.FrameRateHz <= 0 {
		return fmt.Errorf("frame_rate_hz must be > 0")
	}
	if !(t.MaxDeltaSeconds > 0) || math.IsInf(t.MaxDeltaSeconds, 0) {
		return fmt.Errorf("max_delta_seconds must be a positive number")
	}
	if t.StartHour < 0 || t.StartHour > 23 {
		return fmt.Errorf("start_hour must be in [0,23]")
	}
	if t.SpatialCellSize <= 0 {
		return fmt.Errorf("spatial_cell_size must be > 0")
	}
	for _, p := range []string{"camp", "playa"} {
		if v, ok := t.TimeProfiles[p]; !ok || v < 0 {
			return fmt.Errorf("time_profiles.%s must be set and >= 0", p)
		}
	}
	if t.Substance.MaxStack <= 0 {
		return fmt.Errorf("substance.max_stack must be > 0")
	}
	if t.Decay.NeutralLow > t.Decay.NeutralHigh {
		return fmt.Errorf("decay.neutral_low must be <= decay.neutral_high")
	}
	if t.Player.BaseSpeed <= 0 || t.Vehicles.BaseSpeed <= 0 {
		return fmt.Errorf("base speeds must be > 0")
	}
	if t.Flock.AvoidRadius <= 0 {
		return fmt.Errorf("flock.avoid_radius must be > 0")
	}
	return nil
}

// MinutesPerSecond resolves a time profile; unknown profiles run at the playa rate.
func (t Tuning) MinutesPerSecond(profile string) float64 {
	if v, ok := t.TimeProfiles[profile]; ok {
		return v
	}
	return t.TimeProfiles["playa"]
}

// Digest is a stable hash of the effective tuning, recorded alongside tick logs.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
