package world

import (
	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/flock"
	"playasim/internal/sim/multiworld"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/vehicle"
)

func (e *Engine) publish(digest string) { e.publishWith(digest, nil) }

// publishWith stores a fresh deep copy of the state and fans it out to subscribers.
func (e *Engine) publishWith(digest string, notes []ports.Notification) {
	snap := e.buildSnapshot(digest, notes)
	e.snapshot.Store(snap)

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		sendLatest(ch, snap)
	}
}

func (e *Engine) buildSnapshot(digest string, notes []ports.Notification) *Snapshot {
	s := &e.state
	store := e.worlds.CurrentStore()
	if store == nil {
		store = multiworld.NewItems()
	}

	player := s.Player
	player.Inventory = make(map[catalogs.ItemKind]int, len(s.Player.Inventory))
	for k, n := range s.Player.Inventory {
		player.Inventory[k] = n
	}

	vehicles := make([]*vehicle.Vehicle, 0, len(store.Vehicles))
	for _, v := range store.Vehicles {
		vehicles = append(vehicles, v.Clone())
	}
	var companions []*flock.Companion
	for _, c := range e.simulatedCompanions() {
		companions = append(companions, c.Clone())
	}

	return &Snapshot{
		Tick:          s.Tick,
		Digest:        digest,
		WorldID:       e.worlds.CurrentWorldID(),
		Time:          s.Time,
		Clock:         s.Time.String(),
		Night:         s.Time.IsNight(),
		Weather:       s.Weather,
		Player:        player,
		Effects:       s.Effects.Active(),
		SpeedMult:     s.Effects.SpeedMultiplier(),
		TimeScale:     e.worlds.CurrentTimeScale() * s.Effects.TimeScaleMultiplier(),
		Vehicles:      vehicles,
		Companions:    companions,
		CampPool:      len(s.Pools.Camp),
		ActivePool:    len(s.Pools.Active),
		Collectibles:  store.SortedCollectibles(),
		Moop:          append([]multiworld.Moop(nil), store.Moop...),
		Cans:          append([]vehicle.FuelCan(nil), store.Cans...),
		Counts:        store.Counts(),
		NearbyVehicle: s.nearbyVehicle,
		Paused:        s.Paused,
		GameOver:      s.GameOver,
		Notifications: append([]ports.Notification(nil), notes...),
	}
}
