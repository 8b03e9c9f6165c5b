package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/flock"
	"playasim/internal/sim/geom"
)

func (e *Engine) stateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	e.digestHeader(h, &tmp)
	e.digestPlayer(h, &tmp)
	e.digestEffects(h, &tmp)
	e.digestWorlds(h, &tmp)
	e.digestCompanions(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (e *Engine) digestHeader(h hashWriter, tmp *[8]byte) {
	s := &e.state
	digestWriteU64(h, tmp, s.Tick)
	digestWriteString(h, tmp, e.worlds.CurrentWorldID())
	digestWriteI64(h, tmp, s.Time.TotalMinutes)
	digestWriteF64(h, tmp, s.Time.Carry)
	digestWriteString(h, tmp, string(s.Weather.Kind))
	digestWriteI64(h, tmp, s.Weather.UntilMinute)
	h.Write([]byte{boolByte(s.Paused), boolByte(s.GameOver)})
}

func (e *Engine) digestPlayer(h hashWriter, tmp *[8]byte) {
	p := &e.state.Player
	digestWriteVec(h, tmp, p.Pos)
	digestWriteVec(h, tmp, p.LastPos)
	digestWriteVec(h, tmp, p.Input)
	digestWriteF64(h, tmp, p.Heading)

	st := p.Stats
	digestWriteI64(h, tmp, st.Coins)
	digestWriteI64(h, tmp, st.Karma)
	for _, v := range []float64{st.Energy, st.Mood, st.Thirst, st.Hunger, st.Bathroom, st.Speed, st.LightBattery} {
		digestWriteF64(h, tmp, v)
	}

	kinds := make([]catalogs.ItemKind, 0, len(p.Inventory))
	for k, n := range p.Inventory {
		if n != 0 {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	digestWriteU64(h, tmp, uint64(len(kinds)))
	for _, k := range kinds {
		h.Write([]byte{byte(k)})
		digestWriteI64(h, tmp, int64(p.Inventory[k]))
	}

	h.Write([]byte{boolByte(p.Resting), boolByte(p.LightOn), boolByte(p.TotemEquipped)})
	digestWriteString(h, tmp, p.MountedVehicle)

	pe := e.state.pending
	for _, v := range []float64{pe.Energy, pe.Mood, pe.Thirst, pe.Hunger, pe.Bathroom, pe.Speed, e.state.restGain} {
		digestWriteF64(h, tmp, v)
	}
}

func (e *Engine) digestEffects(h hashWriter, tmp *[8]byte) {
	active := e.state.Effects.Active()
	digestWriteU64(h, tmp, uint64(len(active)))
	for _, fx := range active {
		h.Write([]byte{byte(fx.Kind)})
		digestWriteU64(h, tmp, uint64(math.Float32bits(fx.Intensity)))
		digestWriteU64(h, tmp, uint64(math.Float32bits(fx.RemainingSeconds)))
	}
}

// digestWorlds covers every world, frozen ones included, in configuration order.
func (e *Engine) digestWorlds(h hashWriter, tmp *[8]byte) {
	for _, w := range e.worlds.Config().Worlds {
		store := e.worlds.Store(w.ID)
		if store == nil {
			continue
		}
		digestWriteString(h, tmp, w.ID)
		c := store.Counts()
		for _, n := range []int{c.Coins, c.Items, c.Moop, c.Cans, c.Vehicles} {
			digestWriteU64(h, tmp, uint64(n))
		}
		for _, col := range store.SortedCollectibles() {
			digestWriteString(h, tmp, col.ID)
			digestWriteVec(h, tmp, col.Pos)
		}
		for _, m := range store.Moop {
			digestWriteString(h, tmp, m.ID)
			digestWriteVec(h, tmp, m.Pos)
		}
		for _, can := range store.Cans {
			digestWriteString(h, tmp, can.ID)
			digestWriteVec(h, tmp, can.Pos)
		}
		for _, v := range store.Vehicles {
			digestWriteString(h, tmp, v.ID)
			digestWriteVec(h, tmp, v.Pos)
			digestWriteF64(h, tmp, v.Fuel)
			h.Write([]byte{byte(v.State), boolByte(v.HasWaypoint)})
			digestWriteVec(h, tmp, v.Waypoint)
		}
	}
}

func (e *Engine) digestCompanions(h hashWriter, tmp *[8]byte) {
	for _, pool := range [][]*flock.Companion{e.state.Pools.Camp, e.state.Pools.Active} {
		digestWriteU64(h, tmp, uint64(len(pool)))
		for _, c := range pool {
			digestWriteString(h, tmp, c.ID)
			digestWriteVec(h, tmp, c.Pos)
			digestWriteVec(h, tmp, c.Target)
			digestWriteF64(h, tmp, c.Mood)
		}
	}
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteVec(h hashWriter, tmp *[8]byte, v geom.Vec2) {
	digestWriteF64(h, tmp, v.X)
	digestWriteF64(h, tmp, v.Y)
}

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
