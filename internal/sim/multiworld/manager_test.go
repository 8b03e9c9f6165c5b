package multiworld

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/geom"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/vehicle"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Defaults())
	require.NoError(t, err)
	m.Populate(ports.NewSeededRng(1), catalogs.Builtin())
	return m
}

func TestNewManager_RejectsBadConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Worlds[0].Height = 0
	_, err := NewManager(cfg)
	assert.Error(t, err)
}

func TestCurrentWorldAccessors(t *testing.T) {
	m := newTestManager(t)
	assert.Equal(t, "camp", m.CurrentWorldID())
	w, h := m.CurrentWorldDimensions()
	assert.Equal(t, 800.0, w)
	assert.Equal(t, 600.0, h)
	assert.Equal(t, 1.0, m.CurrentTimeScale())
	assert.True(t, m.InRestArea(geom.V(100, 100)))
	assert.False(t, m.InRestArea(geom.V(500, 500)))
	assert.Empty(t, m.FuelStations())
}

func TestCheckWorldTransition(t *testing.T) {
	m := newTestManager(t)
	_, ok := m.CheckWorldTransition(geom.V(400, 300), 24)
	assert.False(t, ok)

	// The footprint touches the gate before the center does.
	tr, ok := m.CheckWorldTransition(geom.V(770, 300), 24)
	require.True(t, ok)
	assert.Equal(t, Transition{From: "camp", To: "playa", PortalID: "camp_gate", Pos: geom.V(2200, 1500)}, tr)

	_, ok = m.CheckWorldTransition(geom.V(770, 700), 24)
	assert.False(t, ok)

	require.NoError(t, m.SetCurrent("playa"))
	// Arriving on the playa does not immediately bounce back through the home gate.
	_, ok = m.CheckWorldTransition(tr.Pos, 24)
	assert.False(t, ok)
	tr, ok = m.CheckWorldTransition(geom.V(1980, 1480), 24)
	require.True(t, ok)
	assert.Equal(t, "camp", tr.To)
}

func TestSetCurrent_UnknownWorld(t *testing.T) {
	m := newTestManager(t)
	err := m.SetCurrent("moon")
	assert.True(t, errors.Is(err, ErrUnknownWorld))
	assert.Equal(t, "camp", m.CurrentWorldID())

	require.NoError(t, m.SetCurrent("playa"))
	require.NoError(t, m.SetCurrent("camp"))
	require.NoError(t, m.SetCurrent("camp"))
	assert.Equal(t, []TransitionMetric{{From: "camp", To: "playa", Count: 1}, {From: "playa", To: "camp", Count: 1}}, m.TransitionMetrics())
}

func TestMoveVehicle_BetweenStores(t *testing.T) {
	m := newTestManager(t)
	camp := m.Store("camp")
	require.Len(t, camp.Vehicles, 1)
	bike := camp.Vehicles[0]
	playaBefore := len(m.Store("playa").Vehicles)

	require.True(t, m.MoveVehicle(bike.ID, "camp", "playa", geom.V(2200, 1500)))
	assert.Nil(t, m.Store("camp").Vehicle(bike.ID))
	moved := m.Store("playa").Vehicle(bike.ID)
	require.NotNil(t, moved)
	assert.Equal(t, geom.V(2200, 1500), moved.Pos)
	assert.Len(t, m.Store("playa").Vehicles, playaBefore+1)

	v, world := m.VehicleByID(bike.ID)
	assert.Same(t, moved, v)
	assert.Equal(t, "playa", world)

	// Stale id or unknown world: nothing happens.
	assert.False(t, m.MoveVehicle(bike.ID, "camp", "playa", geom.V(1, 1)))
	assert.False(t, m.MoveVehicle(bike.ID, "playa", "moon", geom.V(1, 1)))
	assert.Equal(t, geom.V(2200, 1500), moved.Pos)
}

func TestPopulate_DeterministicAndComplete(t *testing.T) {
	a := newTestManager(t)
	b := newTestManager(t)
	for _, id := range a.WorldIDs() {
		assert.Equal(t, a.Store(id).SortedCollectibles(), b.Store(id).SortedCollectibles(), id)
		assert.Equal(t, a.Store(id).Counts(), b.Store(id).Counts(), id)
	}

	c := a.Store("playa").Counts()
	assert.Equal(t, Counts{Coins: 40, Items: 23, Moop: 30, Cans: 8, Vehicles: 7}, c)

	bounds := geom.RectWH(0, 0, 4000, 3000)
	for _, it := range a.Store("playa").SortedCollectibles() {
		require.True(t, bounds.Contains(it.Pos), it.ID)
	}
	for _, v := range a.Store("playa").Vehicles {
		if v.Kind == "bike" {
			assert.Zero(t, v.FuelMax)
		} else {
			assert.Equal(t, v.FuelMax, v.Fuel)
		}
	}

	require.NoError(t, a.SetCurrent("playa"))
	a.Populate(ports.NewSeededRng(2), nil)
	assert.Equal(t, "camp", a.CurrentWorldID())
}

func TestItems_StaleIDsAreNoOps(t *testing.T) {
	s := NewItems()
	s.AddMoop(Moop{ID: "m1"})
	s.Cans = append(s.Cans, vehicleCan("c1"), vehicleCan("c2"))
	_, ok := s.TakeCollectible("nope")
	assert.False(t, ok)
	assert.False(t, s.RemoveMoop("nope"))
	assert.True(t, s.RemoveMoop("m1"))
	assert.Nil(t, s.RemoveVehicle("nope"))
	assert.Equal(t, 1, s.RemoveCans([]string{"c2", "zz"}))
	assert.Equal(t, 0, s.RemoveCans(nil))
	require.Len(t, s.Cans, 1)

	clone := s.Clone()
	clone.Cans[0].ID = "changed"
	assert.Equal(t, "c1", s.Cans[0].ID)
}

func vehicleCan(id string) vehicle.FuelCan { return vehicle.FuelCan{ID: id} }
