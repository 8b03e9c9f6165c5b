package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playasim/internal/observerproto"
	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/geom"
	"playasim/internal/sim/multiworld"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/stats"
	"playasim/internal/sim/tuning"
	"playasim/internal/sim/world"
)

func newEngine(t *testing.T) *world.Engine {
	t.Helper()
	mgr, err := multiworld.NewManager(multiworld.Defaults())
	require.NoError(t, err)
	e, err := world.New(world.Deps{
		Tuning: tuning.Defaults(),
		Worlds: mgr,
		Clock:  ports.NewManualClock(time.Unix(1700000000, 0)),
		Seed:   5,
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestFrame_FiltersByRadius(t *testing.T) {
	snap := &world.Snapshot{
		Tick:    12,
		WorldID: "playa",
		Clock:   "Day 1 21:00",
		Night:   true,
		Weather: world.Weather{Kind: world.WeatherDustStorm},
		Player: world.Player{
			Pos:   geom.V(100, 100),
			Stats: stats.Fresh(),
		},
		Collectibles: []multiworld.Collectible{
			{ID: "near-coin", Kind: multiworld.CollectCoin, Value: 1, Pos: geom.V(110, 100)},
			{ID: "near-water", Kind: multiworld.CollectItem, Item: catalogs.ItemWater, Pos: geom.V(100, 150)},
			{ID: "far", Kind: multiworld.CollectCoin, Pos: geom.V(900, 900)},
		},
		Moop:          []multiworld.Moop{{ID: "m1", Pos: geom.V(101, 101)}, {ID: "m2", Pos: geom.V(1000, 0)}},
		Notifications: []ports.Notification{{Message: "+1 coins", Category: ports.CategoryCoin, Value: 1}},
	}
	m := Frame(snap, observerproto.SubscribeMsg{Radius: 100, MaxItems: 10})
	assert.Equal(t, "TICK", m.Type)
	assert.Equal(t, uint64(12), m.Tick)
	assert.Equal(t, "dust_storm", m.Weather)
	assert.True(t, m.Night)
	require.Len(t, m.Items, 2)
	assert.Equal(t, "coin", m.Items[0].Kind)
	assert.Equal(t, "water", m.Items[1].Kind)
	assert.Equal(t, [][2]float64{{101, 101}}, m.Moop)
	require.Len(t, m.Events, 1)
	assert.Equal(t, "coin", m.Events[0].Category)

	m = Frame(snap, observerproto.SubscribeMsg{Radius: 100, MaxItems: 1})
	assert.Len(t, m.Items, 1)
}

func TestNormalizeSubscribe(t *testing.T) {
	sub := observerproto.SubscribeMsg{Radius: -1, MaxItems: 1 << 20}
	normalizeSubscribe(&sub)
	assert.Equal(t, 400.0, sub.Radius)
	assert.Equal(t, 4096, sub.MaxItems)
}

func TestServer_StreamsTicks(t *testing.T) {
	e := newEngine(t)
	s := NewServer(e, "sess", nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/ws", s.WSHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/bootstrap")
	require.NoError(t, err)
	var boot observerproto.BootstrapResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&boot))
	_ = resp.Body.Close()
	assert.Equal(t, "sess", boot.SessionID)
	assert.Equal(t, int64(5), boot.Seed)
	assert.Equal(t, "camp", boot.WorldID)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version}))

	read := func() observerproto.TickMsg {
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var m observerproto.TickMsg
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}
	first := read()
	assert.Equal(t, uint64(0), first.Tick)

	tick, _ := e.Step(0.016, nil)
	next := read()
	assert.Equal(t, tick, next.Tick)
	assert.Equal(t, "camp", next.WorldID)
}
