package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playasim/internal/protocol"
	"playasim/internal/sim/multiworld"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/tuning"
	"playasim/internal/sim/world"
)

func newTestServer(t *testing.T) (*world.Engine, string) {
	t.Helper()
	mgr, err := multiworld.NewManager(multiworld.Defaults())
	require.NoError(t, err)
	e, err := world.New(world.Deps{
		Tuning: tuning.Defaults(),
		Worlds: mgr,
		Clock:  ports.NewManualClock(time.Unix(1700000000, 0)),
		Seed:   9,
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	srv := httptest.NewServer(NewServer(e, "sess-1", nil).Handler())
	t.Cleanup(srv.Close)
	return e, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))
}

func readFrame(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	base, err := protocol.DecodeBase(msg)
	require.NoError(t, err)
	return base.Type, msg
}

func hello() protocol.HelloMsg {
	return protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test"}
}

func TestServer_HandshakeCommandsAndSnapshots(t *testing.T) {
	e, url := newTestServer(t)
	conn := dial(t, url)

	send(t, conn, hello())
	typ, msg := readFrame(t, conn)
	require.Equal(t, protocol.TypeWelcome, typ)
	var w protocol.WelcomeMsg
	require.NoError(t, json.Unmarshal(msg, &w))
	assert.Equal(t, "sess-1", w.SessionID)
	assert.Equal(t, "camp", w.CurrentWorldID)
	assert.Equal(t, int64(9), w.WorldParams.Seed)
	assert.Equal(t, e.Tuning().Digest(), w.Catalogs.Tuning)
	assert.NotEmpty(t, w.Catalogs.Consumables)
	assert.NotEmpty(t, w.WorldManifest)

	typ, msg = readFrame(t, conn)
	require.Equal(t, protocol.TypeSnapshot, typ)
	var snap protocol.SnapshotMsg
	require.NoError(t, json.Unmarshal(msg, &snap))
	assert.Equal(t, uint64(0), snap.Tick)
	assert.Equal(t, e.Snapshot().Digest, snap.Digest)

	send(t, conn, protocol.CmdMsg{
		Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, Ref: "c1",
		Cmd: protocol.CmdBody{Kind: "move", DX: 1},
	})
	typ, msg = readFrame(t, conn)
	require.Equal(t, protocol.TypeAck, typ)
	var ack protocol.AckMsg
	require.NoError(t, json.Unmarshal(msg, &ack))
	assert.True(t, ack.Accepted)
	assert.Equal(t, "c1", ack.AckFor)

	send(t, conn, map[string]any{
		"type": protocol.TypeCmd, "protocol_version": protocol.Version,
		"cmd": map[string]any{"kind": "fly"},
	})
	typ, msg = readFrame(t, conn)
	require.Equal(t, protocol.TypeError, typ)
	var em protocol.ErrorMsg
	require.NoError(t, json.Unmarshal(msg, &em))
	assert.Equal(t, protocol.ErrProtoSchema, em.Code)

	tick, digest := e.Step(0.016, []world.Command{{Kind: world.CmdMove, DX: 1}})
	typ, msg = readFrame(t, conn)
	require.Equal(t, protocol.TypeSnapshot, typ)
	require.NoError(t, json.Unmarshal(msg, &snap))
	assert.Equal(t, tick, snap.Tick)
	assert.Equal(t, digest, snap.Digest)
}

func TestServer_RejectsNonHello(t *testing.T) {
	_, url := newTestServer(t)
	conn := dial(t, url)

	send(t, conn, protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, Cmd: protocol.CmdBody{Kind: "pause"}})
	typ, msg := readFrame(t, conn)
	require.Equal(t, protocol.TypeError, typ)
	var em protocol.ErrorMsg
	require.NoError(t, json.Unmarshal(msg, &em))
	assert.Equal(t, protocol.ErrProtoBadRequest, em.Code)

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func TestServer_RejectsWrongVersion(t *testing.T) {
	_, url := newTestServer(t)
	conn := dial(t, url)

	h := hello()
	h.ProtocolVersion = "0.1"
	send(t, conn, h)
	typ, msg := readFrame(t, conn)
	require.Equal(t, protocol.TypeError, typ)
	var em protocol.ErrorMsg
	require.NoError(t, json.Unmarshal(msg, &em))
	assert.Equal(t, protocol.ErrProtoVersion, em.Code)
}

func TestToCommand(t *testing.T) {
	on := true
	seed := int64(5)
	c := toCommand(protocol.CmdBody{Kind: "rest", On: &on})
	assert.Equal(t, world.Command{Kind: world.CmdRest, On: true}, c)
	c = toCommand(protocol.CmdBody{Kind: "restart", Seed: &seed})
	assert.Equal(t, world.Command{Kind: world.CmdRestart, Seed: 5}, c)
}
