package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playasim/internal/sim/geom"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/world"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: world.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})
	s.AddNotification(ports.Notification{Tick: 2, Message: "+1 coins"})
	s.AddNotification(ports.Notification{Tick: 2, Message: "+1 coins"})

	st := s.Stats()
	assert.Equal(t, uint64(1), st.DropTickTotal)
	assert.Equal(t, uint64(2), st.DropNotificationTotal)
	assert.Equal(t, 1, st.QueueDepth)
	assert.Equal(t, 1, st.QueueCapacity)
}

func TestSQLiteIndex_NilIsNoop(t *testing.T) {
	var s *SQLiteIndex
	require.NoError(t, s.WriteTick(world.TickLogEntry{Tick: 1}))
	s.AddNotification(ports.Notification{})
	assert.Equal(t, Stats{}, s.Stats())
}

func TestOpenSQLite_RejectsEmptyArgs(t *testing.T) {
	_, err := OpenSQLite("", world.SessionInfo{Session: "x"})
	assert.Error(t, err)
	_, err = OpenSQLite(filepath.Join(t.TempDir(), "i.db"), world.SessionInfo{})
	assert.Error(t, err)
}

func TestSQLiteIndex_RecordsTicksAndNotifications(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "sim.db")
	idx, err := OpenSQLite(path, world.SessionInfo{Session: "s1", Seed: 7, TuningDigest: "td", Started: time.Unix(100, 0)})
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.WriteTick(world.TickLogEntry{
		Tick: 1, DT: 0.016, WorldID: "camp", Digest: "aaa",
		Commands: []world.Command{{Kind: world.CmdMove, DX: 1}, {Kind: world.CmdRest, On: true}},
	}))
	require.NoError(t, idx.WriteTick(world.TickLogEntry{Tick: 2, DT: 0.016, WorldID: "camp", Digest: "bbb"}))
	idx.AddNotification(ports.Notification{Tick: 2, Message: "+1 coins", Category: ports.CategoryCoin, Value: 1, Pos: geom.Vec2{X: 3, Y: 4}})
	idx.AddNotification(ports.Notification{Tick: 2, Message: "+1 coins", Category: ports.CategoryCoin, Value: 1})
	idx.AddNotification(ports.Notification{Tick: 2, Message: "Picked up Water", Category: ports.CategoryItem})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d, ok, err := idx.TickDigest(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bbb", d)

	_, ok, err = idx.TickDigest(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)

	counts, err := idx.NotificationCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[ports.Category]int{ports.CategoryCoin: 2, ports.CategoryItem: 1}, counts)

	var n int
	require.NoError(t, idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commands WHERE session='s1' AND tick=1`).Scan(&n))
	assert.Equal(t, 2, n)
	var seed int64
	require.NoError(t, idx.db.QueryRowContext(ctx, `SELECT seed FROM sessions WHERE session='s1'`).Scan(&seed))
	assert.Equal(t, int64(7), seed)

	require.NoError(t, idx.Close())
	require.NoError(t, idx.WriteTick(world.TickLogEntry{Tick: 3}))
	assert.Zero(t, idx.Stats().DropTickTotal)
}
