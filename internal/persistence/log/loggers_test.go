package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playasim/internal/sim/world"
)

func TestTickLogger_RotatesHourlyAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	info := world.SessionInfo{Session: "s1", Seed: 42, TuningDigest: "abc", Started: time.Unix(0, 0).UTC()}
	l := NewTickLogger(dir, info)
	now := time.Date(2026, 8, 30, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return now }

	require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: 1, DT: 0.016, WorldID: "camp", Digest: "d1"}))
	require.NoError(t, l.WriteTick(world.TickLogEntry{
		Tick: 2, DT: 0.016, WorldID: "camp", Digest: "d2",
		Commands: []world.Command{{Kind: world.CmdMove, DX: 1}},
	}))
	now = now.Add(2 * time.Minute)
	require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: 3, DT: 0.016, WorldID: "playa", Digest: "d3"}))
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "ticks-*.jsonl.zst"))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	sessions, err := ReadTickLog(dir)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(42), sessions[0].Header.Seed)
	assert.Equal(t, "abc", sessions[0].Header.TuningDigest)
	require.Len(t, sessions[0].Entries, 3)
	assert.Equal(t, uint64(3), sessions[0].Entries[2].Tick)
	assert.Equal(t, "playa", sessions[0].Entries[2].WorldID)
	require.Len(t, sessions[0].Entries[1].Commands, 1)
	assert.Equal(t, world.CmdMove, sessions[0].Entries[1].Commands[0].Kind)
}

func TestTickLogger_SecondSessionAppendsToSameHour(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second"} {
		l := NewTickLogger(dir, world.SessionInfo{Session: id, Seed: int64(i)})
		l.w.now = func() time.Time { return now }
		require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: uint64(i + 1), Digest: id}))
		require.NoError(t, l.Close())
	}

	sessions, err := ReadTickLog(dir)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "first", sessions[0].Header.Session)
	assert.Equal(t, "second", sessions[1].Header.Session)
	require.Len(t, sessions[1].Entries, 1)
	assert.Equal(t, "second", sessions[1].Entries[0].Digest)
}

func TestReadTickLog_EmptyDir(t *testing.T) {
	sessions, err := ReadTickLog(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
