package main

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playasim/internal/persistence/indexdb"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/world"
)

func seedIndex(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.db")
	for i, id := range []string{"old", "new"} {
		idx, err := indexdb.OpenSQLite(path, world.SessionInfo{Session: id, Seed: int64(i), Started: time.Unix(int64(1000+i), 0)})
		require.NoError(t, err)
		for tick := uint64(1); tick <= 3; tick++ {
			require.NoError(t, idx.WriteTick(world.TickLogEntry{
				Tick: tick, DT: 0.016, WorldID: "camp", Digest: id,
				Commands: []world.Command{{Kind: world.CmdMove, DX: 1}},
			}))
		}
		idx.AddNotification(ports.Notification{Tick: 2, Message: "+1 coins", Category: ports.CategoryCoin, Value: 1})
		idx.AddNotification(ports.Notification{Tick: 3, Message: "Picked up Water", Category: ports.CategoryItem})
		require.NoError(t, idx.Close())
	}
	return path
}

func collect(t *testing.T, db *sql.DB, q dbQuery) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, runQuery(db, q, func(v any) {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		out = append(out, m)
	}))
	return out
}

func TestRunQuery(t *testing.T) {
	db, err := sql.Open("sqlite", seedIndex(t))
	require.NoError(t, err)
	defer db.Close()

	sessions := collect(t, db, dbQuery{Kind: "sessions"})
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0]["session"])
	assert.Equal(t, float64(3), sessions[0]["ticks"])

	ticks := collect(t, db, dbQuery{Kind: "ticks", Limit: 2})
	require.Len(t, ticks, 2)
	assert.Equal(t, float64(3), ticks[0]["tick"])
	assert.Equal(t, "new", ticks[0]["digest"])

	cmds := collect(t, db, dbQuery{Kind: "commands", Session: "old"})
	assert.Len(t, cmds, 3)
	assert.Equal(t, "move", cmds[0]["kind"])

	notes := collect(t, db, dbQuery{Kind: "notifications", Category: "coin"})
	require.Len(t, notes, 1)
	assert.Equal(t, "+1 coins", notes[0]["message"])

	assert.Error(t, runQuery(db, dbQuery{Kind: "bogus"}, func(any) {}))
}

func TestListTickFiles(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"ticks-2026-08-30-11.jsonl.zst", "ticks-2026-08-30-10.jsonl.zst", "other.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
	files, err := listTickFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "ticks-2026-08-30-10.jsonl.zst", files[0].Name)
	assert.Equal(t, int64(1), files[0].Size)
}
