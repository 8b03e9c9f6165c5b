package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playasim/internal/logging"
	persistlog "playasim/internal/persistence/log"
	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/multiworld"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/tuning"
	"playasim/internal/sim/world"
)

func testConfig() runtimeConfig {
	return runtimeConfig{Tuning: tuning.Defaults(), Catalog: catalogs.Builtin(), Worlds: multiworld.Defaults()}
}

func record(t *testing.T, dir string, seed int64, steps int) {
	t.Helper()
	cfg := testConfig()
	mgr, err := multiworld.NewManager(cfg.Worlds)
	require.NoError(t, err)
	info := world.SessionInfo{Session: "rec", Seed: seed, TuningDigest: cfg.Tuning.Digest(), Started: time.Unix(1700000000, 0).UTC()}
	tl := persistlog.NewTickLogger(dir, info)
	e, err := world.New(world.Deps{
		Tuning:     cfg.Tuning,
		Worlds:     mgr,
		Catalog:    cfg.Catalog,
		Clock:      ports.NewManualClock(info.Started),
		TickLogger: tl,
		Seed:       seed,
	})
	require.NoError(t, err)
	for i := 0; i < steps; i++ {
		var cmds []world.Command
		switch i {
		case 0:
			cmds = []world.Command{{Kind: world.CmdMove, DX: 1, DY: 0.25}}
		case 10:
			cmds = []world.Command{{Kind: world.CmdLight, On: true}}
		case 20:
			cmds = []world.Command{{Kind: world.CmdMove}, {Kind: world.CmdRest, On: true}}
		}
		e.Step(0.05, cmds)
	}
	e.Close()
	require.NoError(t, tl.Close())
}

func TestReplaySession_MatchesRecordedDigests(t *testing.T) {
	dir := t.TempDir()
	record(t, dir, 77, 40)

	sessions, err := persistlog.ReadTickLog(dir)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	res, err := replaySession(testConfig(), sessions[0], 0, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, uint64(40), res.Checked)

	res, err = replaySession(testConfig(), sessions[0], 15, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, uint64(15), res.Checked)
}

func TestReplaySession_DetectsTampering(t *testing.T) {
	dir := t.TempDir()
	record(t, dir, 3, 12)

	sessions, err := persistlog.ReadTickLog(dir)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s := sessions[0]
	s.Entries[5].Commands = append(s.Entries[5].Commands, world.Command{Kind: world.CmdMove, DX: -1})
	_, err = replaySession(testConfig(), s, 0, logging.Discard())
	require.ErrorIs(t, err, errDigestMismatch)

	s.Header.Seed = 4
	_, err = replaySession(testConfig(), s, 0, logging.Discard())
	require.ErrorIs(t, err, errDigestMismatch)
}

func TestReplaySession_TickGap(t *testing.T) {
	s := persistlog.Session{
		Header:  world.SessionInfo{Session: "gap", Seed: 1},
		Entries: []world.TickLogEntry{{Tick: 2, DT: 0.016}},
	}
	_, err := replaySession(testConfig(), s, 0, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick gap")
}
