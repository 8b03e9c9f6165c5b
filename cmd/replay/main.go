package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"playasim/internal/logging"
	persistlog "playasim/internal/persistence/log"
	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/multiworld"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/tuning"
	"playasim/internal/sim/world"
)

type runtimeConfig struct {
	Tuning  tuning.Tuning
	Catalog *catalogs.Catalog
	Worlds  multiworld.Config
}

type result struct {
	Session string
	Checked uint64
	Elapsed time.Duration
}

var errDigestMismatch = errors.New("digest mismatch")

func main() {
	var (
		ticksDir   = flag.String("ticks", "./data/ticks", "directory containing ticks-*.jsonl.zst")
		configDir  = flag.String("configs", "./configs", "config directory")
		session    = flag.String("session", "", "only replay this session id (default: all)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		allowDrift = flag.Bool("allow_config_drift", false, "replay even when config digests differ from the recorded ones")
		logLevel   = flag.String("log_level", "warn", "log level")
	)
	flag.Parse()

	logger := logging.New(logging.Options{Level: *logLevel})

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load configs:", err)
		os.Exit(1)
	}

	var logBytes uint64
	files, _ := filepath.Glob(filepath.Join(*ticksDir, "ticks-*.jsonl.zst"))
	for _, f := range files {
		if st, err := os.Stat(f); err == nil {
			logBytes += uint64(st.Size())
		}
	}
	sessions, err := persistlog.ReadTickLog(*ticksDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read tick log:", err)
		os.Exit(1)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no tick logs found in", *ticksDir)
		os.Exit(1)
	}
	fmt.Printf("read %d files (%s), %d sessions\n", len(files), humanize.Bytes(logBytes), len(sessions))

	var total uint64
	for _, s := range sessions {
		if *session != "" && s.Header.Session != *session {
			continue
		}
		if d := cfg.Tuning.Digest(); d != s.Header.TuningDigest && !*allowDrift {
			fmt.Fprintf(os.Stderr, "session %s: tuning digest %s differs from recorded %s\n", s.Header.Session, short(d), short(s.Header.TuningDigest))
			os.Exit(1)
		}
		if s.Header.CatalogDigest != "" && cfg.Catalog.Digest != s.Header.CatalogDigest && !*allowDrift {
			fmt.Fprintf(os.Stderr, "session %s: catalog digest differs from recorded\n", s.Header.Session)
			os.Exit(1)
		}
		res, err := replaySession(cfg, s, *toTick, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "session %s: %v\n", s.Header.Session, err)
			os.Exit(1)
		}
		total += res.Checked
		fmt.Printf("session %s seed=%d started %s: %s ticks ok in %s\n",
			res.Session, s.Header.Seed, humanize.Time(s.Header.Started), humanize.Comma(int64(res.Checked)), res.Elapsed.Round(time.Millisecond))
	}
	fmt.Printf("replay ok: checked=%s ticks\n", humanize.Comma(int64(total)))
}

func loadConfig(dir string) (runtimeConfig, error) {
	var cfg runtimeConfig
	t, err := tuning.Load(filepath.Join(dir, "tuning.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
		t = tuning.Defaults()
	}
	cat, err := catalogs.Load(existing(filepath.Join(dir, "consumables.yaml")))
	if err != nil {
		return cfg, err
	}
	w, err := multiworld.Load(existing(filepath.Join(dir, "worlds.yaml")))
	if err != nil {
		return cfg, err
	}
	return runtimeConfig{Tuning: t, Catalog: cat, Worlds: w}, nil
}

func existing(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// replaySession rebuilds a fresh engine from the recorded seed and feeds it every recorded tick,
// comparing digests as it goes.
func replaySession(cfg runtimeConfig, s persistlog.Session, toTick uint64, log logrus.FieldLogger) (result, error) {
	res := result{Session: s.Header.Session}
	mgr, err := multiworld.NewManager(cfg.Worlds)
	if err != nil {
		return res, err
	}
	e, err := world.New(world.Deps{
		Tuning:  cfg.Tuning,
		Worlds:  mgr,
		Catalog: cfg.Catalog,
		Clock:   ports.NewManualClock(s.Header.Started),
		Log:     log,
		Seed:    s.Header.Seed,
	})
	if err != nil {
		return res, err
	}
	defer e.Close()

	start := time.Now()
	want := e.Snapshot().Tick + 1
	for _, entry := range s.Entries {
		if toTick != 0 && entry.Tick > toTick {
			break
		}
		if entry.Tick != want {
			return res, fmt.Errorf("tick gap: want=%d got=%d", want, entry.Tick)
		}
		tick, digest := e.Step(entry.DT, entry.Commands)
		if tick != entry.Tick {
			return res, fmt.Errorf("internal tick mismatch: stepped=%d entry=%d", tick, entry.Tick)
		}
		if !strings.EqualFold(digest, entry.Digest) {
			return res, fmt.Errorf("%w at tick %d: got=%s want=%s", errDigestMismatch, tick, short(digest), short(entry.Digest))
		}
		res.Checked++
		want++
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func short(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
