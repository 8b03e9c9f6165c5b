package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"playasim/internal/logging"
	"playasim/internal/persistence/indexdb"
	persistlog "playasim/internal/persistence/log"
	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/multiworld"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/tuning"
	"playasim/internal/sim/world"
	"playasim/internal/transport/observer"
	"playasim/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		seed        = flag.Int64("seed", 1337, "simulation seed")
		configDir   = flag.String("configs", "./configs", "config directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		worldsPath  = flag.String("worlds", "", "path to worlds.yaml (default: <configs>/worlds.yaml)")
		consumables = flag.String("consumables", "", "path to consumables.yaml (default: <configs>/consumables.yaml)")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite index")
		logLevel    = flag.String("log_level", "", "log level (default: LOG_LEVEL or info)")
		logFormat   = flag.String("log_format", "", "text or json (default: LOG_FORMAT or text)")
	)
	flag.Parse()

	logger := logging.New(logging.Options{Level: *logLevel, Format: *logFormat})

	tune, err := tuning.Load(orDefault(*tuningPath, *configDir, "tuning.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Warn("tuning.yaml not found; using defaults")
		tune = tuning.Defaults()
	}
	cat, err := catalogs.Load(existing(orDefault(*consumables, *configDir, "consumables.yaml")))
	if err != nil {
		logger.Fatalf("load consumables: %v", err)
	}
	wcfg, err := multiworld.Load(existing(orDefault(*worldsPath, *configDir, "worlds.yaml")))
	if err != nil {
		logger.Fatalf("load worlds config: %v", err)
	}
	mgr, err := multiworld.NewManager(wcfg)
	if err != nil {
		logger.Fatalf("worlds: %v", err)
	}

	info := world.SessionInfo{
		Session:       uuid.NewString(),
		Seed:          *seed,
		TuningDigest:  tune.Digest(),
		CatalogDigest: cat.Digest,
		Started:       time.Now().UTC(),
	}
	log := logger.WithField("session", info.Session)

	tickLog := persistlog.NewTickLogger(filepath.Join(*dataDir, "ticks"), info)
	defer tickLog.Close()

	feed := ports.NewNotificationLog(500)
	var (
		idx      *indexdb.SQLiteIndex
		notifier ports.Notifier   = feed
		ticks    world.TickLogger = tickLog
	)
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "sim.db"), info)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		notifier = ports.MultiNotifier{feed, idx}
		ticks = multiTickLogger{a: tickLog, b: idx}
	}

	e, err := world.New(world.Deps{
		Tuning:     tune,
		Worlds:     mgr,
		Catalog:    cat,
		Clock:      ports.NewTickerClock(tune.FrameRateHz),
		Notifier:   notifier,
		Audio:      ports.NewLogAudio(log),
		Log:        log,
		TickLogger: ticks,
		Seed:       *seed,
	})
	if err != nil {
		logger.Fatalf("engine: %v", err)
	}
	defer e.Close()

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := e.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("engine stopped")
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, e, idx)
	})
	mux.HandleFunc("/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(e.Snapshot())
	})
	mux.HandleFunc("/v1/notifications", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		if c := strings.TrimSpace(r.URL.Query().Get("category")); c != "" {
			_ = json.NewEncoder(rw).Encode(feed.ByCategory(ports.Category(c)))
			return
		}
		_ = json.NewEncoder(rw).Encode(feed.All())
	})
	mux.Handle("/v1/ws", ws.NewServer(e, info.Session, log).Handler())

	obs := observer.NewServer(e, info.Session, log)
	mux.HandleFunc("/admin/v1/observer/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/admin/v1/observer/ws", obs.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	log.WithFields(logrus.Fields{"addr": *addr, "seed": *seed, "world": mgr.CurrentWorldID()}).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	log.Info("shutdown")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func orDefault(path, configDir, name string) string {
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	return filepath.Join(configDir, name)
}

// existing maps a missing optional config file to "", which the loaders read as built-in defaults.
func existing(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func writeMetrics(rw http.ResponseWriter, e *world.Engine, idx *indexdb.SQLiteIndex) {
	if snap := e.Snapshot(); snap != nil {
		fmt.Fprintf(rw, "# HELP playasim_tick Current simulation tick.\n")
		fmt.Fprintf(rw, "# TYPE playasim_tick gauge\n")
		fmt.Fprintf(rw, "playasim_tick %d\n", snap.Tick)

		fmt.Fprintf(rw, "# HELP playasim_collectibles Collectibles left in the current world.\n")
		fmt.Fprintf(rw, "# TYPE playasim_collectibles gauge\n")
		fmt.Fprintf(rw, "playasim_collectibles{world=%q} %d\n", snap.WorldID, len(snap.Collectibles))

		fmt.Fprintf(rw, "# HELP playasim_companions_active Companions following the player.\n")
		fmt.Fprintf(rw, "# TYPE playasim_companions_active gauge\n")
		fmt.Fprintf(rw, "playasim_companions_active %d\n", snap.ActivePool)
	}
	for _, m := range e.Worlds().TransitionMetrics() {
		fmt.Fprintf(rw, "playasim_transitions_total{from=%q,to=%q} %d\n", m.From, m.To, m.Count)
	}
	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP playasim_index_queue_depth Current index writer queue depth.\n")
	fmt.Fprintf(rw, "# TYPE playasim_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "playasim_index_queue_depth %d\n", s.QueueDepth)
	fmt.Fprintf(rw, "playasim_index_queue_capacity %d\n", s.QueueCapacity)
	fmt.Fprintf(rw, "playasim_index_drop_tick_total %d\n", s.DropTickTotal)
	fmt.Fprintf(rw, "playasim_index_drop_notification_total %d\n", s.DropNotificationTotal)
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	var err error
	if m.a != nil {
		err = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return err
}
