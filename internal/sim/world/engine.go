package world

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/flock"
	"playasim/internal/sim/gametime"
	"playasim/internal/sim/multiworld"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/spatial"
	"playasim/internal/sim/stats"
	"playasim/internal/sim/substance"
	"playasim/internal/sim/tuning"
	"playasim/internal/sim/vehicle"
)

const commandQueueSize = 256

type Deps struct {
	Tuning  tuning.Tuning
	Worlds  *multiworld.Manager
	Catalog *catalogs.Catalog

	Clock    ports.Clock
	Rng      ports.Rng
	Audio    ports.AudioPort
	Notifier ports.Notifier

	Log        logrus.FieldLogger
	TickLogger TickLogger
	Seed       int64
}

// Engine runs the simulation. Step is the only writer of the state; everything else reads
// snapshots or enqueues commands.
type Engine struct {
	tuning  tuning.Tuning
	worlds  *multiworld.Manager
	catalog *catalogs.Catalog
	seed    int64

	clock    ports.Clock
	rng      ports.Rng
	audio    ports.AudioPort
	notifier ports.Notifier
	log      logrus.FieldLogger
	tickLog  TickLogger

	vehicles *vehicle.Controller
	flock    *flock.Controller
	index    *spatial.Grid

	cmds   chan Command
	closed atomic.Bool

	stepMu sync.Mutex
	state  GameState
	notes  []ports.Notification
	sounds []sound

	snapshot atomic.Pointer[Snapshot]

	subMu   sync.Mutex
	subs    map[uint64]chan *Snapshot
	nextSub uint64

	loopMu  sync.Mutex
	running bool
	frame   ports.FrameHandle
	last    time.Time
}

func New(d Deps) (*Engine, error) {
	if d.Worlds == nil {
		return nil, errors.New("world manager is required")
	}
	if err := d.Tuning.Validate(); err != nil {
		return nil, err
	}
	if d.Catalog == nil {
		d.Catalog = catalogs.Builtin()
	}
	if d.Clock == nil {
		d.Clock = ports.NewTickerClock(d.Tuning.FrameRateHz)
	}
	if d.Rng == nil {
		d.Rng = ports.NewSeededRng(d.Seed)
	}
	if d.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		d.Log = l
	}
	if d.Audio == nil {
		d.Audio = ports.NewLogAudio(d.Log)
	}
	if d.Notifier == nil {
		d.Notifier = ports.NewNotificationLog(200)
	}

	e := &Engine{
		tuning:   d.Tuning,
		worlds:   d.Worlds,
		catalog:  d.Catalog,
		seed:     d.Seed,
		clock:    d.Clock,
		rng:      d.Rng,
		audio:    d.Audio,
		notifier: d.Notifier,
		log:      d.Log.WithField("component", "engine"),
		tickLog:  d.TickLogger,
		vehicles: &vehicle.Controller{Tuning: d.Tuning.Vehicles, Rng: d.Rng},
		flock:    &flock.Controller{Tuning: d.Tuning.Flock, Rng: d.Rng},
		cmds:     make(chan Command, commandQueueSize),
		subs:     map[uint64]chan *Snapshot{},
	}
	e.reset(d.Seed)
	e.publish(e.stateDigest())
	return e, nil
}

// reset seeds the rng and rebuilds the whole run: item stores, companions, player and clock.
func (e *Engine) reset(seed int64) {
	e.rng.SetSeed(seed)
	e.worlds.Populate(e.rng, e.catalog)

	spec := e.worlds.CurrentSpec()
	home := spec.Spawn.Vec()
	if camp, ok := e.campSpec(); ok {
		home = camp.Spawn.Vec()
	}
	tick := e.state.Tick
	e.state = GameState{
		Tick:    tick,
		Time:    gametime.New(e.tuning.StartHour),
		Weather: Weather{Kind: WeatherClear},
		Player: Player{
			Pos:       spec.Spawn.Vec(),
			LastPos:   spec.Spawn.Vec(),
			Stats:     stats.Fresh(),
			Inventory: map[catalogs.ItemKind]int{},
		},
		Effects: substance.NewStack(e.tuning.Substance.MaxStack, e.catalog),
		Pools:   flock.NewPools(e.worlds.Config().Companions, home, stats.Fresh().Mood),
	}
	e.rebuildIndex()
}

func (e *Engine) campSpec() (multiworld.WorldSpec, bool) {
	for _, w := range e.worlds.Config().Worlds {
		if w.Type == multiworld.TypeCamp {
			return w, true
		}
	}
	return multiworld.WorldSpec{}, false
}

// rebuildIndex resizes the spatial grid to the current world and refills it with that world's
// collectibles.
func (e *Engine) rebuildIndex() {
	w, h := e.worlds.CurrentWorldDimensions()
	var ents []spatial.Entity
	if store := e.worlds.CurrentStore(); store != nil {
		for _, c := range store.SortedCollectibles() {
			ents = append(ents, spatial.Entity{ID: c.ID, Pos: c.Pos})
		}
	}
	if e.index == nil {
		e.index = spatial.NewGrid(w, h, e.tuning.SpatialCellSize)
	}
	e.index.Rebuild(w, h, e.tuning.SpatialCellSize, ents)
}

// Submit queues a command for the next tick. It never blocks.
func (e *Engine) Submit(cmd Command) error {
	if e.closed.Load() {
		return ErrStopped
	}
	select {
	case e.cmds <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

func (e *Engine) drain() []Command {
	var out []Command
	for {
		select {
		case c := <-e.cmds:
			out = append(out, c)
		default:
			return out
		}
	}
}

// Snapshot returns the state published by the latest tick. Callers must not mutate it.
func (e *Engine) Snapshot() *Snapshot { return e.snapshot.Load() }

func (e *Engine) Worlds() *multiworld.Manager { return e.worlds }

func (e *Engine) Tuning() tuning.Tuning { return e.tuning }

func (e *Engine) Catalog() *catalogs.Catalog { return e.catalog }

// Seed is the seed the engine was built with. Restart commands carry their own.
func (e *Engine) Seed() int64 { return e.seed }

// Subscribe returns a channel that always holds the most recent snapshots; slow readers lose the
// oldest ones.
func (e *Engine) Subscribe(buf int) (uint64, <-chan *Snapshot) {
	if buf <= 0 {
		buf = 1
	}
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.nextSub++
	ch := make(chan *Snapshot, buf)
	e.subs[e.nextSub] = ch
	if s := e.snapshot.Load(); s != nil {
		ch <- s
	}
	return e.nextSub, ch
}

func (e *Engine) Unsubscribe(id uint64) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if ch, ok := e.subs[id]; ok {
		delete(e.subs, id)
		close(ch)
	}
}

// Close stops the frame loop, rejects further commands and closes every subscription.
func (e *Engine) Close() {
	if e.closed.Swap(true) {
		return
	}
	e.Stop()
	// Wait out a step already in flight.
	e.stepMu.Lock()
	e.stepMu.Unlock()

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}

func sendLatest(ch chan *Snapshot, s *Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
