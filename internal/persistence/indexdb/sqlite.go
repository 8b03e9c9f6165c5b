package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"playasim/internal/sim/ports"
	"playasim/internal/sim/world"
)

// SQLiteIndex is a queryable secondary copy of the tick log and the notification stream. Writes are
// queued and applied by one goroutine in batched transactions; the JSONL tick log stays authoritative.
type SQLiteIndex struct {
	db      *sql.DB
	session string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick         atomic.Uint64
	dropNotification atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqNotification
	reqFlush
)

type req struct {
	kind reqKind

	tick  world.TickLogEntry
	note  ports.Notification
	flush chan struct{}
}

type Stats struct {
	DropTickTotal         uint64
	DropNotificationTotal uint64
	QueueDepth            int
	QueueCapacity         int
}

const queueCapacity = 65536

func OpenSQLite(path string, info world.SessionInfo) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if info.Session == "" {
		return nil, fmt.Errorf("empty session id")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := insertSession(db, info); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:      db,
		session: info.Session,
		ch:      make(chan req, queueCapacity),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			tuning_digest TEXT NOT NULL,
			catalog_digest TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			session TEXT NOT NULL,
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			dt REAL NOT NULL,
			world TEXT NOT NULL,
			commands INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (session, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			session TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			json TEXT NOT NULL,
			PRIMARY KEY (session, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_kind ON commands(session, kind, tick);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			session TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			category TEXT NOT NULL,
			message TEXT NOT NULL,
			value REAL NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			PRIMARY KEY (session, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_category ON notifications(session, category, tick);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func insertSession(db *sql.DB, info world.SessionInfo) error {
	started := info.Started
	if started.IsZero() {
		started = time.Now()
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO sessions(session,seed,tuning_digest,catalog_digest,started_at) VALUES(?,?,?,?,?)`,
		info.Session, info.Seed, info.TuningDigest, info.CatalogDigest, started.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropTickTotal:         s.dropTick.Load(),
		DropNotificationTotal: s.dropNotification.Load(),
		QueueDepth:            len(s.ch),
		QueueCapacity:         cap(s.ch),
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

// AddNotification lets the index sit behind ports.MultiNotifier next to the UI feed.
func (s *SQLiteIndex) AddNotification(n ports.Notification) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqNotification, note: n}:
	default:
		s.dropNotification.Add(1)
	}
}

// Flush blocks until everything queued before it is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, flush: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TickDigest returns the recorded digest of one tick of this index's session.
func (s *SQLiteIndex) TickDigest(ctx context.Context, tick uint64) (string, bool, error) {
	if err := s.Flush(ctx); err != nil {
		return "", false, err
	}
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM ticks WHERE session=? AND tick=?`, s.session, int64(tick)).Scan(&d)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d, true, nil
}

// NotificationCounts groups this session's notifications by category.
func (s *SQLiteIndex) NotificationCounts(ctx context.Context) (map[ports.Category]int, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM notifications WHERE session=? GROUP BY category`, s.session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[ports.Category]int{}
	for rows.Next() {
		var (
			cat string
			n   int
		)
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		out[ports.Category(cat)] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(session,tick,digest,dt,world,commands,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertCommand, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(session,tick,seq,kind,json) VALUES(?,?,?,?,?)`)
	insertNote, _ := s.db.Prepare(`INSERT OR REPLACE INTO notifications(session,tick,seq,category,message,value,x,y) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertCommand, insertNote} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastNoteTick uint64
		noteSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	idle := time.NewTicker(commitMaxWait)
	defer idle.Stop()

	for {
		var r req
		select {
		case <-idle.C:
			flushIfNeeded()
			continue
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		}
		if r.kind == reqFlush {
			commit()
			close(r.flush)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			t := r.tick
			b, _ := json.Marshal(t)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(
					s.session,
					int64(t.Tick),
					t.Digest,
					t.DT,
					t.WorldID,
					len(t.Commands),
					string(b),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			for i, c := range t.Commands {
				if insertCommand == nil {
					break
				}
				cj, _ := json.Marshal(c)
				if _, err := tx.Stmt(insertCommand).Exec(s.session, int64(t.Tick), i, string(c.Kind), string(cj)); err != nil {
					rollback()
					break
				}
				opCount++
			}

		case reqNotification:
			n := r.note
			if n.Tick != lastNoteTick {
				lastNoteTick = n.Tick
				noteSeq = 0
			}
			seq := noteSeq
			noteSeq++
			if insertNote != nil {
				if _, err := tx.Stmt(insertNote).Exec(
					s.session,
					int64(n.Tick),
					seq,
					string(n.Category),
					n.Message,
					n.Value,
					n.Pos.X, n.Pos.Y,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}
}
