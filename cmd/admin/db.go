package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type dbQuery struct {
	Kind     string
	Session  string
	Category string
	Limit    int
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/sim.db)")
	session := fs.String("session", "", "session id (default: latest)")
	category := fs.String("category", "", "category filter (notifications)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := dbQuery{Kind: "sessions", Session: strings.TrimSpace(*session), Category: strings.TrimSpace(*category), Limit: *limit}
	if fs.NArg() > 0 {
		q.Kind = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "sim.db")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runQuery(db, q, printJSON); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runQuery(db *sql.DB, q dbQuery, emit func(any)) error {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Kind != "sessions" && q.Session == "" {
		s, err := latestSession(db)
		if err != nil {
			return fmt.Errorf("latest session: %w", err)
		}
		if s == "" {
			return fmt.Errorf("no sessions found")
		}
		q.Session = s
	}

	switch q.Kind {
	case "sessions":
		rows, err := db.Query(`SELECT s.session, s.seed, s.tuning_digest, s.started_at, COUNT(t.tick), COALESCE(MAX(t.tick),0)
			FROM sessions s LEFT JOIN ticks t ON t.session = s.session
			GROUP BY s.session ORDER BY s.started_at DESC LIMIT ?`, q.Limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Session      string `json:"session"`
				Seed         int64  `json:"seed"`
				TuningDigest string `json:"tuning_digest"`
				StartedAt    string `json:"started_at"`
				Ticks        int64  `json:"ticks"`
				LastTick     int64  `json:"last_tick"`
			}
			if err := rows.Scan(&r.Session, &r.Seed, &r.TuningDigest, &r.StartedAt, &r.Ticks, &r.LastTick); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			emit(r)
		}
		return rows.Err()

	case "ticks":
		rows, err := db.Query(`SELECT tick, digest, dt, world, commands FROM ticks WHERE session=? ORDER BY tick DESC LIMIT ?`, q.Session, q.Limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64   `json:"tick"`
				Digest   string  `json:"digest"`
				DT       float64 `json:"dt"`
				World    string  `json:"world"`
				Commands int     `json:"commands"`
			}
			if err := rows.Scan(&r.Tick, &r.Digest, &r.DT, &r.World, &r.Commands); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			emit(r)
		}
		return rows.Err()

	case "commands":
		rows, err := db.Query(`SELECT tick, seq, kind, json FROM commands WHERE session=? ORDER BY tick DESC, seq LIMIT ?`, q.Session, q.Limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick int64  `json:"tick"`
				Seq  int    `json:"seq"`
				Kind string `json:"kind"`
				JSON string `json:"json"`
			}
			if err := rows.Scan(&r.Tick, &r.Seq, &r.Kind, &r.JSON); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			emit(r)
		}
		return rows.Err()

	case "notifications":
		query := `SELECT tick, seq, category, message, value FROM notifications WHERE session=?`
		params := []any{q.Session}
		if q.Category != "" {
			query += ` AND category=?`
			params = append(params, q.Category)
		}
		query += ` ORDER BY tick DESC, seq LIMIT ?`
		params = append(params, q.Limit)
		rows, err := db.Query(query, params...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64   `json:"tick"`
				Seq      int     `json:"seq"`
				Category string  `json:"category"`
				Message  string  `json:"message"`
				Value    float64 `json:"value,omitempty"`
			}
			if err := rows.Scan(&r.Tick, &r.Seq, &r.Category, &r.Message, &r.Value); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			emit(r)
		}
		return rows.Err()

	default:
		return fmt.Errorf("unknown query %q (want sessions|ticks|commands|notifications)", q.Kind)
	}
}

func latestSession(db *sql.DB) (string, error) {
	var s sql.NullString
	if err := db.QueryRow(`SELECT session FROM sessions ORDER BY started_at DESC LIMIT 1`).Scan(&s); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return s.String, nil
}
