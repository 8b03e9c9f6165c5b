package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"playasim/internal/sim/world"
)

// JSONLZstdWriter appends JSON lines to hourly zstd files. When header is set it is written as the
// first line of every file the writer opens, so each file can be read on its own.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	header  any
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string, header any) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		header:  header,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	if err := w.writeLineLocked(v); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) writeLineLocked(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	if w.header != nil {
		if err := w.writeLineLocked(w.header); err != nil {
			return err
		}
	}
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// TickLogger writes one JSONL entry per tick (compressed), prefixed per file by the session header.
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(dir string, info world.SessionInfo) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(dir, "ticks", info)}
}

func (l *TickLogger) WriteTick(v world.TickLogEntry) error { return l.w.Write(v) }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// Session is one run recovered from a tick log directory.
type Session struct {
	Header  world.SessionInfo
	Entries []world.TickLogEntry
}

// ReadTickLog decodes every ticks-*.jsonl.zst file under dir in name (hour) order. Entries are grouped
// under the most recent header line; a header repeated at a file boundary continues its session.
func ReadTickLog(dir string) ([]Session, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "ticks-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []Session
	index := map[string]int{}
	cur := -1
	for _, p := range paths {
		err := readJSONLZstd(p, func(line []byte) error {
			var probe struct {
				Session string `json:"session"`
			}
			if err := json.Unmarshal(line, &probe); err != nil {
				return err
			}
			if probe.Session != "" {
				var h world.SessionInfo
				if err := json.Unmarshal(line, &h); err != nil {
					return err
				}
				if i, ok := index[h.Session]; ok {
					cur = i
					return nil
				}
				out = append(out, Session{Header: h})
				cur = len(out) - 1
				index[h.Session] = cur
				return nil
			}
			if cur < 0 {
				return fmt.Errorf("tick entry before session header")
			}
			var e world.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			out[cur].Entries = append(out[cur].Entries, e)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
	}
	return out, nil
}

func readJSONLZstd(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return sc.Err()
}
