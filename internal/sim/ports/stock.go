package ports

import (
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
)

// SeededRng wraps math/rand with an explicit seed.
type SeededRng struct {
	seed int64
	r    *rand.Rand
}

func NewSeededRng(seed int64) *SeededRng {
	return &SeededRng{seed: seed, r: rand.New(rand.NewSource(seed))}
}

func (s *SeededRng) SetSeed(seed int64) {
	s.seed = seed
	s.r = rand.New(rand.NewSource(seed))
}

func (s *SeededRng) Seed() int64      { return s.seed }
func (s *SeededRng) Float64() float64 { return s.r.Float64() }

// Range returns a value in [lo, hi) drawn from r.
func Range(r Rng, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + r.Float64()*(hi-lo)
}

// LogAudio logs sound triggers at debug level instead of playing them.
type LogAudio struct {
	log *logrus.Entry

	mu    sync.Mutex
	muted bool
}

func NewLogAudio(log logrus.FieldLogger) *LogAudio {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &LogAudio{log: log.WithField("port", "audio")}
}

func (a *LogAudio) PlaySound(name string, volume float64) {
	if a.IsMuted() {
		return
	}
	a.log.WithFields(logrus.Fields{"sound": name, "volume": volume}).Debug("play")
}

func (a *LogAudio) IsMuted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.muted
}

func (a *LogAudio) SetMuted(muted bool) {
	a.mu.Lock()
	a.muted = muted
	a.mu.Unlock()
}

// NotificationLog keeps the most recent notifications in memory.
type NotificationLog struct {
	mu    sync.Mutex
	max   int
	items []Notification
}

func NewNotificationLog(max int) *NotificationLog {
	if max <= 0 {
		max = 256
	}
	return &NotificationLog{max: max}
}

func (l *NotificationLog) AddNotification(n Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, n)
	if over := len(l.items) - l.max; over > 0 {
		l.items = append(l.items[:0], l.items[over:]...)
	}
}

// All returns a copy of the retained notifications, oldest first.
func (l *NotificationLog) All() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Notification(nil), l.items...)
}

// ByCategory returns retained notifications of one category.
func (l *NotificationLog) ByCategory(c Category) []Notification {
	var out []Notification
	for _, n := range l.All() {
		if n.Category == c {
			out = append(out, n)
		}
	}
	return out
}

// MultiNotifier fans a notification out to several sinks in order.
type MultiNotifier []Notifier

func (m MultiNotifier) AddNotification(n Notification) {
	for _, s := range m {
		if s != nil {
			s.AddNotification(n)
		}
	}
}
