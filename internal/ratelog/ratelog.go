//go:build linux

// Package ratelog collapses repeated identical-cause log lines to at most
// once per minute, per spec.md §7. It is the one deliberately
// stdlib-only piece of this daemon's ambient stack: no example in the
// corpus ships a log-deduplication library, and pulling one in for a
// single small map wouldn't exercise any other concern. It wraps
// log/slog, the structured logger every other package already uses.
package ratelog

import (
	"log/slog"
	"sync"
	"time"
)

// Window is the collapsing period from spec.md §7.
const Window = time.Minute

// Limiter collapses Warn calls sharing the same cause key to at most one
// emission per Window.
type Limiter struct {
	log *slog.Logger

	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// New wraps log for rate-limited warnings.
func New(log *slog.Logger) *Limiter {
	return &Limiter{log: log, last: make(map[string]time.Time), now: time.Now}
}

// Warn emits a warning for the given cause key, args following slog's
// key-value convention, unless an identical-cause warning was already
// emitted within the last Window.
func (l *Limiter) Warn(cause, msg string, args ...any) {
	l.mu.Lock()
	now := l.now()
	prev, seen := l.last[cause]
	if seen && now.Sub(prev) < Window {
		l.mu.Unlock()
		return
	}
	l.last[cause] = now
	l.mu.Unlock()

	l.log.Warn(msg, append([]any{"cause", cause}, args...)...)
}
