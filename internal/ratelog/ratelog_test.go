package ratelog

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newCounting(t *testing.T) (*Limiter, *int) {
	t.Helper()
	count := 0
	log := slog.New(slog.NewTextHandler(&countingWriter{n: &count}, nil))
	l := New(log)
	return l, &count
}

// countingWriter counts Write calls rather than capturing bytes; each
// slog record results in exactly one Write.
type countingWriter struct{ n *int }

func (w *countingWriter) Write(p []byte) (int, error) {
	*w.n++
	return len(p), nil
}

func TestWarn_CollapsesWithinWindow(t *testing.T) {
	l, count := newCounting(t)
	fixed := time.Unix(0, 0)
	l.now = func() time.Time { return fixed }

	l.Warn("ec-timeout", "read failed")
	l.Warn("ec-timeout", "read failed")
	l.Warn("ec-timeout", "read failed")

	assert.Equal(t, 1, *count)
}

func TestWarn_EmitsAgainAfterWindow(t *testing.T) {
	l, count := newCounting(t)
	tickTime := time.Unix(0, 0)
	l.now = func() time.Time { return tickTime }

	l.Warn("ec-timeout", "read failed")
	tickTime = tickTime.Add(Window + time.Second)
	l.Warn("ec-timeout", "read failed")

	assert.Equal(t, 2, *count)
}

func TestWarn_DistinctCausesDoNotCollapse(t *testing.T) {
	l, count := newCounting(t)
	fixed := time.Unix(0, 0)
	l.now = func() time.Time { return fixed }

	l.Warn("ec-timeout", "read failed")
	l.Warn("ipc-accept", "accept failed")

	assert.Equal(t, 2, *count)
}
