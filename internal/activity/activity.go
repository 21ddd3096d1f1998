//go:build linux

// Package activity implements the gate that suppresses adaptive gain
// mutation when recent samples show no meaningful thermal or actuator
// change, per spec.md §4.4. The flag it produces is advisory only — it
// never affects sampling or history growth, only whether internal/adaptive
// is allowed to mutate PID gains on a given cycle.
package activity

import "time"

// Config holds the four tunable thresholds, all with defaults and ranges
// fixed by spec.md §6.
type Config struct {
	TempDeltaThreshold int           // °C, default 2, range [1,10]
	FanDeltaThreshold  int           // %, default 5, range [1,20]
	StablePeriod       time.Duration // default 300s, range [60s,1800s]
	MaxIdleCycles      int           // default 5, range [1,20]
}

// DefaultConfig returns the spec.md §6 defaults.
func DefaultConfig() Config {
	return Config{
		TempDeltaThreshold: 2,
		FanDeltaThreshold:  5,
		StablePeriod:       300 * time.Second,
		MaxIdleCycles:      5,
	}
}

// Detector tracks consecutive-idle state and the learning-inhibited latch.
type Detector struct {
	cfg Config

	havePrev bool
	prevTemp int
	prevDuty int

	lastActivity    time.Time
	consecutiveIdle int
	inhibited       bool
}

// New constructs a Detector with the given config.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Update feeds one tick's CPU temperature and fan duty. It returns whether
// this tick was classified active, and updates the learning-inhibited
// latch per spec.md §4.4.
func (d *Detector) Update(now time.Time, temp, duty int) bool {
	if !d.havePrev {
		d.havePrev = true
		d.prevTemp, d.prevDuty = temp, duty
		d.lastActivity = now
		d.inhibited = false
		return true
	}

	tempChange := abs(temp - d.prevTemp)
	fanChange := abs(duty - d.prevDuty)
	active := tempChange >= d.cfg.TempDeltaThreshold || fanChange >= d.cfg.FanDeltaThreshold

	if active {
		d.lastActivity = now
		d.consecutiveIdle = 0
		d.inhibited = false
	} else {
		d.consecutiveIdle++
	}

	if now.Sub(d.lastActivity) > d.cfg.StablePeriod || d.consecutiveIdle >= d.cfg.MaxIdleCycles {
		d.inhibited = true
	}

	d.prevTemp, d.prevDuty = temp, duty
	return active
}

// LearningInhibited reports whether adaptive gain mutation should be
// suppressed for the current cycle.
func (d *Detector) LearningInhibited() bool { return d.inhibited }

// ConsecutiveIdleCycles exposes the idle-run length, for status reporting.
func (d *Detector) ConsecutiveIdleCycles() int { return d.consecutiveIdle }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
