//go:build linux

// Package adaptive implements the self-tuning layer that observes closed-
// loop performance and mutates PID gains online: a rolling temperature
// history, a scalar performance score, and phase-gated gain mutation with
// directional reversal on regression. See spec.md §4.5.
package adaptive

import (
	"math"

	"github.com/jhstatewide/fand/internal/pidctl"
)

// Tuner holds the adaptive learning state (spec.md's AdaptiveState) and
// mutates a pidctl.State's gains in place when Tune is invoked and due.
type Tuner struct {
	cfg Config

	hist history

	performanceScore float64

	learningCycles    int
	cyclesSinceTuning int

	phase                  Phase
	rapidCyclesDone        int
	consecutiveStableCycle int

	stepKp, stepKi, stepKd float64

	lastOscillation float64
}

// New constructs a Tuner with the given config and the initial signed step
// sizes documented in spec.md §9 ("signed step sizes ... carry direction via
// their sign").
func New(cfg Config) *Tuner {
	return &Tuner{
		cfg:    cfg,
		phase:  Rapid,
		stepKp: initialStepKp,
		stepKi: initialStepKi,
		stepKd: initialStepKd,
	}
}

// Reset clears all adaptive state, per spec.md §3's "on any mode transition
// or explicit reset, PIDState and AdaptiveState are cleared together".
func (t *Tuner) Reset() {
	cfg := t.cfg
	*t = Tuner{
		cfg:    cfg,
		phase:  Rapid,
		stepKp: initialStepKp,
		stepKi: initialStepKi,
		stepKd: initialStepKd,
	}
}

// PushTemperature appends a temperature reading to the rolling history.
// Callers must only invoke this while Auto mode is active (spec.md §3's
// history invariant).
func (t *Tuner) PushTemperature(temp float64) {
	t.hist.push(temp)
	t.cyclesSinceTuning++
}

// Due reports whether enough cycles have elapsed since the last tuning
// pass to run one now (spec.md §4.5: cycles_since_tuning >= tuning_interval).
func (t *Tuner) Due() bool {
	return t.cyclesSinceTuning >= t.cfg.TuningInterval
}

// Phase returns the tuner's current learning regime.
func (t *Tuner) Phase() Phase { return t.phase }

// PerformanceScore returns the most recently computed score.
func (t *Tuner) PerformanceScore() float64 { return t.performanceScore }

// Tune runs one adaptive pass: computes the performance score from the
// rolling history, selects a phase, updates the signed step directions,
// and mutates pid's gains (clamped to their documented ranges). It is the
// caller's responsibility to only invoke Tune when Due() and not inhibited
// (spec.md §4.5).
func (t *Tuner) Tune(pid *pidctl.State, maxTemp, target, duty float64) {
	vals := t.hist.values()
	oscillation := 0.0
	if len(vals) >= oscillationMinSamples {
		oscillation = stddev(vals)
	}
	t.lastOscillation = oscillation

	errVal := maxTemp - target

	errorScore := clamp01(1 - math.Abs(errVal)/50)
	oscillationComponent := 1 - clamp01(oscillation/10)
	var fanEfficiency float64
	if math.Abs(errVal) < 5 {
		fanEfficiency = 1 - duty/100
	}
	score := 0.6*errorScore + 0.3*oscillationComponent + 0.1*fanEfficiency

	deltaScore := score - t.performanceScore

	t.selectPhase(deltaScore)
	t.updateDirection(deltaScore)

	multiplier := t.phaseMultiplier()

	if score < t.cfg.TargetPerformance {
		pid.Kp = clampGain(pid.Kp+multiplier*t.stepKp, pidctl.KpMin, pidctl.KpMax)
	}
	if oscillation > oscillationHigh {
		pid.Ki = clampGain(pid.Ki-multiplier*t.stepKi, pidctl.KiMin, pidctl.KiMax)
		pid.Kd = clampGain(pid.Kd+multiplier*t.stepKd, pidctl.KdMin, pidctl.KdMax)
	} else if math.Abs(errVal) > errorHigh {
		pid.Ki = clampGain(pid.Ki+multiplier*t.stepKi, pidctl.KiMin, pidctl.KiMax)
	}

	t.learningCycles++
	t.cyclesSinceTuning = 0
	t.performanceScore = score
}

// selectPhase applies spec.md §4.5's phase-selection rule: Rapid while
// rapid_cycles_done < rapid_max, Steady while consecutive_stable_cycles
// reaches steady_cycles_required, Normal otherwise. A cycle is "stable" iff
// |deltaScore| < steady_threshold.
func (t *Tuner) selectPhase(deltaScore float64) {
	stable := math.Abs(deltaScore) < t.cfg.SteadyThreshold
	if stable {
		t.consecutiveStableCycle++
	} else {
		t.consecutiveStableCycle = 0
	}

	switch {
	case t.rapidCyclesDone < t.cfg.RapidCycles:
		t.phase = Rapid
		t.rapidCyclesDone++
	case t.consecutiveStableCycle >= t.cfg.SteadyCyclesRequired:
		t.phase = Steady
	default:
		t.phase = Normal
	}
}

func (t *Tuner) phaseMultiplier() float64 {
	switch t.phase {
	case Rapid:
		return t.cfg.RapidMultiplier
	case Steady:
		return steadyMultiplier
	default:
		return normalMultiplier
	}
}

// updateDirection applies the signed step-size reversal rule from
// spec.md §4.5/§9: a clear improvement keeps signs, a clear regression
// negates them and damps the magnitude by 0.8, and anything in between
// keeps signs unchanged.
func (t *Tuner) updateDirection(deltaScore float64) {
	switch {
	case deltaScore > directionUpThreshold:
		// keep signs
	case deltaScore < directionDownThreshold:
		t.stepKp = -t.stepKp * reversalDamping
		t.stepKi = -t.stepKi * reversalDamping
		t.stepKd = -t.stepKd * reversalDamping
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func clampGain(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
