//go:build linux

// Package controller implements the orchestration state machine from
// spec.md §4.6: per tick it samples, feeds the activity detector, runs the
// adaptive tuner when due, runs the PID core, coalesces the resulting fan
// write, and publishes a snapshot for the IPC server to read. Structurally
// this generalizes the teacher's cmd/consumption/main.go run() loop
// (ticker + sample + decide) from "sample and print a row" to "sample,
// decide, write, publish".
package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jhstatewide/fand/internal/activity"
	"github.com/jhstatewide/fand/internal/adaptive"
	"github.com/jhstatewide/fand/internal/config"
	"github.com/jhstatewide/fand/internal/pidctl"
	"github.com/jhstatewide/fand/internal/ratelog"
	"github.com/jhstatewide/fand/internal/sensor"
	"github.com/jhstatewide/fand/internal/units"
)

// ErrInvalidArgument is returned by the mutator methods when a caller
// passes a value outside its documented range.
var ErrInvalidArgument = errors.New("controller: invalid argument")

// Controller owns ControlState, PIDState, and AdaptiveState for the
// daemon's lifetime (spec.md §9's "global controller state... owned by a
// single controller value with explicit initialization").
type Controller struct {
	sensor *sensor.Sensor
	log    *slog.Logger
	warn   *ratelog.Limiter

	pid      *pidctl.State
	activity *activity.Detector
	adaptive *adaptive.Tuner

	adaptiveEnabled bool

	mu    sync.Mutex
	state Snapshot
}

// New constructs a Controller from the given sensor and validated config.
func New(s *sensor.Sensor, cfg config.Config, log *slog.Logger) *Controller {
	pid := pidctl.New(cfg.PIDKp, cfg.PIDKi, cfg.PIDKd, cfg.PIDOutputMin, cfg.PIDOutputMax)
	pid.Enabled = cfg.PIDEnabled

	actCfg := activity.Config{
		TempDeltaThreshold: cfg.ActivityTempThreshold,
		FanDeltaThreshold:  cfg.ActivityFanThreshold,
		StablePeriod:       cfg.ActivityStablePeriod,
		MaxIdleCycles:      cfg.ActivityMaxIdleCycles,
	}

	adaCfg := adaptive.Config{
		TuningInterval:       cfg.AdaptiveTuningInterval,
		TargetPerformance:    cfg.AdaptiveTargetPerformance,
		RapidCycles:          cfg.AdaptiveRapidCycles,
		RapidMultiplier:      cfg.AdaptiveRapidMultiplier,
		SteadyThreshold:      cfg.AdaptiveSteadyThreshold,
		SteadyCyclesRequired: cfg.AdaptiveSteadyCycles,
	}

	var warn *ratelog.Limiter
	if log != nil {
		warn = ratelog.New(log)
	}

	return &Controller{
		sensor:          s,
		log:             log,
		warn:            warn,
		pid:             pid,
		activity:        activity.New(actCfg),
		adaptive:        adaptive.New(adaCfg),
		adaptiveEnabled: cfg.AdaptiveEnabled,
		state: Snapshot{
			Mode:              Auto,
			TargetTemperature: cfg.TargetTemp,
		},
	}
}

// Tick runs exactly one control cycle: sample, activity, adapt, PID,
// write, publish — in that order, per spec.md §5's ordering guarantee.
func (c *Controller) Tick(now time.Time) error {
	cpu, gpu, duty, rpm, err := c.sensor.ReadAll()
	if err != nil {
		if c.warn != nil {
			c.warn.Warn("sensor-read", "tick: sensor read failed, retaining previous state", "err", err)
		}
		return err
	}

	sample := Sample{CPUTemp: cpu, GPUTemp: gpu, FanDuty: duty, FanRPM: rpm, Timestamp: now}

	c.mu.Lock()
	defer c.mu.Unlock()

	active := c.activity.Update(now, int(cpu), int(duty))

	switch c.state.Mode {
	case Auto:
		c.runAuto(sample)
	case Manual:
		c.runManual()
	}

	c.state.Sample = sample
	if c.log != nil {
		c.log.Debug("tick",
			"mode", c.state.Mode, "cpu", int(cpu), "gpu", int(gpu),
			"duty", int(duty), "rpm", rpm, "active", active,
			"inhibited", c.activity.LearningInhibited(),
			"phase", c.adaptive.Phase(), "score", c.adaptive.PerformanceScore(),
			"kp", c.pid.Kp, "ki", c.pid.Ki, "kd", c.pid.Kd,
			"written", c.state.LastWrittenAutoDuty,
		)
	}
	return nil
}

// runAuto implements spec.md §4.6 step 3. Caller holds c.mu.
func (c *Controller) runAuto(sample Sample) {
	if !c.pid.Enabled {
		c.writeAutoDuty(c.pid.Update(float64(sample.CPUTemp), float64(sample.GPUTemp), float64(c.state.TargetTemperature), int(sample.FanDuty)))
		return
	}

	maxTemp := float64(sample.CPUTemp)
	if float64(sample.GPUTemp) > maxTemp {
		maxTemp = float64(sample.GPUTemp)
	}
	c.adaptive.PushTemperature(maxTemp)

	if c.adaptiveEnabled && c.adaptive.Due() && !c.activity.LearningInhibited() {
		c.adaptive.Tune(c.pid, maxTemp, float64(c.state.TargetTemperature), float64(sample.FanDuty))
	}

	newDuty := c.pid.Update(float64(sample.CPUTemp), float64(sample.GPUTemp), float64(c.state.TargetTemperature), c.state.LastWrittenAutoDuty)
	c.writeAutoDuty(newDuty)
}

// runManual implements spec.md §4.6 step 4. Caller holds c.mu.
func (c *Controller) runManual() {
	if c.state.ManualDuty == c.state.LastWrittenAutoDuty {
		return
	}
	if err := c.sensor.WriteFanDuty(units.Percent(c.state.ManualDuty)); err != nil {
		if c.warn != nil {
			c.warn.Warn("manual-write", "manual write failed", "err", err)
		}
		return
	}
	c.state.LastWrittenAutoDuty = c.state.ManualDuty
}

// writeAutoDuty coalesces identical consecutive writes, per spec.md §4.6
// and the write-coalescing invariant in spec.md §8 property 8.
func (c *Controller) writeAutoDuty(newDuty int) {
	if newDuty == c.state.LastWrittenAutoDuty {
		return
	}
	if newDuty < 1 {
		// WriteFanDuty rejects 0; a commanded all-off duty is represented
		// by simply not issuing a write once duty has decayed to 0.
		c.state.LastWrittenAutoDuty = 0
		return
	}
	if err := c.sensor.WriteFanDuty(units.Percent(newDuty)); err != nil {
		if c.warn != nil {
			c.warn.Warn("auto-write", "auto write failed", "err", err)
		}
		return
	}
	c.state.LastWrittenAutoDuty = newDuty
}

// Snapshot returns a copy of the latest published state for IPC reads.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetManualDuty switches to Manual mode with the given duty in [1,100],
// resetting PID and adaptive state per spec.md §4.6's mode-transition rule.
func (c *Controller) SetManualDuty(duty int) error {
	if duty < 1 || duty > 100 {
		return fmt.Errorf("%w: duty %d not in [1,100]", ErrInvalidArgument, duty)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Mode = Manual
	c.state.ManualDuty = duty
	c.resetLocked()
	return nil
}

// SetAuto switches to Auto mode, clearing ManualDuty and resetting PID and
// adaptive state.
func (c *Controller) SetAuto() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Mode = Auto
	c.state.ManualDuty = 0
	c.resetLocked()
}

// SetTargetTemperature sets the setpoint in [40,100], resetting PID and
// adaptive state (a setpoint change is a reset trigger per spec.md §4.6).
func (c *Controller) SetTargetTemperature(target int) error {
	if target < 40 || target > 100 {
		return fmt.Errorf("%w: target %d not in [40,100]", ErrInvalidArgument, target)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.TargetTemperature = target
	c.resetLocked()
	return nil
}

// Reset explicitly clears PID and adaptive state without changing mode or
// setpoint.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.pid.Reset()
	c.adaptive.Reset()
}
