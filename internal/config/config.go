//go:build linux

// Package config holds the daemon's full configuration surface (spec.md
// §6): a YAML file read over the compiled-in defaults, and a Validate
// check that rejects (does not clamp) any value outside its documented
// range. cmd/fand overlays its --socket and --debug flags before
// validating.
// This generalizes the teacher's flags-only opts struct
// (cmd/consumption/main.go) into a file-plus-flags loader.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate when a field falls outside its
// documented range.
var ErrInvalid = errors.New("config: invalid value")

// Config is the full set of recognized options from spec.md §6.
type Config struct {
	Interval time.Duration `yaml:"interval"`
	Debug    bool          `yaml:"debug"`

	TargetTemp int `yaml:"target_temp"`

	PIDEnabled   bool    `yaml:"pid_enabled"`
	PIDKp        float64 `yaml:"pid_kp"`
	PIDKi        float64 `yaml:"pid_ki"`
	PIDKd        float64 `yaml:"pid_kd"`
	PIDOutputMin float64 `yaml:"pid_output_min"`
	PIDOutputMax float64 `yaml:"pid_output_max"`

	AdaptiveEnabled           bool    `yaml:"adaptive_enabled"`
	AdaptiveTuningInterval    int     `yaml:"adaptive_tuning_interval"`
	AdaptiveTargetPerformance float64 `yaml:"adaptive_target_performance"`
	AdaptiveRapidCycles       int     `yaml:"adaptive_rapid_cycles"`
	AdaptiveRapidMultiplier   float64 `yaml:"adaptive_rapid_multiplier"`
	AdaptiveSteadyThreshold   float64 `yaml:"adaptive_steady_threshold"`
	AdaptiveSteadyCycles      int     `yaml:"adaptive_steady_cycles"`

	ActivityTempThreshold int           `yaml:"activity_temp_threshold"`
	ActivityFanThreshold  int           `yaml:"activity_fan_threshold"`
	ActivityStablePeriod  time.Duration `yaml:"activity_stable_period"`
	ActivityMaxIdleCycles int           `yaml:"activity_max_idle_cycles"`

	SocketPath string `yaml:"socket_path"`
}

// SocketPathDefault is the well-known IPC socket path, per spec.md §6.
const SocketPathDefault = "/run/fand.sock"

// Default returns the spec.md §6 default configuration.
func Default() Config {
	return Config{
		Interval:   2 * time.Second,
		TargetTemp: 65,

		PIDEnabled:   true,
		PIDKp:        2.0,
		PIDKi:        0.1,
		PIDKd:        0.5,
		PIDOutputMin: 0,
		PIDOutputMax: 100,

		AdaptiveEnabled:           true,
		AdaptiveTuningInterval:    30,
		AdaptiveTargetPerformance: 0.8,
		AdaptiveRapidCycles:       10,
		AdaptiveRapidMultiplier:   3.0,
		AdaptiveSteadyThreshold:   0.05,
		AdaptiveSteadyCycles:      5,

		ActivityTempThreshold: 2,
		ActivityFanThreshold:  5,
		ActivityStablePeriod:  300 * time.Second,
		ActivityMaxIdleCycles: 5,

		SocketPath: SocketPathDefault,
	}
}

// LoadFile reads a YAML config file over top of Default(). A missing file
// is not an error: Default() alone is returned.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// rangeCheck range-validates a single field, used by Validate below.
type rangeCheck struct {
	name     string
	ok       bool
	lo, hi   any
	actual   any
}

func (r rangeCheck) err() error {
	return fmt.Errorf("%w: %s=%v not in [%v,%v]", ErrInvalid, r.name, r.actual, r.lo, r.hi)
}

// Validate checks every field against the ranges documented in spec.md §6,
// returning the first violation found wrapped in ErrInvalid.
func (c Config) Validate() error {
	checks := []rangeCheck{
		{"interval", c.Interval >= 100*time.Millisecond && c.Interval <= 60*time.Second, "0.1s", "60s", c.Interval},
		{"target_temp", c.TargetTemp >= 40 && c.TargetTemp <= 100, 40, 100, c.TargetTemp},
		{"pid_kp", c.PIDKp >= 0.5 && c.PIDKp <= 5.0, 0.5, 5.0, c.PIDKp},
		{"pid_ki", c.PIDKi >= 0.01 && c.PIDKi <= 0.5, 0.01, 0.5, c.PIDKi},
		{"pid_kd", c.PIDKd >= 0.1 && c.PIDKd <= 2.0, 0.1, 2.0, c.PIDKd},
		{"pid_output_min", c.PIDOutputMin >= 0 && c.PIDOutputMin < c.PIDOutputMax, 0, c.PIDOutputMax, c.PIDOutputMin},
		{"pid_output_max", c.PIDOutputMax > c.PIDOutputMin && c.PIDOutputMax <= 100, c.PIDOutputMin, 100, c.PIDOutputMax},
		{"adaptive_tuning_interval", c.AdaptiveTuningInterval >= 10 && c.AdaptiveTuningInterval <= 300, 10, 300, c.AdaptiveTuningInterval},
		{"adaptive_target_performance", c.AdaptiveTargetPerformance >= 0.1 && c.AdaptiveTargetPerformance <= 1.0, 0.1, 1.0, c.AdaptiveTargetPerformance},
		{"adaptive_rapid_cycles", c.AdaptiveRapidCycles >= 1 && c.AdaptiveRapidCycles <= 50, 1, 50, c.AdaptiveRapidCycles},
		{"adaptive_rapid_multiplier", c.AdaptiveRapidMultiplier >= 1.0 && c.AdaptiveRapidMultiplier <= 10.0, 1.0, 10.0, c.AdaptiveRapidMultiplier},
		{"adaptive_steady_threshold", c.AdaptiveSteadyThreshold >= 0.01 && c.AdaptiveSteadyThreshold <= 0.20, 0.01, 0.20, c.AdaptiveSteadyThreshold},
		{"adaptive_steady_cycles", c.AdaptiveSteadyCycles >= 1 && c.AdaptiveSteadyCycles <= 20, 1, 20, c.AdaptiveSteadyCycles},
		{"activity_temp_threshold", c.ActivityTempThreshold >= 1 && c.ActivityTempThreshold <= 10, 1, 10, c.ActivityTempThreshold},
		{"activity_fan_threshold", c.ActivityFanThreshold >= 1 && c.ActivityFanThreshold <= 20, 1, 20, c.ActivityFanThreshold},
		{"activity_stable_period", c.ActivityStablePeriod >= 60*time.Second && c.ActivityStablePeriod <= 1800*time.Second, "60s", "1800s", c.ActivityStablePeriod},
		{"activity_max_idle_cycles", c.ActivityMaxIdleCycles >= 1 && c.ActivityMaxIdleCycles <= 20, 1, 20, c.ActivityMaxIdleCycles},
	}
	for _, chk := range checks {
		if !chk.ok {
			return chk.err()
		}
	}
	return nil
}
