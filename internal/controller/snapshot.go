package controller

import (
	"time"

	"github.com/jhstatewide/fand/internal/units"
)

// Mode is the controller's operating mode, per spec.md §3.
type Mode int

const (
	Auto Mode = iota
	Manual
)

func (m Mode) String() string {
	if m == Manual {
		return "manual"
	}
	return "auto"
}

// Sample is one tick's instantaneous readings, per spec.md §3. It is
// created fresh each tick and never mutated afterward.
type Sample struct {
	CPUTemp   units.Celsius
	GPUTemp   units.Celsius
	FanDuty   units.Percent
	FanRPM    uint32
	Timestamp time.Time
}

// Snapshot is the read-only view the IPC server consumes: the latest
// Sample plus the control-state fields IPC handlers may mutate.
type Snapshot struct {
	Sample              Sample
	Mode                Mode
	TargetTemperature   int
	ManualDuty          int
	LastWrittenAutoDuty int
}
