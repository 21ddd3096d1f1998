//go:build linux

// Package sensor translates Embedded Controller register bytes into the
// typed readings the rest of the daemon consumes: CPU/GPU temperature, fan
// duty percentage, and fan RPM. It is the only component that interprets
// raw register bytes (spec.md §4.2); nothing above it ever sees one.
package sensor

import (
	"errors"
	"fmt"

	"github.com/jhstatewide/fand/internal/ec"
	"github.com/jhstatewide/fand/internal/units"
)

// Register addresses, per spec.md §6.
const (
	RegCPUTemp  = 0x07
	RegGPUTemp  = 0xCD
	RegFanDuty  = 0xCE
	RegFanRPMHi = 0xD0
	RegFanRPMLo = 0xD1
)

// rpmConstant is the fixed numerator in rpm = 2_156_220 / divisor.
const rpmConstant = 2_156_220

// ErrInvalidArgument is returned when WriteFanDuty is asked to write a
// percentage outside [1,100].
var ErrInvalidArgument = errors.New("sensor: invalid argument")

// Sensor wraps an ec.Transport and exposes typed reads/writes.
type Sensor struct {
	t *ec.Transport
}

// New wraps the given transport.
func New(t *ec.Transport) *Sensor {
	return &Sensor{t: t}
}

// ReadCPUTemp reads the CPU temperature register.
func (s *Sensor) ReadCPUTemp() (units.Celsius, error) {
	v, err := s.t.ReadRegister(RegCPUTemp)
	if err != nil {
		return 0, err
	}
	return units.Celsius(v), nil
}

// ReadGPUTemp reads the GPU temperature register.
func (s *Sensor) ReadGPUTemp() (units.Celsius, error) {
	v, err := s.t.ReadRegister(RegGPUTemp)
	if err != nil {
		return 0, err
	}
	return units.Celsius(v), nil
}

// ReadFanDuty reads the raw 0-255 fan duty register and returns it as a
// 0-100 percentage: floor(raw*100/255).
func (s *Sensor) ReadFanDuty() (units.Percent, error) {
	v, err := s.t.ReadRegister(RegFanDuty)
	if err != nil {
		return 0, err
	}
	return units.FromRaw(v), nil
}

// ReadFanRPM reads the two-byte RPM divisor and returns
// 2_156_220/divisor, or 0 if the divisor is 0.
//
// The high byte is read from the lower address (0xD0) and the low byte
// from the higher address (0xD1) — this is the byte order spec.md §6 and
// §9(a) fix as authoritative, carried over from the original source's own
// (confusingly named) register layout rather than "corrected".
func (s *Sensor) ReadFanRPM() (uint32, error) {
	hi, err := s.t.ReadRegister(RegFanRPMHi)
	if err != nil {
		return 0, err
	}
	lo, err := s.t.ReadRegister(RegFanRPMLo)
	if err != nil {
		return 0, err
	}
	divisor := (uint32(hi) << 8) | uint32(lo)
	if divisor == 0 {
		return 0, nil
	}
	return rpmConstant / divisor, nil
}

// ReadAll reads CPU temp, GPU temp, fan duty, and fan RPM in one pass,
// preferring the transport's bulk path when available.
func (s *Sensor) ReadAll() (cpu, gpu units.Celsius, duty units.Percent, rpm uint32, err error) {
	regs, err := s.t.ReadAll([]uint8{RegCPUTemp, RegGPUTemp, RegFanDuty, RegFanRPMHi, RegFanRPMLo})
	if err != nil {
		return 0, 0, 0, 0, err
	}
	cpu = units.Celsius(regs[RegCPUTemp])
	gpu = units.Celsius(regs[RegGPUTemp])
	duty = units.FromRaw(regs[RegFanDuty])
	divisor := (uint32(regs[RegFanRPMHi]) << 8) | uint32(regs[RegFanRPMLo])
	if divisor > 0 {
		rpm = rpmConstant / divisor
	}
	return cpu, gpu, duty, rpm, nil
}

// WriteFanDuty writes a fan duty percentage in [1,100], converting it to
// the nearest raw 0-255 value and issuing it through the transport's
// fan-duty write command.
func (s *Sensor) WriteFanDuty(pct units.Percent) error {
	if pct < 1 || pct > 100 {
		return fmt.Errorf("%w: duty %d not in [1,100]", ErrInvalidArgument, pct)
	}
	return s.t.WriteFanDuty(pct.ToRaw())
}
