//go:build linux

package ipc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jhstatewide/fand/internal/controller"
)

// maxFrame bounds a single request line, per spec.md §4.7.
const maxFrame = 1024

// dispatch parses one request line and returns the reply line to write
// back, without the trailing newline. It never returns an error itself:
// malformed input becomes an "ERROR: ..." reply, matching the six-command
// grammar's request/response contract in spec.md §4.7.
func dispatch(c *controller.Controller, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return errorReply(fmt.Errorf("%w: empty request", ErrInvalidArgument))
	}

	switch strings.ToUpper(fields[0]) {
	case "STATUS":
		return statusReply(c)
	case "GET_TEMP":
		s := c.Snapshot()
		return fmt.Sprintf("CPU:%d GPU:%d", int(s.Sample.CPUTemp), int(s.Sample.GPUTemp))
	case "GET_FAN":
		s := c.Snapshot()
		return fmt.Sprintf("DUTY:%d RPM:%d AUTO:%d", int(s.Sample.FanDuty), s.Sample.FanRPM, autoFlag(s.Mode))
	case "SET_FAN":
		return setFan(c, fields)
	case "SET_AUTO":
		c.SetAuto()
		return "OK: Auto mode enabled"
	case "SET_TARGET_TEMP":
		return setTargetTemp(c, fields)
	default:
		return errorReply(fmt.Errorf("%w: unknown command %q", ErrInvalidArgument, fields[0]))
	}
}

func statusReply(c *controller.Controller) string {
	s := c.Snapshot()
	return fmt.Sprintf(
		"CPU:%d GPU:%d FAN_DUTY:%d FAN_RPM:%d AUTO:%d",
		int(s.Sample.CPUTemp), int(s.Sample.GPUTemp),
		int(s.Sample.FanDuty), s.Sample.FanRPM, autoFlag(s.Mode),
	)
}

func autoFlag(m controller.Mode) int {
	if m == controller.Auto {
		return 1
	}
	return 0
}

func setFan(c *controller.Controller, fields []string) string {
	n, err := parseArg(fields)
	if err != nil {
		return errorReply(err)
	}
	if err := c.SetManualDuty(n); err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("OK: Fan set to %d%%", n)
}

func setTargetTemp(c *controller.Controller, fields []string) string {
	n, err := parseArg(fields)
	if err != nil {
		return errorReply(err)
	}
	if err := c.SetTargetTemperature(n); err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("OK: Target temperature set to %d°C", n)
}

func parseArg(fields []string) (int, error) {
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: %s requires exactly one argument", ErrInvalidArgument, fields[0])
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("%w: argument %q is not an integer", ErrInvalidArgument, fields[1])
	}
	return n, nil
}

func errorReply(err error) string {
	return "ERROR: " + err.Error()
}
