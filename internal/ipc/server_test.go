package ipc

import (
	"bufio"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhstatewide/fand/internal/config"
	"github.com/jhstatewide/fand/internal/controller"
	"github.com/jhstatewide/fand/internal/ec"
	"github.com/jhstatewide/fand/internal/sensor"
)

// fakePorts is a minimal in-memory ec.Ports fake, IBF/OBF always satisfied,
// mirroring the fakes used by internal/ec and internal/controller's own
// test suites.
type fakePorts struct {
	regs      map[uint8]uint8
	cmd       uint8
	pending   uint8
	writePort uint8
}

func (p *fakePorts) ReadStatus() (uint8, error) { return 0b01, nil }
func (p *fakePorts) ReadData() (uint8, error)   { return p.regs[p.pending], nil }
func (p *fakePorts) WriteCommand(b uint8) error { p.cmd = b; return nil }
func (p *fakePorts) WriteData(b uint8) error {
	switch p.cmd {
	case 0x80:
		p.pending = b
	case 0x99:
		if p.writePort == 0 {
			p.writePort = b
		} else {
			p.regs[p.writePort] = b
			p.writePort = 0
		}
	}
	return nil
}

func newTestServer(t *testing.T) (*Server, *controller.Controller, string) {
	t.Helper()
	regs := map[uint8]uint8{
		sensor.RegCPUTemp: 45,
		sensor.RegGPUTemp: 45,
		sensor.RegFanDuty: 51, // ~20%
	}
	s := sensor.New(ec.New(&fakePorts{regs: regs}, nil))
	cfg := config.Default()
	ctrl := controller.New(s, cfg, nil)
	require.NoError(t, ctrl.Tick(time.Unix(0, 0)))

	path := filepath.Join(t.TempDir(), "fand.sock")
	srv, err := Listen(path, ctrl, nil)
	require.NoError(t, err)

	stop := make(chan struct{})
	go srv.Serve(stop)
	t.Cleanup(func() {
		close(stop)
		srv.Close()
	})

	return srv, ctrl, path
}

func roundTrip(t *testing.T, path, request string) string {
	t.Helper()
	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))
	_, err = fmt.Fprintf(conn, "%s\n", request)
	require.NoError(t, err)

	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return reply[:len(reply)-1]
}

func TestServer_Status(t *testing.T) {
	_, _, path := newTestServer(t)
	reply := roundTrip(t, path, "STATUS")
	assert.Contains(t, reply, "CPU:45")
	assert.Contains(t, reply, "GPU:45")
	assert.Contains(t, reply, "AUTO:1")
}

func TestServer_GetTemp(t *testing.T) {
	_, _, path := newTestServer(t)
	assert.Equal(t, "CPU:45 GPU:45", roundTrip(t, path, "GET_TEMP"))
}

func TestServer_SetFan_SwitchesToManualAndStatusReflectsIt(t *testing.T) {
	_, _, path := newTestServer(t)

	reply := roundTrip(t, path, "SET_FAN 80")
	assert.Equal(t, "OK: Fan set to 80%", reply)

	status := roundTrip(t, path, "STATUS")
	assert.Contains(t, status, "AUTO:0")
}

func TestServer_SetAuto_Idempotent(t *testing.T) {
	_, _, path := newTestServer(t)
	require.Equal(t, "OK: Fan set to 80%", roundTrip(t, path, "SET_FAN 80"))

	assert.Equal(t, "OK: Auto mode enabled", roundTrip(t, path, "SET_AUTO"))
	assert.Equal(t, "OK: Auto mode enabled", roundTrip(t, path, "SET_AUTO"))
}

func TestServer_SetTargetTemp_InvalidLeavesStateUnchanged(t *testing.T) {
	_, ctrl, path := newTestServer(t)
	before := ctrl.Snapshot().TargetTemperature

	reply := roundTrip(t, path, "SET_TARGET_TEMP 200")
	assert.Contains(t, reply, "ERROR:")
	assert.Equal(t, before, ctrl.Snapshot().TargetTemperature)
}

func TestServer_UnknownCommand(t *testing.T) {
	_, _, path := newTestServer(t)
	assert.Contains(t, roundTrip(t, path, "BOGUS"), "ERROR:")
}

func TestDispatch_EmptyLine(t *testing.T) {
	_, ctrl, _ := newTestServer(t)
	assert.Contains(t, dispatch(ctrl, ""), "ERROR:")
}
