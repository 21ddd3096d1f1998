package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhstatewide/fand/internal/pidctl"
)

func fillHistory(tu *Tuner, vals []float64) {
	for _, v := range vals {
		tu.PushTemperature(v)
	}
}

func TestTune_GainsStayWithinClampRanges(t *testing.T) {
	tu := New(DefaultConfig())
	pid := pidctl.New(2.0, 0.1, 0.5, 0, 100)

	temps := make([]float64, 0, 80)
	for i := 0; i < 80; i++ {
		temps = append(temps, 90)
	}
	fillHistory(tu, temps)

	for i := 0; i < 200; i++ {
		tu.Tune(pid, 90, 65, 80)
		assert.GreaterOrEqual(t, pid.Kp, pidctl.KpMin)
		assert.LessOrEqual(t, pid.Kp, pidctl.KpMax)
		assert.GreaterOrEqual(t, pid.Ki, pidctl.KiMin)
		assert.LessOrEqual(t, pid.Ki, pidctl.KiMax)
		assert.GreaterOrEqual(t, pid.Kd, pidctl.KdMin)
		assert.LessOrEqual(t, pid.Kd, pidctl.KdMax)
	}
}

func TestTune_Due_RespectsTuningInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TuningInterval = 5
	tu := New(cfg)

	for i := 0; i < 4; i++ {
		tu.PushTemperature(65)
		assert.False(t, tu.Due())
	}
	tu.PushTemperature(65)
	assert.True(t, tu.Due())
}

func TestTune_PhaseStartsRapidThenLeaves(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RapidCycles = 3
	tu := New(cfg)
	pid := pidctl.New(2.0, 0.1, 0.5, 0, 100)
	fillHistory(tu, []float64{65, 65, 65, 65, 65, 65, 65, 65, 65, 65})

	for i := 0; i < 3; i++ {
		tu.Tune(pid, 65, 65, 20)
		assert.Equal(t, Rapid, tu.Phase())
	}
	tu.Tune(pid, 65, 65, 20)
	assert.NotEqual(t, Rapid, tu.Phase())
}

func TestReset_ClearsState(t *testing.T) {
	tu := New(DefaultConfig())
	pid := pidctl.New(2.0, 0.1, 0.5, 0, 100)
	fillHistory(tu, []float64{70, 71, 72, 73, 74, 75, 76, 77, 78, 79})
	tu.Tune(pid, 75, 65, 50)
	require.NotZero(t, tu.PerformanceScore())

	tu.Reset()
	assert.Zero(t, tu.PerformanceScore())
	assert.Equal(t, Rapid, tu.Phase())
	assert.False(t, tu.Due())
}

func TestTune_OscillationDrivesKiDownKdUp(t *testing.T) {
	cfg := DefaultConfig()
	tu := New(cfg)
	pid := pidctl.New(2.0, 0.3, 0.3, 0, 100)

	// Oscillate +-5 around target (60) for >=60 samples, per S6.
	vals := make([]float64, 0, 60)
	for i := 0; i < 60; i++ {
		if i%2 == 0 {
			vals = append(vals, 65)
		} else {
			vals = append(vals, 55)
		}
	}
	fillHistory(tu, vals)

	kiBefore, kdBefore := pid.Ki, pid.Kd
	tu.Tune(pid, 65, 60, 50)

	assert.Less(t, pid.Ki, kiBefore)
	assert.Greater(t, pid.Kd, kdBefore)
}
