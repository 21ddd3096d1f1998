package pidctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdate_UsesMaxOfCPUAndGPU(t *testing.T) {
	s := New(2.0, 0.1, 0.5, 0, 100)
	duty := s.Update(45, 85, 65, 20)
	// error = max(45,85) - 65 = 20
	assert.Greater(t, duty, 20)
}

func TestIntegral_StaysWithinAntiWindupBounds(t *testing.T) {
	s := New(2.0, 0.5, 0.1, 0, 100)
	for i := 0; i < 1000; i++ {
		s.Update(90, 90, 40, 50) // large sustained positive error
		assert.GreaterOrEqual(t, s.Integral(), integralMin)
		assert.LessOrEqual(t, s.Integral(), integralMax)
	}
}

func TestUpdate_OutputClampedToBounds(t *testing.T) {
	s := New(5.0, 0.5, 2.0, 0, 100)
	for i := 0; i < 50; i++ {
		duty := s.Update(127, 127, 0, 0)
		assert.GreaterOrEqual(t, duty, 0)
		assert.LessOrEqual(t, duty, 100)
	}
}

func TestReset_ZeroesIntegralAndPreviousError(t *testing.T) {
	s := New(2.0, 0.1, 0.5, 0, 100)
	s.Update(90, 90, 40, 20)
	assert.NotZero(t, s.Integral())

	s.Reset()
	assert.Zero(t, s.Integral())
	assert.Zero(t, s.PreviousError())
}

func TestUpdate_Disabled_FallbackStepper(t *testing.T) {
	s := New(2.0, 0.1, 0.5, 0, 100)
	s.Enabled = false

	duty := s.Update(85, 45, 65, 20) // error = 20 >= 0
	assert.Equal(t, 22, duty)

	duty = s.Update(40, 40, 65, 22) // error = -25 < 0
	assert.Equal(t, 20, duty)
}

func TestUpdate_Disabled_FallbackFloor(t *testing.T) {
	s := New(2.0, 0.1, 0.5, 0, 100)
	s.Enabled = false

	duty := s.Update(70, 70, 65, 5) // error >= 0, duty=5+2=7, floor 10
	assert.Equal(t, 10, duty)
}

func TestUpdate_SteadyIdle_ConvergesToZero(t *testing.T) {
	s := New(2.0, 0.1, 0.5, 0, 100)
	duty := 20
	for i := 0; i < 400; i++ {
		duty = s.Update(45, 45, 65, duty)
	}
	assert.Equal(t, 0, duty)
}
