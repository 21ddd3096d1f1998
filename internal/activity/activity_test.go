package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUpdate_IdleSamplesInhibitLearning(t *testing.T) {
	d := New(DefaultConfig())
	base := time.Unix(0, 0)

	for i := 0; i < 400; i++ {
		now := base.Add(time.Duration(i) * time.Second)
		d.Update(now, 45, 20)
	}
	assert.True(t, d.LearningInhibited())
}

func TestUpdate_ActivitySpikeClearsInhibition(t *testing.T) {
	d := New(DefaultConfig())
	base := time.Unix(0, 0)

	for i := 0; i < 10; i++ {
		d.Update(base.Add(time.Duration(i)*time.Second), 45, 20)
	}
	assert.True(t, d.LearningInhibited())

	active := d.Update(base.Add(11*time.Second), 85, 20)
	assert.True(t, active)
	assert.False(t, d.LearningInhibited())
}

func TestUpdate_TempDeltaTriggersActive(t *testing.T) {
	d := New(DefaultConfig())
	base := time.Unix(0, 0)
	d.Update(base, 45, 20)

	active := d.Update(base.Add(time.Second), 48, 20) // delta 3 >= threshold 2
	assert.True(t, active)
}

func TestUpdate_FanDeltaTriggersActive(t *testing.T) {
	d := New(DefaultConfig())
	base := time.Unix(0, 0)
	d.Update(base, 45, 20)

	active := d.Update(base.Add(time.Second), 45, 30) // delta 10 >= threshold 5
	assert.True(t, active)
}

func TestUpdate_StablePeriodInhibitsEvenWithoutMaxIdleCycles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIdleCycles = 1000 // disable the idle-cycle path
	cfg.StablePeriod = 10 * time.Second
	d := New(cfg)
	base := time.Unix(0, 0)

	d.Update(base, 45, 20)
	d.Update(base.Add(5*time.Second), 45, 20)
	assert.False(t, d.LearningInhibited())

	d.Update(base.Add(20*time.Second), 45, 20)
	assert.True(t, d.LearningInhibited())
}
