package stage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	stages []Stage
}

func (r *recorder) set(s Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, s)
}

func (r *recorder) snapshot() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stage, len(r.stages))
	copy(out, r.stages)
	return out
}

func TestDriver_AdvancesToScoringAndHalts(t *testing.T) {
	rec := &recorder{}
	d := NewDriver(5*time.Millisecond, rec.set)

	d.Start()
	assert.Equal(t, []Stage{Uploading}, rec.snapshot()[:1])

	require.Eventually(t, func() bool { return !d.Running() }, time.Second, time.Millisecond)
	assert.Equal(t, []Stage{Uploading, Parsing, Structuring, Scoring}, rec.snapshot())

	// Nothing past Scoring, even well after the schedule has drained.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 4)
	d.Stop()
}

func TestDriver_StopHaltsFurtherWrites(t *testing.T) {
	rec := &recorder{}
	d := NewDriver(time.Hour, rec.set)

	d.Start()
	assert.True(t, d.Running())
	d.Stop()
	assert.False(t, d.Running())

	assert.Equal(t, []Stage{Uploading}, rec.snapshot())
}

func TestDriver_StopIsIdempotent(t *testing.T) {
	d := NewDriver(time.Millisecond, func(Stage) {})
	d.Stop()
	d.Start()
	d.Stop()
	d.Stop()
	assert.False(t, d.Running())
}

func TestDriver_RestartCancelsPreviousSchedule(t *testing.T) {
	rec := &recorder{}
	d := NewDriver(time.Hour, rec.set)

	d.Start()
	d.Start()
	d.Stop()

	assert.Equal(t, []Stage{Uploading, Uploading}, rec.snapshot())
}

func TestDriver_NeverWritesTerminalStages(t *testing.T) {
	rec := &recorder{}
	d := NewDriver(time.Millisecond, rec.set)
	d.Start()
	require.Eventually(t, func() bool { return !d.Running() }, time.Second, time.Millisecond)
	d.Stop()

	for _, s := range rec.snapshot() {
		assert.NotEqual(t, Idle, s)
		assert.False(t, s.Terminal())
	}
}

func TestNewDriver_DefaultInterval(t *testing.T) {
	d := NewDriver(0, func(Stage) {})
	assert.Equal(t, DefaultInterval, d.interval)
}
