package quiz

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountdownFiresExactlyOnce(t *testing.T) {
	var fired atomic.Int32
	c := NewCountdown(3, time.Millisecond, func() { fired.Add(1) })
	c.Start()
	c.Start() // double start must not add a second timer chain

	assert.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 5*time.Millisecond)

	// Give any stray timer a chance to misfire.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, 0, c.Remaining())
}

func TestCountdownStopSuppressesCompletion(t *testing.T) {
	var fired atomic.Int32
	c := NewCountdown(5, time.Millisecond, func() { fired.Add(1) })
	c.Start()
	c.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestCountdownStopAfterFireIsHarmless(t *testing.T) {
	var fired atomic.Int32
	c := NewCountdown(1, time.Millisecond, func() { fired.Add(1) })
	c.Start()

	assert.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 5*time.Millisecond)
	c.Stop()
	assert.Equal(t, int32(1), fired.Load())
}

func TestCountdownZeroStartFiresImmediately(t *testing.T) {
	var fired atomic.Int32
	c := NewCountdown(0, time.Millisecond, func() { fired.Add(1) })
	c.Start()

	assert.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, time.Millisecond)
}

func TestCountdownStopBeforeStartNeverFires(t *testing.T) {
	var fired atomic.Int32
	c := NewCountdown(2, time.Millisecond, func() { fired.Add(1) })
	c.Stop()
	c.Start()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
