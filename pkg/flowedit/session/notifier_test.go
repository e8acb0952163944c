package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNotifier_CoalescesBurst verifies a burst of triggers yields a
// single trailing callback.
func TestNotifier_CoalescesBurst(t *testing.T) {
	var fired atomic.Int32
	n := NewNotifier(20*time.Millisecond, func() { fired.Add(1) })
	defer n.Stop()

	for i := 0; i < 10; i++ {
		n.Trigger()
	}

	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// No late second firing.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

// TestNotifier_SeparateBurstsFireSeparately verifies quiet gaps between
// bursts each produce a callback.
func TestNotifier_SeparateBurstsFireSeparately(t *testing.T) {
	var fired atomic.Int32
	n := NewNotifier(10*time.Millisecond, func() { fired.Add(1) })
	defer n.Stop()

	n.Trigger()
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)

	n.Trigger()
	require.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, time.Millisecond)
}

// TestNotifier_ZeroDelayIsSynchronous verifies a non-positive delay
// fires inline.
func TestNotifier_ZeroDelayIsSynchronous(t *testing.T) {
	var fired atomic.Int32
	n := NewNotifier(0, func() { fired.Add(1) })
	defer n.Stop()

	n.Trigger()
	n.Trigger()
	assert.Equal(t, int32(2), fired.Load())
}

// TestNotifier_StopCancelsPending verifies Stop suppresses a scheduled
// callback and later triggers.
func TestNotifier_StopCancelsPending(t *testing.T) {
	var fired atomic.Int32
	n := NewNotifier(20*time.Millisecond, func() { fired.Add(1) })

	n.Trigger()
	n.Stop()
	n.Trigger()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

// TestNotifier_Flush verifies a pending callback can be forced early.
func TestNotifier_Flush(t *testing.T) {
	var fired atomic.Int32
	n := NewNotifier(time.Hour, func() { fired.Add(1) })
	defer n.Stop()

	n.Trigger()
	n.Flush()
	assert.Equal(t, int32(1), fired.Load())

	// Flush with nothing pending is a no-op.
	n.Flush()
	assert.Equal(t, int32(1), fired.Load())
}
