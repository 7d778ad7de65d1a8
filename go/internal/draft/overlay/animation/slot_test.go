package animation

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTiming = Timing{Enter: 500 * time.Millisecond, Hold: 2 * time.Second, Exit: 500 * time.Millisecond}

func TestSlotPhasesAndCompletion(t *testing.T) {
	clock := clockwork.NewFakeClock()
	slot := NewSlot("announce", CancelAndRestart, testTiming, clock)

	var fired atomic.Int32
	require.True(t, slot.Trigger("Cam Ward", "payload", func() { fired.Add(1) }))

	active, ok := slot.Active()
	require.True(t, ok)
	assert.Equal(t, "Cam Ward", active.Key)
	assert.Equal(t, "payload", active.Payload)
	assert.Equal(t, PhaseEntering, active.Phase)

	clock.Advance(time.Second)
	active, _ = slot.Active()
	assert.Equal(t, PhaseHolding, active.Phase)

	clock.Advance(1700 * time.Millisecond)
	active, _ = slot.Active()
	assert.Equal(t, PhaseExiting, active.Phase)

	clock.Advance(300 * time.Millisecond)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	assert.False(t, slot.Busy())

	clock.Advance(10 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load(), "completion must fire exactly once")
}

func TestDropIfBusy(t *testing.T) {
	clock := clockwork.NewFakeClock()
	slot := NewSlot("on-clock", DropIfBusy, testTiming, clock)

	var first, second atomic.Int32
	require.True(t, slot.Trigger("team-4", nil, func() { first.Add(1) }))
	assert.False(t, slot.Trigger("team-5", nil, func() { second.Add(1) }))

	active, _ := slot.Active()
	assert.Equal(t, "team-4", active.Key)

	clock.Advance(testTiming.Total())
	require.Eventually(t, func() bool { return first.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), second.Load())

	// Idle again, so a new trigger is accepted.
	assert.True(t, slot.Trigger("team-5", nil, nil))
}

func TestCancelAndRestart(t *testing.T) {
	clock := clockwork.NewFakeClock()
	slot := NewSlot("announce", CancelAndRestart, testTiming, clock)

	var old, replacement atomic.Int32
	require.True(t, slot.Trigger("Cam Ward", nil, func() { old.Add(1) }))
	clock.Advance(time.Second)

	assert.False(t, slot.Trigger("Cam Ward", nil, func() { replacement.Add(1) }), "same key is ignored")
	require.True(t, slot.Trigger("Travis Hunter", nil, func() { replacement.Add(1) }))

	active, _ := slot.Active()
	assert.Equal(t, "Travis Hunter", active.Key)
	assert.Equal(t, PhaseEntering, active.Phase)

	clock.Advance(testTiming.Total())
	require.Eventually(t, func() bool { return replacement.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), old.Load(), "a replaced presentation never completes")
}

func TestCancelSuppressesCompletion(t *testing.T) {
	clock := clockwork.NewFakeClock()
	slot := NewSlot("announce", CancelAndRestart, testTiming, clock)

	var fired atomic.Int32
	slot.Trigger("Cam Ward", nil, func() { fired.Add(1) })
	assert.True(t, slot.Cancel())
	assert.False(t, slot.Cancel())
	assert.False(t, slot.Busy())

	_, ok := slot.Active()
	assert.False(t, ok)

	clock.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestCompletionMayRetrigger(t *testing.T) {
	clock := clockwork.NewFakeClock()
	slot := NewSlot("on-clock", DropIfBusy, testTiming, clock)

	restarted := make(chan bool, 1)
	slot.Trigger("a", nil, func() {
		restarted <- slot.Trigger("b", nil, nil)
	})
	clock.Advance(testTiming.Total())

	select {
	case ok := <-restarted:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("completion callback never ran")
	}
	active, ok := slot.Active()
	require.True(t, ok)
	assert.Equal(t, "b", active.Key)
}

func TestTimingTotal(t *testing.T) {
	assert.Equal(t, 3*time.Second, testTiming.Total())
	assert.Equal(t, "drop_if_busy", DropIfBusy.String())
	assert.Equal(t, "cancel_and_restart", CancelAndRestart.String())
}
