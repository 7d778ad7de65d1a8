package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/draftoverlay/go/internal/draft/order"
	"github.com/mcdev12/draftoverlay/go/internal/snapshot"
)

func (h *harness) waitSeconds(t *testing.T, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.ctrl.State().TimerSeconds == want
	}, 2*time.Second, 2*time.Millisecond, "timer never reached %d", want)
}

func TestTickerCountsDown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.ctrl.SetTimerRunning(ctx, true)
	for want := 119; want >= 115; want-- {
		h.clock.Advance(time.Second)
		h.waitSeconds(t, want)
	}
	assert.True(t, h.ctrl.State().IsTimerRunning)
}

func TestOnlyOneTickerRuns(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.ctrl.SetTimerRunning(ctx, true)
	require.NoError(t, h.ctrl.AdvancePick(ctx))
	require.NoError(t, h.ctrl.AdvancePick(ctx))
	h.ctrl.SetTimerRunning(ctx, false)
	h.ctrl.SetTimerRunning(ctx, true)

	h.clock.Advance(time.Second)
	h.waitSeconds(t, 119)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 119, h.ctrl.State().TimerSeconds, "a second tick means a leaked ticker")
}

func TestStoppedTimerDoesNotTick(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.ctrl.SetTimerRunning(ctx, true)
	h.clock.Advance(time.Second)
	h.waitSeconds(t, 119)

	h.ctrl.SetTimerRunning(ctx, false)
	h.clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)

	s := h.ctrl.State()
	assert.False(t, s.IsTimerRunning)
	assert.Equal(t, 119, s.TimerSeconds)

	// Tick on a stopped clock is a no-op too.
	h.ctrl.Tick(ctx)
	assert.Equal(t, 119, h.ctrl.State().TimerSeconds)
}

func TestResetTimer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.ctrl.SetTimerRunning(ctx, true)
	h.ctrl.Tick(ctx)
	h.ctrl.Tick(ctx)
	h.ctrl.ResetTimer(ctx)

	s := h.ctrl.State()
	assert.Equal(t, 120, s.TimerSeconds)
	assert.False(t, s.IsTimerRunning)
}

func TestExpiryAdvancesWithoutDrafting(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.ctrl.SetTimerRunning(ctx, true)
	for i := 0; i < 119; i++ {
		h.ctrl.Tick(ctx)
	}
	require.Equal(t, 1, h.ctrl.State().TimerSeconds)
	require.Equal(t, 0, h.ctrl.State().CurrentPickIndex)

	h.ctrl.Tick(ctx)

	s := h.ctrl.State()
	assert.Equal(t, 1, s.CurrentPickIndex)
	assert.Equal(t, 120, s.TimerSeconds)
	assert.True(t, s.IsTimerRunning)
	assert.Empty(t, s.DraftHistory, "expiry passes the pick, it doesn't auto-draft")
}

func TestExpiryOnLastPickStops(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	for i := 0; i < 47; i++ {
		require.NoError(t, h.ctrl.AdvancePick(ctx))
	}
	for i := 0; i < 120; i++ {
		h.ctrl.Tick(ctx)
	}

	s := h.ctrl.State()
	assert.Equal(t, 47, s.CurrentPickIndex)
	assert.Equal(t, 0, s.TimerSeconds)
	assert.False(t, s.IsTimerRunning)

	h.ctrl.Tick(ctx)
	assert.Equal(t, 0, h.ctrl.State().TimerSeconds)
}

func TestStartingAnEmptyClockExpires(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	for i := 0; i < 47; i++ {
		require.NoError(t, h.ctrl.AdvancePick(ctx))
	}
	for i := 0; i < 120; i++ {
		h.ctrl.Tick(ctx)
	}
	require.Equal(t, 0, h.ctrl.State().TimerSeconds)

	h.ctrl.SetTimerRunning(ctx, true)

	s := h.ctrl.State()
	assert.False(t, s.IsTimerRunning, "an empty clock on the last pick can't run")
	assert.Equal(t, 47, s.CurrentPickIndex)
	assert.Equal(t, 0, s.TimerSeconds)
}

func TestDraftingTheFinalPickStopsTheClock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	for i := 0; i < 47; i++ {
		require.NoError(t, h.ctrl.AdvancePick(ctx))
	}
	require.NoError(t, h.ctrl.DraftPlayer(ctx, h.playerName(1)))

	s := h.ctrl.State()
	assert.Equal(t, 47, s.CurrentPickIndex)
	assert.False(t, s.IsTimerRunning)
	require.Len(t, s.DraftHistory, 1)
	assert.Equal(t, 47, s.DraftHistory[0].PickIndex)
	assert.LessOrEqual(t, len(s.DraftHistory), s.CurrentPickIndex+1)
}

func TestCloseStopsTicker(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.ctrl.SetTimerRunning(ctx, true)
	h.ctrl.Close(ctx)

	h.clock.Advance(3 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 120, h.ctrl.State().TimerSeconds)
}

// savedAtZero leaves a running clock at zero in the backend, as if the process
// died between the final tick and its expiry.
func savedAtZero(t *testing.T, pickIndex int) *snapshot.MemoryBackend {
	t.Helper()
	ctx := context.Background()
	backend := snapshot.NewMemoryBackend()
	store := snapshot.NewStore(backend)
	store.SaveState(snapshot.Snapshot{
		CurrentPickIndex: pickIndex,
		DraftOrder:       order.Generate(12, 4),
		TimerSeconds:     0,
		IsTimerRunning:   true,
	})
	store.Flush(ctx)
	return backend
}

func TestRunningClockSavedAtZeroExpiresOnStart(t *testing.T) {
	ctx := context.Background()
	h := newHarnessWithBackend(t, savedAtZero(t, 3))
	require.NoError(t, h.ctrl.Start(ctx))

	s := h.ctrl.State()
	assert.Equal(t, 4, s.CurrentPickIndex)
	assert.Equal(t, 120, s.TimerSeconds)
	assert.True(t, s.IsTimerRunning)

	h.clock.Advance(time.Second)
	h.waitSeconds(t, 119)
}

func TestRunningClockSavedAtZeroOnLastPickStops(t *testing.T) {
	ctx := context.Background()
	h := newHarnessWithBackend(t, savedAtZero(t, 47))
	require.NoError(t, h.ctrl.Start(ctx))

	s := h.ctrl.State()
	assert.Equal(t, 47, s.CurrentPickIndex)
	assert.Equal(t, 0, s.TimerSeconds)
	assert.False(t, s.IsTimerRunning)
}

func TestTickOnRunningEmptyClockExpires(t *testing.T) {
	ctx := context.Background()
	h := newHarnessWithBackend(t, savedAtZero(t, 5))

	h.ctrl.Tick(ctx)

	s := h.ctrl.State()
	assert.Equal(t, 6, s.CurrentPickIndex)
	assert.Equal(t, 120, s.TimerSeconds)
	assert.True(t, s.IsTimerRunning)
}
