package admin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/draftoverlay/go/internal/broadcast"
	"github.com/mcdev12/draftoverlay/go/internal/draft/order"
	"github.com/mcdev12/draftoverlay/go/internal/models"
	"github.com/mcdev12/draftoverlay/go/internal/reference"
	"github.com/mcdev12/draftoverlay/go/internal/snapshot"
)

type recorder struct {
	mu   sync.Mutex
	msgs []broadcast.Message
}

func (r *recorder) handle(m broadcast.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) all() []broadcast.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcast.Message(nil), r.msgs...)
}

func (r *recorder) types() []broadcast.MessageType {
	var out []broadcast.MessageType
	for _, m := range r.all() {
		out = append(out, m.Type())
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

type harness struct {
	ctrl    *Controller
	clock   *clockwork.FakeClock
	backend snapshot.Backend
	store   *snapshot.Store
	bus     *broadcast.Bus
	peer    broadcast.Channel
	seen    *recorder
	ds      *reference.Dataset
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithBackend(t, snapshot.NewMemoryBackend())
}

func newHarnessWithBackend(t *testing.T, backend snapshot.Backend) *harness {
	t.Helper()
	ctx := context.Background()

	ds, err := reference.Load()
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	store := snapshot.NewStore(backend, snapshot.WithClock(clock))
	bus := broadcast.NewBus()

	adminCh, err := bus.Open(ctx, broadcast.DefaultChannelName)
	require.NoError(t, err)
	peer, err := bus.Open(ctx, broadcast.DefaultChannelName)
	require.NoError(t, err)

	seen := &recorder{}
	peer.Subscribe(seen.handle)

	ctrl, err := NewController(ctx, Config{Settings: models.DefaultDraftSettings()}, Deps{
		Dataset: ds,
		Store:   store,
		Channel: adminCh,
		Clock:   clock,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		ctrl.Close(context.Background())
		bus.Close()
	})

	return &harness{ctrl: ctrl, clock: clock, backend: backend, store: store, bus: bus, peer: peer, seen: seen, ds: ds}
}

// waitTypes waits until the peer has seen exactly want, in order.
func (h *harness) waitTypes(t *testing.T, want ...broadcast.MessageType) {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.seen.all()) >= len(want) }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, want, h.seen.types())
}

// settle waits for n messages to arrive and then forgets them.
func (h *harness) settle(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.seen.all()) >= n }, 2*time.Second, 5*time.Millisecond)
	h.seen.reset()
}

func (h *harness) playerName(rank int) string {
	for _, p := range h.ds.FreshPlayers() {
		if p.OverallRank == rank {
			return p.Name
		}
	}
	return ""
}

func TestFreshState(t *testing.T) {
	h := newHarness(t)
	s := h.ctrl.State()

	assert.Equal(t, 0, s.CurrentPickIndex)
	assert.Equal(t, order.Generate(12, 4), s.DraftOrder)
	assert.Equal(t, 120, s.TimerSeconds)
	assert.False(t, s.IsTimerRunning)
	assert.Equal(t, 120, s.DefaultDuration)
	assert.Empty(t, s.DraftHistory)
	assert.Nil(t, s.SelectedPlayer)
	assert.Equal(t, 1, s.CurrentTeamID())
	for _, p := range s.Players {
		assert.False(t, p.Drafted)
	}
}

func TestAdvancePick(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	for i := 0; i < 47; i++ {
		require.NoError(t, h.ctrl.AdvancePick(ctx))
		s := h.ctrl.State()
		assert.Equal(t, i+1, s.CurrentPickIndex)
		assert.Equal(t, 120, s.TimerSeconds)
		assert.True(t, s.IsTimerRunning)
	}

	before := h.ctrl.State()
	err := h.ctrl.AdvancePick(ctx)
	assert.ErrorIs(t, err, ErrLastPick)
	assert.Equal(t, before, h.ctrl.State())
}

func TestAdvanceRefillsClock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.ctrl.SetTimerRunning(ctx, true)
	for i := 0; i < 30; i++ {
		h.ctrl.Tick(ctx)
	}
	require.Equal(t, 90, h.ctrl.State().TimerSeconds)

	require.NoError(t, h.ctrl.AdvancePick(ctx))
	assert.Equal(t, 120, h.ctrl.State().TimerSeconds)
}

func TestRetreatPick(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	assert.ErrorIs(t, h.ctrl.RetreatPick(ctx), ErrFirstPick)

	require.NoError(t, h.ctrl.DraftPlayer(ctx, h.playerName(1)))
	require.NoError(t, h.ctrl.RetreatPick(ctx))

	s := h.ctrl.State()
	assert.Equal(t, 0, s.CurrentPickIndex)
	assert.False(t, s.IsTimerRunning)
	assert.Equal(t, 120, s.TimerSeconds)
	require.Len(t, s.DraftHistory, 1, "retreat doesn't undo the pick")
	assert.True(t, s.Players[0].Drafted)
}

func TestDraftThreePlayers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	names := []string{h.playerName(1), h.playerName(2), h.playerName(3)}
	for _, n := range names {
		require.NoError(t, h.ctrl.DraftPlayer(ctx, n))
	}

	s := h.ctrl.State()
	require.Len(t, s.DraftHistory, 3)
	assert.Equal(t, 3, s.CurrentPickIndex)
	for i, p := range s.DraftHistory {
		assert.Equal(t, i, p.PickIndex)
		assert.Equal(t, s.DraftOrder[p.PickIndex], p.TeamID)
		assert.Equal(t, names[i], p.Player.Name)
		assert.True(t, p.Player.Drafted)
	}
	for _, p := range s.Players {
		want := p.Name == names[0] || p.Name == names[1] || p.Name == names[2]
		assert.Equal(t, want, p.Drafted, p.Name)
	}
	require.NotNil(t, s.SelectedPlayer)
	assert.Equal(t, names[2], s.SelectedPlayer.Player.Name)
	assert.True(t, s.IsTimerRunning)
	assert.Equal(t, 120, s.TimerSeconds)

	h.waitTypes(t,
		broadcast.TypePlayerDrafted, broadcast.TypeStateUpdate,
		broadcast.TypePlayerDrafted, broadcast.TypeStateUpdate,
		broadcast.TypePlayerDrafted, broadcast.TypeStateUpdate,
	)

	msgs := h.seen.all()
	drafted := msgs[4].(broadcast.PlayerDrafted)
	assert.Equal(t, 2, drafted.PickIndex)
	assert.Equal(t, names[2], drafted.Pick.Player.Name)

	update := msgs[5].(broadcast.StateUpdate)
	assert.Equal(t, 3, *update.CurrentPickIndex)
	assert.Equal(t, s.DraftOrder[3], *update.CurrentTeamID)
	assert.Len(t, update.DraftHistory, 3)
}

func TestDraftRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	name := h.playerName(1)

	require.NoError(t, h.ctrl.DraftPlayer(ctx, name))
	before := h.ctrl.State()
	h.settle(t, 2)

	err := h.ctrl.DraftPlayer(ctx, name)
	assert.ErrorIs(t, err, ErrAlreadyDrafted)
	assert.Equal(t, before, h.ctrl.State())

	err = h.ctrl.DraftPlayer(ctx, "Nobody Special")
	assert.ErrorIs(t, err, ErrUnknownPlayer)
	assert.Equal(t, before, h.ctrl.State())

	require.NoError(t, h.ctrl.RetreatPick(ctx))
	err = h.ctrl.DraftPlayer(ctx, h.playerName(2))
	assert.ErrorIs(t, err, ErrPickAlreadyMade)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []broadcast.MessageType{broadcast.TypeStateUpdate}, h.seen.types(), "only the retreat is broadcast")
}

func TestUndoThenRedraftReproducesPick(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.ctrl.DraftPlayer(ctx, h.playerName(1)))
	require.NoError(t, h.ctrl.DraftPlayer(ctx, h.playerName(2)))
	original := h.ctrl.State().DraftHistory[1]

	h.settle(t, 4)
	require.NoError(t, h.ctrl.UndoPick(ctx))

	s := h.ctrl.State()
	assert.Equal(t, 1, s.CurrentPickIndex)
	assert.Len(t, s.DraftHistory, 1)
	assert.False(t, s.IsTimerRunning)
	assert.Equal(t, 120, s.TimerSeconds)
	require.NotNil(t, s.SelectedPlayer)
	assert.Equal(t, h.playerName(1), s.SelectedPlayer.Player.Name)
	for _, p := range s.Players {
		if p.Name == original.Player.Name {
			assert.False(t, p.Drafted)
		}
	}

	h.waitTypes(t, broadcast.TypeUndoPick, broadcast.TypeStateUpdate)
	undo := h.seen.all()[0].(broadcast.UndoPick)
	assert.Equal(t, 1, undo.PickIndex)
	assert.Equal(t, original.Player.Name, undo.Player.Name)
	assert.False(t, undo.Player.Drafted)

	h.clock.Advance(time.Minute)
	require.NoError(t, h.ctrl.DraftPlayer(ctx, original.Player.Name))
	redrafted := h.ctrl.State().DraftHistory[1]

	assert.NotEqual(t, original.Timestamp, redrafted.Timestamp)
	redrafted.Timestamp = original.Timestamp
	assert.Equal(t, original, redrafted)
}

func TestUndoNoop(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	assert.ErrorIs(t, h.ctrl.UndoPick(ctx), ErrNothingToUndo)

	// History present but the pointer was walked back to the first pick.
	require.NoError(t, h.ctrl.DraftPlayer(ctx, h.playerName(1)))
	require.NoError(t, h.ctrl.RetreatPick(ctx))
	before := h.ctrl.State()
	assert.ErrorIs(t, h.ctrl.UndoPick(ctx), ErrNothingToUndo)
	assert.Equal(t, before, h.ctrl.State())
}

func TestUndoLastClearsSelection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.ctrl.DraftPlayer(ctx, h.playerName(1)))
	require.NoError(t, h.ctrl.UndoPick(ctx))

	s := h.ctrl.State()
	assert.Nil(t, s.SelectedPlayer)
	assert.Empty(t, s.DraftHistory)
	assert.Equal(t, 0, s.CurrentPickIndex)
}

func TestResetDraft(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	custom := order.Generate(12, 4)
	custom[0], custom[1] = custom[1], custom[0]
	require.NoError(t, h.ctrl.SetDraftOrder(ctx, custom))
	for rank := 1; rank <= 5; rank++ {
		require.NoError(t, h.ctrl.DraftPlayer(ctx, h.playerName(rank)))
	}
	h.settle(t, 11)

	h.ctrl.ResetDraft(ctx)

	s := h.ctrl.State()
	assert.Empty(t, s.DraftHistory)
	assert.Equal(t, 0, s.CurrentPickIndex)
	assert.False(t, s.IsTimerRunning)
	assert.Equal(t, 120, s.TimerSeconds)
	assert.Nil(t, s.SelectedPlayer)
	assert.Equal(t, custom, s.DraftOrder, "reset keeps the edited order")
	for _, p := range s.Players {
		assert.False(t, p.Drafted)
	}

	h.waitTypes(t, broadcast.TypeDraftReset, broadcast.TypeStateUpdate)
}

func TestSetDraftOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	bad := order.Generate(12, 4)
	bad[5] = 42
	err := h.ctrl.SetDraftOrder(ctx, bad)
	var verr *order.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 42, verr.Slots[0].TeamID)
	assert.Equal(t, order.Generate(12, 4), h.ctrl.State().DraftOrder)

	assert.Error(t, h.ctrl.SetDraftOrder(ctx, []int{1, 2, 3}))

	good := order.Generate(12, 4)
	good[0] = 7
	require.NoError(t, h.ctrl.SetDraftOrder(ctx, good))
	good[1] = 9 // caller's slice must not alias the live order
	s := h.ctrl.State()
	assert.Equal(t, 7, s.CurrentTeamID())
	assert.Equal(t, 2, s.DraftOrder[1])
}

func TestDefaultOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	assert.Equal(t, order.Generate(12, 4), h.ctrl.DefaultOrder(ctx))

	saved := order.Generate(12, 4)
	saved[0], saved[11] = 12, 1
	require.NoError(t, h.ctrl.SaveDefaultOrder(ctx, saved))
	assert.Equal(t, saved, h.ctrl.DefaultOrder(ctx))
	assert.Equal(t, order.Generate(12, 4), h.ctrl.State().DraftOrder, "live order is independent")

	assert.Error(t, h.ctrl.SaveDefaultOrder(ctx, []int{99}))
}

func TestSetDefaultDuration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	assert.ErrorIs(t, h.ctrl.SetDefaultDuration(ctx, 45), ErrInvalidDuration)

	require.NoError(t, h.ctrl.SetDefaultDuration(ctx, 300))
	s := h.ctrl.State()
	assert.Equal(t, 300, s.DefaultDuration)
	assert.Equal(t, 300, s.TimerSeconds, "stopped clock is refilled")

	secs, ok := h.store.LoadDefaultDuration(ctx)
	require.True(t, ok)
	assert.Equal(t, 300, secs)

	h.ctrl.SetTimerRunning(ctx, true)
	h.ctrl.Tick(ctx)
	require.NoError(t, h.ctrl.SetDefaultDuration(ctx, 60))
	s = h.ctrl.State()
	assert.Equal(t, 299, s.TimerSeconds, "running clock keeps counting")

	require.NoError(t, h.ctrl.AdvancePick(ctx))
	assert.Equal(t, 60, h.ctrl.State().TimerSeconds)
}

// slowBackend holds every default-duration write until release is closed.
type slowBackend struct {
	*snapshot.MemoryBackend
	entered chan struct{}
	release chan struct{}
}

func (b *slowBackend) Set(ctx context.Context, key string, value []byte) error {
	if key == snapshot.KeyDefaultDuration {
		b.entered <- struct{}{}
		<-b.release
	}
	return b.MemoryBackend.Set(ctx, key, value)
}

func TestSlowDurationWriteDoesNotBlockTheController(t *testing.T) {
	ctx := context.Background()
	backend := &slowBackend{
		MemoryBackend: snapshot.NewMemoryBackend(),
		entered:       make(chan struct{}, 1),
		release:       make(chan struct{}),
	}
	h := newHarnessWithBackend(t, backend)
	h.ctrl.SetTimerRunning(ctx, true)

	done := make(chan error, 1)
	go func() { done <- h.ctrl.SetDefaultDuration(ctx, 300) }()

	select {
	case <-backend.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("duration write never started")
	}

	// The write is stuck; the clock and readers must carry on.
	assert.Equal(t, 300, h.ctrl.State().DefaultDuration)
	h.clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return h.ctrl.State().TimerSeconds == 119
	}, 2*time.Second, 2*time.Millisecond)

	close(backend.release)
	require.NoError(t, <-done)

	raw, err := backend.Get(ctx, snapshot.KeyDefaultDuration)
	require.NoError(t, err)
	assert.Equal(t, "300", string(raw))
}

func TestToggleView(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.ctrl.ToggleView(ctx, true)
	assert.True(t, h.ctrl.State().ShowBestAvailable)
	h.waitTypes(t, broadcast.TypeToggleView)
	assert.Equal(t, broadcast.ToggleView{ShowBestAvailable: true}, h.seen.all()[0])
}

func TestAvailablePlayers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	all := h.ctrl.AvailablePlayers()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].OverallRank, all[i].OverallRank)
	}

	require.NoError(t, h.ctrl.DraftPlayer(ctx, all[0].Name))
	for _, p := range h.ctrl.AvailablePlayers() {
		assert.NotEqual(t, all[0].Name, p.Name)
	}

	require.NoError(t, h.ctrl.SetFilters(ctx, "", "te"))
	tes := h.ctrl.AvailablePlayers()
	require.NotEmpty(t, tes)
	for _, p := range tes {
		assert.Equal(t, models.PositionTE, p.Position)
	}

	require.NoError(t, h.ctrl.SetFilters(ctx, "ohio state", "ALL"))
	for _, p := range h.ctrl.AvailablePlayers() {
		assert.Equal(t, "Ohio State", p.College)
	}
	assert.Equal(t, "ALL", h.ctrl.State().PositionFilter)

	assert.ErrorIs(t, h.ctrl.SetFilters(ctx, "", "LB"), ErrInvalidPosition)
}

func TestStateIsPersisted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.ctrl.DraftPlayer(ctx, h.playerName(1)))
	h.store.Flush(ctx)

	snap, ok := h.store.LoadState(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, snap.CurrentPickIndex)
	require.Len(t, snap.DraftHistory, 1)
	assert.Equal(t, h.playerName(1), snap.DraftHistory[0].Player.Name)
	require.NotNil(t, snap.SelectedPlayer)
}

func TestRehydrateFromStore(t *testing.T) {
	ctx := context.Background()
	backend := snapshot.NewMemoryBackend()

	first := newHarnessWithBackend(t, backend)
	require.NoError(t, first.ctrl.DraftPlayer(ctx, first.playerName(1)))
	require.NoError(t, first.ctrl.DraftPlayer(ctx, first.playerName(2)))
	first.ctrl.Close(ctx)
	want := first.ctrl.State()

	second := newHarnessWithBackend(t, backend)
	got := second.ctrl.State()
	assert.Equal(t, want.CurrentPickIndex, got.CurrentPickIndex)
	assert.Equal(t, want.DraftOrder, got.DraftOrder)
	assert.Len(t, got.DraftHistory, 2)
	assert.Equal(t, want.Players, got.Players)
	assert.Equal(t, want.SelectedPlayer.Player.Name, got.SelectedPlayer.Player.Name)
}

func TestRehydrateDiscardsInvalidOrder(t *testing.T) {
	ctx := context.Background()
	backend := snapshot.NewMemoryBackend()
	require.NoError(t, backend.Set(ctx, snapshot.KeyState, []byte(`{"currentPickIndex":2,"draftOrder":[1,2,99],"timerSeconds":10}`)))
	require.NoError(t, backend.Set(ctx, snapshot.KeyDefaultDuration, []byte(`180`)))

	h := newHarnessWithBackend(t, backend)
	s := h.ctrl.State()
	assert.Equal(t, 0, s.CurrentPickIndex)
	assert.Equal(t, order.Generate(12, 4), s.DraftOrder)
	assert.Equal(t, 180, s.TimerSeconds)
	assert.Equal(t, 180, s.DefaultDuration)
}

func TestRehydrateUsesSavedDefaultOrder(t *testing.T) {
	backend := snapshot.NewMemoryBackend()
	saved := order.Generate(12, 4)
	saved[0], saved[1] = 2, 1
	store := snapshot.NewStore(backend)
	store.SaveDefaultOrder(context.Background(), saved)

	h := newHarnessWithBackend(t, backend)
	assert.Equal(t, saved, h.ctrl.State().DraftOrder)
	assert.Equal(t, 2, h.ctrl.State().CurrentTeamID())
}

func TestStartAnswersRequestState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.ctrl.DraftPlayer(ctx, h.playerName(1)))
	require.NoError(t, h.ctrl.Start(ctx))
	h.settle(t, 3)

	require.NoError(t, h.peer.Publish(ctx, broadcast.RequestState{}))
	h.waitTypes(t, broadcast.TypeStateUpdate)

	u := h.seen.all()[0].(broadcast.StateUpdate)
	s := h.ctrl.State()
	assert.Equal(t, s.CurrentTeamID(), *u.CurrentTeamID)
	assert.Equal(t, s.CurrentPickIndex, *u.CurrentPickIndex)
	assert.Equal(t, s.TimerSeconds, *u.TimerSeconds)
	assert.Equal(t, s.IsTimerRunning, *u.IsTimerRunning)
	assert.Len(t, u.DraftHistory, 1)
}

func TestClosedControllerIgnoresRequests(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.ctrl.Start(ctx))
	h.settle(t, 1)

	h.ctrl.Close(ctx)
	require.NoError(t, h.peer.Publish(ctx, broadcast.RequestState{}))
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, h.seen.all())
	assert.ErrorIs(t, h.ctrl.Start(ctx), ErrControllerClosed)
}
