// Package overlay rebuilds the broadcast view of the draft from the admin's
// messages. A Reconstructor never publishes anything that changes the draft; the
// only thing it ever sends is a request for a full resync.
package overlay

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftoverlay/go/internal/broadcast"
	"github.com/mcdev12/draftoverlay/go/internal/draft/order"
	"github.com/mcdev12/draftoverlay/go/internal/draft/overlay/animation"
	"github.com/mcdev12/draftoverlay/go/internal/models"
	"github.com/mcdev12/draftoverlay/go/internal/reference"
	"github.com/mcdev12/draftoverlay/go/internal/snapshot"
)

var (
	ErrMounted    = errors.New("overlay already mounted")
	ErrNotMounted = errors.New("overlay not mounted")
)

// Presentation timings for the two animated cards.
var (
	AnnouncementTiming = animation.Timing{Enter: 500 * time.Millisecond, Hold: 8500 * time.Millisecond, Exit: time.Second}
	OnTheClockTiming   = animation.Timing{Enter: 600 * time.Millisecond, Hold: 6 * time.Second, Exit: 600 * time.Millisecond}
)

const (
	defaultBestAvailable = 4
	defaultTeamHistory   = 4
	defaultNextTeams     = 2
)

// Config describes one overlay surface.
type Config struct {
	Kind     Kind
	Settings models.DraftSettings
}

// Deps are the collaborators a Reconstructor needs. Store may be nil, in which
// case the view starts from defaults.
type Deps struct {
	Dataset *reference.Dataset
	Store   *snapshot.Store
	Channel broadcast.Channel
	Clock   clockwork.Clock
}

// Reconstructor mirrors the admin's state for one overlay surface and drives
// its animations.
type Reconstructor struct {
	kind     Kind
	settings models.DraftSettings
	dataset  *reference.Dataset
	store    *snapshot.Store
	channel  broadcast.Channel
	clock    clockwork.Clock
	logger   zerolog.Logger

	announce *animation.Slot
	onClock  *animation.Slot

	mu                sync.Mutex
	mounted           bool
	sub               broadcast.Subscription
	currentTeamID     int
	currentPickIndex  int
	timerSeconds      int
	isTimerRunning    bool
	draftOrder        []int
	players           []models.Player
	selected          *models.Pick
	board             []*BoardCell
	showBestAvailable bool
	lastAppliedTeam   int
	// animGen moves on whenever animations are cancelled, so a completion that
	// was already on its way can tell it is stale.
	animGen uint64

	listenersMu sync.Mutex
	listeners   []func(ViewState)
}

// New builds an unmounted Reconstructor seeded with defaults.
func New(cfg Config, deps Deps) *Reconstructor {
	if cfg.Kind == "" {
		cfg.Kind = KindDisplay
	}
	if cfg.Settings.TeamsPerRound <= 0 || cfg.Settings.TotalRounds <= 0 {
		cfg.Settings = models.DefaultDraftSettings()
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	r := &Reconstructor{
		kind:     cfg.Kind,
		settings: cfg.Settings,
		dataset:  deps.Dataset,
		store:    deps.Store,
		channel:  deps.Channel,
		clock:    clock,
		logger:   log.With().Str("overlay", string(cfg.Kind)).Logger(),
		announce: animation.NewSlot("announcement", animation.CancelAndRestart, AnnouncementTiming, clock),
		onClock:  animation.NewSlot("on_the_clock", animation.DropIfBusy, OnTheClockTiming, clock),
	}
	r.resetLocked()
	return r
}

// Kind is the surface this Reconstructor feeds.
func (r *Reconstructor) Kind() Kind { return r.kind }

// Mount seeds the view from the last saved snapshot, subscribes to the channel
// and asks the admin for a full state.
func (r *Reconstructor) Mount(ctx context.Context) error {
	r.mu.Lock()
	if r.mounted {
		r.mu.Unlock()
		return ErrMounted
	}
	if r.store != nil {
		if snap, ok := r.store.LoadState(ctx); ok {
			r.seedLocked(*snap)
		}
	}
	r.mounted = true
	r.sub = r.channel.Subscribe(r.Apply)
	pickIndex, teamID := r.currentPickIndex, r.currentTeamID
	r.mu.Unlock()

	r.logger.Info().
		Int("pick_index", pickIndex).
		Int("team_id", teamID).
		Msg("overlay mounted")

	if err := r.channel.Publish(ctx, broadcast.RequestState{}); err != nil {
		r.logger.Warn().Err(err).Msg("resync request failed")
	}
	r.notify()
	return nil
}

// Unmount cancels the animations and stops listening. The channel stays open.
func (r *Reconstructor) Unmount() error {
	r.mu.Lock()
	if !r.mounted {
		r.mu.Unlock()
		return ErrNotMounted
	}
	r.mounted = false
	sub := r.sub
	r.sub = nil
	r.cancelAnimationsLocked()
	r.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	r.logger.Info().Msg("overlay unmounted")
	return nil
}

// OnChange registers fn to receive the view after every change. fn runs on the
// goroutine that caused the change.
func (r *Reconstructor) OnChange(fn func(ViewState)) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Reconstructor) notify() {
	r.listenersMu.Lock()
	ls := append([]func(ViewState){}, r.listeners...)
	r.listenersMu.Unlock()
	if len(ls) == 0 {
		return
	}
	v := r.View()
	for _, fn := range ls {
		fn(v)
	}
}

// Apply folds one message into the view. It is the channel handler and is
// exported so renderers fed from elsewhere (a websocket, a replay) can use it too.
func (r *Reconstructor) Apply(msg broadcast.Message) {
	r.mu.Lock()
	if !r.mounted {
		r.mu.Unlock()
		return
	}

	switch m := msg.(type) {
	case broadcast.StateUpdate:
		r.applyStateUpdateLocked(m)
	case broadcast.PlayerDrafted:
		r.applyPlayerDraftedLocked(m)
	case broadcast.UndoPick:
		r.applyUndoLocked(m)
	case broadcast.DraftReset:
		r.applyResetLocked()
	case broadcast.ToggleView:
		r.showBestAvailable = m.ShowBestAvailable
	case broadcast.RequestState:
		// Only the admin answers these.
		r.mu.Unlock()
		return
	default:
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.notify()
}

func (r *Reconstructor) applyStateUpdateLocked(m broadcast.StateUpdate) {
	if m.DraftOrder != nil {
		r.draftOrder = order.Clone(m.DraftOrder)
	}
	if m.CurrentPickIndex != nil {
		r.currentPickIndex = *m.CurrentPickIndex
	}
	if m.TimerSeconds != nil {
		r.timerSeconds = *m.TimerSeconds
	}
	if m.IsTimerRunning != nil {
		r.isTimerRunning = *m.IsTimerRunning
	}
	if m.Players != nil {
		r.players = models.ClonePlayers(m.Players)
	}
	if m.DraftHistory != nil {
		r.rebuildBoardLocked(m.DraftHistory)
		r.selected = nil
		if n := len(m.DraftHistory); n > 0 {
			last := m.DraftHistory[n-1]
			r.selected = &last
		}
	}
	if m.SelectedPlayer != nil {
		sel := *m.SelectedPlayer
		r.selected = &sel
	}
	if m.ShowBestAvailable != nil {
		r.showBestAvailable = *m.ShowBestAvailable
	}

	switch {
	case m.CurrentTeamID != nil:
		r.currentTeamID = *m.CurrentTeamID
	case m.CurrentPickIndex != nil || m.DraftOrder != nil:
		r.currentTeamID = r.teamAtLocked(r.currentPickIndex)
	}

	if r.currentTeamID != r.lastAppliedTeam {
		r.lastAppliedTeam = r.currentTeamID
		if !r.announce.Busy() {
			r.triggerOnClockLocked(r.currentTeamID)
		}
	}
}

func (r *Reconstructor) applyPlayerDraftedLocked(m broadcast.PlayerDrafted) {
	pick := m.Pick
	pick.PickIndex = m.PickIndex
	pick.Player.Drafted = true

	r.setDraftedLocked(pick.Player.Name, true)
	if r.inBoardLocked(m.PickIndex) {
		r.board[m.PickIndex] = newBoardCell(pick, r.settings.TeamsPerRound)
	}
	r.selected = &pick

	gen := r.animGen
	started := r.announce.Trigger(pick.Player.Name, pick, func() { r.announcementDone(gen) })
	r.logger.Info().
		Str("player", pick.Player.Name).
		Int("pick_index", m.PickIndex).
		Bool("announced", started).
		Msg("player drafted")
}

// announcementDone runs on the clock's goroutine once an announcement has
// fully played out, and hands the screen to whoever is on the clock now.
func (r *Reconstructor) announcementDone(gen uint64) {
	r.mu.Lock()
	if !r.mounted || gen != r.animGen {
		r.mu.Unlock()
		return
	}
	r.lastAppliedTeam = r.currentTeamID
	r.triggerOnClockLocked(r.currentTeamID)
	r.mu.Unlock()
	r.notify()
}

func (r *Reconstructor) triggerOnClockLocked(teamID int) {
	if teamID <= 0 {
		return
	}
	gen := r.animGen
	if r.onClock.Trigger(strconv.Itoa(teamID), teamID, func() { r.onClockDone(gen, teamID) }) {
		r.logger.Debug().Int("team_id", teamID).Msg("on the clock")
	}
}

// onClockDone runs once a clock card has played out. If the clock moved on to
// another team while the card was up, that team gets its card now.
func (r *Reconstructor) onClockDone(gen uint64, shown int) {
	r.mu.Lock()
	if r.mounted && gen == r.animGen && r.currentTeamID != shown && !r.announce.Busy() {
		r.lastAppliedTeam = r.currentTeamID
		r.triggerOnClockLocked(r.currentTeamID)
	}
	r.mu.Unlock()
	r.notify()
}

func (r *Reconstructor) cancelAnimationsLocked() {
	r.animGen++
	r.announce.Cancel()
	r.onClock.Cancel()
}

func (r *Reconstructor) applyUndoLocked(m broadcast.UndoPick) {
	r.cancelAnimationsLocked()

	if r.inBoardLocked(m.PickIndex) {
		r.board[m.PickIndex] = nil
	}
	r.setDraftedLocked(m.Player.Name, false)
	if r.selected != nil && r.selected.PickIndex == m.PickIndex {
		r.selected = nil
	}
	r.logger.Info().Str("player", m.Player.Name).Int("pick_index", m.PickIndex).Msg("pick undone")
}

func (r *Reconstructor) applyResetLocked() {
	r.cancelAnimationsLocked()

	r.currentPickIndex = 0
	r.currentTeamID = r.teamAtLocked(0)
	r.lastAppliedTeam = r.currentTeamID
	r.isTimerRunning = false
	r.selected = nil
	r.board = make([]*BoardCell, r.settings.TotalPicks())
	for i := range r.players {
		r.players[i].Drafted = false
	}
	r.logger.Info().Msg("draft reset")
}

// resetLocked puts the view back to a fresh draft with the default order.
func (r *Reconstructor) resetLocked() {
	r.draftOrder = order.Generate(r.settings.TeamsPerRound, r.settings.TotalRounds)
	r.currentPickIndex = 0
	r.currentTeamID = r.teamAtLocked(0)
	r.lastAppliedTeam = r.currentTeamID
	r.timerSeconds = r.settings.DefaultTimerSeconds
	r.isTimerRunning = false
	r.selected = nil
	r.board = make([]*BoardCell, r.settings.TotalPicks())
	r.showBestAvailable = true
	r.players = nil
	if r.dataset != nil {
		r.players = r.dataset.FreshPlayers()
	}
}

// seedLocked loads a saved snapshot without animating anything.
func (r *Reconstructor) seedLocked(snap snapshot.Snapshot) {
	if len(snap.DraftOrder) > 0 {
		r.draftOrder = order.Clone(snap.DraftOrder)
	}
	r.currentPickIndex = snap.CurrentPickIndex
	r.currentTeamID = r.teamAtLocked(snap.CurrentPickIndex)
	r.lastAppliedTeam = r.currentTeamID
	r.timerSeconds = snap.TimerSeconds
	r.isTimerRunning = snap.IsTimerRunning
	if snap.Players != nil {
		r.players = models.ClonePlayers(snap.Players)
	}
	r.rebuildBoardLocked(snap.DraftHistory)
	r.selected = nil
	if snap.SelectedPlayer != nil {
		sel := *snap.SelectedPlayer
		r.selected = &sel
	}
	r.showBestAvailable = snap.ShowBestAvailable
}

func (r *Reconstructor) rebuildBoardLocked(history []models.Pick) {
	r.board = make([]*BoardCell, r.settings.TotalPicks())
	for _, p := range history {
		if r.inBoardLocked(p.PickIndex) {
			r.board[p.PickIndex] = newBoardCell(p, r.settings.TeamsPerRound)
		}
	}
}

func (r *Reconstructor) inBoardLocked(i int) bool {
	return i >= 0 && i < len(r.board)
}

func (r *Reconstructor) setDraftedLocked(name string, drafted bool) {
	for i := range r.players {
		if r.players[i].Name == name {
			r.players[i].Drafted = drafted
			return
		}
	}
}

func (r *Reconstructor) teamAtLocked(i int) int {
	if i < 0 || i >= len(r.draftOrder) {
		return 0
	}
	return r.draftOrder[i]
}

func (r *Reconstructor) team(id int) *models.Team {
	if r.dataset == nil {
		return nil
	}
	t, ok := r.dataset.Team(id)
	if !ok {
		return nil
	}
	return &t
}

// View returns a copy of the current view.
func (r *Reconstructor) View() ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()

	round, pick := order.Slot(r.currentPickIndex, r.settings.TeamsPerRound)
	v := ViewState{
		Kind:             r.kind,
		CurrentTeamID:    r.currentTeamID,
		CurrentTeam:      r.team(r.currentTeamID),
		CurrentPickIndex: r.currentPickIndex,
		Round:            round,
		PickInRound:      pick,
		TimerSeconds:     r.timerSeconds,
		Clock:            FormatClock(r.timerSeconds),
		IsTimerRunning:   r.isTimerRunning,
		DraftOrder:       order.Clone(r.draftOrder),
		Players:          models.ClonePlayers(r.players),
		Board:            make([]*BoardCell, len(r.board)),
		ActivePanel:      PanelTeamHistory,
	}
	if r.showBestAvailable {
		v.ActivePanel = PanelBestAvailable
	}
	if r.selected != nil {
		sel := *r.selected
		v.SelectedPlayer = &sel
	}
	for i, c := range r.board {
		if c != nil {
			cell := *c
			v.Board[i] = &cell
		}
	}

	if a, ok := r.announce.Active(); ok {
		if p, ok := a.Payload.(models.Pick); ok {
			v.Announcement = &Announcement{Pick: p, Team: r.team(p.TeamID), Phase: a.Phase, StartedAt: a.StartedAt}
		}
	}
	if a, ok := r.onClock.Active(); ok {
		if id, ok := a.Payload.(int); ok {
			v.OnTheClock = &ClockTransition{TeamID: id, Team: r.team(id), Phase: a.Phase, StartedAt: a.StartedAt}
		}
	}
	return v
}

// BestAvailable returns the n best undrafted players by overall rank. Defenses
// are left out. n <= 0 means 4.
func (r *Reconstructor) BestAvailable(n int) []models.Player {
	if n <= 0 {
		n = defaultBestAvailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Player, 0, n)
	for _, p := range r.players {
		if p.Drafted || p.Position == models.PositionDEF {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OverallRank < out[j].OverallRank })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// TeamHistory returns the first n of last season's picks for the team on the
// clock. n <= 0 means 4.
func (r *Reconstructor) TeamHistory(n int) []models.HistoricalPick {
	if n <= 0 {
		n = defaultTeamHistory
	}
	r.mu.Lock()
	teamID := r.currentTeamID
	r.mu.Unlock()

	if r.dataset == nil {
		return nil
	}
	picks := r.dataset.HistoryForTeam(teamID)
	if len(picks) > n {
		picks = picks[:n]
	}
	return picks
}

// NextTeams returns the teams picking after the one on the clock. n <= 0 means 2.
// Near the end of the draft fewer come back.
func (r *Reconstructor) NextTeams(n int) []models.Team {
	if n <= 0 {
		n = defaultNextTeams
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Team
	for i := r.currentPickIndex + 1; i < len(r.draftOrder) && len(out) < n; i++ {
		if t := r.team(r.draftOrder[i]); t != nil {
			out = append(out, *t)
		}
	}
	return out
}
