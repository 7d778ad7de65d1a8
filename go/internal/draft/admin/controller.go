// Package admin owns the authoritative draft state. Every operator action goes
// through the Controller, which persists the result and broadcasts it to the overlays.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftoverlay/go/internal/broadcast"
	"github.com/mcdev12/draftoverlay/go/internal/draft/order"
	"github.com/mcdev12/draftoverlay/go/internal/models"
	"github.com/mcdev12/draftoverlay/go/internal/reference"
	"github.com/mcdev12/draftoverlay/go/internal/snapshot"
)

var (
	ErrLastPick         = errors.New("already at the last pick")
	ErrFirstPick        = errors.New("already at the first pick")
	ErrAlreadyDrafted   = errors.New("player already drafted")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrPickAlreadyMade  = errors.New("a player was already drafted at this pick")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrInvalidDuration  = errors.New("timer duration must be one of 60, 120, 180, 300 or 600 seconds")
	ErrInvalidPosition  = errors.New("invalid position filter")
	ErrControllerClosed = errors.New("controller closed")
)

const tickInterval = time.Second

// Config holds the fixed shape of the draft.
type Config struct {
	Settings models.DraftSettings
}

// Deps are the collaborators a Controller needs.
type Deps struct {
	Dataset *reference.Dataset
	Store   *snapshot.Store
	Channel broadcast.Channel
	Clock   clockwork.Clock
}

// Controller is the single writer of draft state.
type Controller struct {
	settings models.DraftSettings
	dataset  *reference.Dataset
	store    *snapshot.Store
	channel  broadcast.Channel
	clock    clockwork.Clock

	// life is cancelled by Close; it bounds the ticker and background publishes.
	life       context.Context
	cancelLife context.CancelFunc

	// durationMu orders default-duration writes without holding mu across I/O.
	durationMu sync.Mutex

	mu         sync.Mutex
	state      State
	tickCancel context.CancelFunc
	tickGen    uint64
	sub        broadcast.Subscription
	closed     bool
}

// NewController builds a controller and rehydrates its state from the store.
// Nothing is published and no timer runs until Start.
func NewController(ctx context.Context, cfg Config, deps Deps) (*Controller, error) {
	if deps.Dataset == nil || deps.Store == nil || deps.Channel == nil {
		return nil, fmt.Errorf("admin controller needs a dataset, a store and a channel")
	}
	settings := cfg.Settings
	if settings.TeamsPerRound <= 0 || settings.TotalRounds <= 0 {
		return nil, fmt.Errorf("invalid draft settings: %d teams x %d rounds", settings.TeamsPerRound, settings.TotalRounds)
	}
	if settings.DefaultTimerSeconds <= 0 {
		settings.DefaultTimerSeconds = models.DefaultDraftSettings().DefaultTimerSeconds
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	life, cancel := context.WithCancel(context.Background())
	c := &Controller{
		settings:   settings,
		dataset:    deps.Dataset,
		store:      deps.Store,
		channel:    deps.Channel,
		clock:      clock,
		life:       life,
		cancelLife: cancel,
	}
	c.state = c.rehydrate(ctx)

	log.Info().
		Int("pick_index", c.state.CurrentPickIndex).
		Int("team_id", c.state.CurrentTeamID()).
		Int("picks_made", len(c.state.DraftHistory)).
		Int("default_duration", c.state.DefaultDuration).
		Msg("admin controller ready")
	return c, nil
}

func (c *Controller) rehydrate(ctx context.Context) State {
	defaultDuration := c.settings.DefaultTimerSeconds
	if secs, ok := c.store.LoadDefaultDuration(ctx); ok {
		defaultDuration = secs
	}

	if snap, ok := c.store.LoadState(ctx); ok {
		s := stateFromSnapshot(*snap)
		if err := c.checkSaved(s); err != nil {
			log.Warn().Err(err).Msg("discarding saved draft state")
		} else {
			s.DefaultDuration = defaultDuration
			if len(s.Players) == 0 {
				s.Players = c.dataset.FreshPlayers()
			}
			return s
		}
	}

	return c.freshState(ctx, defaultDuration)
}

func (c *Controller) freshState(ctx context.Context, defaultDuration int) State {
	draftOrder := order.Generate(c.settings.TeamsPerRound, c.settings.TotalRounds)
	if saved, ok := c.store.LoadDefaultOrder(ctx); ok {
		if err := c.validateOrder(saved); err == nil {
			draftOrder = saved
		} else {
			log.Warn().Err(err).Msg("ignoring saved default draft order")
		}
	}

	return State{
		CurrentPickIndex: 0,
		DraftOrder:       draftOrder,
		TimerSeconds:     defaultDuration,
		DefaultDuration:  defaultDuration,
		Players:          c.dataset.FreshPlayers(),
		DraftHistory:     []models.Pick{},
	}
}

// checkSaved rejects a saved state that the controller could not run from.
func (c *Controller) checkSaved(s State) error {
	if err := c.validateOrder(s.DraftOrder); err != nil {
		return err
	}
	if s.CurrentPickIndex < 0 || s.CurrentPickIndex > s.lastPickIndex() {
		return fmt.Errorf("pick index %d out of range", s.CurrentPickIndex)
	}
	if len(s.DraftHistory) > s.CurrentPickIndex+1 {
		return fmt.Errorf("%d picks recorded at pick index %d", len(s.DraftHistory), s.CurrentPickIndex)
	}
	return nil
}

func (c *Controller) validateOrder(o []int) error {
	return order.Validate(o, c.settings.TeamsPerRound, c.settings.TotalPicks(), c.dataset.HasTeam)
}

// Start subscribes to resync requests, resumes a timer that was running when the
// state was saved and publishes the current state. A running clock saved at zero
// expires here.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}
	if c.sub == nil {
		c.sub = c.channel.Subscribe(c.handleMessage)
	}
	switch {
	case c.state.IsTimerRunning && c.state.TimerSeconds <= 0:
		// Saved between the last tick and its expiry.
		c.expireLocked()
		c.store.SaveState(c.state.Snapshot())
	case c.state.IsTimerRunning:
		c.startTickerLocked()
	}
	c.publishLocked(ctx, c.state.StateUpdate())

	log.Info().Str("channel", c.channel.Name()).Msg("admin controller started")
	return nil
}

// Close stops the timer, stops answering resync requests and flushes pending saves.
func (c *Controller) Close(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTickerLocked()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	c.cancelLife()
	c.store.Flush(ctx)
	log.Info().Msg("admin controller closed")
}

func (c *Controller) handleMessage(msg broadcast.Message) {
	switch msg.(type) {
	case broadcast.RequestState:
		c.HandleRequestState(c.life)
	default:
		// The admin is the only writer; anything else on the channel is an echo
		// from another admin or a misbehaving surface.
		log.Debug().Str("type", string(msg.Type())).Msg("admin ignoring message")
	}
}

// HandleRequestState re-publishes the full state so a late joiner can catch up.
func (c *Controller) HandleRequestState(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	log.Debug().Msg("answering state request")
	c.publishLocked(ctx, c.state.StateUpdate())
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Snapshot returns the current state in its persisted form.
func (c *Controller) Snapshot() snapshot.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

// Settings returns the draft shape the controller runs with.
func (c *Controller) Settings() models.DraftSettings {
	return c.settings
}

// StorageHealthy is false once persistence has failed; the UI shows a warning.
func (c *Controller) StorageHealthy() bool {
	return c.store.Healthy()
}

// commitLocked persists the state and broadcasts it.
func (c *Controller) commitLocked(ctx context.Context) {
	c.store.SaveState(c.state.Snapshot())
	c.publishLocked(ctx, c.state.StateUpdate())
}

func (c *Controller) publishLocked(ctx context.Context, msg broadcast.Message) {
	if err := c.channel.Publish(ctx, msg); err != nil {
		log.Warn().Err(err).Str("type", string(msg.Type())).Msg("failed to publish")
	}
}
