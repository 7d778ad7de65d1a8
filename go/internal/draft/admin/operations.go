package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftoverlay/go/internal/broadcast"
	"github.com/mcdev12/draftoverlay/go/internal/draft/order"
	"github.com/mcdev12/draftoverlay/go/internal/models"
)

// AdvancePick moves to the next pick and restarts the clock.
func (c *Controller) AdvancePick(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.advanceLocked(); err != nil {
		log.Info().Int("pick_index", c.state.CurrentPickIndex).Msg("advance ignored: last pick")
		return err
	}
	c.commitLocked(ctx)
	return nil
}

func (c *Controller) advanceLocked() error {
	if c.state.CurrentPickIndex >= c.state.lastPickIndex() {
		return ErrLastPick
	}
	c.state.CurrentPickIndex++
	c.state.TimerSeconds = c.state.DefaultDuration
	c.state.IsTimerRunning = true
	c.startTickerLocked()

	log.Info().
		Int("pick_index", c.state.CurrentPickIndex).
		Int("team_id", c.state.CurrentTeamID()).
		Msg("pick advanced")
	return nil
}

// RetreatPick steps back one pick and stops the clock. Drafted players stay drafted.
func (c *Controller) RetreatPick(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CurrentPickIndex == 0 {
		log.Info().Msg("retreat ignored: first pick")
		return ErrFirstPick
	}
	c.state.CurrentPickIndex--
	c.resetTimerLocked()

	log.Info().
		Int("pick_index", c.state.CurrentPickIndex).
		Int("team_id", c.state.CurrentTeamID()).
		Msg("pick retreated")
	c.commitLocked(ctx)
	return nil
}

// DraftPlayer records name as the pick for the team on the clock, announces it
// and moves to the next pick. Drafting the final pick stops the clock instead.
func (c *Controller) DraftPlayer(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.state.findPlayer(name)
	if i < 0 {
		log.Warn().Str("player", name).Msg("draft rejected: unknown player")
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}
	if c.state.Players[i].Drafted {
		log.Warn().Str("player", name).Msg("draft rejected: already drafted")
		return fmt.Errorf("%w: %q", ErrAlreadyDrafted, name)
	}
	for _, p := range c.state.DraftHistory {
		if p.PickIndex == c.state.CurrentPickIndex {
			log.Warn().
				Str("player", name).
				Str("taken_by", p.Player.Name).
				Int("pick_index", p.PickIndex).
				Msg("draft rejected: pick already made")
			return ErrPickAlreadyMade
		}
	}

	c.state.Players[i].Drafted = true
	pick := models.Pick{
		TeamID:    c.state.CurrentTeamID(),
		PickIndex: c.state.CurrentPickIndex,
		Player:    c.state.Players[i],
		Timestamp: c.clock.Now().UTC(),
	}
	c.state.DraftHistory = append(c.state.DraftHistory, pick)
	selected := pick
	c.state.SelectedPlayer = &selected

	round, slot := order.Slot(pick.PickIndex, c.settings.TeamsPerRound)
	log.Info().
		Str("player", name).
		Int("team_id", pick.TeamID).
		Int("pick_index", pick.PickIndex).
		Int("round", round).
		Int("pick", slot).
		Msg("player drafted")

	c.publishLocked(ctx, broadcast.PlayerDrafted{Pick: pick, PickIndex: pick.PickIndex})

	if err := c.advanceLocked(); err != nil {
		// Final pick of the draft: nothing left to put on the clock.
		c.stopTickerLocked()
		c.state.IsTimerRunning = false
		log.Info().Msg("draft complete")
	}
	c.commitLocked(ctx)
	return nil
}

// UndoPick reverses the most recent pick and puts that pick back on the clock.
func (c *Controller) UndoPick(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.state.DraftHistory)
	if n == 0 || c.state.CurrentPickIndex == 0 {
		log.Info().Msg("undo ignored: nothing to undo")
		return ErrNothingToUndo
	}

	undone := c.state.DraftHistory[n-1]
	c.state.DraftHistory = c.state.DraftHistory[:n-1]
	if i := c.state.findPlayer(undone.Player.Name); i >= 0 {
		c.state.Players[i].Drafted = false
	}
	if n > 1 {
		prev := c.state.DraftHistory[n-2]
		c.state.SelectedPlayer = &prev
	} else {
		c.state.SelectedPlayer = nil
	}
	c.state.CurrentPickIndex = undone.PickIndex
	c.resetTimerLocked()

	player := undone.Player
	player.Drafted = false

	log.Info().
		Str("player", player.Name).
		Int("pick_index", undone.PickIndex).
		Msg("pick undone")

	c.publishLocked(ctx, broadcast.UndoPick{Player: player, PickIndex: undone.PickIndex})
	c.commitLocked(ctx)
	return nil
}

// ResetDraft clears every pick and returns to the first pick. The draft order is kept.
func (c *Controller) ResetDraft(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.DraftHistory = []models.Pick{}
	c.state.CurrentPickIndex = 0
	c.resetTimerLocked()
	for i := range c.state.Players {
		c.state.Players[i].Drafted = false
	}
	c.state.SelectedPlayer = nil

	log.Info().Msg("draft reset")

	c.publishLocked(ctx, broadcast.DraftReset{})
	c.commitLocked(ctx)
}

// SetTimerRunning starts or stops the clock. Starting a clock that has already
// run out counts as expiry.
func (c *Controller) SetTimerRunning(ctx context.Context, running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if running == c.state.IsTimerRunning {
		return
	}
	if running {
		if c.state.TimerSeconds <= 0 {
			c.expireLocked()
		} else {
			c.state.IsTimerRunning = true
			c.startTickerLocked()
		}
	} else {
		c.state.IsTimerRunning = false
		c.stopTickerLocked()
	}

	log.Info().Bool("running", c.state.IsTimerRunning).Int("seconds", c.state.TimerSeconds).Msg("timer toggled")
	c.commitLocked(ctx)
}

// ResetTimer stops the clock and refills it to the default duration.
func (c *Controller) ResetTimer(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetTimerLocked()
	log.Info().Int("seconds", c.state.TimerSeconds).Msg("timer reset")
	c.commitLocked(ctx)
}

func (c *Controller) resetTimerLocked() {
	c.stopTickerLocked()
	c.state.TimerSeconds = c.state.DefaultDuration
	c.state.IsTimerRunning = false
}

// SetDraftOrder replaces the live draft order. An order with a wrong length or an
// unknown team is rejected with an *order.ValidationError and nothing changes.
func (c *Controller) SetDraftOrder(ctx context.Context, newOrder []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validateOrder(newOrder); err != nil {
		log.Warn().Err(err).Msg("draft order rejected")
		return err
	}
	c.state.DraftOrder = order.Clone(newOrder)

	log.Info().Int("team_id", c.state.CurrentTeamID()).Msg("draft order updated")
	c.commitLocked(ctx)
	return nil
}

// SaveDefaultOrder stores newOrder as the editor's default without touching the live order.
func (c *Controller) SaveDefaultOrder(ctx context.Context, newOrder []int) error {
	if err := c.validateOrder(newOrder); err != nil {
		log.Warn().Err(err).Msg("default draft order rejected")
		return err
	}
	c.store.SaveDefaultOrder(ctx, order.Clone(newOrder))
	log.Info().Msg("default draft order saved")
	return nil
}

// DefaultOrder is the order the editor resets to: the saved default if there is a
// valid one, otherwise the generated snake order.
func (c *Controller) DefaultOrder(ctx context.Context) []int {
	if saved, ok := c.store.LoadDefaultOrder(ctx); ok && c.validateOrder(saved) == nil {
		return saved
	}
	return order.Generate(c.settings.TeamsPerRound, c.settings.TotalRounds)
}

// SetDefaultDuration changes the per-pick clock. A stopped clock is refilled right away.
func (c *Controller) SetDefaultDuration(ctx context.Context, secs int) error {
	if !models.IsTimerOption(secs) {
		return fmt.Errorf("%w: got %d", ErrInvalidDuration, secs)
	}

	c.durationMu.Lock()
	defer c.durationMu.Unlock()

	c.mu.Lock()
	c.state.DefaultDuration = secs
	if !c.state.IsTimerRunning {
		c.state.TimerSeconds = secs
	}
	log.Info().Int("default_duration", secs).Msg("default timer duration changed")
	c.commitLocked(ctx)
	c.mu.Unlock()

	c.store.SaveDefaultDuration(ctx, secs)
	return nil
}

// ToggleView switches every info panel between best available and team history.
func (c *Controller) ToggleView(ctx context.Context, showBestAvailable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.ShowBestAvailable = showBestAvailable
	c.store.SaveState(c.state.Snapshot())
	c.publishLocked(ctx, broadcast.ToggleView{ShowBestAvailable: showBestAvailable})
}

// SetFilters updates the admin's player search. Position may be empty or "ALL".
func (c *Controller) SetFilters(_ context.Context, search, position string) error {
	position = strings.TrimSpace(position)
	if position != "" && !strings.EqualFold(position, "ALL") {
		p, err := models.ParsePosition(position)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidPosition, position)
		}
		position = string(p)
	} else {
		position = "ALL"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.SearchQuery = search
	c.state.PositionFilter = position
	c.store.SaveState(c.state.Snapshot())
	return nil
}

// AvailablePlayers lists undrafted players matching the saved filters, best rank first.
func (c *Controller) AvailablePlayers() []models.Player {
	c.mu.Lock()
	query := strings.ToLower(strings.TrimSpace(c.state.SearchQuery))
	position := c.state.PositionFilter
	players := models.ClonePlayers(c.state.Players)
	c.mu.Unlock()

	out := make([]models.Player, 0, len(players))
	for _, p := range players {
		if p.Drafted {
			continue
		}
		if position != "" && position != "ALL" && string(p.Position) != position {
			continue
		}
		if query != "" && !matches(p, query) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OverallRank < out[j].OverallRank })
	return out
}

func matches(p models.Player, query string) bool {
	return strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.College), query) ||
		strings.Contains(strings.ToLower(p.NFLTeam), query)
}
