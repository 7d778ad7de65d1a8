package admin

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Tick counts the clock down by one second. At zero the clock stops and, unless
// this is the last pick, the next pick goes on the clock. Nobody is auto-drafted.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickLocked(ctx)
}

func (c *Controller) tickLocked(ctx context.Context) {
	if !c.state.IsTimerRunning {
		return
	}
	if c.state.TimerSeconds <= 0 {
		c.expireLocked()
		c.commitLocked(ctx)
		return
	}
	c.state.TimerSeconds--
	if c.state.TimerSeconds == 0 {
		c.expireLocked()
	}
	c.commitLocked(ctx)
}

func (c *Controller) expireLocked() {
	c.stopTickerLocked()
	c.state.IsTimerRunning = false

	log.Info().
		Int("pick_index", c.state.CurrentPickIndex).
		Int("team_id", c.state.CurrentTeamID()).
		Msg("pick clock expired")

	if err := c.advanceLocked(); err != nil {
		log.Info().Msg("clock expired on the last pick")
	}
}

// startTickerLocked replaces any running ticker with a fresh one, so there is
// never more than one.
func (c *Controller) startTickerLocked() {
	c.stopTickerLocked()
	if c.closed {
		return
	}

	ctx, cancel := context.WithCancel(c.life)
	c.tickCancel = cancel
	c.tickGen++
	ticker := c.clock.NewTicker(tickInterval)
	go c.runTicker(ctx, ticker, c.tickGen)
}

func (c *Controller) stopTickerLocked() {
	if c.tickCancel != nil {
		c.tickCancel()
		c.tickCancel = nil
	}
}

func (c *Controller) runTicker(ctx context.Context, ticker clockwork.Ticker, gen uint64) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.mu.Lock()
			// A tick racing with a stop belongs to a ticker that no longer counts.
			if gen == c.tickGen && ctx.Err() == nil {
				c.tickLocked(c.life)
			}
			c.mu.Unlock()
		}
	}
}
