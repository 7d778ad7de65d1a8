package admin

import (
	"github.com/mcdev12/draftoverlay/go/internal/broadcast"
	"github.com/mcdev12/draftoverlay/go/internal/draft/order"
	"github.com/mcdev12/draftoverlay/go/internal/models"
	"github.com/mcdev12/draftoverlay/go/internal/snapshot"
)

// State is the authoritative draft state. Only the Controller mutates it.
type State struct {
	CurrentPickIndex  int
	DraftOrder        []int
	TimerSeconds      int
	IsTimerRunning    bool
	DefaultDuration   int
	Players           []models.Player
	DraftHistory      []models.Pick
	SelectedPlayer    *models.Pick
	SearchQuery       string
	PositionFilter    string
	ShowBestAvailable bool
}

// CurrentTeamID is the team on the clock.
func (s State) CurrentTeamID() int {
	if s.CurrentPickIndex < 0 || s.CurrentPickIndex >= len(s.DraftOrder) {
		return 0
	}
	return s.DraftOrder[s.CurrentPickIndex]
}

// Clone returns a deep copy safe to hand outside the controller.
func (s State) Clone() State {
	out := s
	out.DraftOrder = order.Clone(s.DraftOrder)
	out.Players = models.ClonePlayers(s.Players)
	out.DraftHistory = append(make([]models.Pick, 0, len(s.DraftHistory)), s.DraftHistory...)
	if s.SelectedPlayer != nil {
		sel := *s.SelectedPlayer
		out.SelectedPlayer = &sel
	}
	return out
}

// Snapshot converts the state to its persisted form.
func (s State) Snapshot() snapshot.Snapshot {
	c := s.Clone()
	return snapshot.Snapshot{
		CurrentPickIndex:  c.CurrentPickIndex,
		DraftOrder:        c.DraftOrder,
		TimerSeconds:      c.TimerSeconds,
		IsTimerRunning:    c.IsTimerRunning,
		DraftHistory:      c.DraftHistory,
		Players:           c.Players,
		SelectedPlayer:    c.SelectedPlayer,
		DefaultDuration:   c.DefaultDuration,
		SearchQuery:       c.SearchQuery,
		PositionFilter:    c.PositionFilter,
		ShowBestAvailable: c.ShowBestAvailable,
	}
}

func stateFromSnapshot(snap snapshot.Snapshot) State {
	c := snap.Clone()
	s := State{
		CurrentPickIndex:  c.CurrentPickIndex,
		DraftOrder:        c.DraftOrder,
		TimerSeconds:      c.TimerSeconds,
		IsTimerRunning:    c.IsTimerRunning,
		DefaultDuration:   c.DefaultDuration,
		Players:           c.Players,
		DraftHistory:      c.DraftHistory,
		SelectedPlayer:    c.SelectedPlayer,
		SearchQuery:       c.SearchQuery,
		PositionFilter:    c.PositionFilter,
		ShowBestAvailable: c.ShowBestAvailable,
	}
	if s.DraftHistory == nil {
		s.DraftHistory = []models.Pick{}
	}
	if s.TimerSeconds < 0 {
		s.TimerSeconds = 0
	}
	return s
}

// StateUpdate is the full-state broadcast for s.
func (s State) StateUpdate() broadcast.StateUpdate {
	c := s.Clone()
	return broadcast.StateUpdate{
		CurrentTeamID:     broadcast.IntPtr(c.CurrentTeamID()),
		CurrentPickIndex:  broadcast.IntPtr(c.CurrentPickIndex),
		TimerSeconds:      broadcast.IntPtr(c.TimerSeconds),
		IsTimerRunning:    broadcast.BoolPtr(c.IsTimerRunning),
		DraftOrder:        c.DraftOrder,
		Players:           c.Players,
		SelectedPlayer:    c.SelectedPlayer,
		DraftHistory:      c.DraftHistory,
		ShowBestAvailable: broadcast.BoolPtr(c.ShowBestAvailable),
	}
}

func (s *State) findPlayer(name string) int {
	for i := range s.Players {
		if s.Players[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *State) lastPickIndex() int {
	return len(s.DraftOrder) - 1
}
