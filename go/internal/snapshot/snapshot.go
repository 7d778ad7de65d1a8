// Package snapshot persists the admin's draft state so a reload can pick up where it left off.
package snapshot

import "github.com/mcdev12/draftoverlay/go/internal/models"

// Storage keys. They match the keys earlier browser builds wrote, so existing saves still load.
const (
	KeyState           = "draftOverlayState"
	KeyDefaultOrder    = "defaultDraftOrder"
	KeyDefaultDuration = "defaultTimerDuration"
)

// Snapshot is the persisted form of the authoritative draft state.
type Snapshot struct {
	CurrentPickIndex  int             `json:"currentPickIndex"`
	DraftOrder        []int           `json:"draftOrder"`
	TimerSeconds      int             `json:"timerSeconds"`
	IsTimerRunning    bool            `json:"isTimerRunning"`
	DraftHistory      []models.Pick   `json:"draftHistory"`
	Players           []models.Player `json:"players"`
	SelectedPlayer    *models.Pick    `json:"selectedPlayer"`
	DefaultDuration   int             `json:"defaultDuration"`
	SearchQuery       string          `json:"searchQuery"`
	PositionFilter    string          `json:"positionFilter"`
	ShowBestAvailable bool            `json:"showBestAvailable"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.DraftOrder != nil {
		out.DraftOrder = append([]int(nil), s.DraftOrder...)
	}
	if s.DraftHistory != nil {
		out.DraftHistory = append([]models.Pick(nil), s.DraftHistory...)
	}
	out.Players = models.ClonePlayers(s.Players)
	if s.SelectedPlayer != nil {
		sel := *s.SelectedPlayer
		out.SelectedPlayer = &sel
	}
	return out
}
