package overlay

import (
	"fmt"
	"time"

	"github.com/mcdev12/draftoverlay/go/internal/draft/overlay/animation"
	"github.com/mcdev12/draftoverlay/go/internal/models"
)

// Kind names the surface a Reconstructor feeds. Every kind mirrors the whole
// protocol; the kind only shows up in logs and in the view.
type Kind string

const (
	KindDisplay       Kind = "display"
	KindBoard         Kind = "board"
	KindInfoPanel     Kind = "info_panel"
	KindBestAvailable Kind = "best_available"
)

// ParseKind accepts the names above.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindDisplay, KindBoard, KindInfoPanel, KindBestAvailable:
		return k, nil
	}
	return "", fmt.Errorf("unknown overlay kind %q", s)
}

// Panel is what the info panel is showing.
type Panel string

const (
	PanelBestAvailable Panel = "best_available"
	PanelTeamHistory   Panel = "team_history"
)

// BoardCell is one filled square of the draft board.
type BoardCell struct {
	PickIndex int           `json:"pickIndex"`
	Round     int           `json:"round"`
	Slot      int           `json:"slot"`
	TeamID    int           `json:"teamId"`
	Player    models.Player `json:"player"`
	Timestamp time.Time     `json:"timestamp"`
}

func newBoardCell(p models.Pick, teamsPerRound int) *BoardCell {
	return &BoardCell{
		PickIndex: p.PickIndex,
		Round:     p.Round(teamsPerRound),
		Slot:      p.SlotInRound(teamsPerRound),
		TeamID:    p.TeamID,
		Player:    p.Player,
		Timestamp: p.Timestamp,
	}
}

// Announcement is the draft announcement on screen.
type Announcement struct {
	Pick      models.Pick     `json:"pick"`
	Team      *models.Team    `json:"team,omitempty"`
	Phase     animation.Phase `json:"phase"`
	StartedAt time.Time       `json:"startedAt"`
}

// ClockTransition is the "on the clock" card on screen.
type ClockTransition struct {
	TeamID    int             `json:"teamId"`
	Team      *models.Team    `json:"team,omitempty"`
	Phase     animation.Phase `json:"phase"`
	StartedAt time.Time       `json:"startedAt"`
}

// ViewState is everything a renderer needs at one instant.
type ViewState struct {
	Kind             Kind             `json:"kind"`
	CurrentTeamID    int              `json:"currentTeamId"`
	CurrentTeam      *models.Team     `json:"currentTeam,omitempty"`
	CurrentPickIndex int              `json:"currentPickIndex"`
	Round            int              `json:"round"`
	PickInRound      int              `json:"pickInRound"`
	TimerSeconds     int              `json:"timerSeconds"`
	Clock            string           `json:"clock"`
	IsTimerRunning   bool             `json:"isTimerRunning"`
	DraftOrder       []int            `json:"draftOrder"`
	Players          []models.Player  `json:"players"`
	SelectedPlayer   *models.Pick     `json:"selectedPlayer"`
	Board            []*BoardCell     `json:"board"`
	ActivePanel      Panel            `json:"activePanel"`
	Announcement     *Announcement    `json:"announcement,omitempty"`
	OnTheClock       *ClockTransition `json:"onTheClock,omitempty"`
}

// FormatClock renders seconds as m:ss.
func FormatClock(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
