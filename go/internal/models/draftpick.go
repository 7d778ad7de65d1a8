package models

import "time"

// Pick is a completed selection in the live draft.
type Pick struct {
	TeamID    int       `json:"teamId"`
	PickIndex int       `json:"pickIndex"` // zero-based position in the draft order
	Player    Player    `json:"player"`
	Timestamp time.Time `json:"timestamp"`
}

// Round returns the one-based round of the pick.
func (p Pick) Round(teamsPerRound int) int {
	if teamsPerRound <= 0 {
		return 0
	}
	return p.PickIndex/teamsPerRound + 1
}

// SlotInRound returns the one-based pick number within its round.
func (p Pick) SlotInRound(teamsPerRound int) int {
	if teamsPerRound <= 0 {
		return 0
	}
	return p.PickIndex%teamsPerRound + 1
}

// HistoricalPick is a row from a previous season's draft results.
type HistoricalPick struct {
	TeamID   int      `json:"teamId" yaml:"team_id"`
	Team     string   `json:"team" yaml:"team"`
	Round    int      `json:"round" yaml:"round"`
	Pick     int      `json:"pick" yaml:"pick"`
	Overall  string   `json:"overall" yaml:"overall"`
	Player   string   `json:"player" yaml:"player"`
	Position Position `json:"position" yaml:"position"`
	College  string   `json:"college" yaml:"college"`
	NFLTeam  string   `json:"nflTeam" yaml:"nfl_team"`
}
