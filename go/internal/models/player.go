package models

import (
	"fmt"
	"strings"
)

// Position is a fantasy roster position.
type Position string

const (
	PositionQB  Position = "QB"
	PositionRB  Position = "RB"
	PositionWR  Position = "WR"
	PositionTE  Position = "TE"
	PositionK   Position = "K"
	PositionDEF Position = "DEF"
)

// Positions lists every valid position in display order.
var Positions = []Position{PositionQB, PositionRB, PositionWR, PositionTE, PositionK, PositionDEF}

// ParsePosition converts a string to a Position, case-insensitively.
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToUpper(strings.TrimSpace(s)))
	for _, valid := range Positions {
		if p == valid {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid position %q", s)
}

// Player is a draft-eligible player. Name is unique within a pool.
type Player struct {
	Name         string   `json:"name" yaml:"name"`
	Position     Position `json:"position" yaml:"position"`
	College      string   `json:"college" yaml:"college"`
	NFLTeam      string   `json:"nflTeam" yaml:"nfl_team"`
	OverallRank  int      `json:"overallRank" yaml:"overall_rank"`
	PositionRank int      `json:"positionRank" yaml:"position_rank"`
	Drafted      bool     `json:"drafted" yaml:"-"`
}

// ClonePlayers returns a copy of the pool that shares nothing with the input.
func ClonePlayers(players []Player) []Player {
	if players == nil {
		return nil
	}
	out := make([]Player, len(players))
	copy(out, players)
	return out
}
