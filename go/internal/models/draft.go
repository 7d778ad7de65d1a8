package models

// DraftSettings holds the shape of a draft: how many teams pick per round and how many rounds run.
type DraftSettings struct {
	TeamsPerRound       int `json:"teams_per_round" yaml:"teams_per_round"`
	TotalRounds         int `json:"total_rounds" yaml:"total_rounds"`
	DefaultTimerSeconds int `json:"default_timer_seconds" yaml:"default_timer_seconds"`
}

// DefaultDraftSettings returns the league's rookie draft layout: 12 teams, 4 rounds, 2 minute clock.
func DefaultDraftSettings() DraftSettings {
	return DraftSettings{
		TeamsPerRound:       12,
		TotalRounds:         4,
		DefaultTimerSeconds: 120,
	}
}

// TotalPicks is the number of slots in the draft order.
func (s DraftSettings) TotalPicks() int {
	return s.TeamsPerRound * s.TotalRounds
}

// TimerOptions are the clock durations an operator may choose from, in seconds.
var TimerOptions = []int{60, 120, 180, 300, 600}

// IsTimerOption reports whether secs is one of TimerOptions.
func IsTimerOption(secs int) bool {
	for _, opt := range TimerOptions {
		if opt == secs {
			return true
		}
	}
	return false
}
