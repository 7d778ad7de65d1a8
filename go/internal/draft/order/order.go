// Package order builds and validates snake draft orders.
package order

import (
	"fmt"
	"strings"
)

// Generate returns the snake order for teams 1..teamsPerRound over totalRounds.
// Even rounds (zero-based) run ascending, odd rounds descending.
func Generate(teamsPerRound, totalRounds int) []int {
	if teamsPerRound <= 0 || totalRounds <= 0 {
		return []int{}
	}

	out := make([]int, 0, teamsPerRound*totalRounds)
	for r := 0; r < totalRounds; r++ {
		for i := 0; i < teamsPerRound; i++ {
			if r%2 == 0 {
				out = append(out, i+1)
			} else {
				out = append(out, teamsPerRound-i)
			}
		}
	}
	return out
}

// Slot maps a zero-based pick index to its one-based round and pick-in-round.
func Slot(index, teamsPerRound int) (round, pick int) {
	if teamsPerRound <= 0 || index < 0 {
		return 0, 0
	}
	return index/teamsPerRound + 1, index%teamsPerRound + 1
}

// Clone copies an order so callers can't alias each other's slices.
func Clone(o []int) []int {
	if o == nil {
		return nil
	}
	out := make([]int, len(o))
	copy(out, o)
	return out
}

// InvalidSlot is a single slot that did not resolve to a known team.
type InvalidSlot struct {
	Index  int
	Round  int
	Pick   int
	TeamID int
}

// ValidationError reports why an edited order was rejected.
type ValidationError struct {
	ExpectedLen int
	ActualLen   int
	Slots       []InvalidSlot
}

func (e *ValidationError) Error() string {
	if e.ExpectedLen != e.ActualLen {
		return fmt.Sprintf("draft order has %d slots, want %d", e.ActualLen, e.ExpectedLen)
	}

	parts := make([]string, 0, len(e.Slots))
	for _, s := range e.Slots {
		parts = append(parts, fmt.Sprintf("round %d pick %d (team %d)", s.Round, s.Pick, s.TeamID))
	}
	return "invalid team in draft order: " + strings.Join(parts, ", ")
}

// Validate checks that order has expectedLen slots and that every slot names a team
// for which hasTeam returns true. It returns a *ValidationError listing every bad slot.
func Validate(o []int, teamsPerRound, expectedLen int, hasTeam func(int) bool) error {
	if len(o) != expectedLen {
		return &ValidationError{ExpectedLen: expectedLen, ActualLen: len(o)}
	}

	var bad []InvalidSlot
	for i, id := range o {
		if hasTeam(id) {
			continue
		}
		round, pick := Slot(i, teamsPerRound)
		bad = append(bad, InvalidSlot{Index: i, Round: round, Pick: pick, TeamID: id})
	}
	if len(bad) > 0 {
		return &ValidationError{ExpectedLen: expectedLen, ActualLen: len(o), Slots: bad}
	}
	return nil
}
