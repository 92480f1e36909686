package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TeamNameMaxLen bounds player display names.
const TeamNameMaxLen = 30

// Player is one participant in a session. Scores maps round index to that
// round's cumulative score; TotalScore is maintained alongside it and must
// always equal the sum of the map's values.
type Player struct {
	ID         string      `json:"id"`
	TeamName   string      `json:"teamName"`
	Scores     map[int]int `json:"scores"`
	TotalScore int         `json:"totalScore"`
	JoinedAt   int64       `json:"joinedAt"`
}

// NewPlayer returns a zero-score player record.
func NewPlayer(id, teamName string, joinedAt int64) Player {
	return Player{
		ID:       id,
		TeamName: teamName,
		Scores:   map[int]int{},
		JoinedAt: joinedAt,
	}
}

// RoundScore returns the player's score for a round, zero when absent.
func (p Player) RoundScore(round int) int {
	return p.Scores[round]
}

// ConsistentTotals reports whether TotalScore equals the sum of per-round scores.
// The total is stored, not derived, so drift here means a mutation site broke
// the delta protocol.
func (p Player) ConsistentTotals() bool {
	sum := 0
	for _, s := range p.Scores {
		sum += s
	}
	return sum == p.TotalScore
}

// ValidateTeamName checks a display name before any store write.
func ValidateTeamName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: team name required", ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) > TeamNameMaxLen {
		return fmt.Errorf("%w: team name longer than %d characters", ErrValidation, TeamNameMaxLen)
	}
	return nil
}
