package app

import (
	"context"
	"fmt"
	"sort"

	"pubquiz-service/internal/domain"
)

// Roster returns the session's players in leaderboard order: total score
// descending, ties kept in join order. The sort is stable so equal scores
// never shuffle between reads.
func (s *GameService) Roster(ctx context.Context, code string) ([]domain.Player, error) {
	code = domain.NormalizeSessionCode(code)
	players, err := s.rosterMap(ctx, code)
	if err != nil {
		return nil, err
	}
	return sortRoster(players), nil
}

func sortRoster(players map[string]domain.Player) []domain.Player {
	list := make([]domain.Player, 0, len(players))
	for _, p := range players {
		list = append(list, p)
	}
	// Establish join order first so the stable score sort breaks ties on it.
	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinedAt != list[j].JoinedAt {
			return list[i].JoinedAt < list[j].JoinedAt
		}
		return list[i].ID < list[j].ID
	})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].TotalScore > list[j].TotalScore
	})
	return list
}

// RoundStandings is the round-end view: the roster re-ranked by one round's
// score instead of the running total.
func (s *GameService) RoundStandings(ctx context.Context, code string, round int) ([]domain.Player, error) {
	list, err := s.Roster(ctx, code)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].RoundScore(round) > list[j].RoundScore(round)
	})
	return list, nil
}

// PlayerCount is the roster cardinality, used to gate game start and to show
// the answered ratio.
func (s *GameService) PlayerCount(ctx context.Context, code string) (int, error) {
	players, err := s.rosterMap(ctx, domain.NormalizeSessionCode(code))
	if err != nil {
		return 0, err
	}
	return len(players), nil
}

func (s *GameService) rosterMap(ctx context.Context, code string) (map[string]domain.Player, error) {
	data, err := s.readCollection(ctx, playersPath(code))
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return decodePlayers(data)
}
