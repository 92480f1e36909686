package app

import (
	"context"
	"fmt"

	"pubquiz-service/internal/domain"
)

// QuestionAnswers returns the live answers for one question, keyed by player id.
func (s *GameService) QuestionAnswers(ctx context.Context, code string, round, question int) (map[string]domain.Answer, error) {
	all, err := s.allAnswers(ctx, domain.NormalizeSessionCode(code))
	if err != nil {
		return nil, err
	}
	filtered := map[string]domain.Answer{}
	for raw, answer := range all {
		key, err := domain.ParseAnswerKey(raw)
		if err != nil {
			continue
		}
		if key.RoundIndex == round && key.QuestionIndex == question {
			filtered[key.PlayerID] = answer
		}
	}
	return filtered, nil
}

// AnsweredCount is the host's "N of M answered" numerator: distinct players
// with a live answer for the question.
func (s *GameService) AnsweredCount(ctx context.Context, code string, round, question int) (int, error) {
	answers, err := s.QuestionAnswers(ctx, code, round, question)
	if err != nil {
		return 0, err
	}
	return len(answers), nil
}

// PlayerAnswer looks up one player's answer for a question.
func (s *GameService) PlayerAnswer(ctx context.Context, code, playerID string, round, question int) (domain.Answer, error) {
	code = domain.NormalizeSessionCode(code)
	key := domain.AnswerKey{PlayerID: playerID, RoundIndex: round, QuestionIndex: question}
	return s.answer(ctx, code, key)
}

// ScoreDrift describes one player whose stored totals disagree with the ledger.
type ScoreDrift struct {
	PlayerID     string
	StoredTotal  int
	LedgerTotal  int
	StoredScores map[int]int
	LedgerScores map[int]int
}

// ReconcileScores recomputes every player's scores from the answer ledger and
// reports any player whose maintained aggregates have drifted. The delta
// protocol should keep this empty; it exists so tests and operators can verify
// that.
func (s *GameService) ReconcileScores(ctx context.Context, code string) ([]ScoreDrift, error) {
	code = domain.NormalizeSessionCode(code)
	players, err := s.rosterMap(ctx, code)
	if err != nil {
		return nil, err
	}
	all, err := s.allAnswers(ctx, code)
	if err != nil {
		return nil, err
	}

	ledger := map[string]map[int]int{}
	for raw, answer := range all {
		key, err := domain.ParseAnswerKey(raw)
		if err != nil {
			continue
		}
		if ledger[key.PlayerID] == nil {
			ledger[key.PlayerID] = map[int]int{}
		}
		ledger[key.PlayerID][key.RoundIndex] += answer.Points
	}

	var drifts []ScoreDrift
	for id, player := range players {
		want := ledger[id]
		wantTotal := 0
		for _, pts := range want {
			wantTotal += pts
		}
		if player.TotalScore == wantTotal && player.ConsistentTotals() && scoresEqual(player.Scores, want) {
			continue
		}
		drifts = append(drifts, ScoreDrift{
			PlayerID:     id,
			StoredTotal:  player.TotalScore,
			LedgerTotal:  wantTotal,
			StoredScores: player.Scores,
			LedgerScores: want,
		})
	}
	return drifts, nil
}

func scoresEqual(a, b map[int]int) bool {
	for round, pts := range a {
		if pts != b[round] {
			return false
		}
	}
	for round, pts := range b {
		if pts != a[round] {
			return false
		}
	}
	return true
}

func (s *GameService) allAnswers(ctx context.Context, code string) (map[string]domain.Answer, error) {
	data, err := s.readCollection(ctx, answersPath(code))
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	return decodeAnswers(data)
}
