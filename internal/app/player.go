package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pubquiz-service/internal/domain"
)

// SubmitResult summarizes the outcome of one submission for the submitting player.
type SubmitResult struct {
	Correct    bool `json:"correct"`
	Points     int  `json:"points"`
	RoundScore int  `json:"roundScore"`
	TotalScore int  `json:"totalScore"`
}

// Join registers a player in a session with a fresh zero-score record.
// Rejoining with the same id overwrites back to zero; the reset flow relies on
// that, normal clients resume instead.
func (s *GameService) Join(ctx context.Context, code, playerID, teamName string) error {
	code = domain.NormalizeSessionCode(code)
	teamName = strings.TrimSpace(teamName)
	if err := domain.ValidateTeamName(teamName); err != nil {
		return err
	}
	if playerID == "" {
		return fmt.Errorf("%w: player id required", domain.ErrValidation)
	}

	session, err := s.session(ctx, code)
	if err != nil {
		return err
	}
	if session.Status == domain.StatusFinished {
		return domain.ErrSessionFinished
	}

	player := domain.NewPlayer(playerID, teamName, s.nowMillis())
	doc, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("encode player: %w", err)
	}
	if err := s.store.Write(ctx, playerPath(code, playerID), doc); err != nil {
		return fmt.Errorf("write player: %w", err)
	}
	return nil
}

// Resume checks whether a persisted identity is still valid for a session:
// the session must exist and not be finished, and the roster record must have
// survived (a reset removes it). On success the existing player is returned.
func (s *GameService) Resume(ctx context.Context, code, playerID string) (domain.Player, error) {
	code = domain.NormalizeSessionCode(code)
	session, err := s.session(ctx, code)
	if err != nil {
		return domain.Player{}, err
	}
	if session.Status == domain.StatusFinished {
		return domain.Player{}, domain.ErrSessionFinished
	}
	return s.player(ctx, code, playerID)
}

// SubmitAnswer records a player's answer for a question and applies the score
// delta. Resubmission while the question is open replaces the previous answer;
// the player's round and total scores are adjusted by newPoints-oldPoints so
// earlier submissions leave no residue. The phase is not checked here: closing
// input after reveal is client policy, and the delta arithmetic stays correct
// either way.
func (s *GameService) SubmitAnswer(ctx context.Context, code, playerID string, round, question, selected int) (SubmitResult, error) {
	code = domain.NormalizeSessionCode(code)
	session, err := s.session(ctx, code)
	if err != nil {
		return SubmitResult{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return SubmitResult{}, err
	}
	q, ok := quiz.Question(round, question)
	if !ok {
		return SubmitResult{}, fmt.Errorf("%w: no question at round %d index %d", domain.ErrValidation, round, question)
	}
	if selected < 0 || selected >= len(q.Options) {
		return SubmitResult{}, fmt.Errorf("%w: option index %d out of range", domain.ErrValidation, selected)
	}

	now := s.nowMillis()
	correct := selected == q.CorrectIndex
	elapsed := 0.0
	if session.QuestionStartedAt != nil {
		elapsed = float64(now-*session.QuestionStartedAt) / 1000
		if elapsed < 0 {
			elapsed = 0
		}
	} else {
		// No running clock for this question; score as if time ran out.
		elapsed = float64(q.TimeLimit())
	}
	points := domain.ScorePoints(correct, elapsed, q.TimeLimit())

	// The roster record must exist before anything is written: only joined
	// players own ledger entries, and a rejected submission must leave no
	// trace behind.
	player, err := s.player(ctx, code, playerID)
	if err != nil {
		return SubmitResult{}, err
	}

	key := domain.AnswerKey{PlayerID: playerID, RoundIndex: round, QuestionIndex: question}
	oldPoints := 0
	if prev, err := s.answer(ctx, code, key); err == nil {
		oldPoints = prev.Points
	} else if !errors.Is(err, domain.ErrNotFound) {
		return SubmitResult{}, err
	}

	answer := domain.Answer{
		PlayerID:    playerID,
		AnswerIndex: selected,
		AnsweredAt:  now,
		Correct:     correct,
		Points:      points,
	}
	doc, err := json.Marshal(answer)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("encode answer: %w", err)
	}
	if err := s.store.Write(ctx, answerPath(code, key.Encode()), doc); err != nil {
		return SubmitResult{}, fmt.Errorf("write answer: %w", err)
	}

	delta := points - oldPoints
	roundScore := player.RoundScore(round) + delta
	totalScore := player.TotalScore + delta
	err = s.store.Patch(ctx, playerPath(code, playerID), map[string]any{
		"scores/" + strconv.Itoa(round): roundScore,
		"totalScore":                    totalScore,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("patch player score: %w", err)
	}

	return SubmitResult{
		Correct:    correct,
		Points:     points,
		RoundScore: roundScore,
		TotalScore: totalScore,
	}, nil
}

func (s *GameService) player(ctx context.Context, code, playerID string) (domain.Player, error) {
	doc, err := s.store.Read(ctx, playerPath(code, playerID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Player{}, domain.ErrPlayerNotFound
		}
		return domain.Player{}, fmt.Errorf("read player: %w", err)
	}
	var player domain.Player
	if err := json.Unmarshal(doc, &player); err != nil {
		return domain.Player{}, fmt.Errorf("decode player: %w", err)
	}
	return player, nil
}

func (s *GameService) answer(ctx context.Context, code string, key domain.AnswerKey) (domain.Answer, error) {
	doc, err := s.store.Read(ctx, answerPath(code, key.Encode()))
	if err != nil {
		return domain.Answer{}, err
	}
	var answer domain.Answer
	if err := json.Unmarshal(doc, &answer); err != nil {
		return domain.Answer{}, fmt.Errorf("decode answer: %w", err)
	}
	return answer, nil
}
