package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pubquiz-service/internal/domain"
)

// Host-side operations. The session document is single-writer-in-practice:
// only the host issues these, but the store does not enforce it, so every
// transition re-reads the current state and validates before patching.

const codeRetries = 5

// CreateGame allocates a join code and writes the initial lobby session.
func (s *GameService) CreateGame(ctx context.Context, quizID string) (string, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return "", err
	}

	for attempt := 0; attempt < codeRetries; attempt++ {
		code := s.newSessionCode()
		if _, err := s.store.Read(ctx, sessionPath(code)); err == nil {
			continue // code already in use
		} else if !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("check session code: %w", err)
		}

		session := domain.NewSession(quizID, s.nowMillis())
		doc, err := json.Marshal(session)
		if err != nil {
			return "", fmt.Errorf("encode session: %w", err)
		}
		if err := s.store.Write(ctx, sessionPath(code), doc); err != nil {
			return "", fmt.Errorf("write session: %w", err)
		}
		return code, nil
	}
	return "", fmt.Errorf("could not allocate a free session code")
}

// CreateQuiz validates and persists quiz content.
func (s *GameService) CreateQuiz(ctx context.Context, saver QuizSaver, quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	if err := saver.SaveQuiz(ctx, quiz); err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

// StartQuiz moves a lobby into play. Requires at least one joined player.
func (s *GameService) StartQuiz(ctx context.Context, code string) error {
	code = domain.NormalizeSessionCode(code)
	session, err := s.session(ctx, code)
	if err != nil {
		return err
	}
	if session.Status != domain.StatusLobby {
		return fmt.Errorf("%w: start from %s", domain.ErrInvalidTransition, session.Status)
	}
	players, err := s.Roster(ctx, code)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		return fmt.Errorf("%w: no players joined", domain.ErrValidation)
	}
	return s.patchSession(ctx, code, map[string]any{
		"status":        string(domain.StatusPlaying),
		"questionPhase": string(domain.PhaseWaiting),
	})
}

// StartQuestion opens the current question for answers and starts the clock.
func (s *GameService) StartQuestion(ctx context.Context, code string) error {
	code = domain.NormalizeSessionCode(code)
	if err := s.requirePhaseChange(ctx, code, domain.PhaseAnswering); err != nil {
		return err
	}
	return s.patchSession(ctx, code, map[string]any{
		"questionPhase":     string(domain.PhaseAnswering),
		"questionStartedAt": s.nowMillis(),
	})
}

// RevealAnswer closes the answering window and shows the correct option.
func (s *GameService) RevealAnswer(ctx context.Context, code string) error {
	code = domain.NormalizeSessionCode(code)
	if err := s.requirePhaseChange(ctx, code, domain.PhaseRevealed); err != nil {
		return err
	}
	return s.patchSession(ctx, code, map[string]any{
		"questionPhase": string(domain.PhaseRevealed),
	})
}

// NextQuestion advances within the current round after a reveal.
func (s *GameService) NextQuestion(ctx context.Context, code string) error {
	code = domain.NormalizeSessionCode(code)
	session, quiz, err := s.playingSession(ctx, code)
	if err != nil {
		return err
	}
	if session.QuestionPhase != domain.PhaseRevealed {
		return fmt.Errorf("%w: next question from %s", domain.ErrInvalidTransition, session.QuestionPhase)
	}
	if session.CurrentQuestion >= len(quiz.Rounds[session.CurrentRound].Questions)-1 {
		return fmt.Errorf("%w: no more questions in round", domain.ErrInvalidTransition)
	}
	return s.patchSession(ctx, code, map[string]any{
		"currentQuestion":   session.CurrentQuestion + 1,
		"questionPhase":     string(domain.PhaseWaiting),
		"questionStartedAt": nil,
	})
}

// ShowRoundEnd moves to the round leaderboard after the round's last reveal.
func (s *GameService) ShowRoundEnd(ctx context.Context, code string) error {
	code = domain.NormalizeSessionCode(code)
	session, quiz, err := s.playingSession(ctx, code)
	if err != nil {
		return err
	}
	if session.QuestionPhase != domain.PhaseRevealed {
		return fmt.Errorf("%w: round end from %s", domain.ErrInvalidTransition, session.QuestionPhase)
	}
	if session.CurrentQuestion < len(quiz.Rounds[session.CurrentRound].Questions)-1 {
		return fmt.Errorf("%w: round still has questions", domain.ErrInvalidTransition)
	}
	return s.patchSession(ctx, code, map[string]any{
		"questionPhase":     string(domain.PhaseRoundEnd),
		"questionStartedAt": nil,
	})
}

// NextRound advances to the first question of the following round.
func (s *GameService) NextRound(ctx context.Context, code string) error {
	code = domain.NormalizeSessionCode(code)
	session, quiz, err := s.playingSession(ctx, code)
	if err != nil {
		return err
	}
	if session.QuestionPhase != domain.PhaseRoundEnd {
		return fmt.Errorf("%w: next round from %s", domain.ErrInvalidTransition, session.QuestionPhase)
	}
	if session.CurrentRound >= len(quiz.Rounds)-1 {
		return fmt.Errorf("%w: no more rounds", domain.ErrInvalidTransition)
	}
	return s.patchSession(ctx, code, map[string]any{
		"currentRound":      session.CurrentRound + 1,
		"currentQuestion":   0,
		"questionPhase":     string(domain.PhaseWaiting),
		"questionStartedAt": nil,
	})
}

// FinishQuiz ends the game after the final round's leaderboard.
func (s *GameService) FinishQuiz(ctx context.Context, code string) error {
	code = domain.NormalizeSessionCode(code)
	session, quiz, err := s.playingSession(ctx, code)
	if err != nil {
		return err
	}
	if session.QuestionPhase != domain.PhaseRoundEnd {
		return fmt.Errorf("%w: finish from %s", domain.ErrInvalidTransition, session.QuestionPhase)
	}
	if session.CurrentRound < len(quiz.Rounds)-1 {
		return fmt.Errorf("%w: rounds remaining", domain.ErrInvalidTransition)
	}
	return s.patchSession(ctx, code, map[string]any{
		"status":        string(domain.StatusFinished),
		"questionPhase": string(domain.PhaseWaiting),
	})
}

// ResetGame is a compensating operation, not a state-machine transition: it
// clears the roster and answer ledger and rewrites the session to the initial
// lobby state. The join code survives so players can rejoin.
func (s *GameService) ResetGame(ctx context.Context, code string) error {
	code = domain.NormalizeSessionCode(code)
	if _, err := s.session(ctx, code); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, playersPath(code)); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}
	if err := s.store.Delete(ctx, answersPath(code)); err != nil {
		return fmt.Errorf("clear answers: %w", err)
	}
	return s.patchSession(ctx, code, map[string]any{
		"status":            string(domain.StatusLobby),
		"currentRound":      0,
		"currentQuestion":   0,
		"questionPhase":     string(domain.PhaseWaiting),
		"questionStartedAt": nil,
	})
}

func (s *GameService) patchSession(ctx context.Context, code string, fields map[string]any) error {
	if err := s.store.Patch(ctx, sessionPath(code), fields); err != nil {
		return fmt.Errorf("patch session: %w", err)
	}
	return nil
}

// requirePhaseChange validates a plain phase move on an in-play session.
func (s *GameService) requirePhaseChange(ctx context.Context, code string, target domain.QuestionPhase) error {
	session, err := s.session(ctx, code)
	if err != nil {
		return err
	}
	if session.Status != domain.StatusPlaying {
		return fmt.Errorf("%w: session is %s", domain.ErrInvalidTransition, session.Status)
	}
	if !session.QuestionPhase.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, session.QuestionPhase, target)
	}
	return nil
}

// playingSession loads a session in playing status together with its quiz.
func (s *GameService) playingSession(ctx context.Context, code string) (domain.Session, domain.Quiz, error) {
	session, err := s.session(ctx, code)
	if err != nil {
		return domain.Session{}, domain.Quiz{}, err
	}
	if session.Status != domain.StatusPlaying {
		return domain.Session{}, domain.Quiz{}, fmt.Errorf("%w: session is %s", domain.ErrInvalidTransition, session.Status)
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.Session{}, domain.Quiz{}, err
	}
	return session, quiz, nil
}
