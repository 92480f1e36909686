package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"pubquiz-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizSaver persists new quiz content; implemented by the Postgres content
// store and the static loader used in tests.
type QuizSaver interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// GameService contains the session, roster, answer and scoring use cases.
// All coordination between clients goes through the shared store; the service
// itself keeps no per-session state.
type GameService struct {
	store   Store
	quizzes QuizRepository
	now     func() time.Time

	// rnd is not safe for concurrent use; newSessionCode holds rndMu.
	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewGameService(store Store, quizzes QuizRepository) *GameService {
	return NewGameServiceWithClock(store, quizzes, time.Now)
}

// NewGameServiceWithClock is test-only for deterministic timestamps.
func NewGameServiceWithClock(store Store, quizzes QuizRepository, now func() time.Time) *GameService {
	return &GameService{
		store:   store,
		quizzes: quizzes,
		now:     now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *GameService) nowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *GameService) newSessionCode() string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return domain.NewSessionCode(s.rnd)
}

// session reads and decodes the session document for a code.
func (s *GameService) session(ctx context.Context, code string) (domain.Session, error) {
	doc, err := s.store.Read(ctx, sessionPath(code))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("read session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(doc, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// GetSession returns the current session document for a code.
func (s *GameService) GetSession(ctx context.Context, code string) (domain.Session, error) {
	return s.session(ctx, domain.NormalizeSessionCode(code))
}

// GetQuiz exposes quiz content lookup to transports.
func (s *GameService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// readCollection reads a collection path, treating absence as empty.
func (s *GameService) readCollection(ctx context.Context, path string) ([]byte, error) {
	data, err := s.store.Read(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func decodePlayers(data []byte) (map[string]domain.Player, error) {
	players := map[string]domain.Player{}
	if len(data) == 0 {
		return players, nil
	}
	if err := json.Unmarshal(data, &players); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}
	return players, nil
}

func decodeAnswers(data []byte) (map[string]domain.Answer, error) {
	answers := map[string]domain.Answer{}
	if len(data) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return answers, nil
}
