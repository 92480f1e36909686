package app_test

import (
	"context"
	"testing"
	"time"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/infra/memory"
)

func newTestService(t *testing.T) (*app.GameService, *memory.Store) {
	t.Helper()
	service, store, _ := newTestServiceAtClock(t)
	return service, store
}

// newTestServiceAtClock returns a service whose clock starts at a fixed
// instant and can be advanced by the test.
func newTestServiceAtClock(t *testing.T) (*app.GameService, *memory.Store, *fakeClock) {
	t.Helper()
	store := memory.NewStore()
	quizzes := memory.NewQuizCache(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": twoRoundQuiz(),
	}), 5*time.Minute)
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	return app.NewGameServiceWithClock(store, quizzes, clock.Now), store, clock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func twoRoundQuiz() domain.Quiz {
	return domain.Quiz{
		ID:   "quiz-1",
		Name: "Pub Quiz Night",
		Rounds: []domain.Round{
			{
				Name: "General Knowledge",
				Questions: []domain.Question{
					{
						Prompt:       "What is 2 + 2?",
						Options:      []string{"3", "4", "5", "22"},
						CorrectIndex: 1,
						TimeLimitSec: 30,
					},
					{
						Prompt:       "Which planet is known as the red planet?",
						Options:      []string{"Venus", "Jupiter", "Mars", "Saturn"},
						CorrectIndex: 2,
						TimeLimitSec: 30,
					},
				},
			},
			{
				Name: "Music",
				Questions: []domain.Question{
					{
						Prompt:       "How many strings does a standard violin have?",
						Options:      []string{"4", "5", "6", "7"},
						CorrectIndex: 0,
						TimeLimitSec: 20,
					},
				},
			},
		},
	}
}

func mustJoin(t *testing.T, service *app.GameService, code, playerID, name string) {
	t.Helper()
	if err := service.Join(context.Background(), code, playerID, name); err != nil {
		t.Fatalf("join %s: %v", playerID, err)
	}
}
