package memory

import (
	"context"
	"testing"
	"time"

	"pubquiz-service/internal/domain"
)

func TestQuizCacheCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	cache := NewQuizCache(loader, time.Minute)

	if _, err := cache.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestStaticLoaderSaveAndMiss(t *testing.T) {
	loader := NewStaticQuizLoader(nil)
	if _, err := loader.LoadQuiz(context.Background(), "missing"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if err := loader.SaveQuiz(context.Background(), sampleQuiz()); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	if _, err := loader.LoadQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("load after save: %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:   "quiz-1",
		Name: "Sample Quiz",
		Rounds: []domain.Round{{
			Name: "Round 1",
			Questions: []domain.Question{{
				Prompt:       "What is 2 + 2?",
				Options:      []string{"3", "4", "5", "22"},
				CorrectIndex: 1,
				TimeLimitSec: 30,
			}},
		}},
	}
}
