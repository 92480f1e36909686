package app_test

import (
	"context"
	"testing"
	"time"

	"pubquiz-service/internal/domain"
)

func TestWatchSessionSeesPhaseChanges(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	code, _ := service.CreateGame(ctx, "quiz-1")
	mustJoin(t, service, code, "p1", "Team A")

	updates, cancel, err := service.WatchSession(ctx, code)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()

	initial := receiveSession(t, updates)
	if initial == nil || initial.Status != domain.StatusLobby {
		t.Fatalf("expected lobby snapshot first, got %+v", initial)
	}

	if err := service.StartQuiz(ctx, code); err != nil {
		t.Fatalf("start: %v", err)
	}
	update := receiveSession(t, updates)
	if update == nil || update.Status != domain.StatusPlaying {
		t.Fatalf("expected playing update, got %+v", update)
	}
}

func TestWatchRosterSeesJoins(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	code, _ := service.CreateGame(ctx, "quiz-1")

	updates, cancel, err := service.WatchRoster(ctx, code)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()

	initial := receiveRoster(t, updates)
	if len(initial) != 0 {
		t.Fatalf("expected empty roster first, got %d", len(initial))
	}

	mustJoin(t, service, code, "p1", "Team A")
	update := receiveRoster(t, updates)
	if len(update) != 1 || update[0].ID != "p1" {
		t.Fatalf("expected p1 in roster update, got %+v", update)
	}
}

func TestWatchAnswersSeesSubmissions(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	code, _ := service.CreateGame(ctx, "quiz-1")
	mustJoin(t, service, code, "p1", "Team A")
	_ = service.StartQuiz(ctx, code)
	_ = service.StartQuestion(ctx, code)

	updates, cancel, err := service.WatchAnswers(ctx, code)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()

	<-updates // initial (empty) ledger

	if _, err := service.SubmitAnswer(ctx, code, "p1", 0, 0, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case answers := <-updates:
		key := domain.AnswerKey{PlayerID: "p1", RoundIndex: 0, QuestionIndex: 0}
		if _, ok := answers[key.Encode()]; !ok {
			t.Fatalf("expected answer in ledger update, got %+v", answers)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for ledger update")
	}
}

func TestWatchCancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	code, _ := service.CreateGame(ctx, "quiz-1")

	_, cancel, err := service.WatchSession(ctx, code)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	cancel()
	cancel() // must be safe on any exit path
}

func receiveSession(t *testing.T, ch <-chan *domain.Session) *domain.Session {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for session update")
		return nil
	}
}

func receiveRoster(t *testing.T, ch <-chan []domain.Player) []domain.Player {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for roster update")
		return nil
	}
}
