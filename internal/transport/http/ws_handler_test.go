package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.GameService) {
	t.Helper()
	loader := memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()})
	service := app.NewGameService(memory.NewStore(), memory.NewQuizCache(loader, time.Minute))
	wsHandler := NewWSHandler(service)
	gameHandler := NewGameHandler(service, loader)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/games", gameHandler.CreateGame)
	mux.HandleFunc("/quizzes", gameHandler.CreateQuiz)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func TestDispatchReturnsAfterWriterExit(t *testing.T) {
	loader := memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()})
	service := app.NewGameService(memory.NewStore(), memory.NewQuizCache(loader, time.Minute))
	handler := NewWSHandler(service)

	// A dead writer with a full buffer: dispatch must still return so the
	// read loop can reach connection teardown.
	send := make(chan outboundMessage[any], 1)
	send <- outboundMessage[any]{Type: "session"}
	writerDone := make(chan struct{})
	close(writerDone)

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.dispatch(context.Background(), send, writerDone, inboundMessage{Type: "bogus"}, rolePlayer, "ABCDEF", "p1")
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked on a dead writer")
	}
}

func TestCreateGameEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/games", "application/json", bytes.NewBufferString(`{"quizId":"quiz-1"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(created.Code) != domain.SessionCodeLen {
		t.Fatalf("unexpected code %q", created.Code)
	}
}

func TestCreateGameUnknownQuiz(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/games", "application/json", bytes.NewBufferString(`{"quizId":"nope"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/quizzes", "application/json", bytes.NewBufferString(`{"id":"q2","name":"Bad","rounds":[]}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebSocketGameFlow(t *testing.T) {
	server, service := newTestServer(t)
	ctx := context.Background()

	code, err := service.CreateGame(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	wsBase := "ws" + server.URL[len("http"):]

	player, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws?code="+code+"&role=player&playerId=p1&name=Team+A", nil)
	if err != nil {
		t.Fatalf("player dial: %v", err)
	}
	defer player.Close()

	host, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws?code="+code+"&role=host", nil)
	if err != nil {
		t.Fatalf("host dial: %v", err)
	}
	defer host.Close()

	// Both clients receive initial snapshots.
	waitFor(t, player, "session")
	waitFor(t, host, "session")

	// Host starts the quiz and opens the first question.
	writeMsg(t, host, "start_quiz", nil)
	writeMsg(t, host, "start_question", nil)

	// Player sees the answering phase via the session stream.
	waitForSessionPhase(t, player, string(domain.PhaseAnswering))

	// Player answers; expects a scored result.
	writeMsg(t, player, "answer", map[string]any{
		"roundIndex":    0,
		"questionIndex": 0,
		"answerIndex":   1,
	})
	payload := waitFor(t, player, "answerResult")
	var result app.SubmitResult
	mustDecode(t, payload, &result)
	if !result.Correct || result.Points < 1000 {
		t.Fatalf("expected scored correct answer, got %+v", result)
	}

	// Host sees the ledger update for the answered question.
	waitFor(t, host, "answers")
}

func TestWebSocketPlayerActionRejectedForHostOps(t *testing.T) {
	server, service := newTestServer(t)
	code, err := service.CreateGame(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	wsBase := "ws" + server.URL[len("http"):]
	player, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws?code="+code+"&role=player&playerId=p1&name=Team+A", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer player.Close()

	writeMsg(t, player, "start_quiz", nil)
	waitFor(t, player, "error")
}

func TestWebSocketJoinWithoutPlayerIDMintsIdentity(t *testing.T) {
	server, service := newTestServer(t)
	code, err := service.CreateGame(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	wsBase := "ws" + server.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws?code="+code+"&role=player&name=Team+B", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload := waitFor(t, conn, "joined")
	var joined struct {
		PlayerID    string `json:"playerId"`
		SessionCode string `json:"sessionCode"`
	}
	mustDecode(t, payload, &joined)
	if joined.PlayerID == "" {
		t.Fatalf("expected minted player id, got %+v", joined)
	}
	if joined.SessionCode != code {
		t.Fatalf("expected session code %s, got %s", code, joined.SessionCode)
	}

	roster, err := service.Roster(context.Background(), code)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 1 || roster[0].ID != joined.PlayerID {
		t.Fatalf("expected minted id on roster, got %+v", roster)
	}
}

func TestWebSocketResumeUnknownIdentity(t *testing.T) {
	server, service := newTestServer(t)
	code, err := service.CreateGame(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	wsBase := "ws" + server.URL[len("http"):]
	// No name: resume path; identity was never on the roster.
	conn, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws?code="+code+"&role=player&playerId=ghost", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, _ := readNext(t, conn)
	if typ != "error" {
		t.Fatalf("expected error for stale identity, got %s", typ)
	}
}

func writeMsg(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// waitFor reads until a message of the wanted type arrives; snapshots of the
// other streams may interleave.
func waitFor(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(t, conn)
		if typ == want {
			return payload
		}
	}
	t.Fatalf("never received %q", want)
	return nil
}

func waitForSessionPhase(t *testing.T, conn *websocket.Conn, phase string) {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(t, conn)
		if typ != "session" || payload == nil {
			continue
		}
		var session domain.Session
		if err := json.Unmarshal(payload, &session); err != nil {
			continue
		}
		if string(session.QuestionPhase) == phase {
			return
		}
	}
	t.Fatalf("never saw session phase %q", phase)
}

func readNext(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func mustDecode(t *testing.T, payload json.RawMessage, out any) {
	t.Helper()
	if err := json.Unmarshal(payload, out); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
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
