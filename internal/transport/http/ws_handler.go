package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/identity"
)

// WSHandler serves one websocket per client. Players join or resume and
// submit answers; the host drives the session state machine. Both roles
// receive session, leaderboard and answer-ledger snapshots pushed from the
// watch layer.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	RoundIndex    int `json:"roundIndex"`
	QuestionIndex int `json:"questionIndex"`
	AnswerIndex   int `json:"answerIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	PlayerID    string `json:"playerId"`
	SessionCode string `json:"sessionCode"`
}

const (
	roleHost   = "host"
	rolePlayer = "player"
)

// ServeWS upgrades HTTP requests to websockets and wires them into the game use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := domain.NormalizeSessionCode(r.URL.Query().Get("code"))
	role := r.URL.Query().Get("role")
	playerID := r.URL.Query().Get("playerId")
	teamName := r.URL.Query().Get("name")

	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	if role != roleHost && role != rolePlayer {
		http.Error(w, "role must be host or player", http.StatusBadRequest)
		return
	}
	if role == rolePlayer && playerID == "" {
		if teamName == "" {
			http.Error(w, "missing playerId", http.StatusBadRequest)
			return
		}
		// Fresh join without a client-side identity: mint one here and hand
		// it back in the joined confirmation so the client can persist it.
		playerID = identity.NewPlayerID()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if role == rolePlayer {
		// A name means a fresh join; without one the client is resuming a
		// persisted identity, which must still be on the roster.
		if teamName != "" {
			err = h.service.Join(ctx, code, playerID, teamName)
		} else {
			_, err = h.service.Resume(ctx, code, playerID)
		}
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
		_ = conn.WriteJSON(outboundMessage[joinedPayload]{Type: "joined", Payload: joinedPayload{PlayerID: playerID, SessionCode: code}})
	}

	sessions, cancelSession, err := h.service.WatchSession(ctx, code)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancelSession()

	roster, cancelRoster, err := h.service.WatchRoster(ctx, code)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancelRoster()

	answers, cancelAnswers, err := h.service.WatchAnswers(ctx, code)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancelAnswers()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			var msg outboundMessage[any]
			select {
			case session, ok := <-sessions:
				if !ok {
					return
				}
				msg = outboundMessage[any]{Type: "session", Payload: session}
			case players, ok := <-roster:
				if !ok {
					return
				}
				msg = outboundMessage[any]{Type: "leaderboard", Payload: players}
			case ledger, ok := <-answers:
				if !ok {
					return
				}
				msg = outboundMessage[any]{Type: "answers", Payload: ledger}
			case <-closeSignals:
				return
			}
			select {
			case send <- msg:
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, send, writerDone, inbound, role, code, playerID)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, send chan<- outboundMessage[any], writerDone <-chan struct{}, inbound inboundMessage, role, code, playerID string) {
	// The writer goroutine exits on a write error; sending must not block
	// forever on its full buffer after that.
	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	fail := func(err error) {
		reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	switch inbound.Type {
	case "answer":
		if role != rolePlayer {
			fail(errors.New("only players submit answers"))
			return
		}
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid answer payload"))
			return
		}
		result, err := h.service.SubmitAnswer(ctx, code, playerID, payload.RoundIndex, payload.QuestionIndex, payload.AnswerIndex)
		if err != nil {
			fail(err)
			return
		}
		reply(outboundMessage[any]{Type: "answerResult", Payload: result})

	case "start_quiz", "start_question", "reveal_answer", "next_question", "round_end", "next_round", "finish_quiz", "reset_game":
		if role != roleHost {
			fail(errors.New("only the host drives the game"))
			return
		}
		if err := h.hostAction(ctx, inbound.Type, code); err != nil {
			fail(err)
		}

	default:
		fail(errors.New("unsupported message type"))
	}
}

func (h *WSHandler) hostAction(ctx context.Context, action, code string) error {
	switch action {
	case "start_quiz":
		return h.service.StartQuiz(ctx, code)
	case "start_question":
		return h.service.StartQuestion(ctx, code)
	case "reveal_answer":
		return h.service.RevealAnswer(ctx, code)
	case "next_question":
		return h.service.NextQuestion(ctx, code)
	case "round_end":
		return h.service.ShowRoundEnd(ctx, code)
	case "next_round":
		return h.service.NextRound(ctx, code)
	case "finish_quiz":
		return h.service.FinishQuiz(ctx, code)
	case "reset_game":
		return h.service.ResetGame(ctx, code)
	}
	return errors.New("unsupported host action")
}
