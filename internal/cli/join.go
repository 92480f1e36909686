package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/identity"
)

// NewJoinCmd builds a terminal player client. It keeps the player identity in
// a local file so a dropped connection can resume into the same roster entry.
func NewJoinCmd() *cobra.Command {
	var (
		server       string
		name         string
		identityPath string
	)

	cmd := &cobra.Command{
		Use:   "join CODE",
		Short: "Join a game from the terminal as a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := domain.NormalizeSessionCode(args[0])
			return runPlayerClient(cmd.Context(), server, code, name, identityPath)
		},
	}

	cmd.Flags().StringVar(&server, "server", "ws://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&name, "name", "", "team name (omit to resume a saved identity)")
	cmd.Flags().StringVar(&identityPath, "identity-file", defaultIdentityPath(), "where to persist the player identity")
	return cmd
}

func defaultIdentityPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pubquiz-identity.json"
	}
	return filepath.Join(home, ".pubquiz", "identity.json")
}

// clientView is the slice of game state the terminal client tracks so a bare
// answer index on stdin can be attributed to the current question. Updated by
// the reader goroutine, consumed by the stdin loop.
type clientView struct {
	mu       sync.Mutex
	phase    domain.QuestionPhase
	round    int
	question int
}

func (v *clientView) set(phase domain.QuestionPhase, round, question int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.phase, v.round, v.question = phase, round, question
}

func (v *clientView) current() (domain.QuestionPhase, int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase, v.round, v.question
}

func runPlayerClient(ctx context.Context, server, code, name, identityPath string) error {
	ids := identity.NewFileStore(identityPath)

	query := url.Values{}
	query.Set("code", code)
	query.Set("role", "player")
	rec, hasIdentity, err := ids.Load(code)
	if err != nil {
		return err
	}
	switch {
	case name != "":
		query.Set("name", name)
		if hasIdentity {
			// Joining fresh under a saved identity keeps the roster entry.
			query.Set("playerId", rec.PlayerID)
		}
	case hasIdentity:
		query.Set("playerId", rec.PlayerID)
	default:
		return fmt.Errorf("no saved identity for %s, pass --name to join", code)
	}

	wsURL := strings.TrimRight(server, "/") + "/ws?" + query.Encode()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	view := &clientView{}
	incomingDone := make(chan error, 1)
	go func() {
		incomingDone <- readServerMessages(conn, code, name, ids, view)
	}()

	fmt.Println("connected; type an option number (1-4) to answer, or quit")
	stdin := bufio.NewScanner(os.Stdin)
	stdinDone := make(chan struct{})
	go func() {
		defer close(stdinDone)
		for stdin.Scan() {
			line := strings.TrimSpace(stdin.Text())
			if line == "quit" || line == "q" {
				return
			}
			choice, err := strconv.Atoi(line)
			if err != nil || choice < 1 || choice > domain.OptionCount {
				fmt.Printf("enter a number between 1 and %d\n", domain.OptionCount)
				continue
			}
			phase, round, question := view.current()
			if phase != domain.PhaseAnswering {
				fmt.Println("no question is open right now")
				continue
			}
			payload, _ := json.Marshal(map[string]int{
				"roundIndex":    round,
				"questionIndex": question,
				"answerIndex":   choice - 1,
			})
			if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": json.RawMessage(payload)}); err != nil {
				fmt.Printf("send failed: %v\n", err)
				return
			}
		}
	}()

	select {
	case err := <-incomingDone:
		return err
	case <-stdinDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func readServerMessages(conn *websocket.Conn, code, name string, ids *identity.FileStore, view *clientView) error {
	for {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return nil
		}
		switch msg.Type {
		case "joined":
			var joined struct {
				PlayerID string `json:"playerId"`
			}
			if err := json.Unmarshal(msg.Payload, &joined); err != nil {
				continue
			}
			rec := identity.Record{PlayerID: joined.PlayerID, TeamName: name, SessionCode: code}
			if err := ids.Save(rec); err != nil {
				fmt.Printf("could not persist identity: %v\n", err)
			}
		case "session":
			var session domain.Session
			if err := json.Unmarshal(msg.Payload, &session); err != nil {
				continue
			}
			view.set(session.QuestionPhase, session.CurrentRound, session.CurrentQuestion)
			fmt.Printf("[%s] round %d question %d (%s)\n", session.Status, session.CurrentRound+1, session.CurrentQuestion+1, session.QuestionPhase)
		case "leaderboard":
			var players []domain.Player
			if err := json.Unmarshal(msg.Payload, &players); err != nil {
				continue
			}
			for rank, p := range players {
				fmt.Printf("  %d. %s %d pts\n", rank+1, p.TeamName, p.TotalScore)
			}
		case "answerResult":
			var result struct {
				Correct bool `json:"correct"`
				Points  int  `json:"points"`
			}
			if err := json.Unmarshal(msg.Payload, &result); err != nil {
				continue
			}
			if result.Correct {
				fmt.Printf("correct, +%d points\n", result.Points)
			} else {
				fmt.Println("wrong answer")
			}
		case "error":
			var e struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(msg.Payload, &e)
			fmt.Printf("server error: %s\n", e.Message)
			// A stale identity cannot resume; drop it so the next attempt
			// joins fresh.
			if strings.Contains(e.Message, domain.ErrPlayerNotFound.Error()) {
				_ = ids.Invalidate(code)
			}
		}
	}
}
