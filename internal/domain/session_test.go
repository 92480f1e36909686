package domain

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func TestPhaseTransitions(t *testing.T) {
	allowed := []struct {
		from, to QuestionPhase
	}{
		{PhaseWaiting, PhaseAnswering},
		{PhaseAnswering, PhaseRevealed},
		{PhaseRevealed, PhaseWaiting},
		{PhaseRevealed, PhaseRoundEnd},
		{PhaseRoundEnd, PhaseWaiting},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct {
		from, to QuestionPhase
	}{
		{PhaseWaiting, PhaseRevealed},
		{PhaseWaiting, PhaseRoundEnd},
		{PhaseAnswering, PhaseWaiting},
		{PhaseAnswering, PhaseRoundEnd},
		{PhaseRoundEnd, PhaseAnswering},
		{PhaseRoundEnd, PhaseRevealed},
		{PhaseRevealed, PhaseAnswering},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestNewSessionInitialState(t *testing.T) {
	s := NewSession("quiz-1", 1234)
	if s.Status != StatusLobby || s.QuestionPhase != PhaseWaiting {
		t.Fatalf("unexpected initial state: %+v", s)
	}
	if s.CurrentRound != 0 || s.CurrentQuestion != 0 {
		t.Fatalf("expected zero position, got %+v", s)
	}
	if s.QuestionStartedAt != nil {
		t.Fatalf("expected nil questionStartedAt")
	}
	if s.CreatedAt != 1234 {
		t.Fatalf("createdAt not preserved")
	}
}

func TestSessionCodeAlphabet(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		code := NewSessionCode(rnd)
		if len(code) != SessionCodeLen {
			t.Fatalf("expected %d chars, got %q", SessionCodeLen, code)
		}
		if strings.ContainsAny(code, "0O1I") {
			t.Fatalf("ambiguous character in code %q", code)
		}
	}
}

func TestNormalizeSessionCode(t *testing.T) {
	if got := NormalizeSessionCode("  ab2x9q "); got != "AB2X9Q" {
		t.Fatalf("expected AB2X9Q, got %q", got)
	}
}

func TestValidateTeamName(t *testing.T) {
	if err := ValidateTeamName("The Quizzards"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	if err := ValidateTeamName("   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
	if err := ValidateTeamName(strings.Repeat("x", TeamNameMaxLen+1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for long name, got %v", err)
	}
}

func TestQuizValidate(t *testing.T) {
	quiz := Quiz{
		ID:   "quiz-1",
		Name: "General Knowledge",
		Rounds: []Round{{
			Name: "Round 1",
			Questions: []Question{{
				Prompt:       "What is 2 + 2?",
				Options:      []string{"3", "4", "5", "22"},
				CorrectIndex: 1,
			}},
		}},
	}
	if err := quiz.Validate(); err != nil {
		t.Fatalf("valid quiz rejected: %v", err)
	}

	bad := quiz
	bad.Rounds = []Round{{Name: "r", Questions: []Question{{
		Prompt:       "p",
		Options:      []string{"a", "b"},
		CorrectIndex: 0,
	}}}}
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for option count, got %v", err)
	}

	bad = quiz
	bad.Rounds[0].Questions[0].CorrectIndex = 4
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for correct index, got %v", err)
	}
}

func TestPlayerConsistentTotals(t *testing.T) {
	p := NewPlayer("p1", "Team A", 0)
	if !p.ConsistentTotals() {
		t.Fatalf("fresh player should be consistent")
	}
	p.Scores[0] = 1500
	p.Scores[1] = 1000
	p.TotalScore = 2500
	if !p.ConsistentTotals() {
		t.Fatalf("expected consistent totals")
	}
	p.TotalScore = 2400
	if p.ConsistentTotals() {
		t.Fatalf("expected drift to be detected")
	}
}
