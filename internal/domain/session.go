package domain

// SessionStatus is the coarse lifecycle of a game session.
type SessionStatus string

const (
	StatusLobby    SessionStatus = "lobby"
	StatusPlaying  SessionStatus = "playing"
	StatusFinished SessionStatus = "finished"
)

// QuestionPhase is the sub-state of a session while playing.
type QuestionPhase string

const (
	PhaseWaiting   QuestionPhase = "waiting"
	PhaseAnswering QuestionPhase = "answering"
	PhaseRevealed  QuestionPhase = "revealed"
	PhaseRoundEnd  QuestionPhase = "round_end"
)

// CanTransitionTo checks if a phase transition is allowed. No phase may be skipped.
func (p QuestionPhase) CanTransitionTo(target QuestionPhase) bool {
	validTransitions := map[QuestionPhase][]QuestionPhase{
		PhaseWaiting:   {PhaseAnswering},
		PhaseAnswering: {PhaseRevealed},
		PhaseRevealed:  {PhaseWaiting, PhaseRoundEnd},
		PhaseRoundEnd:  {PhaseWaiting},
	}
	for _, phase := range validTransitions[p] {
		if phase == target {
			return true
		}
	}
	return false
}

// Session is the single shared document per game instance, mutated only by the host.
// Timestamps are unix milliseconds so they merge cleanly through field patches.
type Session struct {
	QuizID            string        `json:"quizId"`
	Status            SessionStatus `json:"status"`
	CurrentRound      int           `json:"currentRound"`
	CurrentQuestion   int           `json:"currentQuestion"`
	QuestionPhase     QuestionPhase `json:"questionPhase"`
	QuestionStartedAt *int64        `json:"questionStartedAt"`
	CreatedAt         int64         `json:"createdAt"`
}

// NewSession returns the initial lobby state for a quiz.
func NewSession(quizID string, createdAt int64) Session {
	return Session{
		QuizID:          quizID,
		Status:          StatusLobby,
		CurrentRound:    0,
		CurrentQuestion: 0,
		QuestionPhase:   PhaseWaiting,
		CreatedAt:       createdAt,
	}
}
