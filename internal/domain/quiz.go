package domain

import "fmt"

const (
	// OptionCount is the fixed number of options per question.
	OptionCount = 4
	// DefaultTimeLimitSec applies when a question does not set its own limit.
	DefaultTimeLimitSec = 30
)

// Question models an MCQ question with exactly four options.
type Question struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	TimeLimitSec int      `json:"timeLimit"` // defaults to 30 if zero
}

// TimeLimit returns the effective time limit in seconds.
func (q Question) TimeLimit() int {
	if q.TimeLimitSec <= 0 {
		return DefaultTimeLimitSec
	}
	return q.TimeLimitSec
}

// Round is a named, ordered block of questions.
type Round struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Quiz is immutable content: created once by the host, never mutated afterward.
type Quiz struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rounds []Round `json:"rounds"`
}

// Validate rejects malformed quiz content before it reaches any store.
func (z Quiz) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("%w: quiz id required", ErrValidation)
	}
	if z.Name == "" {
		return fmt.Errorf("%w: quiz name required", ErrValidation)
	}
	if len(z.Rounds) == 0 {
		return fmt.Errorf("%w: quiz needs at least one round", ErrValidation)
	}
	for ri, round := range z.Rounds {
		if len(round.Questions) == 0 {
			return fmt.Errorf("%w: round %d has no questions", ErrValidation, ri)
		}
		for qi, q := range round.Questions {
			if q.Prompt == "" {
				return fmt.Errorf("%w: round %d question %d has no prompt", ErrValidation, ri, qi)
			}
			if len(q.Options) != OptionCount {
				return fmt.Errorf("%w: round %d question %d needs exactly %d options", ErrValidation, ri, qi, OptionCount)
			}
			if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
				return fmt.Errorf("%w: round %d question %d correct index out of range", ErrValidation, ri, qi)
			}
			if q.TimeLimitSec < 0 {
				return fmt.Errorf("%w: round %d question %d time limit must be positive", ErrValidation, ri, qi)
			}
		}
	}
	return nil
}

// Question returns the question at (round, question), if both indices are valid.
func (z Quiz) Question(round, question int) (Question, bool) {
	if round < 0 || round >= len(z.Rounds) {
		return Question{}, false
	}
	qs := z.Rounds[round].Questions
	if question < 0 || question >= len(qs) {
		return Question{}, false
	}
	return qs[question], true
}
