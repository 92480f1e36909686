package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Answer records one player's submission for one question. A player may
// overwrite their own answer while the question is open; the record at the
// composite key is always the latest submission.
type Answer struct {
	PlayerID    string `json:"playerId"`
	AnswerIndex int    `json:"answerIndex"`
	AnsweredAt  int64  `json:"answeredAt"`
	Correct     bool   `json:"correct"`
	Points      int    `json:"points"`
}

// AnswerKey identifies the unique (player, round, question) slot for an answer.
type AnswerKey struct {
	PlayerID      string
	RoundIndex    int
	QuestionIndex int
}

// Encode flattens the key for stores that require flat path segments.
func (k AnswerKey) Encode() string {
	return fmt.Sprintf("%s_%d_%d", k.PlayerID, k.RoundIndex, k.QuestionIndex)
}

// ParseAnswerKey decodes a composite answer key. The round and question are
// recovered from the trailing two underscore-delimited segments, so player
// identifiers containing underscores decode correctly.
func ParseAnswerKey(raw string) (AnswerKey, error) {
	last := strings.LastIndex(raw, "_")
	if last <= 0 {
		return AnswerKey{}, fmt.Errorf("%w: malformed answer key %q", ErrValidation, raw)
	}
	second := strings.LastIndex(raw[:last], "_")
	if second <= 0 {
		return AnswerKey{}, fmt.Errorf("%w: malformed answer key %q", ErrValidation, raw)
	}

	round, err := strconv.Atoi(raw[second+1 : last])
	if err != nil {
		return AnswerKey{}, fmt.Errorf("%w: bad round in answer key %q", ErrValidation, raw)
	}
	question, err := strconv.Atoi(raw[last+1:])
	if err != nil {
		return AnswerKey{}, fmt.Errorf("%w: bad question in answer key %q", ErrValidation, raw)
	}
	return AnswerKey{
		PlayerID:      raw[:second],
		RoundIndex:    round,
		QuestionIndex: question,
	}, nil
}
