package domain

import (
	"math/rand"
	"strings"
)

// sessionCodeAlphabet omits visually ambiguous characters (0/O, 1/I).
const sessionCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// SessionCodeLen is the length of a human-facing join code.
const SessionCodeLen = 6

// NewSessionCode draws a join code from the unambiguous alphabet.
func NewSessionCode(rnd *rand.Rand) string {
	var b strings.Builder
	b.Grow(SessionCodeLen)
	for i := 0; i < SessionCodeLen; i++ {
		b.WriteByte(sessionCodeAlphabet[rnd.Intn(len(sessionCodeAlphabet))])
	}
	return b.String()
}

// NormalizeSessionCode uppercases and trims a user-entered code.
func NormalizeSessionCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
