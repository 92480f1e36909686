// Package identity persists a player's self-asserted identity across
// connections. A record outlives any single connection but is invalidated as
// soon as the roster entry it points at disappears (a session reset does
// that), so stale identities never silently resume.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one persisted identity, scoped to a session code.
type Record struct {
	PlayerID    string `json:"playerId"`
	TeamName    string `json:"teamName"`
	SessionCode string `json:"sessionCode"`
	SavedAt     int64  `json:"savedAt"`
}

// NewPlayerID generates an opaque player identifier. It is independent of the
// session code and safe to embed in composite ledger keys.
func NewPlayerID() string {
	return uuid.NewString()
}

// FileStore keeps identity records in a single JSON file keyed by session
// code, the client-side analogue of browser storage.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save stores or replaces the identity for a session code.
func (s *FileStore) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if rec.SavedAt == 0 {
		rec.SavedAt = time.Now().UnixMilli()
	}
	records[rec.SessionCode] = rec
	return s.flush(records)
}

// Load returns the stored identity for a session code, if any.
func (s *FileStore) Load(sessionCode string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := records[sessionCode]
	return rec, ok, nil
}

// Invalidate discards the identity for a session code. Discarding an absent
// record is not an error.
func (s *FileStore) Invalidate(sessionCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := records[sessionCode]; !ok {
		return nil
	}
	delete(records, sessionCode)
	return s.flush(records)
}

func (s *FileStore) load() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}
	records := map[string]Record{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode identity file: %w", err)
	}
	return records, nil
}

func (s *FileStore) flush(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	return nil
}
