package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pubquiz-service/internal/domain"
)

// Snapshot carries the full value at a subscribed path after a change.
// Data is nil when the path is absent.
type Snapshot struct {
	Path string
	Data []byte
}

// Store abstracts the replicated document store every client coordinates
// through (in-memory for tests, Redis-backed in production). Paths are
// slash-joined segments; reading a path with children and no document of its
// own materializes a JSON object keyed by child segment. Writes to a single
// path apply in the order the store receives them; no ordering is promised
// across paths or across clients.
type Store interface {
	// Read returns the JSON value at path, or domain.ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// Write replaces the document at path.
	Write(ctx context.Context, path string, doc []byte) error
	// Patch merges named fields into the document at path, leaving unrelated
	// fields untouched. A slash in a field key descends into nested objects;
	// a nil value removes the field.
	Patch(ctx context.Context, path string, fields map[string]any) error
	// Delete removes the document at path and its whole subtree.
	Delete(ctx context.Context, path string) error
	// Subscribe delivers the full current value at path on every change,
	// starting with an immediate snapshot. The cancel function stops delivery
	// and releases the listener; it is safe to call more than once.
	Subscribe(ctx context.Context, path string) (<-chan Snapshot, func(), error)
}

// UnconfiguredStore stands in when no backend was configured. Every operation
// fails fast with domain.ErrStoreUnconfigured instead of hanging, so callers
// surface a clear setup error rather than a timeout.
type UnconfiguredStore struct{}

func (UnconfiguredStore) Read(context.Context, string) ([]byte, error) {
	return nil, domain.ErrStoreUnconfigured
}

func (UnconfiguredStore) Write(context.Context, string, []byte) error {
	return domain.ErrStoreUnconfigured
}

func (UnconfiguredStore) Patch(context.Context, string, map[string]any) error {
	return domain.ErrStoreUnconfigured
}

func (UnconfiguredStore) Delete(context.Context, string) error {
	return domain.ErrStoreUnconfigured
}

func (UnconfiguredStore) Subscribe(context.Context, string) (<-chan Snapshot, func(), error) {
	return nil, nil, domain.ErrStoreUnconfigured
}

// Store path layout, mirroring one document per session, one per player, one
// per answer slot.
func sessionPath(code string) string { return "sessions/" + code }
func playersPath(code string) string { return "players/" + code }
func playerPath(code, id string) string { return "players/" + code + "/" + id }
func answersPath(code string) string { return "answers/" + code }
func answerPath(code, key string) string { return "answers/" + code + "/" + key }

// ApplyFields merges a field map into a JSON document, implementing the Patch
// semantics shared by store backends. The document may be empty or absent.
func ApplyFields(doc []byte, fields map[string]any) ([]byte, error) {
	root := map[string]any{}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &root); err != nil {
			return nil, fmt.Errorf("patch target not an object: %w", err)
		}
	}
	for key, value := range fields {
		segments := strings.Split(key, "/")
		node := root
		for _, seg := range segments[:len(segments)-1] {
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[seg] = child
			}
			node = child
		}
		leaf := segments[len(segments)-1]
		if value == nil {
			delete(node, leaf)
		} else {
			node[leaf] = value
		}
	}
	return json.Marshal(root)
}
