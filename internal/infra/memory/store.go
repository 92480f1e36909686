package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/domain"
)

// Store is the in-memory implementation of app.Store, used by tests and by
// single-process deployments without a Redis backend. Documents live in a flat
// map keyed by path; watchers are notified whenever a write touches their
// path, an ancestor, or a descendant.
type Store struct {
	mu       sync.RWMutex
	docs     map[string][]byte
	watchers map[*watcher]struct{}
}

type watcher struct {
	path string
	ch   chan app.Snapshot
}

func NewStore() *Store {
	return &Store{
		docs:     map[string][]byte{},
		watchers: map[*watcher]struct{}{},
	}
}

func (s *Store) Read(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readLocked(path)
}

func (s *Store) Write(_ context.Context, path string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = append([]byte(nil), doc...)
	s.notifyLocked(path)
	return nil
}

func (s *Store) Patch(_ context.Context, path string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged, err := app.ApplyFields(s.docs[path], fields)
	if err != nil {
		return err
	}
	s.docs[path] = merged
	s.notifyLocked(path)
	return nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	prefix := path + "/"
	for key := range s.docs {
		if strings.HasPrefix(key, prefix) {
			delete(s.docs, key)
		}
	}
	s.notifyLocked(path)
	return nil
}

func (s *Store) Subscribe(_ context.Context, path string) (<-chan app.Snapshot, func(), error) {
	w := &watcher{path: path, ch: make(chan app.Snapshot, 8)}

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	initial := s.snapshotLocked(path)
	s.mu.Unlock()

	w.ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.watchers[w]; ok {
			delete(s.watchers, w)
			close(w.ch)
		}
		s.mu.Unlock()
	}
	return w.ch, cancel, nil
}

// readLocked materializes the value at a path: the document itself, or a JSON
// object of children for a collection path.
func (s *Store) readLocked(path string) ([]byte, error) {
	if doc, ok := s.docs[path]; ok {
		return append([]byte(nil), doc...), nil
	}

	prefix := path + "/"
	children := map[string]json.RawMessage{}
	for key, doc := range s.docs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		child := key[len(prefix):]
		if strings.Contains(child, "/") {
			// Deeper descendant; collections materialize one level only.
			continue
		}
		children[child] = json.RawMessage(doc)
	}
	if len(children) == 0 {
		return nil, domain.ErrNotFound
	}
	return json.Marshal(children)
}

func (s *Store) snapshotLocked(path string) app.Snapshot {
	data, err := s.readLocked(path)
	if err != nil {
		return app.Snapshot{Path: path}
	}
	return app.Snapshot{Path: path, Data: data}
}

// notifyLocked pushes fresh snapshots to every watcher whose path is related
// to the changed one. Stale pending snapshots are dropped so a slow consumer
// never blocks a writer.
func (s *Store) notifyLocked(changed string) {
	for w := range s.watchers {
		if !covers(w.path, changed) && !covers(changed, w.path) {
			continue
		}
		snap := s.snapshotLocked(w.path)
		select {
		case w.ch <- snap:
		default:
			select {
			case <-w.ch:
			default:
			}
			w.ch <- snap
		}
	}
}

// covers reports whether watching a path includes changes at target.
func covers(path, target string) bool {
	return path == target || strings.HasPrefix(target, path+"/")
}

// Keys lists stored document paths; handy for assertions in tests.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.docs))
	for key := range s.docs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
