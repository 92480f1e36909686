package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/domain"
)

const (
	docPrefix     = "pubquiz:doc:"
	channelPrefix = "pubquiz:changed:"
)

// Store implements app.Store on Redis: one JSON document per path, change
// fan-out over pub/sub. Every write publishes the changed path on a channel
// per ancestor, so a subscriber watching a collection hears about child
// writes. Patches are read-merge-write without a transaction; the protocol
// partitions writers per path (host owns the session, each player owns their
// own records), so concurrent patchers never target the same document.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	doc, err := s.client.Get(ctx, docPrefix+path).Bytes()
	if err == nil {
		return doc, nil
	}
	if err != redis.Nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return s.readCollection(ctx, path)
}

func (s *Store) Write(ctx context.Context, path string, doc []byte) error {
	if err := s.client.Set(ctx, docPrefix+path, doc, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	s.publish(ctx, path)
	return nil
}

func (s *Store) Patch(ctx context.Context, path string, fields map[string]any) error {
	current, err := s.client.Get(ctx, docPrefix+path).Bytes()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("redis get for patch: %w", err)
	}
	merged, err := app.ApplyFields(current, fields)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, docPrefix+path, merged, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	s.publish(ctx, path)
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	keys := []string{docPrefix + path}
	children, err := s.client.Keys(ctx, docPrefix+path+"/*").Result()
	if err != nil {
		return fmt.Errorf("redis keys: %w", err)
	}
	keys = append(keys, children...)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	s.publish(ctx, path)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, path string) (<-chan app.Snapshot, func(), error) {
	pubsub := s.client.Subscribe(ctx, channelPrefix+path)
	// Force the subscription onto the wire before the initial read so no
	// change between read and subscribe goes unheard for long.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan app.Snapshot, 8)
	out <- s.snapshot(ctx, path)

	go func() {
		defer close(out)
		for range pubsub.Channel() {
			snap := s.snapshot(context.Background(), path)
			select {
			case out <- snap:
			default:
				select {
				case <-out:
				default:
				}
				out <- snap
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}

func (s *Store) snapshot(ctx context.Context, path string) app.Snapshot {
	data, err := s.Read(ctx, path)
	if err != nil {
		return app.Snapshot{Path: path}
	}
	return app.Snapshot{Path: path, Data: data}
}

// readCollection materializes one level of children as a JSON object.
func (s *Store) readCollection(ctx context.Context, path string) ([]byte, error) {
	keys, err := s.client.Keys(ctx, docPrefix+path+"/*").Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys: %w", err)
	}
	prefix := docPrefix + path + "/"
	children := map[string]json.RawMessage{}
	for _, key := range keys {
		child := strings.TrimPrefix(key, prefix)
		if strings.Contains(child, "/") {
			continue
		}
		doc, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get child: %w", err)
		}
		children[child] = json.RawMessage(doc)
	}
	if len(children) == 0 {
		return nil, domain.ErrNotFound
	}
	return json.Marshal(children)
}

// publish notifies the changed path and every ancestor; failures are
// best-effort, local state is already durable.
func (s *Store) publish(ctx context.Context, path string) {
	for _, p := range ancestorPaths(path) {
		_ = s.client.Publish(ctx, channelPrefix+p, path).Err()
	}
}

func ancestorPaths(path string) []string {
	paths := []string{path}
	for {
		i := strings.LastIndex(path, "/")
		if i < 0 {
			return paths
		}
		path = path[:i]
		paths = append(paths, path)
	}
}
