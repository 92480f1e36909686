package app

import (
	"context"
	"encoding/json"

	"pubquiz-service/internal/domain"
)

// The watch layer turns raw store snapshots into typed updates. Each Watch
// call returns a channel that receives the current value immediately and then
// on every change, plus a cancel function the caller must invoke to release
// the subscription. Cancel is safe to call more than once. Snapshots that
// fail to decode are skipped; the sync path never propagates errors back into
// the store.

// WatchSession mirrors the session document. A nil update means the session
// document is absent (deleted or never created).
func (s *GameService) WatchSession(ctx context.Context, code string) (<-chan *domain.Session, func(), error) {
	code = domain.NormalizeSessionCode(code)
	snapshots, cancel, err := s.store.Subscribe(ctx, sessionPath(code))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan *domain.Session, 8)
	go func() {
		defer close(out)
		for snap := range snapshots {
			if snap.Data == nil {
				forward(out, (*domain.Session)(nil))
				continue
			}
			var session domain.Session
			if err := json.Unmarshal(snap.Data, &session); err != nil {
				continue
			}
			forward(out, &session)
		}
	}()
	return out, cancel, nil
}

// WatchRoster mirrors the player collection in leaderboard order.
func (s *GameService) WatchRoster(ctx context.Context, code string) (<-chan []domain.Player, func(), error) {
	code = domain.NormalizeSessionCode(code)
	snapshots, cancel, err := s.store.Subscribe(ctx, playersPath(code))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan []domain.Player, 8)
	go func() {
		defer close(out)
		for snap := range snapshots {
			players, err := decodePlayers(snap.Data)
			if err != nil {
				continue
			}
			forward(out, sortRoster(players))
		}
	}()
	return out, cancel, nil
}

// WatchAnswers mirrors the answer ledger keyed by composite answer key.
func (s *GameService) WatchAnswers(ctx context.Context, code string) (<-chan map[string]domain.Answer, func(), error) {
	code = domain.NormalizeSessionCode(code)
	snapshots, cancel, err := s.store.Subscribe(ctx, answersPath(code))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan map[string]domain.Answer, 8)
	go func() {
		defer close(out)
		for snap := range snapshots {
			answers, err := decodeAnswers(snap.Data)
			if err != nil {
				continue
			}
			forward(out, answers)
		}
	}()
	return out, cancel, nil
}

// forward sends an update, dropping the stale one if the receiver lags so a
// slow client never blocks the pump.
func forward[T any](ch chan T, value T) {
	select {
	case ch <- value:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- value
	}
}
