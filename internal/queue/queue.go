// Package queue persists events that could not be delivered so a later flush
// can report them again.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
)

// StorageKey is the single key the whole backlog is stored under.
const StorageKey = "cached-qst-tracking-data"

// Queue is the durable backlog of undelivered events, stored as one JSON array.
//
// Operations are serialized within a process. Two processes sharing the same
// store can still both drain a snapshot before either deletes it; that yields
// duplicate deliveries, which receivers de-duplicate by guid.
type Queue struct {
	store Store
	mu    sync.Mutex
}

func New(store Store) *Queue {
	return &Queue{store: store}
}

// Enqueue adds every event whose guid is not already persisted and rewrites
// the stored array. It returns the number of events actually added.
func (q *Queue) Enqueue(ctx context.Context, batch []events.Event) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	existing, err := q.read(ctx)
	if err != nil {
		return 0, err
	}

	merged := events.Dedupe(existing, batch)
	added := len(merged) - len(existing)
	if added == 0 {
		return 0, nil
	}

	data, err := events.Marshal(merged)
	if err != nil {
		return 0, err
	}
	if err := q.store.Set(ctx, StorageKey, string(data)); err != nil {
		return 0, fmt.Errorf("persisting events: %w", err)
	}

	log.Debug().
		Int("added", added).
		Int("total", len(merged)).
		Msg("Events persisted")

	return added, nil
}

// Drain returns every persisted event and clears the store. The key is
// deleted before the snapshot is returned, so a crash afterwards loses
// nothing that was not handed to the caller.
func (q *Queue) Drain(ctx context.Context) ([]events.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot, err := q.read(ctx)
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return nil, nil
	}

	if err := q.store.Delete(ctx, StorageKey); err != nil {
		return nil, fmt.Errorf("clearing persisted events: %w", err)
	}

	return snapshot, nil
}

// Peek returns the persisted events without removing them.
func (q *Queue) Peek(ctx context.Context) ([]events.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.read(ctx)
}

// Len returns the number of persisted events.
func (q *Queue) Len(ctx context.Context) (int, error) {
	batch, err := q.Peek(ctx)
	if err != nil {
		return 0, err
	}
	return len(batch), nil
}

// Clear drops the backlog without delivering it.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clearing persisted events: %w", err)
	}
	return nil
}

func (q *Queue) read(ctx context.Context) ([]events.Event, error) {
	raw, ok, err := q.store.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("reading persisted events: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	batch, err := events.Unmarshal([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("reading persisted events: %w", err)
	}
	return batch, nil
}
