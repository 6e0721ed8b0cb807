// Package memory implements store.Store in process memory. It is used when
// no database URL is configured and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/store"
)

// DefaultCapacity bounds how many events are kept before the oldest are dropped.
const DefaultCapacity = 10000

// Store is an in-memory, bounded event journal.
type Store struct {
	mu       sync.RWMutex
	events   []*model.Event
	nextID   int64
	capacity int
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store holding at most capacity events.
// A capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, now: time.Now}
}

func (s *Store) RecordEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	e.ID = s.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	cp := *e
	s.events = append(s.events, &cp)
	if over := len(s.events) - s.capacity; over > 0 {
		s.events = append(s.events[:0:0], s.events[over:]...)
	}
	return nil
}

func (s *Store) GetEvents(ctx context.Context, panelID string) ([]*model.Event, error) {
	return s.ListEvents(ctx, store.EventFilter{PanelID: panelID})
}

func (s *Store) ListEvents(_ context.Context, f store.EventFilter) ([]*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Event
	for _, e := range s.events {
		if f.PanelID != "" && e.PanelID != f.PanelID {
			continue
		}
		if f.Topic != "" && e.Topic != f.Topic {
			continue
		}
		if !f.Since.IsZero() && !e.CreatedAt.After(f.Since) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Len reports how many events are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) Close() error { return nil }
