package store

import (
	"context"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/model"
)

// EventFilter narrows ListEvents.
type EventFilter struct {
	PanelID string    // exact panel id; empty = all panels
	Topic   string    // exact topic; empty = all topics
	Since   time.Time // events created strictly after Since; zero = no bound
	Limit   int       // 0 = no limit
}

// Store defines the persistence interface for the operation journal.
//
// The journal is an audit trail only: counter state lives in memory and is
// never restored from it.
type Store interface {
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, panelID string) ([]*model.Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]*model.Event, error)

	// Lifecycle
	Close() error
}
