// Package export writes the operation journal as JSONL and ships it to
// backup destinations on a schedule.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/store"
)

// FormatVersion is written into every export header.
const FormatVersion = "1"

// header is the first JSONL record written by WriteJSONL.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	EventCount int       `json:"event_count"`
	PanelCount int       `json:"panel_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string       `json:"type"`
	Data *model.Event `json:"data"`
}

// WriteJSONL writes every journal event, oldest first, as JSONL to w.
func WriteJSONL(ctx context.Context, s store.Store, w io.Writer) (int, error) {
	events, err := s.ListEvents(ctx, store.EventFilter{})
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}

	panels := make(map[string]struct{})
	for _, e := range events {
		if e.PanelID != "" {
			panels[e.PanelID] = struct{}{}
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:    FormatVersion,
		Type:       "header",
		Timestamp:  time.Now().UTC(),
		EventCount: len(events),
		PanelCount: len(panels),
	}); err != nil {
		return 0, fmt.Errorf("encode header: %w", err)
	}

	for _, e := range events {
		if err := enc.Encode(record{Type: "event", Data: e}); err != nil {
			return 0, fmt.Errorf("encode event %d: %w", e.ID, err)
		}
	}
	return len(events), nil
}
