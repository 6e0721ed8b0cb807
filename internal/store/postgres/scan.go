package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/suicounter/internal/model"
)

// rowScanner is *sql.Row or *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// eventRow holds the nullable columns of an events row while scanning.
type eventRow struct {
	event   model.Event
	actor   sql.NullString
	payload []byte
}

// targets lists scan destinations in eventColumns order.
func (r *eventRow) targets() []any {
	return []any{&r.event.ID, &r.event.Topic, &r.event.PanelID, &r.actor, &r.payload, &r.event.CreatedAt}
}

func (r *eventRow) toEvent() *model.Event {
	e := r.event
	e.Actor = r.actor.String
	if len(r.payload) > 0 {
		e.Payload = json.RawMessage(r.payload)
	}
	return &e
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var r eventRow
	if err := row.Scan(r.targets()...); err != nil {
		return nil, err
	}
	return r.toEvent(), nil
}

func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var out []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// nullString stores an empty actor as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// jsonbBytes stores an empty payload as NULL.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return m
}
