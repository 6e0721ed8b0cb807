package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/store"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `id, topic, panel_id, actor, payload, created_at`

// querier is *sql.DB or *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryRecordEvent(ctx context.Context, db querier, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, panel_id, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Topic, e.PanelID, nullString(e.Actor), jsonbBytes(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

// buildEventFilter turns a filter into a WHERE clause and its arguments.
func buildEventFilter(f store.EventFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.PanelID != "" {
		add("panel_id = $%d", f.PanelID)
	}
	if f.Topic != "" {
		add("topic = $%d", f.Topic)
	}
	if !f.Since.IsZero() {
		add("created_at > $%d", f.Since)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func queryListEvents(ctx context.Context, db querier, f store.EventFilter) ([]*model.Event, error) {
	where, args := buildEventFilter(f)
	query := "SELECT " + eventColumns + " FROM events" + where + " ORDER BY created_at ASC, id ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}
