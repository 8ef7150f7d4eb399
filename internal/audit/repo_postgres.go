package audit

import (
	"context"
	"database/sql"

	"meeting-platform/pkg/utils"
)

// PostgresRepo persists events to the meeting_events table.
//
// Assumed schema:
//
//	CREATE TABLE meeting_events (
//	  id            TEXT PRIMARY KEY,
//	  type          TEXT NOT NULL,
//	  call_id       TEXT NOT NULL,
//	  actor_user_id TEXT NOT NULL DEFAULT '',
//	  actor_role    TEXT NOT NULL DEFAULT '',
//	  message       TEXT NOT NULL DEFAULT '',
//	  metadata      TEXT NOT NULL DEFAULT '',
//	  created_at    TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX meeting_events_call_idx ON meeting_events (call_id, created_at DESC);

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const insertEventSQL = `
INSERT INTO meeting_events (id, type, call_id, actor_user_id, actor_role, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.ID,
		string(e.Type),
		e.CallID,
		e.ActorUserID,
		e.ActorRole,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}

// AppendAll writes related events in one transaction so a lifecycle moment
// recorded as several rows is never half-persisted.
func (r *PostgresRepo) AppendAll(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, e := range events {
			if _, err := tx.ExecContext(ctx, insertEventSQL,
				e.ID,
				string(e.Type),
				e.CallID,
				e.ActorUserID,
				e.ActorRole,
				e.Message,
				e.Metadata,
				e.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepo) ListByCall(ctx context.Context, callID string, limit int) ([]Event, error) {
	const q = `
SELECT id, type, call_id, actor_user_id, actor_role, message, metadata, created_at
FROM meeting_events
WHERE call_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, callID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		var typ string
		if err := rows.Scan(
			&e.ID,
			&typ,
			&e.CallID,
			&e.ActorUserID,
			&e.ActorRole,
			&e.Message,
			&e.Metadata,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.Type = EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}
