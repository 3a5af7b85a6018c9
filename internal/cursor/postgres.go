package cursor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/octorelay/octorelay/internal/model"
)

// Querier is the subset of core/db.DB the postgres store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	createCursorTable = `CREATE TABLE IF NOT EXISTS relay_cursors (
	name       TEXT PRIMARY KEY,
	event_id   TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	selectCursor = `SELECT event_id FROM relay_cursors WHERE name = $1`

	upsertCursor = `INSERT INTO relay_cursors (name, event_id, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET event_id = EXCLUDED.event_id, updated_at = EXCLUDED.updated_at`
)

// PostgresStore keeps one cursor row per tracked user. A committed upsert is
// the durability point.
type PostgresStore struct {
	db   Querier
	name string
}

func NewPostgresStore(db Querier, name string) *PostgresStore {
	return &PostgresStore{db: db, name: name}
}

// EnsureSchema creates the cursor table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createCursorTable); err != nil {
		return fmt.Errorf("creating relay_cursors table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (model.Cursor, bool) {
	var eventID string
	if err := s.db.QueryRow(ctx, selectCursor, s.name).Scan(&eventID); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.WarnContext(ctx, "cursor unreadable from postgres, relaying from current feed window",
				"name", s.name, "error", err)
		}
		return model.Cursor{}, false
	}
	if eventID == "" {
		return model.Cursor{}, false
	}
	return model.Cursor{ID: eventID}, true
}

func (s *PostgresStore) Save(ctx context.Context, c model.Cursor) error {
	if _, err := s.db.Exec(ctx, upsertCursor, s.name, c.ID); err != nil {
		return &PersistenceError{Backend: "postgres", ID: c.ID, Err: err}
	}
	return nil
}
