// Package cursor persists the id of the newest feed event relayed by the
// poller so that a restart does not re-relay the feed window.
package cursor

import (
	"context"
	"fmt"

	"github.com/octorelay/octorelay/internal/model"
)

// Store persists the poller cursor. Load never fails: a missing or corrupt
// cursor reports ok=false and the poller relays the current feed window.
// Save must be durable before it returns.
type Store interface {
	Load(ctx context.Context) (model.Cursor, bool)
	Save(ctx context.Context, c model.Cursor) error
}

// PersistenceError is returned by Save when the cursor could not be made durable.
type PersistenceError struct {
	Backend string
	ID      string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting cursor %s to %s: %v", e.ID, e.Backend, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
