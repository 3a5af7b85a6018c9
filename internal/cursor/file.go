package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/octorelay/octorelay/internal/model"
)

// FileStore keeps the cursor in a single JSON file: {"id": "<event id>"}.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (model.Cursor, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.WarnContext(ctx, "cursor file unreadable, relaying from current feed window",
				"path", s.path, "error", err)
		}
		return model.Cursor{}, false
	}

	var c model.Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		slog.WarnContext(ctx, "cursor file corrupt, relaying from current feed window",
			"path", s.path, "error", err)
		return model.Cursor{}, false
	}
	if c.IsZero() {
		return model.Cursor{}, false
	}
	return c, true
}

// Save writes to a temp file in the same directory, syncs it and renames it
// over the old cursor, so a crash leaves either the old or the new value.
func (s *FileStore) Save(ctx context.Context, c model.Cursor) error {
	if err := s.write(c); err != nil {
		return &PersistenceError{Backend: "file", ID: c.ID, Err: err}
	}
	return nil
}

func (s *FileStore) write(c model.Cursor) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cursor: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	// Persist the rename itself. Not every platform lets you fsync a directory.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}
