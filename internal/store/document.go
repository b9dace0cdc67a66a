package store

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"builtf/backend/internal/logging"
)

// user-visible message for a fetch of a nonexistent document
const errDocNotFound = "Document not found."

// Document is a single-document view addressed by a full path. A nil/empty
// path means "nothing to load".
type Document struct {
	remote Remote

	mu      sync.Mutex
	path    string
	data    Record
	loading bool
	err     string
}

func NewDocument(remote Remote, path string) *Document {
	return &Document{remote: remote, path: path}
}

func (d *Document) Data() Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data
}

func (d *Document) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

func (d *Document) Err() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// SetPath repoints the view. An empty path resets to the no-document state
// without a remote call; otherwise the caller should Load again.
func (d *Document) SetPath(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = path
	d.data = nil
	d.err = ""
	d.loading = false
}

// Load fetches the document. Safe to call repeatedly; Refetch is an alias so
// callers can re-trigger the same logic. There is no automatic retry.
func (d *Document) Load(ctx context.Context) (Record, error) {
	d.mu.Lock()
	path := d.path
	if path == "" {
		d.data = nil
		d.err = ""
		d.loading = false
		d.mu.Unlock()
		return nil, nil
	}
	d.loading = true
	d.err = ""
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.loading = false
		d.mu.Unlock()
	}()

	rec, err := d.remote.GetDoc(ctx, path)
	if errors.Is(err, ErrNotFound) {
		d.mu.Lock()
		d.data = nil
		d.err = errDocNotFound
		d.mu.Unlock()
		return nil, err
	}
	if err != nil {
		logging.L().Error("document fetch failed", zap.String("path", path), zap.Error(err))
		d.mu.Lock()
		d.data = nil
		d.err = err.Error()
		d.mu.Unlock()
		return nil, err
	}

	d.mu.Lock()
	d.data = rec
	d.mu.Unlock()
	return rec, nil
}

// Refetch re-runs Load against the current path.
func (d *Document) Refetch(ctx context.Context) (Record, error) {
	return d.Load(ctx)
}
