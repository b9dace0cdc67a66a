package store

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"builtf/backend/internal/logging"
)

// Collection is a list-level view over one collection path. An empty path is
// a valid inactive state: every operation is a no-op until a path is set.
// Mutations are read-after-write: each successful Add/Update/Delete refreshes
// the in-memory list with a full fetch.
type Collection struct {
	remote   Remote
	uploader Uploader
	path     string
	schema   map[string]struct{}

	mu      sync.Mutex
	data    []Record
	loading bool
	err     string
}

type CollectionOption func(*Collection)

// WithUploader enables the image side-channel on Add/Update.
func WithUploader(u Uploader) CollectionOption {
	return func(c *Collection) { c.uploader = u }
}

// WithSchema restricts writes to the named fields. Unknown keys are dropped
// and logged, never persisted.
func WithSchema(fields ...string) CollectionOption {
	return func(c *Collection) {
		c.schema = make(map[string]struct{}, len(fields))
		for _, f := range fields {
			c.schema[f] = struct{}{}
		}
	}
}

func NewCollection(remote Remote, path string, opts ...CollectionOption) *Collection {
	c := &Collection{remote: remote, path: path}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Data returns a copy of the current in-memory list.
func (c *Collection) Data() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.data))
	copy(out, c.data)
	return out
}

func (c *Collection) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Collection) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Fetch replaces the in-memory list with a full read of the collection and
// returns it. With no path set it does nothing.
func (c *Collection) Fetch(ctx context.Context) ([]Record, error) {
	if c.path == "" {
		return nil, nil
	}
	c.begin()
	defer c.end()

	records, err := c.remote.GetAll(ctx, c.path)
	if err != nil {
		c.fail("fetch", err)
		return nil, err
	}
	c.mu.Lock()
	c.data = records
	c.mu.Unlock()
	return records, nil
}

// Add uploads any attached files, writes the record with the resulting image
// URL(s), then refreshes the list.
func (c *Collection) Add(ctx context.Context, record Record, files ...File) error {
	if c.path == "" {
		return nil
	}
	c.begin()
	defer c.end()

	if err := c.attachImages(ctx, record, files); err != nil {
		c.fail("add", err)
		return err
	}
	if _, err := c.remote.Add(ctx, c.path, c.filterKnown(record)); err != nil {
		c.fail("add", err)
		return err
	}
	return c.refresh(ctx)
}

// Update merge-patches the identified document, then refreshes the list.
func (c *Collection) Update(ctx context.Context, id string, patch Record, files ...File) error {
	if c.path == "" {
		return nil
	}
	c.begin()
	defer c.end()

	if err := c.attachImages(ctx, patch, files); err != nil {
		c.fail("update", err)
		return err
	}
	if err := c.remote.Merge(ctx, c.path+"/"+id, c.filterKnown(patch)); err != nil {
		c.fail("update", err)
		return err
	}
	return c.refresh(ctx)
}

// Delete removes the identified document, then refreshes the list.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if c.path == "" {
		return nil
	}
	c.begin()
	defer c.end()

	if err := c.remote.Delete(ctx, c.path+"/"+id); err != nil {
		c.fail("delete", err)
		return err
	}
	return c.refresh(ctx)
}

// attachImages uploads files under a namespaced path and sets the record's
// image field: a single URL for one file, an ordered slice for several.
func (c *Collection) attachImages(ctx context.Context, record Record, files []File) error {
	if len(files) == 0 {
		return nil
	}
	if c.uploader == nil {
		return fmt.Errorf("collection %q has no uploader configured", c.path)
	}
	urls := make([]string, 0, len(files))
	for _, f := range files {
		objectPath := fmt.Sprintf("images/%s/%d-%s", c.path, time.Now().UnixMilli(), f.Name)
		url, err := c.uploader.Upload(ctx, objectPath, bytes.NewReader(f.Data), f.ContentType)
		if err != nil {
			return err
		}
		urls = append(urls, url)
	}
	if len(urls) == 1 {
		record["image"] = urls[0]
	} else {
		record["image"] = urls
	}
	return nil
}

func (c *Collection) filterKnown(record Record) map[string]any {
	if c.schema == nil {
		return record
	}
	out := make(map[string]any, len(record))
	for k, v := range record {
		if _, ok := c.schema[k]; !ok {
			logging.L().Warn("dropping unknown field",
				zap.String("collection", c.path), zap.String("field", k))
			continue
		}
		out[k] = v
	}
	return out
}

func (c *Collection) refresh(ctx context.Context) error {
	records, err := c.remote.GetAll(ctx, c.path)
	if err != nil {
		c.fail("refresh", err)
		return err
	}
	c.mu.Lock()
	c.data = records
	c.mu.Unlock()
	return nil
}

func (c *Collection) begin() {
	c.mu.Lock()
	c.loading = true
	c.err = ""
	c.mu.Unlock()
}

func (c *Collection) end() {
	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()
}

func (c *Collection) fail(op string, err error) {
	logging.L().Error("collection operation failed",
		zap.String("collection", c.path), zap.String("op", op), zap.Error(err))
	c.mu.Lock()
	c.err = err.Error()
	c.mu.Unlock()
}
