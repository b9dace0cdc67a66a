package store

import (
	"context"
	"errors"
	"io"
	"time"

	"builtf/backend/internal/utils"
)

// Record is a normalized document: store-assigned id attached under "id",
// timestamp fields resolved to concrete time values.
type Record map[string]any

var ErrNotFound = errors.New("document not found")

// ServerTimestamp marks a field to be assigned by the remote store at write
// time. Reads never see it; normalization resolves placeholders to time.Time.
var ServerTimestamp = serverTimestamp{}

type serverTimestamp struct{}

// Filter is a single-field equality-style predicate for queries and
// subscriptions.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Remote is the document store as seen by this layer. Implementations:
// Firestore in production, fakes in tests.
type Remote interface {
	GetAll(ctx context.Context, collectionPath string) ([]Record, error)
	// GetDoc returns ErrNotFound when the document does not exist.
	GetDoc(ctx context.Context, docPath string) (Record, error)
	Add(ctx context.Context, collectionPath string, fields map[string]any) (string, error)
	// Merge patches only the given fields, leaving others untouched.
	Merge(ctx context.Context, docPath string, fields map[string]any) error
	Delete(ctx context.Context, docPath string) error
	Query(ctx context.Context, collectionPath string, f Filter) ([]Record, error)
	// Subscribe delivers a full snapshot of matching documents on every
	// change until the returned cancel func is called.
	Subscribe(ctx context.Context, collectionPath string, f Filter, onSnapshot func([]Record), onError func(error)) (func(), error)
}

// Uploader is the binary object store as seen by this layer: upload bytes,
// get back a public URL.
type Uploader interface {
	Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error)
}

// File is one binary attachment handed to a mutator.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

var timestampFields = []string{"createdAt", "updatedAt", "requestedAt"}

// Normalize attaches the store-assigned id and coerces known timestamp
// fields to concrete time values.
func Normalize(id string, fields map[string]any) Record {
	rec := make(Record, len(fields)+1)
	for k, v := range fields {
		rec[k] = v
	}
	rec["id"] = id
	for _, f := range timestampFields {
		v, ok := rec[f]
		if !ok || v == nil {
			continue
		}
		if t, ok := coerceTime(v); ok {
			rec[f] = t
		}
	}
	return rec
}

func coerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		parsed, err := utils.ParseTime(t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
