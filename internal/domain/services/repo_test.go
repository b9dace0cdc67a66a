package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"builtf/backend/internal/store"
)

type memRemote struct {
	docs map[string]map[string]any
}

func (m *memRemote) GetAll(_ context.Context, collectionPath string) ([]store.Record, error) {
	var out []store.Record
	for p, fields := range m.docs {
		if p[:len(p)-len("/"+docID(p))] != collectionPath {
			continue
		}
		out = append(out, record(p, fields))
	}
	return out, nil
}

func (m *memRemote) GetDoc(_ context.Context, docPath string) (store.Record, error) {
	fields, ok := m.docs[docPath]
	if !ok {
		return nil, store.ErrNotFound
	}
	return record(docPath, fields), nil
}

func (m *memRemote) Add(context.Context, string, map[string]any) (string, error) { return "", nil }
func (m *memRemote) Merge(context.Context, string, map[string]any) error         { return nil }
func (m *memRemote) Delete(context.Context, string) error                        { return nil }
func (m *memRemote) Query(context.Context, string, store.Filter) ([]store.Record, error) {
	return nil, nil
}
func (m *memRemote) Subscribe(context.Context, string, store.Filter, func([]store.Record), func(error)) (func(), error) {
	return func() {}, nil
}

func docID(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

func record(p string, fields map[string]any) store.Record {
	rec := store.Record{"id": docID(p)}
	for k, v := range fields {
		rec[k] = v
	}
	return rec
}

func TestRepoGetDecodesService(t *testing.T) {
	remote := &memRemote{docs: map[string]map[string]any{
		"services/svc1": {
			"sectionTitle": "Construction",
			"details":      "civil works",
			"image":        "https://cdn.test/x.png",
			"nameLower":    "construction",
			"keywords":     []any{"construction", "civil"},
		},
	}}
	repo := NewRepo(remote)

	svc, err := repo.Get(context.Background(), "svc1")
	require.NoError(t, err)
	assert.Equal(t, "svc1", svc.ID)
	assert.Equal(t, "Construction", svc.SectionTitle)
	assert.Equal(t, "https://cdn.test/x.png", svc.Image)
	assert.Equal(t, "construction", svc.NameLower)
	assert.Equal(t, []string{"construction", "civil"}, svc.Keywords)
}

func TestRepoGetMissingService(t *testing.T) {
	repo := NewRepo(&memRemote{docs: map[string]map[string]any{}})
	_, err := repo.Get(context.Background(), "ghost")
	assert.True(t, IsErrNotFound(err))

	_, err = repo.Get(context.Background(), "")
	assert.True(t, IsErrBadRequest(err))
}

func TestRepoDecodesProvider(t *testing.T) {
	remote := &memRemote{docs: map[string]map[string]any{
		"services/svc1/providers/p1": {
			"Name":      "FixIt Crew",
			"contact":   "9999999999",
			"Price":     "500",
			"priceUnit": "per visit",
			"rating":    int64(4),
			"workImage": []any{"a.png", "b.png"},
		},
	}}
	repo := NewRepo(remote)

	p, err := repo.GetProvider(context.Background(), "svc1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "FixIt Crew", p.Name)
	assert.Equal(t, "500", p.Price)
	assert.Equal(t, 4.0, p.Rating)
	assert.Equal(t, []string{"a.png", "b.png"}, p.WorkImage)
}

func TestSearchFields(t *testing.T) {
	fields := SearchFields("  Home  Cleaning ")
	assert.Equal(t, "home cleaning", fields["nameLower"])

	keywords, ok := fields["keywords"].([]string)
	require.True(t, ok)
	assert.Contains(t, keywords, "home cleaning")
	assert.Contains(t, keywords, "home-cleaning")
	assert.Contains(t, keywords, "cleaning")
}
