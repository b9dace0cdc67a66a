package requests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"builtf/backend/internal/store"
)

type memRemote struct {
	docs   map[string]map[string]any
	nextID int
}

func newMemRemote() *memRemote {
	return &memRemote{docs: map[string]map[string]any{}}
}

func (m *memRemote) record(docPath string) store.Record {
	fields := m.docs[docPath]
	rec := store.Record{"id": docPath[len(ColRequests)+1:]}
	for k, v := range fields {
		rec[k] = v
	}
	return rec
}

func (m *memRemote) GetAll(_ context.Context, collectionPath string) ([]store.Record, error) {
	var out []store.Record
	for p := range m.docs {
		out = append(out, m.record(p))
	}
	return out, nil
}

func (m *memRemote) GetDoc(_ context.Context, docPath string) (store.Record, error) {
	if _, ok := m.docs[docPath]; !ok {
		return nil, store.ErrNotFound
	}
	return m.record(docPath), nil
}

func (m *memRemote) Add(_ context.Context, collectionPath string, fields map[string]any) (string, error) {
	m.nextID++
	id := fmt.Sprintf("req%d", m.nextID)
	cp := map[string]any{}
	for k, v := range fields {
		if v == store.ServerTimestamp {
			cp[k] = time.Now().UTC()
			continue
		}
		cp[k] = v
	}
	m.docs[collectionPath+"/"+id] = cp
	return id, nil
}

func (m *memRemote) Merge(_ context.Context, docPath string, fields map[string]any) error {
	doc, ok := m.docs[docPath]
	if !ok {
		doc = map[string]any{}
		m.docs[docPath] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (m *memRemote) Delete(_ context.Context, docPath string) error {
	delete(m.docs, docPath)
	return nil
}

func (m *memRemote) Query(_ context.Context, collectionPath string, f store.Filter) ([]store.Record, error) {
	var out []store.Record
	for p := range m.docs {
		rec := m.record(p)
		if rec[f.Field] == f.Value {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memRemote) Subscribe(_ context.Context, collectionPath string, f store.Filter, onSnapshot func([]store.Record), _ func(error)) (func(), error) {
	var out []store.Record
	for p := range m.docs {
		rec := m.record(p)
		if rec[f.Field] == f.Value {
			out = append(out, rec)
		}
	}
	onSnapshot(out)
	return func() {}, nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) BookingStatusChanged(_ context.Context, userID, requestID, _, status string) error {
	n.events = append(n.events, userID+"/"+requestID+"/"+status)
	return nil
}

func validInput() CreateRequestInput {
	return CreateRequestInput{
		UserName:     "Asha",
		UserContact:  "9999999999",
		UserAddress:  "12 Main St",
		ProviderID:   "p1",
		ProviderName: "FixIt Crew",
		ServiceID:    "svc1",
	}
}

func TestCreateStartsPending(t *testing.T) {
	remote := newMemRemote()
	svc := NewService(remote, nil)

	id, err := svc.Create(context.Background(), "u1", validInput())
	require.NoError(t, err)

	req, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, "u1", req.UserID)
	assert.False(t, req.RequestedAt.IsZero(), "requestedAt assigned at write time")
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemRemote(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", validInput())
	assert.True(t, IsErrBadRequest(err))

	in := validInput()
	in.ProviderID = ""
	_, err = svc.Create(ctx, "u1", in)
	assert.True(t, IsErrBadRequest(err))

	in = validInput()
	in.UserContact = "   "
	_, err = svc.Create(ctx, "u1", in)
	assert.True(t, IsErrBadRequest(err), "whitespace-only contact is rejected")
}

func TestUpdateStatusHappyPath(t *testing.T) {
	remote := newMemRemote()
	notifier := &recordingNotifier{}
	svc := NewService(remote, notifier)
	ctx := context.Background()

	id, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)

	for _, next := range []string{StatusConfirmed, StatusInProgress, StatusCompleted} {
		req, err := svc.UpdateStatus(ctx, id, next)
		require.NoError(t, err)
		assert.Equal(t, next, req.Status)
	}

	require.Len(t, notifier.events, 3)
	assert.Equal(t, "u1/"+id+"/"+StatusCompleted, notifier.events[2])
}

func TestUpdateStatusCancelDirectly(t *testing.T) {
	svc := NewService(newMemRemote(), nil)
	ctx := context.Background()

	id, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)

	// pending -> cancelled without walking the progression
	req, err := svc.UpdateStatus(ctx, id, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, req.Status)
}

func TestTerminalStatesAbsorb(t *testing.T) {
	svc := NewService(newMemRemote(), nil)
	ctx := context.Background()

	for _, terminal := range []string{StatusCompleted, StatusCancelled} {
		id, err := svc.Create(ctx, "u1", validInput())
		require.NoError(t, err)
		_, err = svc.UpdateStatus(ctx, id, terminal)
		require.NoError(t, err)

		_, err = svc.UpdateStatus(ctx, id, StatusPending)
		assert.True(t, IsErrInvalidTransition(err), "%s must absorb", terminal)
	}
}

func TestUpdateStatusRejectsUnknownTarget(t *testing.T) {
	svc := NewService(newMemRemote(), nil)
	ctx := context.Background()

	id, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, id, "on-hold")
	assert.True(t, IsErrInvalidTransition(err))
}

func TestUpdateStatusMissingRequest(t *testing.T) {
	svc := NewService(newMemRemote(), nil)
	_, err := svc.UpdateStatus(context.Background(), "ghost", StatusConfirmed)
	assert.True(t, IsErrNotFound(err))
}

func TestListForUserFiltersAndSorts(t *testing.T) {
	remote := newMemRemote()
	svc := NewService(remote, nil)
	ctx := context.Background()

	id1, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", validInput())
	require.NoError(t, err)
	id3, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)

	// force distinct timestamps
	remote.docs[ColRequests+"/"+id1]["requestedAt"] = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	remote.docs[ColRequests+"/"+id3]["requestedAt"] = time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	out, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, id3, out[0].ID, "newest first")
	assert.Equal(t, id1, out[1].ID)
}

func TestWatchForUserSeesOnlyOwnBookings(t *testing.T) {
	remote := newMemRemote()
	svc := NewService(remote, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", validInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", validInput())
	require.NoError(t, err)

	q := svc.WatchForUser("u1")
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	data := q.Data()
	require.Len(t, data, 2)
	for _, rec := range data {
		assert.Equal(t, "u1", rec["userId"])
	}
	assert.False(t, q.Loading())
}

func TestStatusIndex(t *testing.T) {
	assert.Equal(t, 0, StatusIndex(StatusPending))
	assert.Equal(t, 1, StatusIndex(StatusConfirmed))
	assert.Equal(t, 2, StatusIndex(StatusInProgress))
	assert.Equal(t, 3, StatusIndex(StatusCompleted))
	assert.Equal(t, -1, StatusIndex(StatusCancelled), "cancelled is not a progression step")
	assert.Equal(t, -1, StatusIndex("bogus"))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusConfirmed))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusInProgress, StatusPending), "active states may move freely")
	assert.False(t, CanTransition(StatusCompleted, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusConfirmed))
	assert.False(t, CanTransition(StatusPending, "on-hold"))
}
