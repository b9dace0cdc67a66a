package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"builtf/backend/internal/session"
	"builtf/backend/internal/store"
)

type memRemote struct {
	docs     map[string]map[string]any
	mergeErr error
}

func newMemRemote() *memRemote {
	return &memRemote{docs: map[string]map[string]any{}}
}

func (m *memRemote) GetAll(context.Context, string) ([]store.Record, error) { return nil, nil }

func (m *memRemote) GetDoc(_ context.Context, docPath string) (store.Record, error) {
	fields, ok := m.docs[docPath]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec := store.Record{}
	for k, v := range fields {
		rec[k] = v
	}
	return rec, nil
}

func (m *memRemote) Add(context.Context, string, map[string]any) (string, error) {
	return "", errors.New("not implemented")
}

func (m *memRemote) Merge(_ context.Context, docPath string, fields map[string]any) error {
	if m.mergeErr != nil {
		return m.mergeErr
	}
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

func (m *memRemote) Query(context.Context, string, store.Filter) ([]store.Record, error) {
	return nil, nil
}

func (m *memRemote) Subscribe(context.Context, string, store.Filter, func([]store.Record), func(error)) (func(), error) {
	return func() {}, nil
}

type stubAuth struct {
	createErr error
	authErr   error
	deleted   []string
}

func (s *stubAuth) CreateIdentity(_ context.Context, email, _ string) (*session.Identity, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &session.Identity{UID: "uid-" + email, Email: email}, nil
}

func (s *stubAuth) Authenticate(_ context.Context, email, _ string) (*session.Identity, error) {
	if s.authErr != nil {
		return nil, s.authErr
	}
	return &session.Identity{UID: "uid-" + email, Email: email, IDToken: "tok"}, nil
}

func (s *stubAuth) DeleteIdentity(_ context.Context, uid string) error {
	s.deleted = append(s.deleted, uid)
	return nil
}

func newTestService(remote *memRemote, auth *stubAuth) (*Service, *session.Manager) {
	sessions := session.NewManager(auth)
	return NewService(remote, sessions, nil), sessions
}

func TestRegisterCreatesProfileWithDefaultRole(t *testing.T) {
	remote := newMemRemote()
	auth := &stubAuth{}
	svc, _ := newTestService(remote, auth)

	id, err := svc.Register(context.Background(), "a@b.c", "secret", "")
	require.NoError(t, err)
	require.NotNil(t, id)

	doc := remote.docs["users/"+id.UID]
	require.NotNil(t, doc, "profile document must exist")
	assert.Equal(t, "a@b.c", doc["email"])
	assert.Equal(t, RoleUser, doc["role"])
	assert.Empty(t, auth.deleted)
}

func TestRegisterRollsBackIdentityOnProfileFailure(t *testing.T) {
	remote := newMemRemote()
	remote.mergeErr = errors.New("firestore down")
	auth := &stubAuth{}
	svc, _ := newTestService(remote, auth)

	_, err := svc.Register(context.Background(), "a@b.c", "secret", RoleUser)
	require.Error(t, err)
	assert.Equal(t, []string{"uid-a@b.c"}, auth.deleted, "orphaned identity must be deleted")
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(newMemRemote(), &stubAuth{})

	_, err := svc.Register(context.Background(), "", "secret", RoleUser)
	assert.True(t, IsErrBadRequest(err))

	_, err = svc.Register(context.Background(), "a@b.c", "secret", "superadmin")
	assert.True(t, IsErrBadRequest(err))
}

func TestLoginInstallsCurrentIdentity(t *testing.T) {
	svc, sessions := newTestService(newMemRemote(), &stubAuth{})

	id, err := svc.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, id, sessions.Current())
}

func TestLoginFailureReachesCallerUntouched(t *testing.T) {
	auth := &stubAuth{authErr: session.ErrInvalidCredentials}
	svc, sessions := newTestService(newMemRemote(), auth)

	_, err := svc.Login(context.Background(), "a@b.c", "wrong")
	require.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.Nil(t, sessions.Current(), "failed login leaves no session")
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	svc, _ := newTestService(newMemRemote(), &stubAuth{})

	name := "Asha"
	err := svc.UpdateProfile(context.Background(), UpdateProfileInput{Name: &name})
	assert.True(t, IsErrUnauthenticated(err))
}

func TestUpdateProfileMergesTrimmedFields(t *testing.T) {
	remote := newMemRemote()
	svc, sessions := newTestService(remote, &stubAuth{})
	sessions.SetCurrent(&session.Identity{UID: "u1"})

	name := "  Asha  "
	city := "Pune"
	err := svc.UpdateProfile(context.Background(), UpdateProfileInput{Name: &name, City: &city})
	require.NoError(t, err)

	doc := remote.docs["users/u1"]
	require.NotNil(t, doc)
	assert.Equal(t, "Asha", doc["name"])
	assert.Equal(t, "Pune", doc["city"])
	assert.NotContains(t, doc, "contact", "unset fields never reach the store")
}

func TestFetchProfileMissingDocIsNil(t *testing.T) {
	svc, sessions := newTestService(newMemRemote(), &stubAuth{})
	sessions.SetCurrent(&session.Identity{UID: "u1"})

	p, err := svc.FetchProfile(context.Background())
	require.NoError(t, err, "a not-yet-created profile is not an error")
	assert.Nil(t, p)
}

func TestFetchProfileRequiresSession(t *testing.T) {
	svc, _ := newTestService(newMemRemote(), &stubAuth{})
	_, err := svc.FetchProfile(context.Background())
	assert.True(t, IsErrUnauthenticated(err))
}

func TestGetRole(t *testing.T) {
	remote := newMemRemote()
	remote.docs["users/u1"] = map[string]any{"role": RoleAdmin}
	svc, sessions := newTestService(remote, &stubAuth{})

	// explicit uid
	role, err := svc.GetRole(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	// current identity fallback
	sessions.SetCurrent(&session.Identity{UID: "u1"})
	role, err = svc.GetRole(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	// missing profile yields empty role, not an error
	role, err = svc.GetRole(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, role)
}

func TestGetRoleUnauthenticated(t *testing.T) {
	svc, _ := newTestService(newMemRemote(), &stubAuth{})
	_, err := svc.GetRole(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
