package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"builtf/backend/internal/logging"
	"builtf/backend/internal/session"
	"builtf/backend/internal/store"
)

const ColUsers = "users"

// ClaimsSetter mirrors the role onto auth token claims. *auth.Client
// satisfies it; nil disables claim sync.
type ClaimsSetter interface {
	SetCustomUserClaims(ctx context.Context, uid string, claims map[string]any) error
}

// Service bridges the auth provider and the users collection. All profile
// reads and writes target the caller's own users/{uid} document.
type Service struct {
	remote   store.Remote
	sessions *session.Manager
	claims   ClaimsSetter
}

func NewService(remote store.Remote, sessions *session.Manager, claims ClaimsSetter) *Service {
	return &Service{remote: remote, sessions: sessions, claims: claims}
}

func docPath(uid string) string { return ColUsers + "/" + uid }

// Register creates an auth identity and its users/{uid} profile document.
// If the profile write fails the identity is deleted again, so a half
// registered user never survives.
func (s *Service) Register(ctx context.Context, email, password, role string) (*session.Identity, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrBadRequest)
	}
	if role == "" {
		role = RoleUser
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrBadRequest, role)
	}

	id, err := s.sessions.Authenticator().CreateIdentity(ctx, email, password)
	if err != nil {
		return nil, err
	}

	err = s.remote.Merge(ctx, docPath(id.UID), map[string]any{
		"email":     email,
		"role":      role,
		"createdAt": store.ServerTimestamp,
	})
	if err != nil {
		logging.L().Error("profile write failed, rolling back identity",
			zap.String("uid", id.UID), zap.Error(err))
		if delErr := s.sessions.Authenticator().DeleteIdentity(ctx, id.UID); delErr != nil {
			logging.L().Error("identity rollback failed", zap.String("uid", id.UID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return id, nil
}

// Login authenticates and installs the resulting identity as current. Unlike
// the other operations the failure is returned to the caller untouched: a
// login form has to distinguish failure from success.
func (s *Service) Login(ctx context.Context, email, password string) (*session.Identity, error) {
	id, err := s.sessions.Authenticator().Authenticate(ctx, email, password)
	if err != nil {
		logging.L().Warn("login failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	s.sessions.SetCurrent(id)
	return id, nil
}

// UpdateProfile merge-patches the caller's own profile document.
func (s *Service) UpdateProfile(ctx context.Context, in UpdateProfileInput) error {
	cur := s.sessions.Current()
	if cur == nil {
		return ErrUnauthenticated
	}
	return s.UpdateProfileFor(ctx, cur.UID, in)
}

// UpdateProfileFor is UpdateProfile for an explicit uid. The HTTP layer uses
// it with the uid from the verified token.
func (s *Service) UpdateProfileFor(ctx context.Context, uid string, in UpdateProfileInput) error {
	if uid == "" {
		return fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	in.Trim()
	fields := in.Fields()
	if len(fields) == 0 {
		return nil
	}
	return s.remote.Merge(ctx, docPath(uid), fields)
}

// FetchProfile reads the caller's own profile. A missing document is not an
// error; it returns nil.
func (s *Service) FetchProfile(ctx context.Context) (*Profile, error) {
	cur := s.sessions.Current()
	if cur == nil {
		return nil, ErrUnauthenticated
	}
	return s.GetProfile(ctx, cur.UID)
}

// GetProfile reads the profile for a given uid.
func (s *Service) GetProfile(ctx context.Context, uid string) (*Profile, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	rec, err := s.remote.GetDoc(ctx, docPath(uid))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return decodeProfile(uid, rec), nil
}

// GetRole returns the role on the profile document for uid, or the current
// identity's when uid is empty. Missing profile or role yields "".
func (s *Service) GetRole(ctx context.Context, uid string) (string, error) {
	if uid == "" {
		cur := s.sessions.Current()
		if cur == nil {
			return "", ErrUnauthenticated
		}
		uid = cur.UID
	}
	rec, err := s.remote.GetDoc(ctx, docPath(uid))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch role: %w", err)
	}
	role, _ := rec["role"].(string)
	return role, nil
}

// SyncRoleClaims mirrors the profile role onto auth custom claims so the
// HTTP middleware can gate on the verified token alone.
func (s *Service) SyncRoleClaims(ctx context.Context, uid, role string) error {
	if s.claims == nil {
		return nil
	}
	return s.claims.SetCustomUserClaims(ctx, uid, map[string]any{
		"role":            role,
		"roles":           map[string]bool{role: true},
		"claimsUpdatedAt": time.Now().Unix(),
	})
}

func decodeProfile(uid string, rec store.Record) *Profile {
	p := &Profile{UID: uid}
	p.Email, _ = rec["email"].(string)
	p.Role, _ = rec["role"].(string)
	p.Name, _ = rec["name"].(string)
	p.Contact, _ = rec["contact"].(string)
	p.Address, _ = rec["address"].(string)
	p.City, _ = rec["city"].(string)
	p.State, _ = rec["state"].(string)
	p.Pin, _ = rec["pin"].(string)
	p.FCMToken, _ = rec["fcmToken"].(string)
	if t, ok := rec["createdAt"].(time.Time); ok {
		p.CreatedAt = t
	}
	return p
}
