package requests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"builtf/backend/internal/logging"
	"builtf/backend/internal/store"
)

const ColRequests = "serviceRequests"

// StatusNotifier is told about admin status transitions so the booking
// owner can be notified. Nil disables fan-out.
type StatusNotifier interface {
	BookingStatusChanged(ctx context.Context, userID, requestID, providerName, status string) error
}

type Service struct {
	remote   store.Remote
	notifier StatusNotifier
}

func NewService(remote store.Remote, notifier StatusNotifier) *Service {
	return &Service{remote: remote, notifier: notifier}
}

// Create files a booking for uid. Status always starts at pending and
// requestedAt is assigned by the store.
func (s *Service) Create(ctx context.Context, uid string, in CreateRequestInput) (string, error) {
	in.Trim()
	if uid == "" {
		return "", fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	if in.ProviderID == "" || in.ServiceID == "" {
		return "", fmt.Errorf("%w: providerId and serviceId are required", ErrBadRequest)
	}
	if in.UserName == "" || in.UserContact == "" || in.UserAddress == "" {
		return "", fmt.Errorf("%w: name, contact and address are required", ErrBadRequest)
	}

	id, err := s.remote.Add(ctx, ColRequests, map[string]any{
		"userId":          uid,
		"userName":        in.UserName,
		"userContact":     in.UserContact,
		"userAddress":     in.UserAddress,
		"providerId":      in.ProviderID,
		"providerName":    in.ProviderName,
		"providerContact": in.ProviderContact,
		"serviceId":       in.ServiceID,
		"status":          StatusPending,
		"requestedAt":     store.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	return id, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ServiceRequest, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrBadRequest)
	}
	rec, err := s.remote.GetDoc(ctx, ColRequests+"/"+id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	req := decodeRequest(rec)
	return &req, nil
}

// ListForUser returns uid's bookings, newest first.
func (s *Service) ListForUser(ctx context.Context, uid string) ([]ServiceRequest, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	recs, err := s.remote.Query(ctx, ColRequests, store.Filter{Field: "userId", Op: "==", Value: uid})
	if err != nil {
		return nil, err
	}
	return sortedRequests(recs), nil
}

// ListAll returns every booking, newest first. Admin dashboard view.
func (s *Service) ListAll(ctx context.Context) ([]ServiceRequest, error) {
	recs, err := s.remote.GetAll(ctx, ColRequests)
	if err != nil {
		return nil, err
	}
	return sortedRequests(recs), nil
}

// WatchForUser opens a live view over uid's bookings. The caller owns the
// query lifecycle (Start/Stop).
func (s *Service) WatchForUser(uid string) *store.LiveQuery {
	return store.NewLiveQuery(s.remote, ColRequests, "userId", "==", uid)
}

// UpdateStatus performs the admin transition. Targets outside the fixed set
// and moves out of a terminal state are rejected.
func (s *Service) UpdateStatus(ctx context.Context, id, next string) (*ServiceRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(req.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, next)
	}

	if err := s.remote.Merge(ctx, ColRequests+"/"+id, map[string]any{"status": next}); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	req.Status = next

	if s.notifier != nil {
		if err := s.notifier.BookingStatusChanged(ctx, req.UserID, req.ID, req.ProviderName, next); err != nil {
			// best effort; the transition itself already landed
			logging.L().Warn("status notification failed",
				zap.String("requestId", req.ID), zap.Error(err))
		}
	}
	return req, nil
}

func sortedRequests(recs []store.Record) []ServiceRequest {
	out := make([]ServiceRequest, 0, len(recs))
	for _, rec := range recs {
		out = append(out, decodeRequest(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	return out
}

func decodeRequest(rec store.Record) ServiceRequest {
	var r ServiceRequest
	r.ID, _ = rec["id"].(string)
	r.UserID, _ = rec["userId"].(string)
	r.UserName, _ = rec["userName"].(string)
	r.UserContact, _ = rec["userContact"].(string)
	r.UserAddress, _ = rec["userAddress"].(string)
	r.ProviderID, _ = rec["providerId"].(string)
	r.ProviderName, _ = rec["providerName"].(string)
	r.ProviderContact, _ = rec["providerContact"].(string)
	r.ServiceID, _ = rec["serviceId"].(string)
	r.Status, _ = rec["status"].(string)
	if t, ok := rec["requestedAt"].(time.Time); ok {
		r.RequestedAt = t
	}
	return r
}
