package notifications

import (
	"context"
	"fmt"
	"sort"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"builtf/backend/internal/logging"
	"builtf/backend/internal/store"
)

// Messenger sends a push message. *messaging.Client satisfies it; nil
// disables push.
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type Service struct {
	remote store.Remote
	msg    Messenger
}

func NewService(remote store.Remote, msg Messenger) *Service {
	return &Service{remote: remote, msg: msg}
}

func notificationsPath(uid string) string {
	return "users/" + uid + "/notifications"
}

// BookingStatusChanged records a status-transition notification for the
// booking owner and pushes it when the profile carries an FCM token.
func (s *Service) BookingStatusChanged(ctx context.Context, userID, requestID, providerName, status string) error {
	if userID == "" {
		return fmt.Errorf("uid is required")
	}

	title := fmt.Sprintf("Booking %s", status)
	body := fmt.Sprintf("Your request with %s is now %s.", providerName, status)

	_, err := s.remote.Add(ctx, notificationsPath(userID), map[string]any{
		"title": title,
		"body":  body,
		"type":  TypeBookingStatus,
		"data": map[string]any{
			"requestId": requestID,
			"status":    status,
		},
		"read":      false,
		"createdAt": store.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}

	s.push(ctx, userID, title, body)
	return nil
}

func (s *Service) push(ctx context.Context, uid, title, body string) {
	if s.msg == nil {
		return
	}
	rec, err := s.remote.GetDoc(ctx, "users/"+uid)
	if err != nil {
		logging.L().Warn("push token lookup failed", zap.String("uid", uid), zap.Error(err))
		return
	}
	token, _ := rec["fcmToken"].(string)
	if token == "" {
		return
	}
	_, err = s.msg.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: title, Body: body},
	})
	if err != nil {
		logging.L().Warn("push send failed", zap.String("uid", uid), zap.Error(err))
	}
}

// List returns uid's notifications, newest first.
func (s *Service) List(ctx context.Context, uid string, unreadOnly bool) ([]Notification, error) {
	if uid == "" {
		return nil, fmt.Errorf("uid is required")
	}
	recs, err := s.remote.GetAll(ctx, notificationsPath(uid))
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(recs))
	for _, rec := range recs {
		n := decode(rec)
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, uid, id string) error {
	if uid == "" || id == "" {
		return fmt.Errorf("uid and id are required")
	}
	return s.remote.Merge(ctx, notificationsPath(uid)+"/"+id, map[string]any{
		"read":   true,
		"readAt": time.Now().UTC(),
	})
}

func decode(rec store.Record) Notification {
	var n Notification
	n.ID, _ = rec["id"].(string)
	n.Title, _ = rec["title"].(string)
	n.Body, _ = rec["body"].(string)
	n.Type, _ = rec["type"].(string)
	n.Read, _ = rec["read"].(bool)
	if d, ok := rec["data"].(map[string]any); ok {
		n.Data = d
	}
	if t, ok := rec["createdAt"].(time.Time); ok {
		n.CreatedAt = t
	}
	return n
}
