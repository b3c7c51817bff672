// Package notification proxies the console notification endpoints.
package notification

import (
	"context"
	"log/slog"
	"sort"

	"github.com/agrilink-erp/agrilink/internal/datekey"
	"github.com/agrilink-erp/agrilink/internal/upstream"
)

// Upstream captures the notification surface of the office API.
type Upstream interface {
	ListNotifications(ctx context.Context) ([]upstream.Notification, error)
	CreateNotification(ctx context.Context, req upstream.CreateNotificationRequest) (upstream.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
	DeleteAllNotifications(ctx context.Context) error
}

// Service wraps the notification proxy.
type Service struct {
	up     Upstream
	logger *slog.Logger
}

// NewService wires the notification service.
func NewService(up Upstream, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{up: up, logger: logger}
}

// ListResult pairs the notification list with its unread count.
type ListResult struct {
	Notifications []upstream.Notification `json:"notifications"`
	Unread        int                     `json:"unread"`
}

// List returns notifications newest-first with the unread tally.
func (s *Service) List(ctx context.Context) (ListResult, error) {
	list, err := s.up.ListNotifications(ctx)
	if err != nil {
		return ListResult{}, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt > list[j].CreatedAt
	})
	var unread int
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	return ListResult{Notifications: list, Unread: unread}, nil
}

// Create publishes a new notification.
func (s *Service) Create(ctx context.Context, req upstream.CreateNotificationRequest) (upstream.Notification, error) {
	return s.up.CreateNotification(ctx, req)
}

// MarkRead flags one notification read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.up.MarkNotificationRead(ctx, id)
}

// MarkAllRead flags every notification read.
func (s *Service) MarkAllRead(ctx context.Context) error {
	return s.up.MarkAllNotificationsRead(ctx)
}

// Delete removes one notification.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.up.DeleteNotification(ctx, id)
}

// DeleteAll removes every notification.
func (s *Service) DeleteAll(ctx context.Context) error {
	return s.up.DeleteAllNotifications(ctx)
}

// Prune deletes read notifications created on or before the cutoff date and
// reports how many were removed. Records without a parseable creation date
// are left alone.
func (s *Service) Prune(ctx context.Context, cutoff string) (int, error) {
	list, err := s.up.ListNotifications(ctx)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, n := range list {
		if !n.Read || n.ID == "" {
			continue
		}
		created, ok := datekey.Normalize(n.CreatedAt)
		if !ok || created > cutoff {
			continue
		}
		if err := s.up.DeleteNotification(ctx, n.ID); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}
