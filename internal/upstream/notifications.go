package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListNotifications fetches all console notifications.
func (c *Client) ListNotifications(ctx context.Context) ([]Notification, error) {
	var raw []record
	if err := c.get(ctx, "/notification/list", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(raw))
	for _, r := range raw {
		if n, ok := normalizeNotification(r); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// CreateNotificationRequest is the create payload.
type CreateNotificationRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CreateNotification creates a console notification.
func (c *Client) CreateNotification(ctx context.Context, req CreateNotificationRequest) (Notification, error) {
	var raw record
	if err := c.send(ctx, http.MethodPost, "/notification/create", req, &raw); err != nil {
		return Notification{}, err
	}
	n, _ := normalizeNotification(raw)
	return n, nil
}

// MarkNotificationRead flags a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("upstream: notification id required")
	}
	return c.send(ctx, http.MethodPatch, "/notification/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllNotificationsRead flags every notification as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.send(ctx, http.MethodPatch, "/notification/mark-all/read", nil, nil)
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("upstream: notification id required")
	}
	return c.send(ctx, http.MethodDelete, "/notification/"+url.PathEscape(id), nil, nil)
}

// DeleteAllNotifications removes every notification.
func (c *Client) DeleteAllNotifications(ctx context.Context) error {
	return c.send(ctx, http.MethodDelete, "/notification", nil, nil)
}
