package jobs

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/agrilink-erp/agrilink/internal/notification"
	"github.com/agrilink-erp/agrilink/internal/payout"
	"github.com/agrilink-erp/agrilink/internal/upstream"
)

type stubPayoutAPI struct {
	ledger []upstream.PaidRecord
}

func (s *stubPayoutAPI) ListOrders(context.Context) ([]upstream.Order, error) { return nil, nil }
func (s *stubPayoutAPI) OrderAssignments(context.Context, upstream.Order) ([]upstream.Assignment, error) {
	return nil, nil
}
func (s *stubPayoutAPI) ListEntities(context.Context, upstream.EntityType) ([]upstream.Entity, error) {
	return nil, nil
}
func (s *stubPayoutAPI) ListRates(context.Context) ([]upstream.RateCard, error) { return nil, nil }
func (s *stubPayoutAPI) ListFuelExpenses(context.Context) ([]upstream.Expense, error) {
	return nil, nil
}
func (s *stubPayoutAPI) ListAdvances(context.Context) ([]upstream.Expense, error) { return nil, nil }
func (s *stubPayoutAPI) ListExcessKM(context.Context) ([]upstream.ExcessKM, error) { return nil, nil }
func (s *stubPayoutAPI) ListPayouts(context.Context, upstream.Ledger, upstream.EntityType, string) ([]upstream.PaidRecord, error) {
	return s.ledger, nil
}
func (s *stubPayoutAPI) PaidRecords(context.Context, upstream.Ledger, upstream.EntityType) ([]upstream.PaidRecord, error) {
	return nil, nil
}
func (s *stubPayoutAPI) MarkPaid(context.Context, upstream.Ledger, upstream.EntityType, upstream.MarkPaidRequest) error {
	return nil
}

func newRefreshJob(t *testing.T, api payout.Upstream) *PayoutRefreshJob {
	t.Helper()
	svc := payout.NewService(payout.ServiceConfig{
		Upstream: api,
		Marks:    payout.NewMemoryMarkStore(),
		Logger:   slog.New(slog.DiscardHandler),
	})
	return NewPayoutRefreshJob(svc, slog.New(slog.DiscardHandler), nil)
}

func TestPayoutRefreshHandle(t *testing.T) {
	api := &stubPayoutAPI{ledger: []upstream.PaidRecord{
		{Key: "2026-02-10_f1", Date: "2026-02-10", EntityID: "f1", Amount: 1200},
	}}
	job := newRefreshJob(t, api)

	task, err := NewPayoutRefreshTask(PayoutRefreshPayload{Type: upstream.EntityFarmer})
	require.NoError(t, err)
	require.NoError(t, job.Handle(t.Context(), task))
}

func TestPayoutRefreshRejectsBadPayload(t *testing.T) {
	job := newRefreshJob(t, &stubPayoutAPI{})

	err := job.Handle(t.Context(), asynq.NewTask(TaskPayoutRefresh, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewPayoutRefreshTask(PayoutRefreshPayload{Type: "contractor"})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(t.Context(), task), asynq.SkipRetry)
}

type stubNotificationAPI struct {
	list    []upstream.Notification
	deleted []string
}

func (s *stubNotificationAPI) ListNotifications(context.Context) ([]upstream.Notification, error) {
	return s.list, nil
}
func (s *stubNotificationAPI) CreateNotification(_ context.Context, req upstream.CreateNotificationRequest) (upstream.Notification, error) {
	return upstream.Notification{Title: req.Title, Body: req.Body}, nil
}
func (s *stubNotificationAPI) MarkNotificationRead(context.Context, string) error { return nil }
func (s *stubNotificationAPI) MarkAllNotificationsRead(context.Context) error     { return nil }
func (s *stubNotificationAPI) DeleteNotification(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}
func (s *stubNotificationAPI) DeleteAllNotifications(context.Context) error { return nil }

func TestNotificationPruneHandle(t *testing.T) {
	api := &stubNotificationAPI{list: []upstream.Notification{
		{ID: "n1", CreatedAt: "2020-01-05", Read: true},
		{ID: "n2", CreatedAt: "2020-01-05", Read: false},
		{ID: "n3", CreatedAt: "2099-01-05", Read: true},
	}}
	svc := notification.NewService(api, slog.New(slog.DiscardHandler))
	job := NewNotificationPruneJob(svc, slog.New(slog.DiscardHandler), nil)

	task, err := NewNotificationPruneTask(NotificationPrunePayload{MaxAgeDays: 30})
	require.NoError(t, err)
	require.NoError(t, job.Handle(t.Context(), task))
	require.Equal(t, []string{"n1"}, api.deleted)
}

func refreshRouter(t *testing.T, queue *Client) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(nil, queue, slog.New(slog.DiscardHandler)).MountRoutes(r)
	return r
}

func TestPayoutRefreshEndpointEnqueues(t *testing.T) {
	mr := miniredis.RunT(t)
	queue, err := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = queue.Close() })
	r := refreshRouter(t, queue)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payout-refresh", strings.NewReader(`{"type":"driver"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"task_id"`)
	require.Contains(t, rec.Body.String(), `"queue":"`+QueueDefault+`"`)
}

func TestPayoutRefreshEndpointRejectsBadRequests(t *testing.T) {
	r := refreshRouter(t, &Client{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payout-refresh", strings.NewReader(`{"type":"contractor"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payout-refresh", strings.NewReader(`{not json`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	refreshRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payout-refresh", strings.NewReader(`{"type":"driver"}`)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
