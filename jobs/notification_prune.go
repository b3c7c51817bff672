package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/agrilink-erp/agrilink/internal/datekey"
	jobmetrics "github.com/agrilink-erp/agrilink/internal/jobs"
	"github.com/agrilink-erp/agrilink/internal/notification"
)

const defaultPruneAgeDays = 30

// NotificationPruneJob deletes read notifications once they age out, keeping
// the bell menu upstream from growing without bound.
type NotificationPruneJob struct {
	Notifications *notification.Service
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
	clock         func() time.Time
}

// NewNotificationPruneJob wires dependencies for the prune handler.
func NewNotificationPruneJob(notifications *notification.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotificationPruneJob {
	return &NotificationPruneJob{
		Notifications: notifications,
		Logger:        logger,
		Metrics:       metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes notification prune tasks.
func (j *NotificationPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Notifications == nil {
		return errors.New("notification prune: handler not configured")
	}
	var payload NotificationPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.MaxAgeDays <= 0 {
		payload.MaxAgeDays = defaultPruneAgeDays
	}

	tracker := j.metrics().Track(TaskNotificationPrune)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	cutoff := j.now().AddDate(0, 0, -payload.MaxAgeDays).Format(datekey.Layout)
	pruned, err := j.Notifications.Prune(ctx, cutoff)
	if err != nil {
		resultErr = err
		j.logger().Error("notification prune", slog.String("cutoff", cutoff), slog.Any("error", err))
		return resultErr
	}
	j.logger().Info("notifications pruned", slog.String("cutoff", cutoff), slog.Int("pruned", pruned))
	return resultErr
}

func (j *NotificationPruneJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *NotificationPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *NotificationPruneJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
