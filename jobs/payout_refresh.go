package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/agrilink-erp/agrilink/internal/jobs"
	"github.com/agrilink-erp/agrilink/internal/payout"
	"github.com/agrilink-erp/agrilink/internal/upstream"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PayoutRefreshJob warms the payout cache so interactive requests hit Redis
// instead of fanning out to the office API.
type PayoutRefreshJob struct {
	Payouts *payout.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPayoutRefreshJob wires dependencies for the refresh handler.
func NewPayoutRefreshJob(payouts *payout.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *PayoutRefreshJob {
	return &PayoutRefreshJob{
		Payouts: payouts,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes payout refresh tasks.
func (j *PayoutRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Payouts == nil {
		return errors.New("payout refresh: handler not configured")
	}
	var payload PayoutRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if !payload.Type.Valid() {
		return asynq.SkipRetry
	}
	if payload.Ledger == "" {
		payload.Ledger = upstream.DefaultLedger(payload.Type)
	}

	tracker := j.metrics().Track(TaskPayoutRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("ledger", string(payload.Ledger)),
		slog.String("entity_type", string(payload.Type)),
	)
	started := j.now()

	result, err := j.Payouts.Rows(ctx, payload.Ledger, payload.Type, payload.EntityID)
	if err != nil {
		resultErr = err
		logger.Error("payout refresh", slog.Any("error", err))
		return resultErr
	}

	j.metrics().AddWarmedRows(string(payload.Type), len(result.Rows))
	logger.Info("payout cache warmed",
		slog.Int("rows", len(result.Rows)),
		slog.Int("unresolved", result.Unresolved),
		slog.Duration("took", time.Since(started)),
	)
	return resultErr
}

func (j *PayoutRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PayoutRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *PayoutRefreshJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
