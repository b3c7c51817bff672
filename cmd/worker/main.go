package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/agrilink-erp/agrilink/internal/app"
	"github.com/agrilink-erp/agrilink/internal/attendance"
	jobmetrics "github.com/agrilink-erp/agrilink/internal/jobs"
	"github.com/agrilink-erp/agrilink/internal/notification"
	"github.com/agrilink-erp/agrilink/internal/payout"
	"github.com/agrilink-erp/agrilink/internal/platform/cache"
	"github.com/agrilink-erp/agrilink/internal/upstream"
	"github.com/agrilink-erp/agrilink/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	office := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout)

	attendanceService := attendance.NewService(attendance.ServiceConfig{
		Upstream:   office,
		Logger:     logger,
		WindowDays: cfg.AttendanceWindowDays,
	})
	payoutService := payout.NewService(payout.ServiceConfig{
		Upstream:        office,
		Presence:        attendanceService,
		Marks:           payout.NewRedisMarkStore(redisClient),
		Cache:           payout.NewCache(redisClient, cfg.PayoutCacheTTL),
		Logger:          logger,
		Policy:          payout.Policy{OptimisticNoRollback: !cfg.PayoutStrictMarking},
		AssignmentLimit: cfg.AssignmentFanout,
	})
	notificationService := notification.NewService(office, logger)

	metrics := jobmetrics.NewMetrics(nil)
	refreshJob := jobs.NewPayoutRefreshJob(payoutService, logger, metrics)
	pruneJob := jobs.NewNotificationPruneJob(notificationService, logger, metrics)

	cron := make([]jobs.CronRegistration, 0, len(upstream.EntityTypes)+1)
	for _, typ := range upstream.EntityTypes {
		task, err := jobs.NewPayoutRefreshTask(jobs.PayoutRefreshPayload{
			Ledger: upstream.DefaultLedger(typ),
			Type:   typ,
		})
		if err != nil {
			logger.Error("build refresh task", slog.String("entity_type", string(typ)), slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.RefreshCron,
			Task:    task,
			Options: []asynq.Option{asynq.MaxRetry(2)},
		})
	}
	pruneTask, err := jobs.NewNotificationPruneTask(jobs.NotificationPrunePayload{MaxAgeDays: 30})
	if err != nil {
		logger.Error("build prune task", slog.Any("error", err))
		os.Exit(1)
	}
	cron = append(cron, jobs.CronRegistration{
		Spec:    "45 1 * * *",
		Task:    pruneTask,
		Options: []asynq.Option{asynq.MaxRetry(3)},
	})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPayoutRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskNotificationPrune, Handler: pruneJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
