package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/agrilink-erp/agrilink/internal/app"
	"github.com/agrilink-erp/agrilink/internal/attendance"
	"github.com/agrilink-erp/agrilink/internal/notification"
	"github.com/agrilink-erp/agrilink/internal/observability"
	"github.com/agrilink-erp/agrilink/internal/payout"
	"github.com/agrilink-erp/agrilink/internal/platform/cache"
	"github.com/agrilink-erp/agrilink/internal/upstream"
	"github.com/agrilink-erp/agrilink/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Warn("redis unavailable, continuing without cache", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	office := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout)
	metrics := observability.NewMetrics()

	attendanceService := attendance.NewService(attendance.ServiceConfig{
		Upstream:   office,
		Logger:     logger,
		WindowDays: cfg.AttendanceWindowDays,
	})
	attendanceHandler := attendance.NewHandler(logger, attendanceService)

	var payoutCache *payout.Cache
	var marks payout.MarkStore = payout.NewMemoryMarkStore()
	if redisClient != nil {
		payoutCache = payout.NewCache(redisClient, cfg.PayoutCacheTTL)
		marks = payout.NewRedisMarkStore(redisClient)
	}
	payoutService := payout.NewService(payout.ServiceConfig{
		Upstream:        office,
		Presence:        attendanceService,
		Marks:           marks,
		Cache:           payoutCache,
		Logger:          logger,
		Metrics:         metrics,
		Policy:          payout.Policy{OptimisticNoRollback: !cfg.PayoutStrictMarking},
		AssignmentLimit: cfg.AssignmentFanout,
	})
	payoutHandler := payout.NewHandler(logger, payoutService)

	notificationService := notification.NewService(office, logger)
	notificationHandler := notification.NewHandler(logger, notificationService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	queue, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, queue, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		PayoutHandler:       payoutHandler,
		AttendanceHandler:   attendanceHandler,
		NotificationHandler: notificationHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
