package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/agrilink-erp/agrilink/internal/attendance"
	"github.com/agrilink-erp/agrilink/internal/notification"
	"github.com/agrilink-erp/agrilink/internal/observability"
	"github.com/agrilink-erp/agrilink/internal/payout"
	"github.com/agrilink-erp/agrilink/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	PayoutHandler       *payout.Handler
	AttendanceHandler   *attendance.Handler
	NotificationHandler *notification.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with AgriLink defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	params.PayoutHandler.MountRoutes(r)
	params.AttendanceHandler.MountRoutes(r)
	params.NotificationHandler.MountRoutes(r)

	if params.JobHandler != nil {
		r.Route("/jobs", func(jr chi.Router) {
			params.JobHandler.MountRoutes(jr)
		})
	}

	return r
}
