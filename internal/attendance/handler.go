package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agrilink-erp/agrilink/internal/platform/httpx"
	"github.com/agrilink-erp/agrilink/internal/upstream"
)

// Handler serves the attendance HTTP surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers attendance endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/attendance/overview", h.handleOverview)
	r.Post("/attendance/{id}/mark-present", h.action((*Service).MarkPresent))
	r.Post("/attendance/{id}/mark-absent", h.action((*Service).MarkAbsent))
	r.Patch("/attendance/{id}/check-in", h.action((*Service).CheckIn))
	r.Patch("/attendance/{id}/check-out", h.action((*Service).CheckOut))
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	q := upstream.OverviewQuery{
		Date:       r.URL.Query().Get("date"),
		Status:     r.URL.Query().Get("status"),
		Department: r.URL.Query().Get("department"),
		Search:     r.URL.Query().Get("search"),
	}
	overview, err := h.service.Overview(r.Context(), q)
	if err != nil {
		h.logger.Error("attendance overview", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) action(fn func(*Service, context.Context, string) (upstream.AttendanceRecord, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			httpx.RespondError(w, fmt.Errorf("%w: attendance id required", httpx.ErrValidation))
			return
		}
		record, err := fn(h.service, r.Context(), id)
		if err != nil {
			h.logger.Error("attendance action", slog.String("id", id), slog.Any("error", err))
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
			return
		}
		httpx.JSON(w, http.StatusOK, record)
	}
}
