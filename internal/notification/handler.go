package notification

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/agrilink-erp/agrilink/internal/platform/httpx"
	"github.com/agrilink-erp/agrilink/internal/upstream"
)

// Handler serves the notification HTTP surface.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers notification endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/notifications", h.handleList)
	r.Post("/notifications", h.handleCreate)
	r.Patch("/notifications/mark-all/read", h.handleMarkAllRead)
	r.Patch("/notifications/{id}/read", h.handleMarkRead)
	r.Delete("/notifications/{id}", h.handleDelete)
	r.Delete("/notifications", h.handleDeleteAll)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("notification list", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type createRequest struct {
	Title string `json:"title" validate:"required"`
	Body  string `json:"body"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	created, err := h.service.Create(r.Context(), upstream.CreateNotificationRequest{Title: req.Title, Body: req.Body})
	if err != nil {
		h.logger.Error("notification create", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) commandByID(fn func(*Service, *http.Request, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			httpx.RespondError(w, fmt.Errorf("%w: notification id required", httpx.ErrValidation))
			return
		}
		if err := fn(h.service, r, id); err != nil {
			h.logger.Error("notification command", slog.String("id", id), slog.Any("error", err))
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"id": id})
	}
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	h.commandByID(func(s *Service, r *http.Request, id string) error {
		return s.MarkRead(r.Context(), id)
	})(w, r)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.commandByID(func(s *Service, r *http.Request, id string) error {
		return s.Delete(r.Context(), id)
	})(w, r)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkAllRead(r.Context()); err != nil {
		h.logger.Error("notification mark all read", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAll(r.Context()); err != nil {
		h.logger.Error("notification delete all", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
