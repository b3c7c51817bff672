package payout

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/agrilink-erp/agrilink/internal/export"
	"github.com/agrilink-erp/agrilink/internal/platform/httpx"
	"github.com/agrilink-erp/agrilink/internal/shared"
	"github.com/agrilink-erp/agrilink/internal/upstream"
)

// Handler serves the payout HTTP surface.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers payout endpoints onto the router. Exports are
// rate-limited: they rebuild the full row set per request.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/payouts/{type}", h.handleList)
	r.Post("/payouts/{type}/mark-paid", h.handleMarkPaid)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/payouts/{type}/export.csv", h.handleExportCSV)
		gr.Get("/payouts/{type}/export.pdf", h.handleExportPDF)
		gr.Get("/payouts/{type}/export.xlsx", h.handleExportXLSX)
	})
}

type listResponse struct {
	Rows               []Row             `json:"rows"`
	Pagination         shared.Pagination `json:"pagination"`
	Unresolved         int               `json:"unresolved"`
	AttendanceFiltered bool              `json:"attendance_filtered"`
}

func (h *Handler) requestScope(r *http.Request) (upstream.Ledger, upstream.EntityType, string, error) {
	typ := upstream.EntityType(chi.URLParam(r, "type"))
	if !typ.Valid() {
		return "", "", "", fmt.Errorf("%w: unknown payout type %q", httpx.ErrValidation, typ)
	}
	ledger := upstream.DefaultLedger(typ)
	if q := r.URL.Query().Get("ledger"); q != "" {
		switch upstream.Ledger(q) {
		case upstream.LedgerPeriodic, upstream.LedgerDaily:
			ledger = upstream.Ledger(q)
		default:
			return "", "", "", fmt.Errorf("%w: unknown ledger %q", httpx.ErrValidation, q)
		}
	}
	return ledger, typ, r.URL.Query().Get("entity_id"), nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ledger, typ, entityID, err := h.requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Rows(r.Context(), ledger, typ, entityID)
	if err != nil {
		h.logger.Error("payout rows", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := shared.NewPagination(page, perPage, len(result.Rows))
	start, end := pagination.Bounds()

	httpx.JSON(w, http.StatusOK, listResponse{
		Rows:               result.Rows[start:end],
		Pagination:         pagination,
		Unresolved:         result.Unresolved,
		AttendanceFiltered: result.AttendanceFiltered,
	})
}

type markPaidRequest struct {
	Key      string  `json:"key" validate:"required"`
	Date     string  `json:"date"`
	EntityID string  `json:"entity_id"`
	Amount   float64 `json:"amount" validate:"gte=0"`
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	ledger, typ, _, err := h.requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req markPaidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	err = h.service.MarkPaid(r.Context(), ledger, typ, upstream.MarkPaidRequest{
		Key:      req.Key,
		Date:     req.Date,
		EntityID: req.EntityID,
		Amount:   req.Amount,
	})
	if err != nil {
		h.logger.Error("payout mark paid", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"key": req.Key, "status": string(StatusPaid)})
}

func (h *Handler) exportTable(r *http.Request) (export.Table, string, error) {
	ledger, typ, entityID, err := h.requestScope(r)
	if err != nil {
		return export.Table{}, "", err
	}
	result, err := h.service.Rows(r.Context(), ledger, typ, entityID)
	if err != nil {
		return export.Table{}, "", err
	}
	table := export.Table{
		Title:   fmt.Sprintf("%s payouts", typ),
		Headers: []string{"Date", "Entity", "Base", "Deductions", "Additions", "Total", "Status"},
	}
	for _, row := range result.Rows {
		name := row.EntityName
		if name == "" {
			name = row.EntityID
		}
		table.Rows = append(table.Rows, []string{
			row.Date,
			name,
			export.Money(row.BaseAmount),
			export.Money(sum(row.Deductions)),
			export.Money(sum(row.Additions)),
			export.Money(row.TotalPayout),
			string(row.Status),
		})
	}
	return table, fmt.Sprintf("payouts-%s", typ), nil
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	table, name, err := h.exportTable(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	if err := export.StreamCSV(w, table); err != nil {
		h.logger.Error("payout csv export", slog.Any("error", err))
	}
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	table, name, err := h.exportTable(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	data, err := export.RenderPDF(table)
	if err != nil {
		h.logger.Error("payout pdf export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".pdf"))
	_, _ = w.Write(data)
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	table, name, err := h.exportTable(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	data, err := export.RenderXLSX(table)
	if err != nil {
		h.logger.Error("payout xlsx export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
	_, _ = w.Write(data)
}
