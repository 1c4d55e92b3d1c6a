package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const (
	defaultOrdersLimit = 100
	maxOrdersLimit     = 1000
)

var noStore = map[string]string{
	"Cache-Control": "private, no-store",
}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// serve derives the dashboard and writes the part selected by pick. A failed
// fetch is written as an error and nothing is derived.
func (h *APIHandlers) serve(w http.ResponseWriter, r *http.Request, pick func(*models.Dashboard) any) {
	d, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}
	errors.WriteSuccessWithHeaders(w, pick(d), noStore)
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(d *models.Dashboard) any { return d.Summary })
}

func (h *APIHandlers) HandleStatusCounts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(d *models.Dashboard) any { return d.StatusCounts })
}

func (h *APIHandlers) HandleStatusShares(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(d *models.Dashboard) any { return d.StatusShares })
}

func (h *APIHandlers) HandleClientsByMonth(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(d *models.Dashboard) any { return d.ClientsByMonth })
}

func (h *APIHandlers) HandleSalesByMonth(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(d *models.Dashboard) any { return d.SalesByMonth })
}

func (h *APIHandlers) HandleTopClients(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(d *models.Dashboard) any { return d.TopClients })
}

func (h *APIHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(d *models.Dashboard) any { return d.TopProducts })
}

type ordersPage struct {
	Orders []models.OrderRow `json:"orders"`
	Total  int               `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
}

func (h *APIHandlers) HandleOrders(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	limit, err := queryInt(r, "limit", defaultOrdersLimit)
	if err != nil {
		errors.WriteError(w, h.logger, errors.ValidationWrap(err, "limit must be an integer"), requestID)
		return
	}
	if limit < 1 || limit > maxOrdersLimit {
		errors.WriteError(w, h.logger, errors.Validation("limit must be between 1 and 1000"), requestID)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		errors.WriteError(w, h.logger, errors.ValidationWrap(err, "offset must be an integer"), requestID)
		return
	}
	if offset < 0 {
		errors.WriteError(w, h.logger, errors.Validation("offset must be non-negative"), requestID)
		return
	}

	h.serve(w, r, func(d *models.Dashboard) any {
		start := min(offset, len(d.Orders))
		end := min(start+limit, len(d.Orders))
		return ordersPage{
			Orders: d.Orders[start:end],
			Total:  len(d.Orders),
			Offset: offset,
			Limit:  limit,
		}
	})
}

// HandleRefresh drops the cached table. The next read fetches it again.
func (h *APIHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.analytics.Refresh()
	h.logger.Info("refresh requested",
		"user", observability.GetUser(r.Context()),
		"request_id", observability.GetRequestID(r.Context()),
	)

	errors.WriteSuccessWithHeaders(w, map[string]any{
		"refreshed": true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, noStore)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Stats(), noStore)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
