package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const maxTableRows = 200

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type chartSignals struct {
	StatusCounts   []models.StatusCount    `json:"statusCounts"`
	StatusShares   []models.StatusShare    `json:"statusShares"`
	ClientsByMonth []models.MonthlyClients `json:"clientsByMonth"`
	SalesByMonth   []models.MonthlySales   `json:"salesByMonth"`
	TopProducts    []models.RankedSales    `json:"topProducts"`
}

func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	d, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		h.patchFailure(r.Context(), sse, err)
		return
	}
	h.patchDashboard(r.Context(), sse, d)
}

// HandleRefresh drops the cached table and re-renders from a fresh fetch.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	h.analytics.Refresh()
	h.patch(r.Context(), sse, templates.Status("Refreshing…"))

	d, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		h.patchFailure(r.Context(), sse, err)
		return
	}
	h.patchDashboard(r.Context(), sse, d)
	h.patch(r.Context(), sse, templates.OrdersTable(limitRows(d.Orders), len(d.Orders)))
}

func (h *SSEHandlers) HandleOrders(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	d, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		// the dashboard stream reports the failure; keep the table empty
		h.patchHTML(r.Context(), sse, fmt.Sprintf(`<div id="%s"></div>`, templates.OrdersContentID))
		return
	}
	h.patch(r.Context(), sse, templates.OrdersTable(limitRows(d.Orders), len(d.Orders)))
}

func (h *SSEHandlers) patchDashboard(ctx context.Context, sse *datastar.ServerSentEventGenerator, d *models.Dashboard) {
	if !h.patch(ctx, sse, templates.DashboardContent(d)) {
		return
	}

	signals, err := json.Marshal(map[string]any{
		"charts": chartSignals{
			StatusCounts:   d.StatusCounts,
			StatusShares:   d.StatusShares,
			ClientsByMonth: d.ClientsByMonth,
			SalesByMonth:   d.SalesByMonth,
			TopProducts:    d.TopProducts,
		},
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal chart signals", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.DebugContext(ctx, "patch signals", "error", err)
		return
	}

	h.patch(ctx, sse, templates.Status("Updated "+d.RecordsFetchedAt.Local().Format(time.DateTime)))
}

// patchFailure replaces the dashboard with a blocking error banner. No
// figures are shown once a fetch fails.
func (h *SSEHandlers) patchFailure(ctx context.Context, sse *datastar.ServerSentEventGenerator, err error) {
	h.logger.ErrorContext(ctx, "dashboard unavailable",
		"error", err,
		"request_id", observability.GetRequestID(ctx),
	)

	if !h.patch(ctx, sse, templates.ErrorBanner(failureMessage(err))) {
		return
	}
	if err := sse.PatchSignals([]byte(`{"charts": {}}`)); err != nil {
		h.logger.DebugContext(ctx, "patch signals", "error", err)
	}
	h.patch(ctx, sse, templates.Status(""))
}

func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) bool {
	html, err := templates.Render(ctx, c)
	if err != nil {
		h.logger.ErrorContext(ctx, "render fragment", "error", err)
		return false
	}
	return h.patchHTML(ctx, sse, html)
}

func (h *SSEHandlers) patchHTML(ctx context.Context, sse *datastar.ServerSentEventGenerator, html string) bool {
	if err := sse.PatchElements(html); err != nil {
		h.logger.DebugContext(ctx, "patch elements", "error", err)
		return false
	}
	return true
}

func failureMessage(err error) string {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return "An unexpected error occurred."
	}
	switch appErr.Code {
	case errors.CodeCredential:
		return "The data source credentials are missing or invalid: " + appErr.Message
	case errors.CodeDataSource:
		return "The sales spreadsheet could not be loaded: " + appErr.Message
	default:
		return appErr.Message
	}
}

func limitRows(rows []models.OrderRow) []models.OrderRow {
	if len(rows) > maxTableRows {
		return rows[:maxTableRows]
	}
	return rows
}
