package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

func render(t *testing.T, name string, data any) string {
	t.Helper()
	html, err := Render(context.Background(), component(name, data))
	require.NoError(t, err)
	return html
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$13,268", Money(decimal.RequireFromString("13267.94")))
	assert.Equal(t, "$0", Money(decimal.Zero))
	assert.Equal(t, "$1,234.50", MoneyCents(decimal.RequireFromString("1234.5")))
	assert.Equal(t, NoData, OptionalMoney(decimal.NullDecimal{}))
	assert.Equal(t, "$4,422.65", OptionalMoney(decimal.NewNullDecimal(decimal.RequireFromString("4422.647"))))
}

func TestDashboardContent(t *testing.T) {
	d := &models.Dashboard{
		Summary: models.Summary{
			TotalOrders:     2,
			CompletedOrders: 1,
			PendingOrders:   1,
			TotalRevenue:    decimal.RequireFromString("150"),
			UniqueClients:   2,
			RowCount:        3,
			RowsWithIssues:  1,
		},
		TopClients:   []models.RankedSales{{Name: "Mini Gifts <Distributors>", Sales: decimal.RequireFromString("100")}},
		StatusShares: []models.StatusShare{{Status: "Shipped", Share: 0.5}},
	}

	html, err := Render(context.Background(), DashboardContent(d))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, `<div id="`+DashboardContentID+`">`))
	assert.Contains(t, html, "$150")
	assert.Contains(t, html, "Mini Gifts &lt;Distributors&gt;")
	assert.Contains(t, html, "50.0%")
	assert.Contains(t, html, "1 of 3 rows had unreadable cells")
	assert.Equal(t, 2, strings.Count(html, NoData), "undefined average and deal size")
}

func TestErrorBanner(t *testing.T) {
	html := render(t, "error-banner", `spreadsheet "data": not found`)

	assert.Contains(t, html, `id="dashboard-content"`)
	assert.Contains(t, html, `role="alert"`)
	assert.Contains(t, html, "not found")
	assert.NotContains(t, html, "kpi")
}

func TestOrdersTable(t *testing.T) {
	rows := []models.OrderRow{{Row: 2, OrderNumber: "10107", Month: "2024-01", Sales: "2871.00", CustomerName: "Land of Toys Inc."}}

	html, err := Render(context.Background(), OrdersTable(rows, 40))
	require.NoError(t, err)

	assert.Contains(t, html, `id="`+OrdersContentID+`"`)
	assert.Contains(t, html, "(40 rows)")
	assert.Contains(t, html, "<td>10107</td>")
	assert.Contains(t, html, "<td>2871.00</td>")
}

func TestDashboardNavigation(t *testing.T) {
	html, err := Render(context.Background(), Dashboard(models.ViewProducts, "analyst"))
	require.NoError(t, err)

	for _, v := range models.Views {
		assert.Contains(t, html, ">"+string(v)+"</a>")
	}
	assert.Contains(t, html, `class="active">Products</a>`)
	assert.Contains(t, html, "The Products view is not available yet.")
}

func TestLogin(t *testing.T) {
	html, err := Render(context.Background(), Login(`<script>`, "Invalid username or password."))
	require.NoError(t, err)

	assert.Contains(t, html, `role="alert"`)
	assert.NotContains(t, html, `value="<script>"`)
}
