package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type StatusShare struct {
	Status string  `json:"status"`
	Share  float64 `json:"share"`
}

type MonthlyClients struct {
	Month         string `json:"month"`
	ActiveClients int    `json:"active_clients"`
}

type MonthlySales struct {
	Month string          `json:"month"`
	Sales decimal.Decimal `json:"sales"`
}

// RankedSales is one entry of a top-N ranking by total sales.
type RankedSales struct {
	Name  string          `json:"name"`
	Sales decimal.Decimal `json:"sales"`
}

// Summary holds the headline figures. Nullable values are undefined for the
// current record set and must be shown as "no data".
type Summary struct {
	TotalOrders       int                 `json:"total_orders"`
	CompletedOrders   int                 `json:"completed_orders"`
	PendingOrders     int                 `json:"pending_orders"`
	TotalRevenue      decimal.Decimal     `json:"total_revenue"`
	AverageOrderValue decimal.NullDecimal `json:"average_order_value"`
	UniqueClients     int                 `json:"unique_clients"`
	TopDealSize       string              `json:"top_deal_size,omitempty"`
	RowCount          int                 `json:"row_count"`
	RowsWithIssues    int                 `json:"rows_with_issues"`
}

// OrderRow is the flattened record shown in the data table.
type OrderRow struct {
	Row          int    `json:"row"`
	OrderNumber  string `json:"order_number"`
	OrderDate    string `json:"order_date"`
	Month        string `json:"month"`
	Year         string `json:"year"`
	Status       string `json:"status"`
	Sales        string `json:"sales"`
	CustomerName string `json:"customer_name"`
	ProductCode  string `json:"product_code"`
	DealSize     string `json:"deal_size"`
}

// Dashboard bundles every aggregate view derived from one record set.
type Dashboard struct {
	Summary          Summary          `json:"summary"`
	StatusCounts     []StatusCount    `json:"status_counts"`
	StatusShares     []StatusShare    `json:"status_shares"`
	ClientsByMonth   []MonthlyClients `json:"clients_by_month"`
	SalesByMonth     []MonthlySales   `json:"sales_by_month"`
	TopClients       []RankedSales    `json:"top_clients"`
	TopProducts      []RankedSales    `json:"top_products"`
	Orders           []OrderRow       `json:"orders"`
	GeneratedAt      time.Time        `json:"generated_at"`
	RecordsFetchedAt time.Time        `json:"records_fetched_at"`
}

// View is a navigation entry of the sidebar.
type View string

const (
	ViewDashboard    View = "Dashboard"
	ViewEarnings     View = "Earnings"
	ViewProducts     View = "Products"
	ViewAnalytics    View = "Analytics"
	ViewEditDatabase View = "Edit Database"
)

var Views = []View{ViewDashboard, ViewEarnings, ViewProducts, ViewAnalytics, ViewEditDatabase}

// ParseView maps a query value to a View, case-insensitively. Unknown or
// empty values select the Dashboard.
func ParseView(s string) View {
	s = strings.TrimSpace(s)
	for _, v := range Views {
		if strings.EqualFold(string(v), s) {
			return v
		}
	}
	return ViewDashboard
}
