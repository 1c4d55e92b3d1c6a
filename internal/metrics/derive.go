// Package metrics derives the dashboard's aggregate views from order records.
// Everything here is a pure function of its input.
package metrics

import (
	"cmp"
	stderrors "errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// TopN is the length of the client and product rankings.
const TopN = 5

// ErrAggregateUndefined marks a metric that has no value for the current
// record set, e.g. an average over zero orders.
var ErrAggregateUndefined = stderrors.New("aggregate undefined")

// Derive computes every aggregate view from records. The input is not
// modified and records missing a field are excluded only from the views that
// need that field.
func Derive(records []models.OrderRecord) *models.Dashboard {
	summary := models.Summary{
		TotalOrders:     TotalOrders(records),
		CompletedOrders: CompletedOrders(records),
		TotalRevenue:    TotalRevenue(records),
		UniqueClients:   UniqueClients(records),
		RowCount:        len(records),
	}
	summary.PendingOrders = summary.TotalOrders - summary.CompletedOrders

	if aov, err := AverageOrderValue(summary.TotalRevenue, summary.TotalOrders); err == nil {
		summary.AverageOrderValue = decimal.NewNullDecimal(aov)
	}
	if size, err := TopDealSize(records); err == nil {
		summary.TopDealSize = size
	}
	for _, r := range records {
		if len(r.Issues) > 0 {
			summary.RowsWithIssues++
		}
	}

	return &models.Dashboard{
		Summary:        summary,
		StatusCounts:   StatusCounts(records),
		StatusShares:   StatusShares(records),
		ClientsByMonth: ActiveClientsByMonth(records),
		SalesByMonth:   SalesByMonth(records),
		TopClients:     TopClients(records, TopN),
		TopProducts:    TopProducts(records, TopN),
		Orders:         OrderRows(records),
		GeneratedAt:    time.Now().UTC(),
	}
}

// TotalOrders counts distinct order numbers.
func TotalOrders(records []models.OrderRecord) int {
	seen := make(map[int64]struct{})
	for _, r := range records {
		if r.HasOrderNumber {
			seen[r.OrderNumber] = struct{}{}
		}
	}
	return len(seen)
}

// CompletedOrders counts distinct order numbers with at least one Shipped
// line item. An order whose lines carry mixed statuses counts as completed
// as soon as any line shipped.
func CompletedOrders(records []models.OrderRecord) int {
	shipped := make(map[int64]struct{})
	for _, r := range records {
		if r.HasOrderNumber && r.Status == models.StatusShipped {
			shipped[r.OrderNumber] = struct{}{}
		}
	}
	return len(shipped)
}

// TotalRevenue sums every present sales amount.
func TotalRevenue(records []models.OrderRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Sales.Valid {
			total = total.Add(r.Sales.Decimal)
		}
	}
	return total
}

// AverageOrderValue divides revenue by the order count. With no orders the
// result is ErrAggregateUndefined.
func AverageOrderValue(revenue decimal.Decimal, totalOrders int) (decimal.Decimal, error) {
	if totalOrders <= 0 {
		return decimal.Decimal{}, fmt.Errorf("average order value over %d orders: %w", totalOrders, ErrAggregateUndefined)
	}
	return revenue.DivRound(decimal.NewFromInt(int64(totalOrders)), 2), nil
}

// UniqueClients counts distinct non-empty customer names.
func UniqueClients(records []models.OrderRecord) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		if r.CustomerName != "" {
			seen[r.CustomerName] = struct{}{}
		}
	}
	return len(seen)
}

// TopDealSize returns the most frequent deal size. Ties go to the size seen
// first.
func TopDealSize(records []models.OrderRecord) (string, error) {
	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		if r.DealSize == "" {
			continue
		}
		if _, ok := counts[r.DealSize]; !ok {
			order = append(order, r.DealSize)
		}
		counts[r.DealSize]++
	}

	if len(order) == 0 {
		return "", fmt.Errorf("top deal size: %w", ErrAggregateUndefined)
	}

	best := order[0]
	for _, size := range order[1:] {
		if counts[size] > counts[best] {
			best = size
		}
	}
	return best, nil
}

// StatusCounts returns the number of rows per status in first-seen order.
// Rows without a status are left out, so the counts sum to RowCount only
// when every row has one.
func StatusCounts(records []models.OrderRecord) []models.StatusCount {
	index := make(map[string]int)
	var result []models.StatusCount
	for _, r := range records {
		if r.Status == "" {
			continue
		}
		i, ok := index[r.Status]
		if !ok {
			i = len(result)
			index[r.Status] = i
			result = append(result, models.StatusCount{Status: r.Status})
		}
		result[i].Count++
	}
	return result
}

// StatusShares returns each status' share of the rows that carry a status.
// The shares sum to 1 unless no row has a status, in which case the result
// is empty.
func StatusShares(records []models.OrderRecord) []models.StatusShare {
	counts := StatusCounts(records)

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	if total == 0 {
		return nil
	}

	shares := make([]models.StatusShare, len(counts))
	for i, c := range counts {
		shares[i] = models.StatusShare{
			Status: c.Status,
			Share:  float64(c.Count) / float64(total),
		}
	}
	return shares
}

// ActiveClientsByMonth counts distinct customers per month, sorted by month.
func ActiveClientsByMonth(records []models.OrderRecord) []models.MonthlyClients {
	groups := make(map[string]map[string]struct{})
	for _, r := range records {
		month, ok := r.Month()
		if !ok || r.CustomerName == "" {
			continue
		}
		if groups[month] == nil {
			groups[month] = make(map[string]struct{})
		}
		groups[month][r.CustomerName] = struct{}{}
	}

	result := make([]models.MonthlyClients, 0, len(groups))
	for month, clients := range groups {
		result = append(result, models.MonthlyClients{Month: month, ActiveClients: len(clients)})
	}
	slices.SortFunc(result, func(a, b models.MonthlyClients) int {
		return cmp.Compare(a.Month, b.Month)
	})
	return result
}

// SalesByMonth sums sales per month, sorted by month.
func SalesByMonth(records []models.OrderRecord) []models.MonthlySales {
	groups := make(map[string]decimal.Decimal)
	for _, r := range records {
		month, ok := r.Month()
		if !ok || !r.Sales.Valid {
			continue
		}
		groups[month] = groups[month].Add(r.Sales.Decimal)
	}

	result := make([]models.MonthlySales, 0, len(groups))
	for month, sales := range groups {
		result = append(result, models.MonthlySales{Month: month, Sales: sales})
	}
	slices.SortFunc(result, func(a, b models.MonthlySales) int {
		return cmp.Compare(a.Month, b.Month)
	})
	return result
}

// TopClients ranks customers by total sales.
func TopClients(records []models.OrderRecord, n int) []models.RankedSales {
	return topBySales(records, n, func(r models.OrderRecord) string { return r.CustomerName })
}

// TopProducts ranks product codes by total sales.
func TopProducts(records []models.OrderRecord, n int) []models.RankedSales {
	return topBySales(records, n, func(r models.OrderRecord) string { return r.ProductCode })
}

// topBySales sums sales per key and keeps the n largest. Groups are built
// in first-seen order and the sort is stable, so equal totals keep that
// order.
func topBySales(records []models.OrderRecord, n int, key func(models.OrderRecord) string) []models.RankedSales {
	if n <= 0 {
		return nil
	}

	index := make(map[string]int)
	var groups []models.RankedSales
	for _, r := range records {
		k := key(r)
		if k == "" || !r.Sales.Valid {
			continue
		}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, models.RankedSales{Name: k, Sales: decimal.Zero})
		}
		groups[i].Sales = groups[i].Sales.Add(r.Sales.Decimal)
	}

	slices.SortStableFunc(groups, func(a, b models.RankedSales) int {
		return b.Sales.Cmp(a.Sales)
	})

	if len(groups) > n {
		groups = groups[:n]
	}
	return groups
}

// OrderRows flattens records for the data table, including the derived
// Month and Year columns.
func OrderRows(records []models.OrderRecord) []models.OrderRow {
	rows := make([]models.OrderRow, len(records))
	for i, r := range records {
		row := models.OrderRow{
			Row:          r.Row,
			Status:       r.Status,
			CustomerName: r.CustomerName,
			ProductCode:  r.ProductCode,
			DealSize:     r.DealSize,
		}
		if r.HasOrderNumber {
			row.OrderNumber = strconv.FormatInt(r.OrderNumber, 10)
		}
		if r.HasOrderDate {
			row.OrderDate = r.OrderDate.Format(time.DateOnly)
		}
		row.Month, _ = r.Month()
		row.Year, _ = r.Year()
		if r.Sales.Valid {
			row.Sales = r.Sales.Decimal.StringFixed(2)
		}
		rows[i] = row
	}
	return rows
}
