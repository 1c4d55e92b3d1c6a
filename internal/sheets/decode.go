package sheets

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
)

const batchSize = 500

// Layouts accepted for ORDERDATE cells, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006/01/02",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Spreadsheet serial dates count days from this epoch.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

type columnIndex map[string]int

// decodeTable turns a values matrix into order records. The first row is the
// header; fully blank rows are skipped. Record order follows the sheet.
func decodeTable(ctx context.Context, values [][]any, workers int) ([]models.OrderRecord, error) {
	if len(values) == 0 {
		return nil, errors.DataSource("worksheet is empty: no header row")
	}

	cols, err := indexHeader(values[0])
	if err != nil {
		return nil, err
	}

	body := values[1:]
	decoded := make([]models.OrderRecord, len(body))
	blank := make([]bool, len(body))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(body); start += batchSize {
		end := min(start+batchSize, len(body))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if isBlankRow(body[i]) {
					blank[i] = true
					continue
				}
				// header is sheet row 1
				decoded[i] = decodeRow(i+2, body[i], cols)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.DataSourceWrap(err, "decoding worksheet rows interrupted")
	}

	records := make([]models.OrderRecord, 0, len(body))
	for i := range decoded {
		if !blank[i] {
			records = append(records, decoded[i])
		}
	}
	return records, nil
}

// indexHeader maps required column names to their positions. Header cells
// are matched after trimming; the first occurrence of a name wins.
func indexHeader(header []any) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, cell := range header {
		name := strings.TrimSpace(cellString(cell))
		if name == "" {
			continue
		}
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}

	var missing []string
	for _, required := range models.RequiredColumns {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, errors.DataSource(fmt.Sprintf("worksheet is missing required columns: %s", strings.Join(missing, ", ")))
	}

	return cols, nil
}

func decodeRow(rowNum int, row []any, cols columnIndex) models.OrderRecord {
	rec := models.OrderRecord{Row: rowNum}

	get := func(column string) any {
		i := cols[column]
		if i < len(row) {
			return row[i]
		}
		return nil
	}
	fail := func(column string, v any, reason string) {
		rec.Issues = append(rec.Issues, models.RowParseError{
			Row:    rowNum,
			Column: column,
			Value:  cellString(v),
			Reason: reason,
		})
	}

	if v := get(models.ColumnOrderNumber); !isEmpty(v) {
		if n, err := parseOrderNumber(v); err != nil {
			fail(models.ColumnOrderNumber, v, err.Error())
		} else {
			rec.OrderNumber, rec.HasOrderNumber = n, true
		}
	}

	if v := get(models.ColumnOrderDate); !isEmpty(v) {
		if d, err := parseDate(v); err != nil {
			fail(models.ColumnOrderDate, v, err.Error())
		} else {
			rec.OrderDate, rec.HasOrderDate = d, true
		}
	}

	if v := get(models.ColumnSales); !isEmpty(v) {
		if amount, err := parseAmount(v); err != nil {
			fail(models.ColumnSales, v, err.Error())
		} else {
			rec.Sales = decimal.NewNullDecimal(amount)
		}
	}

	rec.Status = strings.TrimSpace(cellString(get(models.ColumnStatus)))
	rec.CustomerName = strings.TrimSpace(cellString(get(models.ColumnCustomerName)))
	rec.ProductCode = strings.TrimSpace(cellString(get(models.ColumnProductCode)))
	rec.DealSize = strings.TrimSpace(cellString(get(models.ColumnDealSize)))

	return rec
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func isEmpty(v any) bool {
	return strings.TrimSpace(cellString(v)) == ""
}

func isBlankRow(row []any) bool {
	for _, v := range row {
		if !isEmpty(v) {
			return false
		}
	}
	return true
}

func parseOrderNumber(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(t), nil
	default:
		s := strings.TrimSpace(cellString(v))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(f), nil
	}
}

// parseAmount accepts plain numbers and currency strings such as "$1,234.50".
func parseAmount(v any) (decimal.Decimal, error) {
	if f, ok := v.(float64); ok {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return decimal.Decimal{}, fmt.Errorf("not a finite number")
		}
		return decimal.NewFromFloat(f), nil
	}

	s := strings.TrimSpace(cellString(v))
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not a decimal amount")
	}
	return d, nil
}

// parseDate accepts the layouts in dateLayouts and spreadsheet serial
// numbers. Dates are returned in UTC.
func parseDate(v any) (time.Time, error) {
	if f, ok := v.(float64); ok {
		return serialDate(f)
	}

	s := strings.TrimSpace(cellString(v))
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return serialDate(f)
	}

	return time.Time{}, fmt.Errorf("unrecognised date format")
}

func serialDate(f float64) (time.Time, error) {
	// 2958465 is 9999-12-31
	if f < 1 || f > 2958465 || math.IsNaN(f) {
		return time.Time{}, fmt.Errorf("serial date out of range")
	}
	days := math.Floor(f)
	frac := f - days
	t := serialEpoch.AddDate(0, 0, int(days)).Add(time.Duration(frac * float64(24*time.Hour)))
	return t, nil
}
