package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source table column headers.
const (
	ColumnOrderNumber  = "ORDERNUMBER"
	ColumnOrderDate    = "ORDERDATE"
	ColumnStatus       = "STATUS"
	ColumnSales        = "SALES"
	ColumnCustomerName = "CUSTOMERNAME"
	ColumnProductCode  = "PRODUCTCODE"
	ColumnDealSize     = "DEALSIZE"
)

// RequiredColumns lists the headers every source sheet must carry.
var RequiredColumns = []string{
	ColumnOrderNumber,
	ColumnOrderDate,
	ColumnStatus,
	ColumnSales,
	ColumnCustomerName,
	ColumnProductCode,
	ColumnDealSize,
}

const StatusShipped = "Shipped"

// OrderRecord is one line item of the sales sheet. Fields that failed to
// parse are marked absent and the failure is kept in Issues.
type OrderRecord struct {
	Row            int
	OrderNumber    int64
	HasOrderNumber bool
	OrderDate      time.Time
	HasOrderDate   bool
	Status         string
	Sales          decimal.NullDecimal
	CustomerName   string
	ProductCode    string
	DealSize       string
	Issues         []RowParseError
}

// Month returns the year-month bucket of the order date.
func (r OrderRecord) Month() (string, bool) {
	if !r.HasOrderDate {
		return "", false
	}
	return r.OrderDate.Format("2006-01"), true
}

// Year returns the four digit year of the order date.
func (r OrderRecord) Year() (string, bool) {
	if !r.HasOrderDate {
		return "", false
	}
	return r.OrderDate.Format("2006"), true
}

// RowParseError describes a single cell that could not be parsed. The row it
// belongs to is kept with the field marked absent.
type RowParseError struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e RowParseError) Error() string {
	return fmt.Sprintf("row %d: column %s: cannot parse %q: %s", e.Row, e.Column, e.Value, e.Reason)
}
