package templates

import (
	"html/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Money formats an amount as whole dollars with thousands separators.
func Money(d decimal.Decimal) string {
	f, _ := d.Round(0).Float64()
	return printer.Sprintf("$%.0f", f)
}

// MoneyCents formats an amount with two decimals.
func MoneyCents(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return printer.Sprintf("$%.2f", f)
}

// NoData is shown wherever a metric is undefined for the current data.
const NoData = "no data"

// OptionalMoney renders an undefined amount as NoData instead of $0.00.
func OptionalMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return NoData
	}
	return MoneyCents(d.Decimal)
}

func orNoData(s string) string {
	if s == "" {
		return NoData
	}
	return s
}

func percent(f float64) string {
	return printer.Sprintf("%.1f%%", f*100)
}

var funcs = template.FuncMap{
	"money":         Money,
	"moneyCents":    MoneyCents,
	"optionalMoney": OptionalMoney,
	"orNoData":      orNoData,
	"percent":       percent,
	"number":        func(n int) string { return printer.Sprintf("%d", n) },
}
