package renderer

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)

	// whole dollars, "$12,345"
	dollars = money.NewFormatter(0, ".", ",", "$", "$1")
)

// FormatValue formats an amount in thousands of dollars, as "$1.23 B",
// "$4.56 M" or "$12,345".
func FormatValue(thousands decimal.Decimal) string {
	if thousands.IsNegative() {
		return "-" + FormatValue(thousands.Neg())
	}
	usd := thousands.Mul(thousand)
	switch {
	case usd.GreaterThanOrEqual(billion):
		return "$" + usd.Div(billion).StringFixed(2) + " B"
	case usd.GreaterThanOrEqual(million):
		return "$" + usd.Div(million).StringFixed(2) + " M"
	}
	return dollars.Format(usd.Round(0).IntPart())
}

// SignedValue formats a change of value in thousands of dollars with its
// sign. 0 is represented as "-".
func SignedValue(thousands decimal.Decimal) string {
	switch {
	case thousands.IsZero():
		return "-"
	case thousands.IsPositive():
		return "+" + FormatValue(thousands)
	}
	return FormatValue(thousands)
}
