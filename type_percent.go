package timberline

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePercent reads a textual percentage as disclosed by the aggregator,
// e.g. "5.23%", " 5.23 " or "5.23".
//
// A trailing '%' and surrounding whitespace are ignored. ok is false for an
// empty or unparsable value.
func ParsePercent(s string) (p decimal.Decimal, ok bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	p, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return p, true
}

// FormatPercent returns the disclosed percentage ready for display: trimmed,
// and with a '%' suffix when the source omitted it.
func FormatPercent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return s
	}
	return s + "%"
}

// SignedPercent formats a percentage point delta with an explicit sign.
// A zero delta is represented as "-".
func SignedPercent(d decimal.Decimal) string {
	res := d.StringFixed(2)
	if res == "0.00" || res == "-0.00" {
		return "-"
	}
	if d.IsPositive() {
		res = "+" + res
	}
	return res + "%"
}
