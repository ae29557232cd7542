package timberline

import (
	"math"

	"github.com/shopspring/decimal"
)

// Position is one holding disclosed in a filing.
type Position struct {
	Symbol string `json:"symbol"`
	Issuer string `json:"issuer"`
	// Percentage is the percent of portfolio as disclosed, e.g. "5.23%" or "5.23".
	// It is kept verbatim, use ParsePercent to read it.
	Percentage string `json:"percentage"`
	// ValueThousands is the disclosed dollar value in thousands, nil when the
	// source did not provide it.
	ValueThousands *float64 `json:"valueThousands,omitempty"`
}

// Value returns the disclosed value in thousands of dollars, if any.
// A value that is not finite is ignored.
func (p Position) Value() (decimal.Decimal, bool) {
	if !finite(p.ValueThousands) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*p.ValueThousands), true
}

// Snapshot represents the holdings of one filing at a single point in time.
//
// A Snapshot is built once and never mutated afterwards: stores replace whole
// snapshots.
type Snapshot struct {
	// TotalValueThousands is the sum of the present ValueThousands of
	// Positions, nil if no position carries a value.
	TotalValueThousands *float64 `json:"totalValueThousands,omitempty"`
	// Filing identifies the filing this snapshot was extracted from. It is
	// empty for documents written before it was recorded.
	Filing    FilingID   `json:"filing,omitempty"`
	Positions []Position `json:"positions"`
}

// NewSnapshot builds a Snapshot out of extracted positions.
//
// Symbols are made unique: when a symbol repeats, the last row wins but keeps
// the rank of the first occurrence. The total value is recomputed from the
// remaining positions.
func NewSnapshot(positions []Position) Snapshot {
	rank := make(map[string]int, len(positions))
	unique := make([]Position, 0, len(positions))
	for _, p := range positions {
		if i, exists := rank[p.Symbol]; exists {
			unique[i] = p
			continue
		}
		rank[p.Symbol] = len(unique)
		unique = append(unique, p)
	}
	return Snapshot{
		TotalValueThousands: totalValue(unique),
		Positions:           unique,
	}
}

// totalValue sums the present values, it returns nil if there is none or if
// the sum overflows a float64.
func totalValue(positions []Position) *float64 {
	total, found := decimal.Zero, false
	for _, p := range positions {
		if v, ok := p.Value(); ok {
			total = total.Add(v)
			found = true
		}
	}
	if !found {
		return nil
	}
	f := total.InexactFloat64()
	if !finite(&f) {
		return nil
	}
	return &f
}

// Position returns the position for a given symbol.
func (s Snapshot) Position(symbol string) (Position, bool) {
	for _, p := range s.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}

// Len returns the number of positions.
func (s Snapshot) Len() int { return len(s.Positions) }

// Total returns the total disclosed value in thousands of dollars, if any.
func (s Snapshot) Total() (decimal.Decimal, bool) {
	if !finite(s.TotalValueThousands) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*s.TotalValueThousands), true
}

// finite reports whether f is present and neither infinite nor NaN.
func finite(f *float64) bool {
	return f != nil && !math.IsInf(*f, 0) && !math.IsNaN(*f)
}

// Float returns a pointer to a copy of f. It is handy to build optional values.
func Float(f float64) *float64 { return &f }
