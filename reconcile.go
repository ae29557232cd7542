package timberline

import (
	"github.com/shopspring/decimal"
)

// Reconciliation compares the latest snapshot to the previous one.
//
// It is a stateless calculator: nothing in it is persisted, it is recomputed
// each time the snapshots are read.
type Reconciliation struct {
	Current  Snapshot
	Previous Snapshot

	// PerPosition holds a Delta for every symbol present in both snapshots.
	// A symbol of Current missing here was added this quarter.
	PerPosition map[string]Delta

	// Exited lists the positions of Previous whose symbol is not in Current,
	// in the order of Previous.
	Exited []Position
}

// Delta is the change of one position between two snapshots.
//
// Every numeric field is invalid (Valid == false) when it cannot be computed
// from the data at hand.
type Delta struct {
	Symbol   string
	Current  Position
	Previous Position

	// PercentageDelta is the change in percentage points.
	PercentageDelta decimal.NullDecimal

	// CurrentValue and PreviousValue are the values in thousands of dollars,
	// disclosed or derived, see DerivedValue.
	CurrentValue  decimal.NullDecimal
	PreviousValue decimal.NullDecimal
	ValueDelta    decimal.NullDecimal
}

// Reconcile computes the per position deltas and the exited positions of
// current compared to previous.
//
// Positions are matched by exact symbol only.
func Reconcile(current, previous Snapshot) Reconciliation {
	prev := make(map[string]Position, len(previous.Positions))
	for _, p := range previous.Positions {
		prev[p.Symbol] = p
	}
	curr := make(map[string]struct{}, len(current.Positions))

	r := Reconciliation{
		Current:     current,
		Previous:    previous,
		PerPosition: make(map[string]Delta),
		Exited:      []Position{},
	}
	for _, c := range current.Positions {
		curr[c.Symbol] = struct{}{}
		p, ok := prev[c.Symbol]
		if !ok {
			continue
		}
		r.PerPosition[c.Symbol] = newDelta(c, current.TotalValueThousands, p, previous.TotalValueThousands)
	}
	for _, p := range previous.Positions {
		if _, ok := curr[p.Symbol]; ok {
			continue
		}
		curr[p.Symbol] = struct{}{} // report a repeated symbol once
		r.Exited = append(r.Exited, p)
	}
	return r
}

func newDelta(c Position, ctotal *float64, p Position, ptotal *float64) Delta {
	d := Delta{
		Symbol:   c.Symbol,
		Current:  c,
		Previous: p,
	}

	cpct, cok := ParsePercent(c.Percentage)
	ppct, pok := ParsePercent(p.Percentage)
	if cok && pok {
		d.PercentageDelta = decimal.NewNullDecimal(cpct.Sub(ppct))
	}

	cval, cok := DerivedValue(c, ctotal)
	pval, pok := DerivedValue(p, ptotal)
	if cok {
		d.CurrentValue = decimal.NewNullDecimal(cval)
	}
	if pok {
		d.PreviousValue = decimal.NewNullDecimal(pval)
	}
	if cok && pok {
		d.ValueDelta = decimal.NewNullDecimal(cval.Sub(pval))
	}
	return d
}

// Delta returns the delta for a symbol. ok is false if the symbol is not in
// both snapshots.
func (r Reconciliation) Delta(symbol string) (d Delta, ok bool) {
	d, ok = r.PerPosition[symbol]
	return
}

// Added returns the positions of the current snapshot without a previous
// entry, in the current order.
func (r Reconciliation) Added() []Position {
	added := []Position{}
	for _, p := range r.Current.Positions {
		if _, ok := r.PerPosition[p.Symbol]; !ok {
			added = append(added, p)
		}
	}
	return added
}

// DerivedValue returns the value of p in thousands of dollars.
//
// It is the disclosed value if present, otherwise it is derived from the
// snapshot total and the position percentage: total * percentage / 100.
// ok is false when neither is available.
func DerivedValue(p Position, totalValueThousands *float64) (v decimal.Decimal, ok bool) {
	if v, ok := p.Value(); ok {
		return v, true
	}
	if !finite(totalValueThousands) {
		return decimal.Zero, false
	}
	pct, ok := ParsePercent(p.Percentage)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*totalValueThousands).Mul(pct).Div(decimal.NewFromInt(100)), true
}
