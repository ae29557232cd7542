package renderer

import (
	"os"
	"time"

	"github.com/etnz/timberline"
	"github.com/shopspring/decimal"
)

// DefaultTop is the number of positions listed in a changes report.
const DefaultTop = 6

// Now is the current time used in reports.
// it has to be a function so that tests can override it.
func Now() time.Time {
	if os.Getenv("TIMBERLINE_TESTING_NOW") != "" {
		t, err := time.Parse("2006-01-02 15:04:05", os.Getenv("TIMBERLINE_TESTING_NOW"))
		if err != nil {
			panic(err)
		}
		return t
	}
	return time.Now()
}

// Changes is a struct to represent a reconciliation for rendering.
type Changes struct {
	Manager         string `json:"manager"`
	Quarter         string `json:"quarter,omitempty"`
	PreviousQuarter string `json:"previousQuarter,omitempty"`
	AsOf            string `json:"asOf"`
	Total           string `json:"total,omitempty"`
	PreviousTotal   string `json:"previousTotal,omitempty"`

	Positions []PositionLine `json:"positions"`
	More      int            `json:"more,omitempty"` // positions not listed
	Added     []PositionLine `json:"added"`
	Exited    []PositionLine `json:"exited"`
}

// PositionLine holds the preformatted data of one position in a report.
// Empty strings are unknown values.
type PositionLine struct {
	Symbol          string `json:"symbol"`
	Issuer          string `json:"issuer,omitempty"`
	Percentage      string `json:"percentage,omitempty"`
	Value           string `json:"value,omitempty"`
	PercentageDelta string `json:"percentageDelta,omitempty"`
	ValueDelta      string `json:"valueDelta,omitempty"`
	New             bool   `json:"new,omitempty"`
}

// NewChanges creates a renderable report of r, listing the top positions of
// the current snapshot (all of them if top <= 0).
func NewChanges(r timberline.Reconciliation, manager string, top int) *Changes {
	c := &Changes{
		Manager:         manager,
		Quarter:         r.Current.Filing.Label(),
		PreviousQuarter: r.Previous.Filing.Label(),
		AsOf:            Now().Format(time.DateOnly),
		Total:           formatTotal(r.Current),
		PreviousTotal:   formatTotal(r.Previous),
		Positions:       []PositionLine{},
		Added:           []PositionLine{},
		Exited:          []PositionLine{},
	}

	positions := r.Current.Positions
	if top > 0 && len(positions) > top {
		c.More = len(positions) - top
		positions = positions[:top]
	}
	for _, p := range positions {
		line := newLine(p, r.Current.TotalValueThousands)
		if d, ok := r.Delta(p.Symbol); ok {
			if d.PercentageDelta.Valid {
				line.PercentageDelta = timberline.SignedPercent(d.PercentageDelta.Decimal)
			}
			if d.ValueDelta.Valid {
				line.ValueDelta = SignedValue(d.ValueDelta.Decimal)
			}
		} else {
			line.New = true
		}
		c.Positions = append(c.Positions, line)
	}

	for _, p := range r.Added() {
		c.Added = append(c.Added, newLine(p, r.Current.TotalValueThousands))
	}
	for _, p := range r.Exited {
		c.Exited = append(c.Exited, newLine(p, r.Previous.TotalValueThousands))
	}
	return c
}

func newLine(p timberline.Position, total *float64) PositionLine {
	line := PositionLine{
		Symbol:     p.Symbol,
		Issuer:     p.Issuer,
		Percentage: timberline.FormatPercent(p.Percentage),
	}
	if v, ok := timberline.DerivedValue(p, total); ok {
		line.Value = FormatValue(v)
	}
	return line
}

func formatTotal(s timberline.Snapshot) string {
	if s.TotalValueThousands == nil {
		return ""
	}
	return FormatValue(decimal.NewFromFloat(*s.TotalValueThousands))
}
