package renderer

import (
	"strings"
	"testing"

	"github.com/etnz/timberline"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

var f = timberline.Float

func testReconciliation() timberline.Reconciliation {
	current := timberline.Snapshot{
		Filing:              "/13f/000-himalaya-capital-management-llc-q2-2025",
		TotalValueThousands: f(2_000_000),
		Positions: []timberline.Position{
			{Symbol: "AAPL", Issuer: "Apple Inc", Percentage: "50.5", ValueThousands: f(1_010_000)},
			{Symbol: "MSFT", Issuer: "Microsoft Corp", Percentage: "30%"},
			{Symbol: "NEW", Issuer: "New Co", Percentage: "19.5", ValueThousands: f(390_000)},
		},
	}
	previous := timberline.Snapshot{
		Filing:              "/13f/000-himalaya-capital-management-llc-q1-2025",
		TotalValueThousands: f(1_500_000),
		Positions: []timberline.Position{
			{Symbol: "AAPL", Issuer: "Apple Inc", Percentage: "45", ValueThousands: f(675_000)},
			{Symbol: "MSFT", Issuer: "Microsoft Corp", Percentage: "40"},
			{Symbol: "OLD", Issuer: "Old Co", Percentage: "15", ValueThousands: f(225_000)},
		},
	}
	return timberline.Reconcile(current, previous)
}

func TestNewChanges(t *testing.T) {
	t.Setenv("TIMBERLINE_TESTING_NOW", "2025-08-14 10:00:00")

	got := NewChanges(testReconciliation(), "Himalaya Capital", 2)
	want := &Changes{
		Manager:         "Himalaya Capital",
		Quarter:         "Q2 2025",
		PreviousQuarter: "Q1 2025",
		AsOf:            "2025-08-14",
		Total:           "$2.00 B",
		PreviousTotal:   "$1.50 B",
		Positions: []PositionLine{
			{Symbol: "AAPL", Issuer: "Apple Inc", Percentage: "50.5%", Value: "$1.01 B", PercentageDelta: "+5.50%", ValueDelta: "+$335.00 M"},
			{Symbol: "MSFT", Issuer: "Microsoft Corp", Percentage: "30%", Value: "$600.00 M", PercentageDelta: "-10.00%", ValueDelta: "-"},
		},
		More: 1,
		Added: []PositionLine{
			{Symbol: "NEW", Issuer: "New Co", Percentage: "19.5%", Value: "$390.00 M"},
		},
		Exited: []PositionLine{
			{Symbol: "OLD", Issuer: "Old Co", Percentage: "15%", Value: "$225.00 M"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewChanges() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewChanges_All(t *testing.T) {
	got := NewChanges(testReconciliation(), "Himalaya Capital", 0)
	if len(got.Positions) != 3 || got.More != 0 {
		t.Fatalf("NewChanges(top=0) lists %d positions, %d more, want 3, 0", len(got.Positions), got.More)
	}
	if !got.Positions[2].New {
		t.Errorf("NEW position is not flagged as new: %+v", got.Positions[2])
	}
}

func TestNewChanges_Empty(t *testing.T) {
	got := NewChanges(timberline.Reconcile(timberline.Snapshot{}, timberline.Snapshot{}), "X", DefaultTop)
	if got.Quarter != "" || got.Total != "" || len(got.Positions) != 0 || len(got.Added) != 0 || len(got.Exited) != 0 {
		t.Errorf("NewChanges(empty) = %+v", got)
	}
}

func TestRenderChanges(t *testing.T) {
	t.Setenv("TIMBERLINE_TESTING_NOW", "2025-08-14 10:00:00")
	out := RenderChanges(NewChanges(testReconciliation(), "Himalaya Capital", DefaultTop), ChangesRenderOptions{})

	for _, want := range []string{
		"# Himalaya Capital 13F positions, Q2 2025\n",
		"*As of 2025-08-14, compared to Q1 2025*\n",
		"Total disclosed value: **$2.00 B** (last quarter: $1.50 B)\n",
		"| AAPL | Apple Inc | 50.5% | $1.01 B | +5.50% | +$335.00 M |\n",
		"| MSFT | Microsoft Corp | 30% | $600.00 M | -10.00% | - |\n",
		"| NEW *(new)* | New Co | 19.5% | $390.00 M |  |  |\n",
		"- **NEW** New Co: 19.5% ($390.00 M)\n",
		"- **OLD** was 15% ($225.00 M value), exited this quarter\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderChanges() does not contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "error") {
		t.Errorf("RenderChanges() reports an error:\n%s", out)
	}
	if strings.Contains(out, "more positions") {
		t.Errorf("RenderChanges() reports more positions, but all are listed:\n%s", out)
	}
}

func TestRenderChanges_Skip(t *testing.T) {
	out := RenderChanges(NewChanges(testReconciliation(), "X", DefaultTop), ChangesRenderOptions{SkipAdded: true, SkipExited: true})
	if strings.Contains(out, "## Added") || strings.Contains(out, "## Exited") {
		t.Errorf("RenderChanges(skip) still renders skipped sections:\n%s", out)
	}
	if !strings.Contains(out, "## Top positions") {
		t.Errorf("RenderChanges(skip) misses the positions:\n%s", out)
	}
}

func TestRenderChanges_NoChange(t *testing.T) {
	s := timberline.Snapshot{Positions: []timberline.Position{{Symbol: "AAPL", Percentage: "100"}}}
	out := RenderChanges(NewChanges(timberline.Reconcile(s, s), "X", DefaultTop), ChangesRenderOptions{})
	for _, want := range []string{
		"No new position compared to last quarter.",
		"No positions were fully exited compared to last quarter.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderChanges() does not contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Total disclosed value") {
		t.Errorf("RenderChanges() renders an unknown total:\n%s", out)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		thousands string
		want      string
	}{
		{"1230000", "$1.23 B"},
		{"1000000", "$1.00 B"},
		{"4560", "$4.56 M"},
		{"1000", "$1.00 M"},
		{"12.345", "$12,345"},
		{"999", "$999,000"},
		{"0.5", "$500"},
		{"0", "$0"},
		{"-4560", "-$4.56 M"},
	}
	for _, test := range tests {
		t.Run(test.thousands, func(t *testing.T) {
			if got := FormatValue(decimal.RequireFromString(test.thousands)); got != test.want {
				t.Errorf("FormatValue(%s) = %q, want %q", test.thousands, got, test.want)
			}
		})
	}
}

func TestSignedValue(t *testing.T) {
	tests := map[string]string{
		"335000": "+$335.00 M",
		"-12":    "-$12,000",
		"0":      "-",
	}
	for in, want := range tests {
		if got := SignedValue(decimal.RequireFromString(in)); got != want {
			t.Errorf("SignedValue(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestToHTML(t *testing.T) {
	out := RenderChanges(NewChanges(testReconciliation(), "Himalaya Capital", DefaultTop), ChangesRenderOptions{})
	got, err := ToHTML(out)
	if err != nil {
		t.Fatalf("ToHTML() error = %v", err)
	}
	for _, want := range []string{"<h1>Himalaya Capital 13F positions, Q2 2025</h1>", "<table>", "AAPL", "<strong>OLD</strong>"} {
		if !strings.Contains(got, want) {
			t.Errorf("ToHTML() does not contain %q, got:\n%s", want, got)
		}
	}

	got, err = ToHTML("# title\n\n<script>alert(1)</script>\n")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("ToHTML() kept raw html: %s", got)
	}
}

func TestPage(t *testing.T) {
	got := Page("A & B", "<p>x</p>\n")
	if !strings.Contains(got, "<title>A &amp; B</title>") || !strings.Contains(got, "<p>x</p>") {
		t.Errorf("Page() = %s", got)
	}
}
