package timberline

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		s    Snapshot
	}{
		{
			name: "empty",
			s:    Snapshot{Positions: []Position{}},
		},
		{
			name: "absent fields",
			s: Snapshot{Positions: []Position{
				{Symbol: "AAPL", Percentage: "5.23%"},
			}},
		},
		{
			name: "all fields",
			s: Snapshot{
				TotalValueThousands: Float(2500),
				Filing:              "/13f/000095012325008345-himalaya-capital-management-llc-q2-2025",
				Positions: []Position{
					{Symbol: "AAPL", Issuer: "Apple Inc", Percentage: "60%", ValueThousands: Float(1500)},
					{Symbol: "BAC", Issuer: "", Percentage: "40", ValueThousands: Float(1000)},
				},
			},
		},
		{
			name: "zero values stay present",
			s: Snapshot{
				TotalValueThousands: Float(0),
				Positions: []Position{
					{Symbol: "X", Percentage: "0%", ValueThousands: Float(0)},
				},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := EncodeSnapshot(&buf, tc.s); err != nil {
				t.Fatalf("EncodeSnapshot() error = %v", err)
			}
			got, err := DecodeSnapshot(&buf)
			if err != nil {
				t.Fatalf("DecodeSnapshot() error = %v", err)
			}
			if diff := cmp.Diff(tc.s, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeSnapshot_AbsentFields(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, Snapshot{Positions: []Position{{Symbol: "X", Issuer: "Y", Percentage: "1%"}}}); err != nil {
		t.Fatalf("EncodeSnapshot() error = %v", err)
	}
	got := buf.String()
	for _, absent := range []string{"totalValueThousands", "valueThousands", "filing"} {
		if strings.Contains(got, absent) {
			t.Errorf("EncodeSnapshot() = %s, want no %q member", got, absent)
		}
	}

	buf.Reset()
	if err := EncodeSnapshot(&buf, Snapshot{}); err != nil {
		t.Fatalf("EncodeSnapshot() error = %v", err)
	}
	if got, want := buf.String(), "{\n  \"positions\": []\n}\n"; got != want {
		t.Errorf("EncodeSnapshot(zero) = %q, want %q", got, want)
	}
}

func TestParseSnapshot_LegacyArray(t *testing.T) {
	bare, err := ParseSnapshot([]byte(`[{"symbol":"X","issuer":"Y","percentage":"1%"}]`))
	if err != nil {
		t.Fatalf("ParseSnapshot(array) error = %v", err)
	}
	wrapped, err := ParseSnapshot([]byte(`{"positions":[{"symbol":"X","issuer":"Y","percentage":"1%"}]}`))
	if err != nil {
		t.Fatalf("ParseSnapshot(object) error = %v", err)
	}
	if diff := cmp.Diff(wrapped, bare); diff != "" {
		t.Errorf("bare array and wrapped object differ (-wrapped +bare):\n%s", diff)
	}
	if bare.TotalValueThousands != nil {
		t.Errorf("TotalValueThousands = %v, want absent", *bare.TotalValueThousands)
	}
}

func TestParseSnapshot_DataShape(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"blank document", "  \n"},
		{"null", "null"},
		{"string", `"positions"`},
		{"number", `42`},
		{"missing positions", `{"totalValueThousands": 12}`},
		{"null positions", `{"positions": null}`},
		{"positions is an object", `{"positions": {"symbol": "X"}}`},
		{"array of strings", `["AAPL", "MSFT"]`},
		{"truncated", `{"positions": [`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSnapshot([]byte(tc.doc))
			if !errors.Is(err, ErrDataShape) {
				t.Errorf("ParseSnapshot(%q) error = %v, want ErrDataShape", tc.doc, err)
			}
		})
	}
}

func TestParseSnapshot_EmptyPositions(t *testing.T) {
	for _, doc := range []string{`[]`, `{"positions": []}`} {
		s, err := ParseSnapshot([]byte(doc))
		if err != nil {
			t.Fatalf("ParseSnapshot(%s) error = %v", doc, err)
		}
		if s.Positions == nil || len(s.Positions) != 0 {
			t.Errorf("ParseSnapshot(%s).Positions = %#v, want empty non nil", doc, s.Positions)
		}
	}
}
