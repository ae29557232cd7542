package timberline

import "testing"

func TestFilingID_Label(t *testing.T) {
	tests := []struct {
		id          FilingID
		wantQuarter string
		wantOK      bool
		wantLabel   string
	}{
		{"/13f/000095012325008345-himalaya-capital-management-llc-q2-2025", "Q2 2025", true, "Q2 2025"},
		{"/13f/000095012325008345-himalaya-capital-management-llc-Q4-2024/", "Q4 2024", true, "Q4 2024"},
		{"/13f/000095012325008345-himalaya-capital-management-llc", "", false, "000095012325008345-himalaya-capital-management-llc"},
		{"/13f/abc-q5-2025", "", false, "abc-q5-2025"},
		{"", "", false, ""},
	}
	for _, tc := range tests {
		q, ok := tc.id.Quarter()
		if q != tc.wantQuarter || ok != tc.wantOK {
			t.Errorf("FilingID(%q).Quarter() = %q, %v, want %q, %v", tc.id, q, ok, tc.wantQuarter, tc.wantOK)
		}
		if got := tc.id.Label(); got != tc.wantLabel {
			t.Errorf("FilingID(%q).Label() = %q, want %q", tc.id, got, tc.wantLabel)
		}
	}
}
