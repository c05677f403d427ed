package utils

import "testing"

func TestParseDecimal_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"300", "300"},
		{"20,000", "20000"},
		{"  1,234.50  ", "1234.5"},
		{"-150", "-150"},
	}
	for _, tc := range cases {
		d, err := ParseDecimal(tc.in)
		if err != nil {
			t.Fatalf("ParseDecimal(%q) error: %v", tc.in, err)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseDecimal(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseDecimal_RejectsEmptyAndGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "abc"} {
		if _, err := ParseDecimal(in); err == nil {
			t.Fatalf("ParseDecimal(%q) expected an error", in)
		}
	}
}

func TestParseDate_Layouts(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"2025-08-01", "2025-08-01"},
		{"2025-08-01 14:30:00", "2025-08-01"},
		{"01/08/2025", "2025-08-01"},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in, "UTC")
		if err != nil {
			t.Fatalf("ParseDate(%q) error: %v", tc.in, err)
		}
		if got := d.Format("2006-01-02"); got != tc.expected {
			t.Fatalf("ParseDate(%q) expected %s, got %s", tc.in, tc.expected, got)
		}
		if h, m, s := d.Clock(); h != 0 || m != 0 || s != 0 {
			t.Fatalf("ParseDate(%q) must zero the clock, got %02d:%02d:%02d", tc.in, h, m, s)
		}
	}
}

func TestParseDate_RejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "not-a-date", "2025-13-45"} {
		if _, err := ParseDate(in, "UTC"); err == nil {
			t.Fatalf("ParseDate(%q) expected an error", in)
		}
	}
}
