package clean

import "testing"

func TestParseNumberLocales(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"10", 10, true},
		{"10.5", 10.5, true},
		{"10,5", 10.5, true},
		{"1.234,56", 1234.56, true},
		{"1,234.56", 1234.56, true},
		{" 42 ", 42, true},
		{"87%", 87, true},
		{"-3", -3, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"sin dato", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("ParseNumber(%q) = %v,%v, want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestFormatNumberRoundTrips(t *testing.T) {
	for _, v := range []float64{0, 10, 10.5, 1234.56, 0.001} {
		got, ok := ParseNumber(FormatNumber(v))
		if !ok || got != v {
			t.Errorf("round trip %v -> %q -> %v,%v", v, FormatNumber(v), got, ok)
		}
	}
}

func TestParseTimeLayouts(t *testing.T) {
	for _, in := range []string{"2026-01-10", "2026-01-10 15:04:05", "2026/01/10", "10/01/2026"} {
		if _, ok := ParseTime(in); !ok {
			t.Errorf("ParseTime(%q) failed", in)
		}
	}
	if _, ok := ParseTime("pronto"); ok {
		t.Error("ParseTime accepted garbage")
	}
}
