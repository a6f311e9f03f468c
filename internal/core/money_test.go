package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{100, "1.00"},
		{1234, "12.34"},
		{5, "0.05"},
		{-250, "-2.50"},
		{0, "0.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyUnmarshalJSON(t *testing.T) {
	var m Money
	if err := m.UnmarshalJSON([]byte(`"12.34"`)); err != nil || m.Cents != 1234 {
		t.Fatalf(`unmarshal "12.34" = %d, err=%v`, m.Cents, err)
	}
	if err := m.UnmarshalJSON([]byte(`100.5`)); err != nil || m.Cents != 10050 {
		t.Fatalf("unmarshal 100.5 = %d, err=%v", m.Cents, err)
	}
	if err := m.UnmarshalJSON([]byte(`"-3"`)); err == nil {
		t.Fatal("expected error for negative amount")
	}
}
