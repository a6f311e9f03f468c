package core

import "testing"

func TestAdvance(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		unit     Unit
		interval int
		want     string
	}{
		{"daily single", "2024-03-10", Daily, 1, "2024-03-11"},
		{"daily across month end", "2024-01-30", Daily, 3, "2024-02-02"},
		{"weekly", "2024-03-01", Weekly, 1, "2024-03-08"},
		{"weekly multi interval", "2024-03-01", Weekly, 2, "2024-03-15"},
		{"monthly plain", "2024-01-15", Monthly, 1, "2024-02-15"},
		{"monthly clamp leap year", "2024-01-31", Monthly, 1, "2024-02-29"},
		{"monthly clamp non leap", "2023-01-31", Monthly, 1, "2023-02-28"},
		{"monthly clamp thirty day month", "2024-03-31", Monthly, 1, "2024-04-30"},
		{"monthly carry into next year", "2024-11-15", Monthly, 3, "2025-02-15"},
		{"monthly carry with clamp", "2024-12-31", Monthly, 2, "2025-02-28"},
		{"monthly large interval no compounding", "2024-01-31", Monthly, 25, "2026-02-28"},
		{"yearly plain", "2023-06-10", Yearly, 1, "2024-06-10"},
		{"yearly feb 29 to non leap", "2024-02-29", Yearly, 1, "2025-02-28"},
		{"yearly feb 29 to leap", "2024-02-29", Yearly, 4, "2028-02-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, err := ParseDate(tt.start)
			if err != nil {
				t.Fatalf("parse start: %v", err)
			}
			got := start.Advance(tt.unit, tt.interval)
			if got.String() != tt.want {
				t.Errorf("Advance(%s, %s, %d) = %s, want %s", tt.start, tt.unit, tt.interval, got, tt.want)
			}
			// Advancing must never produce an invalid day-of-month.
			if got.Day() > daysIn(got.Year(), got.Month()) {
				t.Errorf("Advance produced invalid day %d for %d-%d", got.Day(), got.Year(), got.Month())
			}
			if start.String() != tt.start {
				t.Errorf("Advance mutated its receiver: %s", start)
			}
		})
	}
}

func TestAdvanceClampNeverExceedsOriginalDay(t *testing.T) {
	start := NewDate(2024, 1, 31)
	cursor := start
	for i := 0; i < 24; i++ {
		cursor = cursor.Advance(Monthly, 1)
		if cursor.Day() > start.Day() {
			t.Fatalf("day %d exceeds original day after %d steps", cursor.Day(), i+1)
		}
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"2024-01-15", "2024-05-15", 5},
		{"2024-01-15", "2024-01-20", 1},
		{"2024-01-31", "2024-02-01", 2}, // partial end month counts
		{"2023-11-10", "2024-02-10", 4},
	}
	for _, tt := range tests {
		start, _ := ParseDate(tt.start)
		end, _ := ParseDate(tt.end)
		if got := MonthsBetween(start, end); got != tt.want {
			t.Errorf("MonthsBetween(%s, %s) = %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestParseDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Errorf("round trip = %s", d)
	}
	if _, err := ParseDate("not-a-date"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 7, 1)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-07-01"` {
		t.Errorf("marshal = %s", b)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d) {
		t.Errorf("round trip = %s, want %s", back, d)
	}
}
