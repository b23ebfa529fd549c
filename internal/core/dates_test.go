package core

import "testing"

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name string
		freq Frequency
		date Date
		want Date
	}{
		{
			name: "daily crosses month boundary",
			freq: Daily,
			date: NewDate(2025, 1, 31),
			want: NewDate(2025, 2, 1),
		},
		{
			name: "weekly adds seven days",
			freq: Weekly,
			date: NewDate(2025, 3, 28),
			want: NewDate(2025, 4, 4),
		},
		{
			name: "monthly keeps day of month",
			freq: Monthly,
			date: NewDate(2025, 4, 15),
			want: NewDate(2025, 5, 15),
		},
		{
			name: "monthly wraps december to january",
			freq: Monthly,
			date: NewDate(2025, 12, 15),
			want: NewDate(2026, 1, 15),
		},
		{
			name: "monthly clamps jan 31 to feb 28",
			freq: Monthly,
			date: NewDate(2025, 1, 31),
			want: NewDate(2025, 2, 28),
		},
		{
			name: "monthly clamps to feb 29 on leap years",
			freq: Monthly,
			date: NewDate(2024, 1, 31),
			want: NewDate(2024, 2, 29),
		},
		{
			name: "monthly clamps 31st to 30-day month",
			freq: Monthly,
			date: NewDate(2025, 3, 31),
			want: NewDate(2025, 4, 30),
		},
		{
			name: "yearly keeps month and day",
			freq: Yearly,
			date: NewDate(2025, 6, 10),
			want: NewDate(2026, 6, 10),
		},
		{
			name: "yearly clamps feb 29 to feb 28",
			freq: Yearly,
			date: NewDate(2024, 2, 29),
			want: NewDate(2025, 2, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.freq, tt.date)
			if err != nil {
				t.Fatalf("NextOccurrence() error = %v", err)
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("NextOccurrence() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextOccurrenceInvalid(t *testing.T) {
	if _, err := NextOccurrence(Frequency("fortnightly"), NewDate(2025, 1, 1)); err == nil {
		t.Error("unknown frequency should error")
	}
	if _, err := NextOccurrence(Daily, Date{}); err == nil {
		t.Error("zero date should error")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-31")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d.Year() != 2025 || d.Month() != 1 || d.Day() != 31 {
		t.Errorf("ParseDate() = %s", d)
	}
	if d.MonthKey() != "2025-01" {
		t.Errorf("MonthKey() = %q, want %q", d.MonthKey(), "2025-01")
	}

	for _, bad := range []string{"", "31/01/2025", "2025-13-01", "2025-02-30"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) expected error", bad)
		}
	}
}

func TestParseMonthKey(t *testing.T) {
	d, err := ParseMonthKey("2025-07")
	if err != nil {
		t.Fatalf("ParseMonthKey() error = %v", err)
	}
	if d.Year() != 2025 || d.Month() != 7 || d.Day() != 1 {
		t.Errorf("ParseMonthKey() = %s", d)
	}
	if _, err := ParseMonthKey("2025-7"); err == nil {
		t.Error("ParseMonthKey without zero padding should error")
	}
}
