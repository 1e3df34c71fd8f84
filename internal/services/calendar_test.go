package services

import (
	"testing"
	"time"
)

func TestAddMonths(t *testing.T) {
	cases := []struct {
		name   string
		start  string
		months int
		want   string
	}{
		{"plain", "2026-01-10", 1, "2026-02-10"},
		{"jan31_clamps_to_feb28", "2026-01-31", 1, "2026-02-28"},
		{"jan31_leap_year", "2024-01-31", 1, "2024-02-29"},
		{"mar31_to_apr30", "2026-03-31", 1, "2026-04-30"},
		{"year_rollover", "2025-11-15", 2, "2026-01-15"},
		{"many_months", "2026-01-31", 3, "2026-04-30"},
		{"zero", "2026-05-05", 0, "2026-05-05"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, err := time.Parse("2006-01-02", tc.start)
			if err != nil {
				t.Fatal(err)
			}
			got := addMonths(start, tc.months).Format("2006-01-02")
			if got != tc.want {
				t.Errorf("addMonths(%s, %d) = %s, want %s", tc.start, tc.months, got, tc.want)
			}
		})
	}
}
