package domain

import (
	"testing"
	"time"
)

func TestNextPeriodEnd(t *testing.T) {
	from := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		interval string
		count    int
		want     time.Time
	}{
		{IntervalMonthly, 1, time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)},
		{IntervalMonthly, 3, time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)},
		{IntervalDaily, 10, time.Date(2026, 3, 25, 12, 0, 0, 0, time.UTC)},
		{IntervalWeekly, 2, time.Date(2026, 3, 29, 12, 0, 0, 0, time.UTC)},
		{IntervalQuarterly, 1, time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)},
		{IntervalYearly, 1, time.Date(2027, 3, 15, 12, 0, 0, 0, time.UTC)},
		{"WEEKLY", 1, time.Date(2026, 3, 22, 12, 0, 0, 0, time.UTC)},
		// unknown interval falls back to monthly
		{"fortnightly", 1, time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)},
		// zero count is treated as one
		{IntervalMonthly, 0, time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := NextPeriodEnd(tc.interval, tc.count, from)
		if !got.Equal(tc.want) {
			t.Errorf("NextPeriodEnd(%q, %d) = %s, want %s", tc.interval, tc.count, got, tc.want)
		}
	}
}

func TestNextPeriodEndMonthOverflow(t *testing.T) {
	// Jan 31 + 1 month normalizes per time.AddDate; the result must still be
	// strictly after the anchor.
	from := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	got := NextPeriodEnd(IntervalMonthly, 1, from)
	if !got.After(from) {
		t.Errorf("period end %s not after anchor %s", got, from)
	}
}
