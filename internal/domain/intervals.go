package domain

import (
	"strings"
	"time"
)

// Billing interval names. Stored as strings because historical rows contain
// loosely-typed values; NextPeriodEnd tolerates anything.
const (
	IntervalDaily     = "daily"
	IntervalWeekly    = "weekly"
	IntervalMonthly   = "monthly"
	IntervalQuarterly = "quarterly"
	IntervalYearly    = "yearly"
)

// NextPeriodEnd computes the end of the billing period that starts at from.
// Unrecognized intervals default to monthly cadence instead of erroring.
func NextPeriodEnd(interval string, count int, from time.Time) time.Time {
	if count < 1 {
		count = 1
	}
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case IntervalDaily, "day", "days":
		return from.AddDate(0, 0, count)
	case IntervalWeekly, "week", "weeks":
		return from.AddDate(0, 0, 7*count)
	case IntervalQuarterly, "quarter":
		return from.AddDate(0, 3*count, 0)
	case IntervalYearly, "year", "annual", "annually":
		return from.AddDate(count, 0, 0)
	default: // monthly and anything unknown
		return from.AddDate(0, count, 0)
	}
}
