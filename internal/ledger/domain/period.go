package domain

import (
	"fmt"
	"time"
)

// AllTimePeriodKey is the single bucket for features that never reset.
const AllTimePeriodKey = "all"

// DailyPeriodKey buckets by UTC calendar day.
func DailyPeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MonthlyPeriodKey buckets by UTC calendar month.
func MonthlyPeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// CyclePeriodKey buckets by billing-cycle start. When the cycle rolls over a
// new key naturally starts a fresh counter; no reset mutation is needed.
func CyclePeriodKey(start time.Time) string {
	return fmt.Sprintf("cycle:%d", start.UTC().Unix())
}
