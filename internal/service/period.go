package service

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownPeriod rejects lookback windows outside the supported set.
var ErrUnknownPeriod = errors.New("unknown period")

// periodDurations maps the supported lookback windows to their length.
var periodDurations = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// PeriodStart resolves a lookback window like "30d" to its start time
// relative to now.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	if period == "" {
		period = "30d"
	}
	d, ok := periodDurations[period]
	if !ok {
		return time.Time{}, fmt.Errorf("%w %q, expected one of 7d, 30d, 90d, 1y", ErrUnknownPeriod, period)
	}
	return now.Add(-d), nil
}
