package utils

import (
	"fmt"
	"time"
)

var klineIntervals = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// IntervalDuration returns the candle length of an exchange kline interval such as "1m" or "4h".
func IntervalDuration(interval string) (time.Duration, error) {
	d, ok := klineIntervals[interval]
	if !ok {
		return 0, fmt.Errorf("unsupported kline interval %q", interval)
	}
	return d, nil
}

