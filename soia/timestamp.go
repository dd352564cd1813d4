package soia

import (
	"fmt"
	"math"
	"time"
)

// minMillis/maxMillis bound a Timestamp to +/-8.64e15 ms, i.e.
// +/-100,000,000 days from the epoch (spec §3).
const (
	minMillis int64 = -8_640_000_000_000_000
	maxMillis int64 = 8_640_000_000_000_000
)

// Timestamp wraps a signed millisecond count, clamped to
// [minMillis, maxMillis] at construction (spec §4.3). The zero value is the
// Unix epoch, which is also the type's default value.
type Timestamp struct {
	millis int64
}

// UnixMillisTimestamp builds a Timestamp from a millisecond count, clamping
// out-of-range values rather than erroring (spec §7: overflow clamps).
func UnixMillisTimestamp(ms int64) Timestamp {
	return Timestamp{millis: clampMillis(ms)}
}

// FromUnixMillisFloat mirrors the one documented numeric-input error: a NaN
// millisecond count cannot be clamped and must be rejected.
func FromUnixMillisFloat(ms float64) (Timestamp, error) {
	if math.IsNaN(ms) {
		return Timestamp{}, fmt.Errorf("soia: timestamp: NaN is not a valid millisecond count")
	}
	return UnixMillisTimestamp(clampFloatToInt64(ms)), nil
}

func clampMillis(ms int64) int64 {
	switch {
	case ms < minMillis:
		return minMillis
	case ms > maxMillis:
		return maxMillis
	default:
		return ms
	}
}

func clampFloatToInt64(f float64) int64 {
	switch {
	case f <= float64(math.MinInt64):
		return math.MinInt64
	case f >= float64(math.MaxInt64):
		return math.MaxInt64
	default:
		return int64(f)
	}
}

// UnixMillis returns the wrapped millisecond count.
func (t Timestamp) UnixMillis() int64 { return t.millis }

// Time converts to the standard library's time.Time, in UTC.
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(t.millis).UTC()
}

// Formatted renders the ISO-8601 UTC string used by the readable JSON form.
func (t Timestamp) Formatted() string {
	return t.Time().Format("2006-01-02T15:04:05.000Z")
}

func (t Timestamp) IsDefault() bool { return t.millis == 0 }

func (t Timestamp) Equal(o Timestamp) bool { return t.millis == o.millis }

func (t Timestamp) String() string { return t.Formatted() }
