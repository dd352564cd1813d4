package soia

import "testing"

func TestTimestampClampsOutOfRange(t *testing.T) {
	over := UnixMillisTimestamp(maxMillisForTest() + 1)
	if over.UnixMillis() != maxMillisForTest() {
		t.Fatalf("expected clamp to max, got %d", over.UnixMillis())
	}
	under := UnixMillisTimestamp(minMillisForTest() - 1)
	if under.UnixMillis() != minMillisForTest() {
		t.Fatalf("expected clamp to min, got %d", under.UnixMillis())
	}
}

func maxMillisForTest() int64 { return 8_640_000_000_000_000 }
func minMillisForTest() int64 { return -8_640_000_000_000_000 }

func TestTimestampNaNRejected(t *testing.T) {
	_, err := FromUnixMillisFloat(nan())
	if err == nil {
		t.Fatal("expected an error for a NaN millisecond count")
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestTimestampFormatted(t *testing.T) {
	ts := UnixMillisTimestamp(0)
	if ts.Formatted() != "1970-01-01T00:00:00.000Z" {
		t.Fatalf("got %q", ts.Formatted())
	}
}

func TestTimestampDefaultIsEpoch(t *testing.T) {
	var zero Timestamp
	if !zero.IsDefault() {
		t.Fatal("zero-value Timestamp should be the default")
	}
}
