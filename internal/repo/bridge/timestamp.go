package bridge

import (
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

// Magnitude bands for Unix timestamps. 1e12 ms is September 2001 and 1e15 us
// is the same instant, so present-day values of each unit never overlap.
const (
	millisThreshold = 1e12
	microsThreshold = 1e15
)

// epochToTime reads a Unix timestamp in seconds, milliseconds or microseconds.
func epochToTime(v float64) time.Time {
	switch {
	case v <= 0:
		return time.Time{}
	case v < millisThreshold:
		return time.UnixMilli(int64(v * 1000)).UTC()
	case v < microsThreshold:
		return time.UnixMilli(int64(v)).UTC()
	default:
		return time.UnixMicro(int64(v)).UTC()
	}
}

// parseTimestamp accepts a number, a numeric string or an RFC3339 string.
// Anything else is the zero time.
func parseTimestamp(r gjson.Result) time.Time {
	switch r.Type {
	case gjson.Number:
		return epochToTime(r.Float())
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if s == "" {
			return time.Time{}
		}
		if f, err := cast.ToFloat64E(s); err == nil {
			return epochToTime(f)
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// firstTimestamp returns the first path that yields a usable time.
func firstTimestamp(r gjson.Result, paths ...string) time.Time {
	for _, p := range paths {
		if t := parseTimestamp(r.Get(p)); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}
