package util

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// unix seconds stay below this until the year 33658.
const msThreshold = 1e12

// ParseTime accepts RFC3339 (with or without fraction) and unix seconds or
// milliseconds, which is what tick timestamps look like on the wire.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		if ts >= msThreshold {
			return time.UnixMilli(ts), true
		}
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ErrInvalidRange is returned by TimeRange for unparsable or inverted bounds.
var ErrInvalidRange = errors.New("invalid time range")

// TimeRange resolves optional from/to query values. A missing to is now and a
// missing from is window before to.
func TimeRange(from, to string, now time.Time, window time.Duration) (time.Time, time.Time, error) {
	end := now
	if to != "" {
		t, ok := ParseTime(to)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to=%q", ErrInvalidRange, to)
		}
		end = t
	}
	start := end.Add(-window)
	if from != "" {
		t, ok := ParseTime(from)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from=%q", ErrInvalidRange, from)
		}
		start = t
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from after to", ErrInvalidRange)
	}
	return start, end, nil
}
