package http

import (
	"time"

	xutil "OTCFeed/pkg/util"
)

// ParseTimeRange resolves from/to query values into a bounded window, or a
// 400 AppError describing the bad bound.
func ParseTimeRange(from, to string, now time.Time, window time.Duration) (time.Time, time.Time, *AppError) {
	start, end, err := xutil.TimeRange(from, to, now, window)
	if err != nil {
		return start, end, BadRequestError(err.Error()).
			WithParam("from", from).
			WithParam("to", to).
			WithError(err)
	}
	return start, end, nil
}
