package analytics

import "time"

// Interval is a fixed aggregation bucket width.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
)

// DefaultInterval applies when a request carries an unrecognized interval.
const DefaultInterval = Interval1h

// ParseInterval resolves a request value to a supported interval. Unknown
// values fall back to the default rather than erroring.
func ParseInterval(value string) Interval {
	switch Interval(value) {
	case Interval1m, Interval5m, Interval15m, Interval1h, Interval1d:
		return Interval(value)
	default:
		return DefaultInterval
	}
}

// Duration returns the bucket width.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1d:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// Truncate aligns a timestamp down to its bucket boundary. All timestamps
// live on a single linear UTC instant axis; daily buckets start at UTC
// midnight and there is no timezone-aware bucketing.
func (i Interval) Truncate(ts time.Time) time.Time {
	return ts.UTC().Truncate(i.Duration())
}
