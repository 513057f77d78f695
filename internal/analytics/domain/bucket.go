package analytics

import (
	"sort"
	"time"

	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

// Stats holds the per-metric statistics of one bucket.
type Stats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int64   `json:"count"`
}

// Bucket is a derived aggregation result for one (interval, AUV) group.
// Buckets are computed per query and never stored.
type Bucket struct {
	IntervalStart time.Time        `json:"interval_start"`
	IntervalEnd   time.Time        `json:"interval_end"`
	AUVID         string           `json:"auv_id"`
	Metrics       map[string]Stats `json:"metrics"`
}

type groupKey struct {
	start time.Time
	auvID string
}

type accumulator struct {
	min   float64
	max   float64
	sum   float64
	count int64
}

func (a *accumulator) add(v float64) {
	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.count++
}

// Aggregate groups points into aligned buckets and computes min/max/avg/count
// per requested metric. Metric names not present in the point kind's registry
// are skipped, not errors. The result is ordered by interval start ascending,
// ties broken by AUV id ascending; an empty input yields an empty slice.
func Aggregate[P any](
	points []P,
	interval Interval,
	metrics []string,
	registry map[string]telemetry.MetricAccessor[P],
	auvID func(P) string,
	timestamp func(P) time.Time,
) []Bucket {
	// Resolve the metric set once; unknown names are dropped up front so
	// the grouping loop only touches real accessors.
	known := make([]string, 0, len(metrics))
	seen := make(map[string]struct{}, len(metrics))
	for _, name := range metrics {
		if _, ok := registry[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		known = append(known, name)
	}

	groups := make(map[groupKey]map[string]*accumulator)
	for _, p := range points {
		key := groupKey{start: interval.Truncate(timestamp(p)), auvID: auvID(p)}
		accs := groups[key]
		if accs == nil {
			accs = make(map[string]*accumulator, len(known))
			groups[key] = accs
		}
		for _, name := range known {
			value := registry[name](p)
			if value == nil {
				continue
			}
			acc := accs[name]
			if acc == nil {
				acc = &accumulator{}
				accs[name] = acc
			}
			acc.add(*value)
		}
	}

	buckets := make([]Bucket, 0, len(groups))
	for key, accs := range groups {
		stats := make(map[string]Stats, len(accs))
		for name, acc := range accs {
			stats[name] = Stats{
				Min:   acc.min,
				Max:   acc.max,
				Avg:   acc.sum / float64(acc.count),
				Count: acc.count,
			}
		}
		buckets = append(buckets, Bucket{
			IntervalStart: key.start,
			IntervalEnd:   key.start.Add(interval.Duration()),
			AUVID:         key.auvID,
			Metrics:       stats,
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		if !buckets[i].IntervalStart.Equal(buckets[j].IntervalStart) {
			return buckets[i].IntervalStart.Before(buckets[j].IntervalStart)
		}
		return buckets[i].AUVID < buckets[j].AUVID
	})
	return buckets
}
