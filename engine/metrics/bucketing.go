package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
)

// Granularity is the width of a time bucket
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// Granularities lists every supported bucket width
var Granularities = []Granularity{Day, Week, Month}

// ParseGranularity validates a group_by value. An empty value means Day.
func ParseGranularity(value string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(value))) {
	case "", Day:
		return Day, nil
	case Week:
		return Week, nil
	case Month:
		return Month, nil
	default:
		return "", core.InvalidInput("invalid group_by %q: expected day, week or month", value)
	}
}

// PeriodKey returns the bucket key of t in UTC. Day keys are YYYY-MM-DD,
// week keys are ISO-8601 YYYY-Www and month keys are YYYY-MM. All three
// sort lexicographically in chronological order.
func PeriodKey(t time.Time, g Granularity) string {
	t = t.UTC()
	switch g {
	case Week:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case Month:
		return t.Format("2006-01")
	default:
		return t.Format(core.DateLayout)
	}
}

// Record is one timestamped amount to bucket
type Record struct {
	At     time.Time
	Amount commerce.Money
}

// PeriodBucket accumulates the records of one period
type PeriodBucket struct {
	Period string         `json:"period"`
	Orders int            `json:"orders"`
	Total  commerce.Money `json:"total"`
}

// PeriodCount counts events in one period
type PeriodCount struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// Bucketize assigns every record to exactly one period and returns the
// buckets sorted by key.
func Bucketize(records []Record, g Granularity) []PeriodBucket {
	index := make(map[string]int)
	buckets := make([]PeriodBucket, 0)
	for _, r := range records {
		key := PeriodKey(r.At, g)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, PeriodBucket{Period: key})
		}
		buckets[i].Orders++
		buckets[i].Total = buckets[i].Total.Add(r.Amount)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Period < buckets[j].Period
	})
	return buckets
}

// CountByPeriod counts timestamps per period, sorted by key
func CountByPeriod(times []time.Time, g Granularity) []PeriodCount {
	counts := make(map[string]int)
	for _, t := range times {
		counts[PeriodKey(t, g)]++
	}
	out := make([]PeriodCount, 0, len(counts))
	for period, count := range counts {
		out = append(out, PeriodCount{Period: period, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Period < out[j].Period
	})
	return out
}

// Cumulative returns the running total of a sorted series
func Cumulative(series []PeriodCount) []PeriodCount {
	out := make([]PeriodCount, len(series))
	running := 0
	for i, p := range series {
		running += p.Count
		out[i] = PeriodCount{Period: p.Period, Count: running}
	}
	return out
}
