package metrics_test

import (
	"testing"
	"time"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/engine/metrics"
	"github.com/compozy/storepulse/pkg/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGranularity(t *testing.T) {
	t.Run("Should default to day", func(t *testing.T) {
		g, err := metrics.ParseGranularity("")
		require.NoError(t, err)
		assert.Equal(t, metrics.Day, g)
	})

	t.Run("Should accept every granularity case insensitively", func(t *testing.T) {
		for input, expected := range map[string]metrics.Granularity{
			"day":   metrics.Day,
			"Week":  metrics.Week,
			"MONTH": metrics.Month,
		} {
			g, err := metrics.ParseGranularity(input)
			require.NoError(t, err)
			assert.Equal(t, expected, g)
		}
	})

	t.Run("Should reject unknown values", func(t *testing.T) {
		_, err := metrics.ParseGranularity("year")
		require.Error(t, err)
		assert.Equal(t, core.ErrorCodeInvalidInput, core.CodeOf(err))
		assert.Contains(t, core.MessageOf(err), "invalid group_by")
	})
}

func TestPeriodKey(t *testing.T) {
	t.Run("Should format days and months", func(t *testing.T) {
		ts := testhelpers.Time("2024-03-05T23:30:00Z")
		assert.Equal(t, "2024-03-05", metrics.PeriodKey(ts, metrics.Day))
		assert.Equal(t, "2024-03", metrics.PeriodKey(ts, metrics.Month))
	})

	t.Run("Should bucket in UTC", func(t *testing.T) {
		ts := time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
		assert.Equal(t, "2024-03-06", metrics.PeriodKey(ts, metrics.Day))
	})

	t.Run("Should use ISO weeks and ISO years", func(t *testing.T) {
		assert.Equal(t, "2024-W01", metrics.PeriodKey(testhelpers.Time("2024-01-01"), metrics.Week))
		assert.Equal(t, "2020-W53", metrics.PeriodKey(testhelpers.Time("2021-01-03"), metrics.Week))
		assert.Equal(t, "2025-W01", metrics.PeriodKey(testhelpers.Time("2024-12-30"), metrics.Week))
		assert.Equal(t, "2024-W10", metrics.PeriodKey(testhelpers.Time("2024-03-05"), metrics.Week))
	})
}

func TestBucketize(t *testing.T) {
	t.Run("Should group the day chart scenario", func(t *testing.T) {
		records := []metrics.Record{
			{At: testhelpers.Time("2024-01-02"), Amount: commerce.NewMoney(50)},
			{At: testhelpers.Time("2024-01-01"), Amount: commerce.NewMoney(100)},
			{At: testhelpers.Time("2024-01-01"), Amount: commerce.NewMoney(200)},
		}

		buckets := metrics.Bucketize(records, metrics.Day)

		require.Len(t, buckets, 2)
		assert.Equal(t, "2024-01-01", buckets[0].Period)
		assert.Equal(t, 2, buckets[0].Orders)
		assert.Equal(t, "300", buckets[0].Total.String())
		assert.Equal(t, "2024-01-02", buckets[1].Period)
		assert.Equal(t, 1, buckets[1].Orders)
		assert.Equal(t, "50", buckets[1].Total.String())
	})

	t.Run("Should merge a month into one bucket", func(t *testing.T) {
		records := []metrics.Record{
			{At: testhelpers.Time("2024-02-01"), Amount: commerce.NewMoney(10.10)},
			{At: testhelpers.Time("2024-02-29"), Amount: commerce.NewMoney(0.20)},
		}

		buckets := metrics.Bucketize(records, metrics.Month)

		require.Len(t, buckets, 1)
		assert.Equal(t, "2024-02", buckets[0].Period)
		assert.Equal(t, "10.3", buckets[0].Total.String())
	})

	t.Run("Should return an empty non-nil slice", func(t *testing.T) {
		buckets := metrics.Bucketize(nil, metrics.Week)
		assert.NotNil(t, buckets)
		assert.Empty(t, buckets)
	})
}

func TestCountByPeriod(t *testing.T) {
	t.Run("Should count and accumulate sorted periods", func(t *testing.T) {
		times := []time.Time{
			testhelpers.Time("2024-02-10"),
			testhelpers.Time("2024-01-05"),
			testhelpers.Time("2024-02-01"),
			testhelpers.Time("2024-03-15"),
		}

		series := metrics.CountByPeriod(times, metrics.Month)
		cumulative := metrics.Cumulative(series)

		assert.Equal(t, []metrics.PeriodCount{
			{Period: "2024-01", Count: 1},
			{Period: "2024-02", Count: 2},
			{Period: "2024-03", Count: 1},
		}, series)
		assert.Equal(t, []metrics.PeriodCount{
			{Period: "2024-01", Count: 1},
			{Period: "2024-02", Count: 3},
			{Period: "2024-03", Count: 4},
		}, cumulative)
	})
}
