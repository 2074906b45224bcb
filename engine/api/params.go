package api

import (
	"strconv"
	"strings"

	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/engine/metrics"
	"github.com/gin-gonic/gin"
)

// MaxLimit caps the limit query parameter
const MaxLimit = 100

// dateRange parses start_date and end_date
func dateRange(c *gin.Context) (core.DateRange, error) {
	return core.ParseDateRange(query(c, "start_date"), query(c, "end_date"))
}

// requiredDateRange parses a range whose bounds are both mandatory
func requiredDateRange(c *gin.Context) (core.DateRange, error) {
	if query(c, "start_date") == "" || query(c, "end_date") == "" {
		return core.DateRange{}, core.InvalidInput("start_date and end_date are required")
	}
	return dateRange(c)
}

func granularity(c *gin.Context) (metrics.Granularity, error) {
	return metrics.ParseGranularity(query(c, "group_by"))
}

// positiveInt parses an optional positive integer. Absent values yield 0 so
// the service applies its default.
func positiveInt(c *gin.Context, key string, upper int) (int, error) {
	raw := query(c, key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, core.InvalidInput("%s must be a positive integer", key)
	}
	if upper > 0 && n > upper {
		return 0, core.InvalidInput("%s must not exceed %d", key, upper)
	}
	return n, nil
}

func query(c *gin.Context, key string) string {
	return strings.TrimSpace(c.Query(key))
}
