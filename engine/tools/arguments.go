package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/engine/metrics"
)

// Arguments are the decoded JSON arguments of a tool call
type Arguments map[string]any

// String returns the trimmed string at key or def when absent
func (a Arguments) String(key, def string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// Int returns the integer at key or def when absent. Fractional values are
// rejected with INVALID_INPUT.
func (a Arguments) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, core.InvalidInput("%s must be a number", key)
		}
		f = parsed
	case float64:
		f = n
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, core.InvalidInput("%s must be an integer", key)
		}
		return parsed, nil
	default:
		return 0, core.InvalidInput("%s must be a number", key)
	}
	if f != math.Trunc(f) {
		return 0, core.InvalidInput("%s must be an integer", key)
	}
	return int(f), nil
}

// DateRange parses the start_date and end_date arguments
func (a Arguments) DateRange() (core.DateRange, error) {
	return a.prefixedRange("start_date", "end_date")
}

// Period parses the <prefix>_start and <prefix>_end arguments
func (a Arguments) Period(prefix string) (core.DateRange, error) {
	return a.prefixedRange(prefix+"_start", prefix+"_end")
}

func (a Arguments) prefixedRange(startKey, endKey string) (core.DateRange, error) {
	return core.ParseDateRange(a.String(startKey, ""), a.String(endKey, ""))
}

// Granularity parses the group_by argument
func (a Arguments) Granularity() (metrics.Granularity, error) {
	return metrics.ParseGranularity(a.String("group_by", ""))
}
