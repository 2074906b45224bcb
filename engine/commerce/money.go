package commerce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money is a normalized monetary amount. Upstream payloads carry amounts as
// plain numbers, numeric strings or BigNumber objects ({value, raw: {value}});
// every form decodes to the same exact decimal.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount
var Zero = Money{}

// NewMoney builds an amount from a float
func NewMoney(v float64) Money {
	return Money{d: decimal.NewFromFloat(v)}
}

// NewMoneyFromInt builds an amount from an integer
func NewMoneyFromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// NewMoneyFromDecimal wraps an existing decimal
func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// ParseMoney parses a numeric string
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid monetary value %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MustParseMoney parses s and panics on failure. Intended for fixtures.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// NormalizeAmount converts any decoded monetary representation into Money.
// Unsupported or malformed values normalize to zero.
func NormalizeAmount(v any) Money {
	m, _ := normalize(v)
	return m
}

func normalize(v any) (Money, bool) {
	switch t := v.(type) {
	case nil:
		return Zero, true
	case Money:
		return t, true
	case *Money:
		if t == nil {
			return Zero, true
		}
		return *t, true
	case decimal.Decimal:
		return Money{d: t}, true
	case json.Number:
		m, err := ParseMoney(t.String())
		return m, err == nil
	case string:
		m, err := ParseMoney(t)
		return m, err == nil
	case float64:
		return NewMoney(t), true
	case float32:
		return NewMoney(float64(t)), true
	case int:
		return NewMoneyFromInt(int64(t)), true
	case int32:
		return NewMoneyFromInt(int64(t)), true
	case int64:
		return NewMoneyFromInt(t), true
	case map[string]any:
		if value, ok := t["value"]; ok && value != nil {
			return normalize(value)
		}
		if raw, ok := t["raw"].(map[string]any); ok {
			return normalize(raw["value"])
		}
		return Zero, false
	default:
		return Zero, false
	}
}

// Add returns m + o
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Sub returns m - o
func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

// MulInt returns m * n
func (m Money) MulInt(n int64) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(n))}
}

// Abs returns |m|
func (m Money) Abs() Money {
	return Money{d: m.d.Abs()}
}

// Round2 rounds half away from zero to two decimal places
func (m Money) Round2() Money {
	return Money{d: m.d.Round(2)}
}

// IsZero reports whether m is zero
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// Sign returns -1, 0 or 1
func (m Money) Sign() int {
	return m.d.Sign()
}

// Cmp compares m and o
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// Equal reports whether m and o represent the same amount
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

// Decimal exposes the underlying decimal
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Float64 returns the nearest float representation
func (m Money) Float64() float64 {
	return m.d.InexactFloat64()
}

// String renders the amount without trailing zeros
func (m Money) String() string {
	return m.d.String()
}

// MarshalJSON emits the amount as an unquoted JSON number
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts numbers, numeric strings, null and BigNumber objects
func (m *Money) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode monetary value: %w", err)
	}
	*m = NormalizeAmount(raw)
	return nil
}

// Scan implements sql.Scanner for numeric and text columns
func (m *Money) Scan(src any) error {
	if src == nil {
		*m = Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("failed to scan monetary value: %w", err)
	}
	m.d = d
	return nil
}

// Sum adds every amount
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Average returns sum / n rounded to two places, or zero when n is zero
func Average(sum Money, n int) Money {
	if n == 0 {
		return Zero
	}
	return Money{d: sum.d.Div(decimal.NewFromInt(int64(n))).Round(2)}
}

// GrowthPercentage returns (current - baseline) / baseline * 100 rounded to
// two places. ok is false when the baseline is zero.
func GrowthPercentage(current, baseline Money) (float64, bool) {
	if baseline.IsZero() {
		return 0, false
	}
	pct := current.d.Sub(baseline.d).Div(baseline.d).Mul(hundred).Round(2)
	return pct.InexactFloat64(), true
}
