package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"01/02/06",
}

// Date parsuje wartość do daty kalendarzowej (UTC, 00:00). Błąd -> nil.
func Date(v any) any {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, time.UTC)
	case *time.Time:
		if x == nil {
			return nil
		}
		return Date(*x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			}
		}
	}
	return nil
}

// Decimal converts v to a decimal, or reports false for anything non-numeric.
func Decimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(x), true
	case float32:
		return Decimal(float64(x))
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case int32:
		return decimal.NewFromInt(int64(x)), true
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, false
		}
		// przecinek dziesiętny -> kropka
		s = strings.ReplaceAll(s, ",", ".")
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	return decimal.Zero, false
}

// Round2 rounds to two places; non-numeric -> nil.
func Round2(v any) any {
	d, ok := Decimal(v)
	if !ok {
		return nil
	}
	return d.Round(2)
}

// Int rounds to the nearest integer first; non-numeric -> nil.
func Int(v any) any {
	d, ok := Decimal(v)
	if !ok {
		return nil
	}
	return d.Round(0).IntPart()
}

// nullish maps the float sentinels (NaN, ±Inf) to nil.
func nullish(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil
		}
	}
	return v
}
