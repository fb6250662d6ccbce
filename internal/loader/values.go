package loader

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tsatrips/dodoetl/internal/record"
)

// record -> pola encji. Brak kolumny albo nil => nil.

func str(rec record.Record, col string) *string {
	v, ok := rec[col]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return &s
}

func date(rec record.Record, col string) *time.Time {
	switch v := rec[col].(type) {
	case time.Time:
		d := time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	case *time.Time:
		if v == nil {
			return nil
		}
		d := time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	return nil
}

func integer(rec record.Record, col string) *int {
	var n int
	switch v := rec[col].(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case int32:
		n = int(v)
	default:
		return nil
	}
	return &n
}

func money(rec record.Record, col string) decimal.NullDecimal {
	switch v := rec[col].(type) {
	case decimal.Decimal:
		return decimal.NewNullDecimal(v)
	case decimal.NullDecimal:
		return v
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v).Round(2))
	}
	return decimal.NullDecimal{}
}

func eqStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// daty porównujemy po dniu kalendarzowym; sterownik może oddać inną strefę
func eqDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqMoney(a, b decimal.NullDecimal) bool {
	if !a.Valid || !b.Valid {
		return a.Valid == b.Valid
	}
	return a.Decimal.Equal(b.Decimal)
}

func eqID(a, b uint) bool { return a == b }
