// Package record holds the untyped tabular shape shared by source adapters,
// the normalizer and the loader.
package record

import (
	"fmt"
	"sort"
	"strings"
)

// Feed identyfikuje jeden z trzech strumieni danych.
type Feed string

const (
	FeedReservations  Feed = "reservas"
	FeedBudgets       Feed = "presupuestos"
	FeedOpportunities Feed = "oddos"
)

// Feeds w kolejności ładowania.
var Feeds = []Feed{FeedReservations, FeedBudgets, FeedOpportunities}

func (f Feed) Valid() bool {
	switch f {
	case FeedReservations, FeedBudgets, FeedOpportunities:
		return true
	}
	return false
}

// Record is one row: column name -> value. A missing key and a nil value
// both mean null.
type Record map[string]any

// Set is a table: rows plus the column order they were produced with.
type Set struct {
	Columns []string
	Rows    []Record
}

func (s Set) Len() int { return len(s.Rows) }

// Clone kopiuje rekord (płytko – wartości są niemutowalne).
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Fingerprint is a stable textual identity of the row content, used to
// deduplicate whole rows.
func (r Record) Fingerprint() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := r[k]
		if v == nil {
			fmt.Fprintf(&b, "%s=<nil>;", k)
			continue
		}
		fmt.Fprintf(&b, "%s=%T:%v;", k, v, v)
	}
	return b.String()
}

// String returns the value of col as text, or "" when null.
func (r Record) String(col string) string {
	v, ok := r[col]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
