// Package normalize cleans raw feed tables: rename/drop columns, text
// clean-up, date and number coercion, and keep-first deduplication on the
// natural key. Bad cells degrade to nil, they never fail the batch.
package normalize

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tsatrips/dodoetl/internal/record"
)

var ErrConfig = errors.New("normalize: invalid feed configuration")

// Config opisuje czyszczenie jednego feedu.
type Config struct {
	Feed         record.Feed
	DropColumns  []string
	Rename       map[string]string
	DateColumns  []string
	RoundColumns []string
	IntColumns   []string
	KeyColumn    string
	VendorColumn string
	// Cleaners run on raw text before trim/upper.
	Cleaners map[string]func(string) string
}

type Reason string

const (
	ReasonDuplicate  Reason = "duplicate_key"
	ReasonMissingKey Reason = "missing_key"
)

type Rejected struct {
	Row    record.Record
	Reason Reason
}

type Result struct {
	Clean    record.Set
	Rejected []Rejected // unia duplikatów i braków klucza, bez powtórzeń
	// liczniki przed złączeniem
	Duplicates int
	MissingKey int
}

// RejectedSet returns the rejected rows as a table with the clean column
// order, for the audit file.
func (r Result) RejectedSet() record.Set {
	out := record.Set{Columns: r.Clean.Columns, Rows: make([]record.Record, 0, len(r.Rejected))}
	for _, rj := range r.Rejected {
		out.Rows = append(out.Rows, rj.Row)
	}
	return out
}

func (c Config) validate() error {
	if c.KeyColumn == "" {
		return fmt.Errorf("%w: feed %q has no key column", ErrConfig, c.Feed)
	}
	return nil
}

// Normalize applies cfg to in. The input set is not modified.
func Normalize(in record.Set, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	order := in.Columns
	if len(order) == 0 {
		order = inferColumns(in.Rows)
	}
	columns := outputColumns(order, cfg)
	if len(in.Rows) > 0 && !contains(columns, cfg.KeyColumn) {
		return Result{}, fmt.Errorf("%w: feed %q: key column %q not present", ErrConfig, cfg.Feed, cfg.KeyColumn)
	}

	kinds := columnKinds(cfg)

	res := Result{Clean: record.Set{Columns: columns, Rows: make([]record.Record, 0, len(in.Rows))}}
	var dups, missing []record.Record
	seen := make(map[string]struct{}, len(in.Rows))

	for _, raw := range in.Rows {
		row := cleanRow(raw, order, cfg, kinds)

		key := row[cfg.KeyColumn]
		if key == nil {
			missing = append(missing, row)
			continue
		}
		k := fmt.Sprint(key)
		if _, dup := seen[k]; dup {
			dups = append(dups, row)
			continue
		}
		seen[k] = struct{}{}
		res.Clean.Rows = append(res.Clean.Rows, row)
	}

	res.Duplicates = len(dups)
	res.MissingKey = len(missing)
	res.Rejected = unionRejected(dups, missing)
	return res, nil
}

type colKind int

const (
	kindText colKind = iota
	kindDate
	kindRound
	kindInt
)

func columnKinds(cfg Config) map[string]colKind {
	m := map[string]colKind{}
	for _, c := range cfg.DateColumns {
		m[c] = kindDate
	}
	for _, c := range cfg.RoundColumns {
		m[c] = kindRound
	}
	for _, c := range cfg.IntColumns {
		m[c] = kindInt
	}
	return m
}

func cleanRow(raw record.Record, order []string, cfg Config, kinds map[string]colKind) record.Record {
	row := make(record.Record, len(raw))

	for _, col := range rowOrder(raw, order) {
		v := raw[col]
		if contains(cfg.DropColumns, col) {
			continue
		}
		name := col
		if to, ok := cfg.Rename[col]; ok {
			name = to
		}
		// dwie kolumny źródłowe -> jedna docelowa: pierwsza niepusta wygrywa
		if prev, ok := row[name]; ok && prev != nil {
			continue
		}
		row[name] = v
	}

	for col, v := range row {
		row[col] = cleanValue(col, v, cfg, kinds[col])
	}
	return row
}

func cleanValue(col string, v any, cfg Config, kind colKind) any {
	if v == nil {
		return nil
	}
	switch kind {
	case kindDate:
		return Date(v)
	case kindRound:
		return Round2(v)
	case kindInt:
		return Int(v)
	}

	s, ok := v.(string)
	if !ok {
		return nullish(v)
	}
	if fn := cfg.Cleaners[col]; fn != nil {
		s = fn(s)
	}
	out := cleanText(s)
	if out != nil && col == cfg.VendorColumn {
		return StripAccents(out.(string))
	}
	return out
}

// rowOrder: najpierw kolumny zbioru, potem nadmiarowe klucze wiersza (sortowane).
func rowOrder(raw record.Record, order []string) []string {
	out := make([]string, 0, len(raw))
	for _, c := range order {
		if _, ok := raw[c]; ok {
			out = append(out, c)
		}
	}
	if len(out) == len(raw) {
		return out
	}
	var extra []string
	for k := range raw {
		if !contains(order, k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// outputColumns: kolejność wejścia, po drop + rename, bez powtórzeń.
func outputColumns(src []string, cfg Config) []string {
	out := make([]string, 0, len(src))
	for _, c := range src {
		if contains(cfg.DropColumns, c) {
			continue
		}
		if to, ok := cfg.Rename[c]; ok {
			c = to
		}
		if !contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func inferColumns(rows []record.Record) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, r := range rows {
		keys := make([]string, 0, len(r))
		for k := range r {
			if _, ok := seen[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// unionRejected keeps duplicates first, then missing keys, dropping rows
// whose whole content was already listed.
func unionRejected(dups, missing []record.Record) []Rejected {
	out := make([]Rejected, 0, len(dups)+len(missing))
	seen := make(map[string]struct{}, len(dups)+len(missing))
	add := func(rows []record.Record, reason Reason) {
		for _, r := range rows {
			fp := r.Fingerprint()
			if _, ok := seen[fp]; ok {
				continue
			}
			seen[fp] = struct{}{}
			out = append(out, Rejected{Row: r, Reason: reason})
		}
	}
	add(dups, ReasonDuplicate)
	add(missing, ReasonMissingKey)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
