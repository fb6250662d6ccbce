// Package loader reconciles clean feed records with the store: insert new
// natural keys, update only the fields that changed, report every decision.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/rs/zerolog"

	"github.com/tsatrips/dodoetl/internal/db"
	"github.com/tsatrips/dodoetl/internal/normalize"
	"github.com/tsatrips/dodoetl/internal/record"
	"github.com/tsatrips/dodoetl/internal/tracker"
)

type Policy string

const (
	// PolicyRow: błąd wiersza cofa tylko ten wiersz (SAVEPOINT).
	PolicyRow Policy = "row"
	// PolicyBatch: błąd wiersza cofa całą niezatwierdzoną pracę tabeli.
	PolicyBatch Policy = "batch"
)

func (p Policy) Valid() bool { return p == PolicyRow || p == PolicyBatch }

type Options struct {
	Policy Policy
	Log    zerolog.Logger
	Now    func() time.Time // nil => time.Now
}

type VendorNotFoundError struct {
	Name string
	// Closest known vendor name, empty when nothing is similar enough.
	Hint string
}

func (e *VendorNotFoundError) Error() string {
	return fmt.Sprintf("vendor not found: %q", e.Name)
}

const (
	savepoint = "dodo_row"
	hintMin   = 0.85
)

type vendorIndex struct {
	byName map[string]db.Vendor
	names  []string
}

func indexVendors[T any](vs []db.Vendor, k Kind[T]) vendorIndex {
	idx := vendorIndex{byName: make(map[string]db.Vendor, len(vs))}
	for _, v := range vs {
		n := normalize.Name(k.VendorName(v))
		if n == "" {
			continue
		}
		if _, ok := idx.byName[n]; !ok {
			idx.names = append(idx.names, n)
		}
		idx.byName[n] = v
	}
	return idx
}

func (idx vendorIndex) lookup(name string) (db.Vendor, error) {
	n := normalize.Name(name)
	if v, ok := idx.byName[n]; ok && n != "" {
		return v, nil
	}
	return db.Vendor{}, &VendorNotFoundError{Name: name, Hint: idx.closest(n)}
}

func (idx vendorIndex) closest(n string) string {
	if n == "" {
		return ""
	}
	best, score := "", hintMin
	for _, c := range idx.names {
		if s := matchr.JaroWinkler(n, c, false); s >= score {
			best, score = c, s
		}
	}
	return best
}

// Upsert applies rows to the entity table behind sess and commits once.
// Row-level failures end up in the returned tracker; only loading the
// reference data and the final commit are fatal.
func Upsert[T any](ctx context.Context, sess Session[T], kind Kind[T], rows record.Set, opts Options) (*tracker.Tracker, error) {
	if opts.Policy == "" {
		opts.Policy = PolicyRow
	}
	if !opts.Policy.Valid() {
		return nil, fmt.Errorf("unknown rollback policy %q", opts.Policy)
	}
	log := opts.Log.With().Str("entity", kind.Name).Logger()

	tr := tracker.New(kind.Name)
	if opts.Now != nil {
		tr = tracker.NewWithClock(kind.Name, opts.Now)
	}
	tr.MarkProcessed()

	vs, err := sess.Vendors(ctx)
	if err != nil {
		return tr, fmt.Errorf("%s: load vendors: %w", kind.Name, err)
	}
	vendors := indexVendors(vs, kind)

	existing, err := loadExisting(ctx, sess, kind)
	if err != nil {
		return tr, err
	}
	log.Debug().Int("vendors", len(vs)).Int("stored", len(existing)).Int("rows", len(rows.Rows)).Msg("reference data loaded")

	warned := map[string]bool{}
	for _, rec := range rows.Rows {
		if err := ctx.Err(); err != nil {
			// nie commitujemy połowy
			_ = sess.Rollback()
			return tr, err
		}
		key := rec.String(kind.KeyColumn)

		v, err := vendors.lookup(rec.String(kind.VendorColumn))
		if err != nil {
			ev := log.Warn().Str("key", key).Str("vendor", rec.String(kind.VendorColumn))
			var nf *VendorNotFoundError
			if errors.As(err, &nf) && nf.Hint != "" {
				ev = ev.Str("closest", nf.Hint)
			}
			ev.Msg("vendor not found, row skipped")
			tr.RecordError(key, err.Error())
			continue
		}

		incoming := kind.Build(rec, v.VendorID)
		if kind.Check != nil {
			if w := kind.Check(&incoming); w != "" && !warned[w] {
				warned[w] = true
				log.Warn().Str("key", key).Msg(w)
			}
		}

		if err := applyGuarded(ctx, sess, kind, existing, &incoming, opts.Policy, tr, log); err != nil {
			log.Error().Err(err).Str("key", key).Msg("row failed")
			tr.RecordError(key, err.Error())

			if opts.Policy == PolicyBatch {
				if rbErr := sess.Rollback(); rbErr != nil {
					return tr, fmt.Errorf("%s: rollback: %w", kind.Name, rbErr)
				}
				lost := tr.DiscardPending()
				log.Warn().Int("discarded", lost).Msg("batch rolled back, earlier uncommitted changes discarded")
				if existing, err = loadExisting(ctx, sess, kind); err != nil {
					return tr, err
				}
			}
		}
	}

	if err := sess.Commit(); err != nil {
		return tr, fmt.Errorf("%s: commit: %w", kind.Name, err)
	}
	tr.Summary().Log(log)
	return tr, nil
}

func loadExisting[T any](ctx context.Context, sess Session[T], kind Kind[T]) (map[string]*T, error) {
	stored, err := sess.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: load stored rows: %w", kind.Name, err)
	}
	m := make(map[string]*T, len(stored))
	for _, e := range stored {
		m[kind.Key(e)] = e // przy duplikacie wygrywa ostatni
	}
	return m, nil
}

// applyGuarded runs one row inside a savepoint (row policy) and turns a
// panic into an ordinary row error. The in-memory state and the tracker
// change only after the row is safely in the transaction.
func applyGuarded[T any](ctx context.Context, sess Session[T], kind Kind[T], existing map[string]*T, incoming *T, policy Policy, tr *tracker.Tracker, log zerolog.Logger) error {
	if policy == PolicyRow {
		if err := sess.Savepoint(savepoint); err != nil {
			return fmt.Errorf("savepoint: %w", err)
		}
	}

	done, err := applyRecovered(ctx, sess, kind, existing, incoming)

	if policy == PolicyRow {
		if err == nil {
			// bez RELEASE savepointy zagnieżdżają się wiersz po wierszu
			if relErr := sess.Release(savepoint); relErr != nil {
				err = fmt.Errorf("release savepoint: %w", relErr)
			}
		}
		if err != nil {
			if rbErr := sess.RollbackTo(savepoint); rbErr != nil {
				err = fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
			}
		}
	}
	if err != nil {
		return err
	}
	done(tr, log)
	return nil
}

func applyRecovered[T any](ctx context.Context, sess Session[T], kind Kind[T], existing map[string]*T, incoming *T) (done func(*tracker.Tracker, zerolog.Logger), err error) {
	defer func() {
		if r := recover(); r != nil {
			done, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return apply(ctx, sess, kind, existing, incoming)
}

// apply writes one row and returns what to record once it sticks.
func apply[T any](ctx context.Context, sess Session[T], kind Kind[T], existing map[string]*T, incoming *T) (func(*tracker.Tracker, zerolog.Logger), error) {
	key := kind.Key(incoming)

	stored, ok := existing[key]
	if !ok {
		if err := sess.Insert(ctx, incoming); err != nil {
			return nil, err
		}
		return func(tr *tracker.Tracker, log zerolog.Logger) {
			existing[key] = incoming
			tr.RecordNew(key)
			log.Info().Str("key", key).Msg("new")
		}, nil
	}

	changed := kind.diff(stored, incoming)
	if len(changed) == 0 {
		return func(tr *tracker.Tracker, _ zerolog.Logger) { tr.RecordUnchanged() }, nil
	}

	next := *stored
	cols := make([]string, 0, len(changed))
	for _, f := range changed {
		f.Copy(&next, incoming)
		cols = append(cols, f.Name)
	}
	if err := sess.Update(ctx, &next, cols); err != nil {
		return nil, err
	}
	return func(tr *tracker.Tracker, log zerolog.Logger) {
		*stored = next
		tr.RecordUpdate(key, cols)
		log.Info().Str("key", key).Str("fields", strings.Join(cols, ",")).Msg("updated")
	}, nil
}
