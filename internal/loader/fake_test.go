package loader

import (
	"context"
	"errors"

	"github.com/tsatrips/dodoetl/internal/db"
)

// memSession is an in-memory Session with a committed and a pending copy.
type memSession[T any] struct {
	key     func(*T) string
	vendors []db.Vendor

	committed map[string]T
	pending   map[string]T
	saved     map[string]T

	failInsert map[string]error
	failUpdate map[string]error
	failCommit error
	panicOn    string

	inserts, updates []string
	updateCols       [][]string
	rollbacks        int
	rollbackTos      int
	releases         int
	failRelease      error
	commits          int
}

func newMem[T any](key func(*T) string, vendors []db.Vendor, stored ...T) *memSession[T] {
	m := &memSession[T]{key: key, vendors: vendors, committed: map[string]T{}}
	for _, e := range stored {
		e := e
		m.committed[key(&e)] = e
	}
	m.pending = clone(m.committed)
	return m
}

func clone[T any](in map[string]T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memSession[T]) Vendors(context.Context) ([]db.Vendor, error) { return m.vendors, nil }

func (m *memSession[T]) LoadAll(context.Context) ([]*T, error) {
	out := make([]*T, 0, len(m.pending))
	for _, v := range m.pending {
		v := v
		out = append(out, &v)
	}
	return out, nil
}

func (m *memSession[T]) Insert(_ context.Context, e *T) error {
	k := m.key(e)
	if k == m.panicOn {
		panic("boom")
	}
	if err := m.failInsert[k]; err != nil {
		return err
	}
	if _, dup := m.pending[k]; dup {
		return errors.New("UNIQUE constraint failed")
	}
	m.pending[k] = *e
	m.inserts = append(m.inserts, k)
	return nil
}

func (m *memSession[T]) Update(_ context.Context, e *T, cols []string) error {
	k := m.key(e)
	if err := m.failUpdate[k]; err != nil {
		return err
	}
	m.pending[k] = *e
	m.updates = append(m.updates, k)
	m.updateCols = append(m.updateCols, cols)
	return nil
}

func (m *memSession[T]) Savepoint(string) error {
	m.saved = clone(m.pending)
	return nil
}

func (m *memSession[T]) RollbackTo(string) error {
	m.rollbackTos++
	m.pending = clone(m.saved)
	return nil
}

func (m *memSession[T]) Release(string) error {
	if m.failRelease != nil {
		return m.failRelease
	}
	m.releases++
	m.saved = nil
	return nil
}

func (m *memSession[T]) Rollback() error {
	m.rollbacks++
	m.pending = clone(m.committed)
	return nil
}

func (m *memSession[T]) Commit() error {
	if m.failCommit != nil {
		return m.failCommit
	}
	m.commits++
	m.committed = clone(m.pending)
	return nil
}
