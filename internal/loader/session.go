package loader

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tsatrips/dodoetl/internal/db"
)

// Session is the persistence boundary of one entity load: a single
// unit of work that ends with exactly one Commit.
type Session[T any] interface {
	Vendors(ctx context.Context) ([]db.Vendor, error)
	LoadAll(ctx context.Context) ([]*T, error)
	Insert(ctx context.Context, e *T) error
	Update(ctx context.Context, e *T, columns []string) error
	Savepoint(name string) error
	RollbackTo(name string) error
	Release(name string) error
	// Rollback discards all pending work; the session stays usable.
	Rollback() error
	Commit() error
}

// GormSession keeps one gorm transaction open for the whole load.
type GormSession[T any] struct {
	root *gorm.DB
	ctx  context.Context
	tx   *gorm.DB
}

func Begin[T any](ctx context.Context, gdb *gorm.DB) (*GormSession[T], error) {
	s := &GormSession[T]{root: gdb, ctx: ctx}
	if err := s.begin(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GormSession[T]) begin() error {
	tx := s.root.WithContext(s.ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin tx: %w", tx.Error)
	}
	s.tx = tx
	return nil
}

func (s *GormSession[T]) Vendors(ctx context.Context) ([]db.Vendor, error) {
	var out []db.Vendor
	err := s.tx.WithContext(ctx).Find(&out).Error
	return out, err
}

func (s *GormSession[T]) LoadAll(ctx context.Context) ([]*T, error) {
	var out []*T
	err := s.tx.WithContext(ctx).Find(&out).Error
	return out, err
}

func (s *GormSession[T]) Insert(ctx context.Context, e *T) error {
	return s.tx.WithContext(ctx).Omit("Vendor").Create(e).Error
}

// Update zapisuje tylko wskazane kolumny (również gdy nowa wartość to NULL).
func (s *GormSession[T]) Update(ctx context.Context, e *T, columns []string) error {
	return s.tx.WithContext(ctx).Model(e).Select(columns).Updates(e).Error
}

func (s *GormSession[T]) Savepoint(name string) error {
	return s.tx.SavePoint(name).Error
}

func (s *GormSession[T]) RollbackTo(name string) error {
	return s.tx.RollbackTo(name).Error
}

// Release zamyka savepoint po udanym wierszu (gorm nie ma na to metody).
func (s *GormSession[T]) Release(name string) error {
	return s.tx.Exec("RELEASE SAVEPOINT " + name).Error
}

func (s *GormSession[T]) Rollback() error {
	if err := s.tx.Rollback().Error; err != nil {
		return err
	}
	return s.begin()
}

func (s *GormSession[T]) Commit() error {
	return s.tx.Commit().Error
}

// Close rolls back a transaction that was never committed. Safe after Commit.
func (s *GormSession[T]) Close() {
	_ = s.tx.Rollback()
}
