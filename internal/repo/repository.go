// Package repo is the generic data-access layer: CRUD and query operations
// parameterized over an entity type, on top of GORM. Structured filters are
// pushed down to SQL; textual dynamic predicates and orderings are compiled
// by internal/query and applied in memory after the fetch.
//
// Storage errors are surfaced to the caller unchanged, including
// gorm.ErrRecordNotFound.
package repo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/openconf/confq/internal/filter"
	"github.com/openconf/confq/internal/query"
)

// Validator is implemented by entities that check their own field
// constraints before writes.
type Validator interface {
	Validate() error
}

type Repository[T any] struct {
	db  *gorm.DB
	log zerolog.Logger
}

func New[T any](db *gorm.DB, log zerolog.Logger) *Repository[T] {
	var zero T
	return &Repository[T]{
		db:  db,
		log: log.With().Str("entity", fmt.Sprintf("%T", zero)).Logger(),
	}
}

func validate(obj any) error {
	if v, ok := obj.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// Create inserts a new entity after validation.
func (r *Repository[T]) Create(ctx context.Context, obj *T) error {
	if obj == nil {
		return fmt.Errorf("repo: nil entity")
	}
	if err := validate(obj); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(obj).Error; err != nil {
		return err
	}
	r.log.Debug().Msg("created")
	return nil
}

// Update persists all fields of an existing entity after validation.
func (r *Repository[T]) Update(ctx context.Context, obj *T) error {
	if obj == nil {
		return fmt.Errorf("repo: nil entity")
	}
	if err := validate(obj); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(obj).Error
}

// Delete removes one entity by its primary key.
func (r *Repository[T]) Delete(ctx context.Context, obj *T) error {
	if obj == nil {
		return fmt.Errorf("repo: nil entity")
	}
	return r.db.WithContext(ctx).Delete(obj).Error
}

// DeleteWhere removes every row matching cond in a single parameterized
// DELETE statement and reports the number of rows removed. A nil condition
// is rejected rather than deleting the whole table.
func (r *Repository[T]) DeleteWhere(ctx context.Context, cond filter.Expr) (int64, error) {
	if cond == nil {
		return 0, fmt.Errorf("repo: DeleteWhere requires a condition")
	}
	tx := r.db.WithContext(ctx).Where(cond.SQL(), cond.Args()...).Delete(new(T))
	if tx.Error != nil {
		return 0, tx.Error
	}
	r.log.Debug().Int64("rows", tx.RowsAffected).Msg("deleted")
	return tx.RowsAffected, nil
}

// FindByID loads one entity by primary key.
func (r *Repository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	obj := new(T)
	if err := r.db.WithContext(ctx).First(obj, id).Error; err != nil {
		return nil, err
	}
	return obj, nil
}

// FindOne loads the first entity matching cond.
func (r *Repository[T]) FindOne(ctx context.Context, cond filter.Expr) (*T, error) {
	obj := new(T)
	tx := r.db.WithContext(ctx)
	if cond != nil {
		tx = tx.Where(cond.SQL(), cond.Args()...)
	}
	if err := tx.First(obj).Error; err != nil {
		return nil, err
	}
	return obj, nil
}

// Count returns the number of rows matching cond; a nil cond counts all
// rows.
func (r *Repository[T]) Count(ctx context.Context, cond filter.Expr) (int64, error) {
	var n int64
	tx := r.db.WithContext(ctx).Model(new(T))
	if cond != nil {
		tx = tx.Where(cond.SQL(), cond.Args()...)
	}
	if err := tx.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Exists reports whether any row matches cond, probing at most one row
// rather than counting the table.
func (r *Repository[T]) Exists(ctx context.Context, cond filter.Expr) (bool, error) {
	var probe []int
	tx := r.db.WithContext(ctx).Model(new(T)).Select("1").Limit(1)
	if cond != nil {
		tx = tx.Where(cond.SQL(), cond.Args()...)
	}
	if err := tx.Find(&probe).Error; err != nil {
		return false, err
	}
	return len(probe) > 0, nil
}

// Spec describes one find-all request. Filter and Order are pushed down to
// SQL. Query/QueryValues and OrderText are dynamic expressions compiled
// against the entity type and applied in memory after the fetch; when either
// is present, paging also moves in memory so it always happens after
// filtering and ordering.
type Spec struct {
	Filter      filter.Expr
	Order       []filter.Order
	Query       string
	QueryValues []any
	OrderText   string
	Limit       int
	Page        int // 1-based
	PageSize    int
}

func (s Spec) dynamic() bool { return s.Query != "" || s.OrderText != "" }

// FindAll runs a Spec: filter, then order, then paginate or limit.
func (r *Repository[T]) FindAll(ctx context.Context, spec Spec) ([]T, error) {
	tx := r.db.WithContext(ctx)
	if spec.Filter != nil {
		tx = tx.Where(spec.Filter.SQL(), spec.Filter.Args()...)
	}

	if !spec.dynamic() {
		if len(spec.Order) > 0 {
			tx = tx.Order(filter.OrderSQL(spec.Order))
		}
		if spec.Page > 0 && spec.PageSize > 0 {
			tx = tx.Offset((spec.Page - 1) * spec.PageSize).Limit(spec.PageSize)
		} else if spec.Limit > 0 {
			tx = tx.Limit(spec.Limit)
		}
		var out []T
		if err := tx.Find(&out).Error; err != nil {
			return nil, err
		}
		return out, nil
	}

	// Dynamic path: fetch candidates (structured ordering may still be
	// pushed down), then compile and apply the textual parts in memory.
	if len(spec.Order) > 0 && spec.OrderText == "" {
		tx = tx.Order(filter.OrderSQL(spec.Order))
	}
	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}

	mem := query.Spec[T]{Limit: spec.Limit, Page: spec.Page, PageSize: spec.PageSize}
	if spec.Query != "" {
		pred, err := query.ParsePredicate[T](spec.Query, spec.QueryValues...)
		if err != nil {
			return nil, err
		}
		mem.Predicate = pred
	}
	if spec.OrderText != "" {
		ord, err := query.ParseOrdering[T](spec.OrderText)
		if err != nil {
			return nil, err
		}
		mem.Order = ord
	}
	out, err := query.Apply(rows, mem)
	if err != nil {
		return nil, err
	}
	r.log.Debug().Int("rows", len(out)).Str("query", spec.Query).Msg("find-all")
	return out, nil
}
