package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

var ErrUnsupportedOp = errors.New("unsupported filter operator")

// Store is the Postgres Row Store. Rows travel as map[string]any so every
// table goes through the same three operations.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Select(ctx context.Context, table string, q rowstore.Query) ([]rowstore.Row, error) {
	rows, err := s.selectRows(ctx, table, q)
	if err != nil {
		return nil, err
	}

	for _, j := range q.Joins {
		if err := rowstore.Embed(ctx, rows, j, s.selectRows); err != nil {
			return nil, fmt.Errorf("dao.Select %s -> %w", table, err)
		}
	}

	return rows, nil
}

func (s *Store) selectRows(ctx context.Context, table string, q rowstore.Query) ([]rowstore.Row, error) {
	tx, err := s.query(ctx, table, q)
	if err != nil {
		return nil, &rowstore.Error{Op: "select", Table: table, Err: err}
	}

	var found []map[string]any
	if err := tx.Find(&found).Error; err != nil {
		return nil, classify("select", table, err)
	}

	rows := make([]rowstore.Row, len(found))
	for i := range found {
		rows[i] = found[i]
	}
	return rows, nil
}

func (s *Store) query(ctx context.Context, table string, q rowstore.Query) (*gorm.DB, error) {
	tx := s.db.WithContext(ctx).Table(table)

	exprs, err := where(q.Filters)
	if err != nil {
		return nil, err
	}
	for _, e := range exprs {
		tx = tx.Where(e)
	}

	for _, o := range q.Order {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	return tx, nil
}

// Insert assigns a uuid when the row has no id, then reads the stored row
// back so column defaults are visible to the caller.
func (s *Store) Insert(ctx context.Context, table string, row rowstore.Row) (rowstore.Row, error) {
	values := map[string]any(row.Clone())
	id := rowstore.Key(values["id"])
	if id == "" {
		id = uuid.NewString()
		values["id"] = id
	}

	if err := s.db.WithContext(ctx).Table(table).Create(values).Error; err != nil {
		return nil, classify("insert", table, err)
	}

	rows, err := s.selectRows(ctx, table, rowstore.Query{Filters: []rowstore.Filter{rowstore.Eq("id", id)}})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, rowstore.NewError(rowstore.ErrNotFound, "insert", table, errors.New("inserted row is not readable"))
	}

	return rows[0], nil
}

// Update patches every row matching filters. Matching nothing is NotFound.
func (s *Store) Update(ctx context.Context, table string, filters []rowstore.Filter, patch rowstore.Row) error {
	if len(filters) == 0 {
		return rowstore.NewError(rowstore.ErrConstraintViolation, "update", table, errors.New("update without filters"))
	}

	tx, err := s.query(ctx, table, rowstore.Query{Filters: filters})
	if err != nil {
		return &rowstore.Error{Op: "update", Table: table, Err: err}
	}

	result := tx.Updates(map[string]any(patch))
	if result.Error != nil {
		return classify("update", table, result.Error)
	}
	if result.RowsAffected == 0 {
		return rowstore.NewError(rowstore.ErrNotFound, "update", table, nil)
	}

	return nil
}

func where(filters []rowstore.Filter) ([]clause.Expression, error) {
	exprs := make([]clause.Expression, 0, len(filters))
	for _, f := range filters {
		col := clause.Column{Name: f.Column}

		switch f.Op {
		case rowstore.OpEq:
			exprs = append(exprs, clause.Eq{Column: col, Value: f.Value})
		case rowstore.OpNeq:
			exprs = append(exprs, clause.Neq{Column: col, Value: f.Value})
		case rowstore.OpGt:
			exprs = append(exprs, clause.Gt{Column: col, Value: f.Value})
		case rowstore.OpGte:
			exprs = append(exprs, clause.Gte{Column: col, Value: f.Value})
		case rowstore.OpLt:
			exprs = append(exprs, clause.Lt{Column: col, Value: f.Value})
		case rowstore.OpLte:
			exprs = append(exprs, clause.Lte{Column: col, Value: f.Value})
		case rowstore.OpIn:
			values, ok := f.Value.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: in expects []any, got %T", ErrUnsupportedOp, f.Value)
			}
			exprs = append(exprs, clause.IN{Column: col, Values: values})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedOp, f.Op)
		}
	}
	return exprs, nil
}
