package repository

import (
	"context"
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/repository/mapper"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

type SnapshotRepository struct {
	store rowstore.Store
}

func NewSnapshotRepository(store rowstore.Store) *SnapshotRepository {
	return &SnapshotRepository{
		store: store,
	}
}

// Latest returns the newest snapshot of board, or nil when none was taken.
func (r *SnapshotRepository) Latest(ctx context.Context, board domain.BoardType) (*domain.Snapshot, error) {
	rows, err := r.store.Select(ctx, rowstore.TableSnapshots, rowstore.Query{
		Filters: []rowstore.Filter{rowstore.Eq("board", string(board))},
		Order:   []rowstore.Order{{Column: "taken_at", Desc: true}},
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	s, err := mapper.Snapshot(rows[0])
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, s domain.Snapshot) (domain.Snapshot, error) {
	row, err := mapper.SnapshotToRow(s)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("mapper.SnapshotToRow -> %w", err)
	}

	stored, err := r.store.Insert(ctx, rowstore.TableSnapshots, row)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("r.store.Insert -> %w", err)
	}

	return mapper.Snapshot(stored)
}
