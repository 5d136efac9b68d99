package repository

import (
	"context"
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/repository/mapper"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

type SchoolRepository struct {
	store rowstore.Store
}

func NewSchoolRepository(store rowstore.Store) *SchoolRepository {
	return &SchoolRepository{
		store: store,
	}
}

// List returns every school with its devices and classes, best ranked first.
func (r *SchoolRepository) List(ctx context.Context) ([]domain.School, error) {
	rows, err := r.store.Select(ctx, rowstore.TableSchools, rowstore.Query{
		Joins: []rowstore.Join{
			{Table: rowstore.TableDevices, As: mapper.JoinDevices, ForeignKey: "school_id", Many: true},
			{Table: rowstore.TableClasses, As: mapper.JoinClasses, ForeignKey: "school_id", Many: true},
		},
		Order: []rowstore.Order{{Column: "ranking"}, {Column: "total_papers", Desc: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.School)
}

func (r *SchoolRepository) ListDevices(ctx context.Context) ([]domain.EcoBoxDevice, error) {
	rows, err := r.store.Select(ctx, rowstore.TableDevices, rowstore.Query{
		Order: []rowstore.Order{{Column: "created_at", Desc: true}, {Column: "id"}},
	})
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.Device)
}

// FindDevice returns domain.ErrUnknownDevice when no device has the id.
func (r *SchoolRepository) FindDevice(ctx context.Context, id string) (domain.EcoBoxDevice, error) {
	rows, err := r.store.Select(ctx, rowstore.TableDevices, rowstore.Query{
		Filters: []rowstore.Filter{rowstore.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return domain.EcoBoxDevice{}, fmt.Errorf("r.store.Select -> %w", err)
	}
	if len(rows) == 0 {
		return domain.EcoBoxDevice{}, domain.ErrUnknownDevice
	}

	return mapper.Device(rows[0])
}

// Standings is the school board input.
func (r *SchoolRepository) Standings(ctx context.Context) ([]domain.Standing, error) {
	rows, err := r.store.Select(ctx, rowstore.TableSchools, rowstore.Query{
		Order: []rowstore.Order{{Column: "total_papers", Desc: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.SchoolStanding)
}

// ClassStandings is the class board input. Each class carries its school name.
func (r *SchoolRepository) ClassStandings(ctx context.Context) ([]domain.Standing, error) {
	rows, err := r.store.Select(ctx, rowstore.TableClasses, rowstore.Query{
		Joins: []rowstore.Join{{Table: rowstore.TableSchools, As: mapper.JoinSchool, ForeignKey: "school_id"}},
		Order: []rowstore.Order{{Column: "total_papers", Desc: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.ClassStanding)
}

func mapAll[T any](rows []rowstore.Row, fn func(rowstore.Row) (T, error)) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := fn(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
