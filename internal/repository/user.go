package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/repository/mapper"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	store rowstore.Store
}

func NewUserRepository(store rowstore.Store) *UserRepository {
	return &UserRepository{
		store: store,
	}
}

func profileJoins() []rowstore.Join {
	return []rowstore.Join{
		{Table: rowstore.TableSchools, As: mapper.JoinSchool, ForeignKey: "school_id"},
		{Table: rowstore.TableClasses, As: mapper.JoinClass, ForeignKey: "class_id"},
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.UserProfile, error) {
	rows, err := r.store.Select(ctx, rowstore.TableProfiles, rowstore.Query{
		Filters: []rowstore.Filter{rowstore.Eq("id", id)},
		Joins:   profileJoins(),
		Limit:   1,
	})
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("r.store.Select -> %w", err)
	}
	if len(rows) == 0 {
		return domain.UserProfile{}, ErrUserNotFound
	}

	return mapper.Profile(rows[0])
}

func (r *UserRepository) FindCredential(ctx context.Context, email string) (domain.Credential, error) {
	rows, err := r.store.Select(ctx, rowstore.TableCredentials, rowstore.Query{
		Filters: []rowstore.Filter{rowstore.Eq("email", email)},
		Limit:   1,
	})
	if err != nil {
		return domain.Credential{}, fmt.Errorf("r.store.Select -> %w", err)
	}
	if len(rows) == 0 {
		return domain.Credential{}, ErrUserNotFound
	}

	return mapper.Credential(rows[0])
}

// Create stores the profile and then its credential. A taken email surfaces
// as domain.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, profile domain.UserProfile, passwordHash string) (domain.UserProfile, error) {
	row := rowstore.Row{
		"id":           profile.ID,
		"email":        profile.Email,
		"first_name":   profile.FirstName,
		"last_name":    profile.LastName,
		"role":         string(profile.Role),
		"total_papers": 0,
	}
	if profile.School != nil {
		row["school_id"] = profile.School.ID
	}
	if profile.Class != nil {
		row["class_id"] = profile.Class.ID
	}
	if profile.JoinedDate != nil {
		row["joined_date"] = *profile.JoinedDate
	}

	if _, err := r.store.Insert(ctx, rowstore.TableProfiles, row); err != nil {
		if errors.Is(err, rowstore.ErrConstraintViolation) {
			return domain.UserProfile{}, domain.ErrEmailTaken
		}
		return domain.UserProfile{}, fmt.Errorf("r.store.Insert profile -> %w", err)
	}

	if _, err := r.store.Insert(ctx, rowstore.TableCredentials, rowstore.Row{
		"user_id":       profile.ID,
		"email":         profile.Email,
		"password_hash": passwordHash,
	}); err != nil {
		if errors.Is(err, rowstore.ErrConstraintViolation) {
			return domain.UserProfile{}, domain.ErrEmailTaken
		}
		return domain.UserProfile{}, fmt.Errorf("r.store.Insert credential -> %w", err)
	}

	return r.FindByID(ctx, profile.ID)
}

// StudentStandings is the student board input, capped at limit.
func (r *UserRepository) StudentStandings(ctx context.Context, limit int) ([]domain.Standing, error) {
	rows, err := r.store.Select(ctx, rowstore.TableProfiles, rowstore.Query{
		Filters: []rowstore.Filter{rowstore.Eq("role", string(domain.RoleStudent))},
		Joins:   profileJoins(),
		Order:   []rowstore.Order{{Column: "total_papers", Desc: true}},
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.StudentStanding)
}

func (r *UserRepository) CountStudents(ctx context.Context) (int, error) {
	rows, err := r.store.Select(ctx, rowstore.TableProfiles, rowstore.Query{
		Filters: []rowstore.Filter{rowstore.Eq("role", string(domain.RoleStudent))},
	})
	if err != nil {
		return 0, fmt.Errorf("r.store.Select -> %w", err)
	}

	return len(rows), nil
}
