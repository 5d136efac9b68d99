package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/repository/mapper"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrAlreadyJoined     = errors.New("challenge already joined")
)

// GamificationRepository reads the achievement and challenge catalogs and
// each user's standing against them.
type GamificationRepository struct {
	store rowstore.Store
}

func NewGamificationRepository(store rowstore.Store) *GamificationRepository {
	return &GamificationRepository{
		store: store,
	}
}

func (r *GamificationRepository) Achievements(ctx context.Context) ([]domain.Achievement, error) {
	rows, err := r.store.Select(ctx, rowstore.TableAchievements, rowstore.Query{
		Order: []rowstore.Order{{Column: "requirement"}},
	})
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.Achievement)
}

func (r *GamificationRepository) UserAchievements(ctx context.Context, userID string) ([]domain.AchievementProgress, error) {
	rows, err := r.store.Select(ctx, rowstore.TableUserAchieve, rowstore.Query{
		Filters: []rowstore.Filter{rowstore.Eq("user_id", userID)},
		Joins:   []rowstore.Join{{Table: rowstore.TableAchievements, As: mapper.JoinAchievement, ForeignKey: "achievement_id"}},
	})
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.AchievementProgress)
}

func (r *GamificationRepository) Challenges(ctx context.Context) ([]domain.Challenge, error) {
	rows, err := r.store.Select(ctx, rowstore.TableChallenges, rowstore.Query{
		Order: []rowstore.Order{{Column: "end_date"}},
	})
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.Challenge)
}

func (r *GamificationRepository) UserChallenges(ctx context.Context, userID string) ([]domain.UserChallenge, error) {
	rows, err := r.store.Select(ctx, rowstore.TableUserChallenge, rowstore.Query{
		Filters: []rowstore.Filter{rowstore.Eq("user_id", userID)},
		Joins:   []rowstore.Join{{Table: rowstore.TableChallenges, As: mapper.JoinChallenge, ForeignKey: "challenge_id"}},
	})
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.UserChallenge)
}

func (r *GamificationRepository) FindChallenge(ctx context.Context, id string) (domain.Challenge, error) {
	rows, err := r.store.Select(ctx, rowstore.TableChallenges, rowstore.Query{
		Filters: []rowstore.Filter{rowstore.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("r.store.Select -> %w", err)
	}
	if len(rows) == 0 {
		return domain.Challenge{}, ErrChallengeNotFound
	}

	return mapper.Challenge(rows[0])
}

// JoinChallenge enrols a user. Joining twice is ErrAlreadyJoined.
func (r *GamificationRepository) JoinChallenge(ctx context.Context, uc domain.UserChallenge) error {
	if _, err := r.store.Insert(ctx, rowstore.TableUserChallenge, mapper.UserChallengeToRow(uc)); err != nil {
		if errors.Is(err, rowstore.ErrConstraintViolation) {
			return ErrAlreadyJoined
		}
		return fmt.Errorf("r.store.Insert -> %w", err)
	}

	return nil
}
