package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/repository/mapper"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

var ErrNotificationNotFound = errors.New("notification not found")

type ContentRepository struct {
	store rowstore.Store
}

func NewContentRepository(store rowstore.Store) *ContentRepository {
	return &ContentRepository{
		store: store,
	}
}

// EcoTips lists tips, newest first. A nil category lists all of them.
func (r *ContentRepository) EcoTips(ctx context.Context, category *domain.TipCategory) ([]domain.EcoTip, error) {
	q := rowstore.Query{Order: []rowstore.Order{{Column: "created_at", Desc: true}, {Column: "id"}}}
	if category != nil {
		q.Filters = []rowstore.Filter{rowstore.Eq("category", string(*category))}
	}

	rows, err := r.store.Select(ctx, rowstore.TableEcoTips, q)
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.EcoTip)
}

// QuizQuestions lists the question bank in id order. A nil category lists
// every question.
func (r *ContentRepository) QuizQuestions(ctx context.Context, category *domain.QuizCategory) ([]domain.QuizQuestion, error) {
	q := rowstore.Query{Order: []rowstore.Order{{Column: "id"}}}
	if category != nil {
		q.Filters = []rowstore.Filter{rowstore.Eq("category", string(*category))}
	}

	rows, err := r.store.Select(ctx, rowstore.TableQuiz, q)
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.QuizQuestion)
}

func (r *ContentRepository) Notifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := r.store.Select(ctx, rowstore.TableNotifications, rowstore.Query{
		Filters: []rowstore.Filter{rowstore.Eq("user_id", userID)},
		Order:   []rowstore.Order{{Column: "created_at", Desc: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.Notification)
}

// MarkRead flags one of the user's notifications as read. The user filter
// keeps one user from touching another's notifications.
func (r *ContentRepository) MarkRead(ctx context.Context, userID, id string) error {
	err := r.store.Update(ctx, rowstore.TableNotifications, []rowstore.Filter{
		rowstore.Eq("id", id),
		rowstore.Eq("user_id", userID),
	}, rowstore.Row{"read": true})
	if err != nil {
		if errors.Is(err, rowstore.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("r.store.Update -> %w", err)
	}

	return nil
}
