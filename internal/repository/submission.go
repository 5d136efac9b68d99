package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/repository/mapper"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

// SubmissionRepository is the paper ledger. Rows are only ever appended.
type SubmissionRepository struct {
	store rowstore.Store
}

func NewSubmissionRepository(store rowstore.Store) *SubmissionRepository {
	return &SubmissionRepository{
		store: store,
	}
}

// Insert appends s to the ledger. When s carries an id that is already
// stored for the same user, the earlier row is returned instead, so a retry
// after a commit whose reply was lost adds nothing.
func (r *SubmissionRepository) Insert(ctx context.Context, s domain.PaperSubmission) (domain.PaperSubmission, error) {
	row, err := r.store.Insert(ctx, rowstore.TableSubmissions, mapper.SubmissionToRow(s))
	if err != nil {
		if s.ID != "" && errors.Is(err, rowstore.ErrConstraintViolation) {
			if prior, ok := r.find(ctx, s.ID); ok && prior.UserID == s.UserID && prior.EcoBoxID == s.EcoBoxID && prior.PapersCount == s.PapersCount {
				return prior, nil
			}
		}
		return domain.PaperSubmission{}, fmt.Errorf("r.store.Insert -> %w", err)
	}

	return mapper.Submission(row)
}

func (r *SubmissionRepository) find(ctx context.Context, id string) (domain.PaperSubmission, bool) {
	rows, err := r.store.Select(ctx, rowstore.TableSubmissions, rowstore.Query{Filters: []rowstore.Filter{rowstore.Eq("id", id)}})
	if err != nil || len(rows) == 0 {
		return domain.PaperSubmission{}, false
	}
	s, err := mapper.Submission(rows[0])
	return s, err == nil
}

// Ledger returns submissions, newest first. An empty userID reads everyone's.
func (r *SubmissionRepository) Ledger(ctx context.Context, userID string) ([]domain.PaperSubmission, error) {
	q := rowstore.Query{Order: []rowstore.Order{{Column: "submission_date", Desc: true}}}
	if userID != "" {
		q.Filters = []rowstore.Filter{rowstore.Eq("user_id", userID)}
	}

	rows, err := r.store.Select(ctx, rowstore.TableSubmissions, q)
	if err != nil {
		return nil, fmt.Errorf("r.store.Select -> %w", err)
	}

	return mapAll(rows, mapper.Submission)
}
