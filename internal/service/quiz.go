package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ecobox-ge/ecobox-api/internal/aggregate"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/query"
)

var ErrNoAnswers = errors.New("no answers given")

type QuizRepository interface {
	QuizQuestions(ctx context.Context, category *domain.QuizCategory) ([]domain.QuizQuestion, error)
}

// QuizService serves the question bank through the cache and grades answers
// against it. Correct options never leave the server before grading.
type QuizService struct {
	client *query.Client
	repo   QuizRepository
}

func NewQuizService(client *query.Client, repo QuizRepository) *QuizService {
	s := &QuizService{
		client: client,
		repo:   repo,
	}
	client.Define(query.KeyQuizQuestions, func(category string) query.Fetcher {
		return func(ctx context.Context) (any, error) {
			if category == "" {
				return s.repo.QuizQuestions(ctx, nil)
			}
			c := domain.QuizCategory(category)
			return s.repo.QuizQuestions(ctx, &c)
		}
	})
	return s
}

func (s *QuizService) Questions(ctx context.Context, category string, refetch bool) (query.Result[[]domain.QuizQuestion], error) {
	if category != "" && !domain.QuizCategory(category).Valid() {
		return query.Result[[]domain.QuizQuestion]{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return read[[]domain.QuizQuestion](ctx, s.client, query.NewKey(query.KeyQuizQuestions, category), refetch)
}

// Grade scores answers for userID against the whole bank. A stale bank is
// good enough to grade with; only a bank that never loaded fails.
func (s *QuizService) Grade(ctx context.Context, userID string, answers []domain.QuizAnswer) (domain.QuizResult, error) {
	if len(answers) == 0 {
		return domain.QuizResult{}, ErrNoAnswers
	}

	bank, err := s.Questions(ctx, "", false)
	if err != nil {
		return domain.QuizResult{}, fmt.Errorf("s.Questions -> %w", err)
	}
	if bank.IsError && bank.UpdatedAt == nil {
		return domain.QuizResult{}, fmt.Errorf("s.Questions -> %w", bank.Err)
	}

	res, err := aggregate.GradeQuiz(bank.Data, answers)
	if err != nil {
		return domain.QuizResult{}, fmt.Errorf("aggregate.GradeQuiz -> %w", err)
	}

	zap.L().Info("quiz graded",
		zap.String("user_id", userID), zap.Int("correct", res.Correct), zap.Int("total", res.Total), zap.String("band", string(res.Band)))

	return res, nil
}
