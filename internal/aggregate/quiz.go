package aggregate

import (
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

// GradeQuiz scores answers against the question bank, in answer order.
// Every answer must name a known question, once, with an existing option.
func GradeQuiz(bank []domain.QuizQuestion, answers []domain.QuizAnswer) (domain.QuizResult, error) {
	byID := make(map[string]domain.QuizQuestion, len(bank))
	for _, q := range bank {
		byID[q.ID] = q
	}

	res := domain.QuizResult{Total: len(answers), Answers: make([]domain.GradedAnswer, 0, len(answers))}
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return domain.QuizResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownQuestion, a.QuestionID)
		}
		if seen[a.QuestionID] {
			return domain.QuizResult{}, fmt.Errorf("%w: %q", domain.ErrDuplicateAnswer, a.QuestionID)
		}
		seen[a.QuestionID] = true
		if a.Selected < 0 || a.Selected >= len(q.Options) {
			return domain.QuizResult{}, fmt.Errorf("%w: %q has %d options", domain.ErrAnswerOutOfRange, a.QuestionID, len(q.Options))
		}

		g := domain.GradedAnswer{
			QuestionID:          q.ID,
			Selected:            a.Selected,
			CorrectAnswer:       q.CorrectAnswer,
			Correct:             a.Selected == q.CorrectAnswer,
			Explanation:         q.Explanation,
			ExplanationGeorgian: q.ExplanationGeorgian,
		}
		if g.Correct {
			res.Correct++
		}
		res.Answers = append(res.Answers, g)
	}

	res.ScorePercent = ProgressPercent(res.Correct, res.Total)
	if res.Total == 0 {
		res.ScorePercent = 0
	}
	res.Band = QuizBandOf(res.ScorePercent)
	return res, nil
}

// QuizBandOf: 80% and up is excellent, 60% and up good.
func QuizBandOf(percent float64) domain.QuizBand {
	switch {
	case percent >= 80:
		return domain.BandExcellent
	case percent >= 60:
		return domain.BandGood
	}
	return domain.BandKeepLearning
}
