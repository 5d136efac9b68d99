package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/query"
	"github.com/ecobox-ge/ecobox-api/internal/realtime"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
	"github.com/ecobox-ge/ecobox-api/internal/service"
)

func TestQuiz_Questions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	all, err := h.quiz.Questions(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, all.Data, 5)
	assert.Equal(t, "q1", all.Data[0].ID)
	assert.Len(t, all.Data[0].Options, 4)

	recycling, err := h.quiz.Questions(ctx, "recycling", false)
	require.NoError(t, err)
	assert.Len(t, recycling.Data, 2)

	_, err = h.quiz.Questions(ctx, "transportation", false)
	assert.ErrorIs(t, err, service.ErrUnknownCategory)
}

func TestQuiz_Grade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.quiz.Grade(ctx, "user1", []domain.QuizAnswer{
		{QuestionID: "q1", Selected: 2},
		{QuestionID: "q2", Selected: 1},
		{QuestionID: "q3", Selected: 2},
		{QuestionID: "q4", Selected: 0},
		{QuestionID: "q5", Selected: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Correct)
	assert.Equal(t, 5, res.Total)
	assert.InDelta(t, 60.0, res.ScorePercent, 1e-9)
	assert.Equal(t, domain.BandGood, res.Band)
	assert.Equal(t, 2, res.Answers[3].CorrectAnswer)
	assert.NotEmpty(t, res.Answers[3].Explanation)

	_, err = h.quiz.Grade(ctx, "user1", nil)
	assert.ErrorIs(t, err, service.ErrNoAnswers)

	_, err = h.quiz.Grade(ctx, "user1", []domain.QuizAnswer{{QuestionID: "q1", Selected: 7}})
	assert.ErrorIs(t, err, domain.ErrAnswerOutOfRange)
}

func TestQuiz_BankEditInvalidatesEveryCategory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.bridge(t)

	_, err := b.Open(rowstore.TableQuiz, realtime.EventAll, "", nil)
	require.NoError(t, err)

	_, err = h.quiz.Questions(ctx, "", false)
	require.NoError(t, err)
	_, err = h.quiz.Questions(ctx, "water", false)
	require.NoError(t, err)
	h.resetSeen()

	require.NoError(t, h.store.Update(ctx, rowstore.TableQuiz,
		[]rowstore.Filter{rowstore.Eq("id", "q4")}, rowstore.Row{"correct_answer": 1}))

	require.Eventually(t, func() bool {
		seen := h.seen()
		return containsKey(seen, query.NewKey(query.KeyQuizQuestions)) &&
			containsKey(seen, query.NewKey(query.KeyQuizQuestions, "water"))
	}, time.Second, 5*time.Millisecond)

	h.client.Wait()
	res, err := h.quiz.Grade(ctx, "user1", []domain.QuizAnswer{{QuestionID: "q4", Selected: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Correct, "grading uses the edited bank")
}

func containsKey(keys []query.Key, want query.Key) bool {
	for _, k := range keys {
		if k == want {
			return true
		}
	}
	return false
}
