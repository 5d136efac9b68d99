package mapper

import (
	"encoding/json"
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

const minQuizOptions = 2

func QuizQuestion(row rowstore.Row) (domain.QuizQuestion, error) {
	r := read("quiz_question", row)
	q := domain.QuizQuestion{
		ID:                  r.str("id"),
		Question:            r.str("question"),
		QuestionGeorgian:    r.str("question_georgian"),
		Options:             r.strs("options"),
		OptionsGeorgian:     r.strs("options_georgian"),
		CorrectAnswer:       r.count("correct_answer"),
		Explanation:         r.str("explanation"),
		ExplanationGeorgian: r.str("explanation_georgian"),
		Category:            domain.QuizCategory(r.enum("category", func(s string) bool { return domain.QuizCategory(s).Valid() })),
		Difficulty:          domain.TipDifficulty(r.enum("difficulty", func(s string) bool { return domain.TipDifficulty(s).Valid() })),
	}
	if r.err != nil {
		return domain.QuizQuestion{}, r.err
	}

	switch {
	case len(q.Options) < minQuizOptions:
		r.fail("options", fmt.Sprintf("has %d entries, want at least %d", len(q.Options), minQuizOptions))
	case len(q.OptionsGeorgian) != len(q.Options):
		r.fail("options_georgian", fmt.Sprintf("has %d entries, options has %d", len(q.OptionsGeorgian), len(q.Options)))
	case q.CorrectAnswer >= len(q.Options):
		r.fail("correct_answer", fmt.Sprintf("is %d, past the last option", q.CorrectAnswer))
	}
	if r.err != nil {
		return domain.QuizQuestion{}, r.err
	}
	return q, nil
}

// QuizQuestionToRow writes options as JSON text for the jsonb columns.
func QuizQuestionToRow(q domain.QuizQuestion) (rowstore.Row, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal -> %w", err)
	}
	optionsGeorgian, err := json.Marshal(q.OptionsGeorgian)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal -> %w", err)
	}

	return rowstore.Row{
		"id":                   q.ID,
		"question":             q.Question,
		"question_georgian":    q.QuestionGeorgian,
		"options":              string(options),
		"options_georgian":     string(optionsGeorgian),
		"correct_answer":       q.CorrectAnswer,
		"explanation":          q.Explanation,
		"explanation_georgian": q.ExplanationGeorgian,
		"category":             string(q.Category),
		"difficulty":           string(q.Difficulty),
	}, nil
}
