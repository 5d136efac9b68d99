package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

const maxQuizAnswers = 50

type QuizAnswer struct {
	QuestionID string `json:"questionId"`
	Selected   int    `json:"selected"`
}

func (a QuizAnswer) Validate() error {
	return validation.ValidateStruct(
		&a,
		validation.Field(&a.QuestionID, validation.Required, validation.Match(idExp)),
		validation.Field(&a.Selected, validation.Min(0)),
	)
}

type SubmitQuizRequest struct {
	Answers []QuizAnswer `json:"answers"`
}

func (req *SubmitQuizRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Answers, validation.Required, validation.Length(1, maxQuizAnswers)),
	)
}

func (req *SubmitQuizRequest) DomainAnswers() []domain.QuizAnswer {
	out := make([]domain.QuizAnswer, len(req.Answers))
	for i, a := range req.Answers {
		out[i] = domain.QuizAnswer{QuestionID: a.QuestionID, Selected: a.Selected}
	}
	return out
}
