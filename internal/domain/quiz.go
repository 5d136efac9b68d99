package domain

import "errors"

var (
	ErrUnknownQuestion  = errors.New("unknown quiz question")
	ErrAnswerOutOfRange = errors.New("answer is not one of the options")
	ErrDuplicateAnswer  = errors.New("question answered twice")
)

type QuizCategory string

const (
	QuizRecycling QuizCategory = "recycling"
	QuizEnergy    QuizCategory = "energy"
	QuizWater     QuizCategory = "water"
	QuizGeneral   QuizCategory = "general"
)

func (c QuizCategory) Valid() bool {
	switch c {
	case QuizRecycling, QuizEnergy, QuizWater, QuizGeneral:
		return true
	}
	return false
}

// QuizQuestion is one multiple-choice question. The correct option and the
// explanation stay server-side until the answer is graded.
type QuizQuestion struct {
	ID                  string        `json:"id"`
	Question            string        `json:"question"`
	QuestionGeorgian    string        `json:"questionGeorgian"`
	Options             []string      `json:"options"`
	OptionsGeorgian     []string      `json:"optionsGeorgian"`
	CorrectAnswer       int           `json:"-"`
	Explanation         string        `json:"-"`
	ExplanationGeorgian string        `json:"-"`
	Category            QuizCategory  `json:"category"`
	Difficulty          TipDifficulty `json:"difficulty"`
}

type QuizAnswer struct {
	QuestionID string `json:"questionId"`
	Selected   int    `json:"selected"`
}

type GradedAnswer struct {
	QuestionID          string `json:"questionId"`
	Selected            int    `json:"selected"`
	CorrectAnswer       int    `json:"correctAnswer"`
	Correct             bool   `json:"correct"`
	Explanation         string `json:"explanation"`
	ExplanationGeorgian string `json:"explanationGeorgian"`
}

// QuizBand buckets a score the way the results screen colours it.
type QuizBand string

const (
	BandExcellent    QuizBand = "excellent"
	BandGood         QuizBand = "good"
	BandKeepLearning QuizBand = "keep-learning"
)

type QuizResult struct {
	Correct      int            `json:"correct"`
	Total        int            `json:"total"`
	ScorePercent float64        `json:"scorePercent"`
	Band         QuizBand       `json:"band"`
	Answers      []GradedAnswer `json:"answers"`
}
