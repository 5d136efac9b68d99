package domain

import "time"

type ChallengeType string

const (
	ChallengeDaily   ChallengeType = "daily"
	ChallengeWeekly  ChallengeType = "weekly"
	ChallengeMonthly ChallengeType = "monthly"
	ChallengeSpecial ChallengeType = "special"
)

func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeDaily, ChallengeWeekly, ChallengeMonthly, ChallengeSpecial:
		return true
	}
	return false
}

type Challenge struct {
	ID                  string        `json:"id"`
	Title               string        `json:"title"`
	TitleGeorgian       string        `json:"titleGeorgian"`
	Description         string        `json:"description"`
	DescriptionGeorgian string        `json:"descriptionGeorgian"`
	Type                ChallengeType `json:"type"`
	Target              int           `json:"target"`
	Reward              int           `json:"reward"`
	StartDate           time.Time     `json:"startDate"`
	EndDate             time.Time     `json:"endDate"`
	Participants        *int          `json:"participants,omitempty"`
}

// Active reports whether now falls inside [StartDate, EndDate).
func (c Challenge) Active(now time.Time) bool {
	return !now.Before(c.StartDate) && now.Before(c.EndDate)
}

type UserChallenge struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Challenge       Challenge  `json:"challenge"`
	Progress        int        `json:"progress"`
	Completed       bool       `json:"completed"`
	JoinedDate      *time.Time `json:"joinedDate,omitempty"`
	ProgressPercent float64    `json:"progressPercent"`
}
