package domain

import "time"

type TipCategory string

const (
	TipRecycling      TipCategory = "recycling"
	TipEnergy         TipCategory = "energy"
	TipWater          TipCategory = "water"
	TipTransportation TipCategory = "transportation"
	TipGeneral        TipCategory = "general"
)

func (c TipCategory) Valid() bool {
	switch c {
	case TipRecycling, TipEnergy, TipWater, TipTransportation, TipGeneral:
		return true
	}
	return false
}

type TipDifficulty string

const (
	DifficultyEasy   TipDifficulty = "easy"
	DifficultyMedium TipDifficulty = "medium"
	DifficultyHard   TipDifficulty = "hard"
)

func (d TipDifficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

type TipImpact string

const (
	ImpactLow    TipImpact = "low"
	ImpactMedium TipImpact = "medium"
	ImpactHigh   TipImpact = "high"
)

func (i TipImpact) Valid() bool {
	return i == ImpactLow || i == ImpactMedium || i == ImpactHigh
}

type EcoTip struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	TitleGeorgian   string        `json:"titleGeorgian"`
	Content         string        `json:"content"`
	ContentGeorgian string        `json:"contentGeorgian"`
	Category        TipCategory   `json:"category"`
	Difficulty      TipDifficulty `json:"difficulty"`
	Impact          TipImpact     `json:"impact"`
	Icon            string        `json:"icon"`
}

type NotificationType string

const (
	NotificationAchievement NotificationType = "achievement"
	NotificationChallenge   NotificationType = "challenge"
	NotificationRanking     NotificationType = "ranking"
	NotificationSystem      NotificationType = "system"
	NotificationEducational NotificationType = "educational"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationAchievement, NotificationChallenge, NotificationRanking, NotificationSystem, NotificationEducational:
		return true
	}
	return false
}

type Notification struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	Type            NotificationType `json:"type"`
	Title           string           `json:"title"`
	TitleGeorgian   string           `json:"titleGeorgian"`
	Message         string           `json:"message"`
	MessageGeorgian string           `json:"messageGeorgian"`
	Read            bool             `json:"read"`
	CreatedAt       *time.Time       `json:"createdAt,omitempty"`
	ActionURL       *string          `json:"actionUrl,omitempty"`
	Icon            *string          `json:"icon,omitempty"`
}

// PaperSubmission is one append-only ledger entry.
type PaperSubmission struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	EcoBoxID       string     `json:"ecoboxId"`
	PapersCount    int        `json:"papersCount"`
	SubmissionDate *time.Time `json:"submissionDate,omitempty"`
	Verified       *bool      `json:"verified,omitempty"`
}

type Statistics struct {
	TotalPapers      int     `json:"totalPapers"`
	TotalStudents    int     `json:"totalStudents"`
	TotalSchools     int     `json:"totalSchools"`
	SavedTrees       float64 `json:"savedTrees"`
	CarbonReduced    float64 `json:"carbonReduced"`
	MonthlyGrowth    float64 `json:"monthlyGrowth"`
	DailyAverage     int     `json:"dailyAverage"`
	TopSchool        string  `json:"topSchool"`
	ActiveChallenges int     `json:"activeChallenges"`
}
