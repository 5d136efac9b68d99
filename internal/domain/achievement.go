package domain

import "time"

type AchievementCategory string

const (
	CategoryRecycling   AchievementCategory = "recycling"
	CategoryStreak      AchievementCategory = "streak"
	CategoryCompetition AchievementCategory = "competition"
	CategoryEducation   AchievementCategory = "education"
	CategorySpecial     AchievementCategory = "special"
)

func (c AchievementCategory) Valid() bool {
	switch c {
	case CategoryRecycling, CategoryStreak, CategoryCompetition, CategoryEducation, CategorySpecial:
		return true
	}
	return false
}

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

// Achievement is catalog data.
type Achievement struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	NameGeorgian        string              `json:"nameGeorgian"`
	Description         string              `json:"description"`
	DescriptionGeorgian string              `json:"descriptionGeorgian"`
	Icon                string              `json:"icon"`
	Category            AchievementCategory `json:"category"`
	Requirement         int                 `json:"requirement"`
	Rarity              Rarity              `json:"rarity"`
}

// AchievementProgress is one user's standing against a catalog entry.
// Progress is a raw count in the unit of Requirement.
type AchievementProgress struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	Achievement     Achievement `json:"achievement"`
	Progress        int         `json:"progress"`
	EarnedDate      *time.Time  `json:"earnedDate,omitempty"`
	Earned          bool        `json:"earned"`
	ProgressPercent float64     `json:"progressPercent"`
}
