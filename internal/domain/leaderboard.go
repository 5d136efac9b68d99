package domain

import "time"

type BoardType string

const (
	BoardStudent BoardType = "student"
	BoardClass   BoardType = "class"
	BoardSchool  BoardType = "school"
)

func (b BoardType) Valid() bool {
	switch b {
	case BoardStudent, BoardClass, BoardSchool:
		return true
	}
	return false
}

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendSame Trend = "same"
)

// Standing is the ranking input: one competitor and its paper count.
type Standing struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Type   BoardType `json:"type"`
	School *string   `json:"school,omitempty"`
	Avatar *string   `json:"avatar,omitempty"`
	Papers int       `json:"papers"`
}

type LeaderboardEntry struct {
	Standing
	Rank   int   `json:"rank"`
	Change int   `json:"change"`
	Trend  Trend `json:"trend"`
}

// Snapshot is a persisted ranking used as the previous period for trend/change.
type Snapshot struct {
	ID      string         `json:"id"`
	Board   BoardType      `json:"board"`
	TakenAt time.Time      `json:"takenAt"`
	Ranks   map[string]int `json:"ranks"`
}
