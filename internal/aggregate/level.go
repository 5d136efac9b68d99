// Package aggregate derives gamification state from mapped entities. Nothing
// here performs I/O, reads the clock or mutates its inputs.
package aggregate

import "math"

const (
	DefaultPapersPerLevel = 100

	TreesPerPaper = 0.01
	CO2KgPerPaper = 0.5
)

// Level is floor(totalPapers / papersPerLevel).
func Level(totalPapers, papersPerLevel int) int {
	if papersPerLevel <= 0 {
		papersPerLevel = DefaultPapersPerLevel
	}
	return totalPapers / papersPerLevel
}

// LevelProgressPercent is the share of the current level already collected, in [0, 100).
func LevelProgressPercent(totalPapers, papersPerLevel int) float64 {
	if papersPerLevel <= 0 {
		papersPerLevel = DefaultPapersPerLevel
	}
	return float64(totalPapers%papersPerLevel) / float64(papersPerLevel) * 100
}

type Impact struct {
	SavedTrees      float64 `json:"savedTrees"`
	CarbonReducedKg float64 `json:"carbonReducedKg"`
}

func ImpactOf(totalPapers int) Impact {
	return Impact{
		SavedTrees:      round2(float64(totalPapers) * TreesPerPaper),
		CarbonReducedKg: round2(float64(totalPapers) * CO2KgPerPaper),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
