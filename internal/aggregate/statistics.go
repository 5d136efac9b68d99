package aggregate

import (
	"time"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

const (
	statisticsWindow = 30 * 24 * time.Hour
	noTopSchool      = "N/A"
)

type StatisticsInput struct {
	Schools    []domain.Standing
	Students   int
	Ledger     []domain.PaperSubmission
	Challenges []domain.Challenge
	Now        time.Time
}

// Statistics summarises the whole program. Totals come from the ledger.
// MonthlyGrowth compares the last 30 days with the 30 before, in percent;
// it is 0 when the earlier window is empty.
func Statistics(in StatisticsInput) domain.Statistics {
	var total, recent, earlier int
	recentStart := in.Now.Add(-statisticsWindow)
	earlierStart := recentStart.Add(-statisticsWindow)

	for _, s := range in.Ledger {
		total += s.PapersCount
		if s.SubmissionDate == nil {
			continue
		}
		switch at := *s.SubmissionDate; {
		case !at.Before(recentStart):
			recent += s.PapersCount
		case !at.Before(earlierStart):
			earlier += s.PapersCount
		}
	}

	active := 0
	for _, c := range in.Challenges {
		if !c.EndDate.Before(in.Now) {
			active++
		}
	}

	top := noTopSchool
	if ranked := ComputeRanking(in.Schools, nil); len(ranked) > 0 {
		top = ranked[0].Name
	}

	impact := ImpactOf(total)
	stats := domain.Statistics{
		TotalPapers:      total,
		TotalStudents:    in.Students,
		TotalSchools:     len(in.Schools),
		SavedTrees:       impact.SavedTrees,
		CarbonReduced:    impact.CarbonReducedKg,
		DailyAverage:     total / 30,
		TopSchool:        top,
		ActiveChallenges: active,
	}
	if earlier > 0 {
		stats.MonthlyGrowth = round2(float64(recent-earlier) / float64(earlier) * 100)
	}
	return stats
}
