package aggregate

import (
	"sort"
	"time"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

// Streak counts consecutive calendar days with at least one submission,
// ending today or yesterday in loc. Any older last activity breaks the streak.
func Streak(ledger []domain.PaperSubmission, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}

	days := make(map[time.Time]struct{}, len(ledger))
	for _, s := range ledger {
		if s.SubmissionDate == nil {
			continue
		}
		days[dayOf(*s.SubmissionDate, loc)] = struct{}{}
	}
	if len(days) == 0 {
		return 0
	}

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].After(sorted[j]) })

	today := dayOf(now, loc)
	if !sorted[0].Equal(today) && !sorted[0].Equal(today.AddDate(0, 0, -1)) {
		return 0
	}

	streak := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].AddDate(0, 0, -1).Equal(sorted[i]) {
			streak++
			continue
		}
		break
	}
	return streak
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
