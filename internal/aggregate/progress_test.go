package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func TestReconcileAchievement(t *testing.T) {
	earlier := now.Add(-48 * time.Hour)
	catalog := domain.Achievement{ID: "a1", Requirement: 100, Category: domain.CategoryEducation}

	tests := []struct {
		name       string
		in         domain.AchievementProgress
		wantEarned bool
		wantDate   *time.Time
		wantPct    float64
	}{
		{
			name:       "not reached",
			in:         domain.AchievementProgress{Achievement: catalog, Progress: 40},
			wantEarned: false,
			wantPct:    40,
		},
		{
			name:       "stale earned date cleared",
			in:         domain.AchievementProgress{Achievement: catalog, Progress: 40, EarnedDate: &earlier},
			wantEarned: false,
			wantPct:    40,
		},
		{
			name:       "reached without date takes the reach time",
			in:         domain.AchievementProgress{Achievement: catalog, Progress: 100},
			wantEarned: true,
			wantDate:   &now,
			wantPct:    100,
		},
		{
			name:       "stored date kept",
			in:         domain.AchievementProgress{Achievement: catalog, Progress: 250, EarnedDate: &earlier},
			wantEarned: true,
			wantDate:   &earlier,
			wantPct:    100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReconcileAchievement(tt.in, now)

			assert.Equal(t, tt.wantEarned, got.Earned)
			assert.Equal(t, got.Earned, got.EarnedDate != nil)
			assert.Equal(t, got.Earned, got.Progress >= got.Achievement.Requirement)
			if tt.wantDate != nil {
				assert.True(t, tt.wantDate.Equal(*got.EarnedDate))
			}
			assert.InDelta(t, tt.wantPct, got.ProgressPercent, 1e-9)
		})
	}
}

func TestProjectAchievements(t *testing.T) {
	catalog := []domain.Achievement{
		{ID: "first-100", Category: domain.CategoryRecycling, Requirement: 100},
		{ID: "week-streak", Category: domain.CategoryStreak, Requirement: 7},
		{ID: "quiz", Category: domain.CategoryEducation, Requirement: 5},
		{ID: "legend", Category: domain.CategoryRecycling, Requirement: 1000},
	}
	owned := []domain.AchievementProgress{
		{ID: "ua-1", Achievement: domain.Achievement{ID: "quiz"}, Progress: 5},
		{ID: "ua-2", Achievement: domain.Achievement{ID: "first-100"}, Progress: 3},
	}
	joined := now.AddDate(0, -3, 0)

	got := ProjectAchievements("u1", catalog, owned, ProgressInput{TotalPapers: 105, Streak: 2, Anchor: joined})

	assert.Len(t, got, 4)
	assert.Equal(t, "ua-2", got[0].ID)
	assert.Equal(t, 105, got[0].Progress)
	assert.True(t, got[0].Earned)
	assert.Equal(t, 2, got[1].Progress)
	assert.False(t, got[1].Earned)
	assert.True(t, got[2].Earned)
	assert.True(t, joined.Equal(*got[2].EarnedDate))
	assert.False(t, got[3].Earned)
	assert.Equal(t, "u1", got[3].UserID)
	for _, p := range got {
		assert.Equal(t, p.Earned, p.EarnedDate != nil)
	}
}

func TestProjectAchievements_EarnedDateFromLedger(t *testing.T) {
	catalog := []domain.Achievement{
		{ID: "first-100", Category: domain.CategoryRecycling, Requirement: 100},
		{ID: "three-days", Category: domain.CategoryStreak, Requirement: 3},
	}
	day := func(n int) *time.Time {
		d := now.AddDate(0, 0, -n)
		return &d
	}
	// 20 papers predate the ledger; the day-2 submission carries the total past 100.
	in := ProgressInput{
		TotalPapers: 140,
		Streak:      4,
		Ledger: []domain.PaperSubmission{
			{PapersCount: 20, SubmissionDate: day(0)},
			{PapersCount: 30, SubmissionDate: day(3)},
			{PapersCount: 60, SubmissionDate: day(2)},
			{PapersCount: 10, SubmissionDate: day(1)},
		},
		Anchor: now.AddDate(-1, 0, 0),
	}

	first := ProjectAchievements("u1", catalog, nil, in)
	later := ProjectAchievements("u1", catalog, nil, in)

	assert.Equal(t, first, later, "repeated reads agree")
	assert.True(t, day(2).Equal(*first[0].EarnedDate))
	assert.Equal(t, dayOf(*day(1), time.UTC), *first[1].EarnedDate)

	in.TotalPapers = 220
	early := ProjectAchievements("u1", catalog, nil, in)
	assert.True(t, in.Anchor.Equal(*early[0].EarnedDate), "reached before the first logged submission")
}

func TestReconcileChallenge(t *testing.T) {
	c := domain.Challenge{ID: "c1", Target: 50}

	assert.False(t, ReconcileChallenge(domain.UserChallenge{Challenge: c, Progress: 49, Completed: true}).Completed)
	done := ReconcileChallenge(domain.UserChallenge{Challenge: c, Progress: 50})
	assert.True(t, done.Completed)
	assert.InDelta(t, 100.0, done.ProgressPercent, 1e-9)
}

func TestChallengeProgress(t *testing.T) {
	c := domain.Challenge{StartDate: now.Add(-24 * time.Hour), EndDate: now.Add(24 * time.Hour)}
	before := now.Add(-48 * time.Hour)
	inside := now
	atEnd := c.EndDate

	ledger := []domain.PaperSubmission{
		{PapersCount: 5, SubmissionDate: &before},
		{PapersCount: 7, SubmissionDate: &inside},
		{PapersCount: 9, SubmissionDate: &atEnd},
		{PapersCount: 11},
	}

	assert.Equal(t, 7, ChallengeProgress(c, ledger))
}

func TestProgressPercent(t *testing.T) {
	assert.InDelta(t, 0.0, ProgressPercent(-3, 10), 1e-9)
	assert.InDelta(t, 33.33, ProgressPercent(1, 3), 1e-9)
	assert.InDelta(t, 100.0, ProgressPercent(4, 0), 1e-9)
}
