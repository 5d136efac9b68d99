package aggregate

import (
	"sort"
	"time"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

// ProgressPercent normalises a raw count against its goal for display, capped at 100.
func ProgressPercent(progress, goal int) float64 {
	if goal <= 0 {
		return 100
	}
	if progress >= goal {
		return 100
	}
	if progress <= 0 {
		return 0
	}
	return round2(float64(progress) / float64(goal) * 100)
}

// ReconcileAchievement makes Earned, EarnedDate and Progress agree. An
// earned entry without a stored date takes reachedAt, the moment the
// requirement was met.
func ReconcileAchievement(p domain.AchievementProgress, reachedAt time.Time) domain.AchievementProgress {
	p.Earned = p.Progress >= p.Achievement.Requirement
	switch {
	case p.Earned && p.EarnedDate == nil:
		stamp := reachedAt
		p.EarnedDate = &stamp
	case !p.Earned:
		p.EarnedDate = nil
	}
	p.ProgressPercent = ProgressPercent(p.Progress, p.Achievement.Requirement)
	return p
}

// ProgressInput is what a user's achievement progress is derived from.
type ProgressInput struct {
	TotalPapers int
	Streak      int
	Ledger      []domain.PaperSubmission
	// Anchor dates progress the ledger cannot place, usually the join date.
	Anchor   time.Time
	Location *time.Location
}

// ProjectAchievements merges the catalog with a user's stored progress.
// Recycling and streak progress is recomputed from the live totals; other
// categories keep the stored raw count. Catalog entries the user never
// touched appear with zero progress. Earned dates missing from storage are
// derived from the ledger, so repeated reads agree.
func ProjectAchievements(
	userID string,
	catalog []domain.Achievement,
	owned []domain.AchievementProgress,
	in ProgressInput,
) []domain.AchievementProgress {
	byID := make(map[string]domain.AchievementProgress, len(owned))
	for _, p := range owned {
		byID[p.Achievement.ID] = p
	}

	out := make([]domain.AchievementProgress, 0, len(catalog))
	for _, a := range catalog {
		p, ok := byID[a.ID]
		if !ok {
			p = domain.AchievementProgress{UserID: userID}
		}
		p.Achievement = a

		reachedAt := in.Anchor
		switch a.Category {
		case domain.CategoryRecycling:
			p.Progress = in.TotalPapers
			reachedAt = papersReachedAt(in, a.Requirement)
		case domain.CategoryStreak:
			p.Progress = in.Streak
			reachedAt = streakReachedAt(in, a.Requirement)
		}

		out = append(out, ReconcileAchievement(p, reachedAt))
	}
	return out
}

// papersReachedAt is the submission that carried the running total to goal.
// Papers counted on the profile but absent from the ledger come first.
func papersReachedAt(in ProgressInput, goal int) time.Time {
	dated := make([]domain.PaperSubmission, 0, len(in.Ledger))
	logged := 0
	for _, s := range in.Ledger {
		if s.SubmissionDate != nil {
			dated = append(dated, s)
			logged += s.PapersCount
		}
	}
	sort.SliceStable(dated, func(i, j int) bool { return dated[i].SubmissionDate.Before(*dated[j].SubmissionDate) })

	running := in.TotalPapers - logged
	if running >= goal {
		return in.Anchor
	}
	for _, s := range dated {
		running += s.PapersCount
		if running >= goal {
			return *s.SubmissionDate
		}
	}
	return in.Anchor
}

// streakReachedAt is the day the current streak reached goal days.
func streakReachedAt(in ProgressInput, goal int) time.Time {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	var last time.Time
	for _, s := range in.Ledger {
		if s.SubmissionDate != nil && s.SubmissionDate.After(last) {
			last = *s.SubmissionDate
		}
	}
	if last.IsZero() || in.Streak < goal || goal <= 0 {
		return in.Anchor
	}

	first := dayOf(last, loc).AddDate(0, 0, -(in.Streak - 1))
	return first.AddDate(0, 0, goal-1)
}

// ReconcileChallenge sets Completed from progress against the target.
func ReconcileChallenge(uc domain.UserChallenge) domain.UserChallenge {
	uc.Completed = uc.Progress >= uc.Challenge.Target
	uc.ProgressPercent = ProgressPercent(uc.Progress, uc.Challenge.Target)
	return uc
}

// ChallengeProgress counts the papers a user submitted inside the challenge window.
func ChallengeProgress(c domain.Challenge, ledger []domain.PaperSubmission) int {
	total := 0
	for _, s := range ledger {
		if s.SubmissionDate == nil {
			continue
		}
		if !s.SubmissionDate.Before(c.StartDate) && s.SubmissionDate.Before(c.EndDate) {
			total += s.PapersCount
		}
	}
	return total
}
