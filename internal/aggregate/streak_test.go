package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

func submittedDaysAgo(days ...int) []domain.PaperSubmission {
	out := make([]domain.PaperSubmission, 0, len(days))
	for _, d := range days {
		at := now.AddDate(0, 0, -d)
		out = append(out, domain.PaperSubmission{PapersCount: 1, SubmissionDate: &at})
	}
	return out
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name   string
		ledger []domain.PaperSubmission
		want   int
	}{
		{name: "empty", ledger: nil, want: 0},
		{name: "today only", ledger: submittedDaysAgo(0), want: 1},
		{name: "three days running", ledger: submittedDaysAgo(0, 1, 2), want: 3},
		{name: "several per day", ledger: submittedDaysAgo(0, 0, 1, 1), want: 2},
		{name: "ending yesterday still counts", ledger: submittedDaysAgo(1, 2), want: 2},
		{name: "gap breaks", ledger: submittedDaysAgo(0, 1, 3, 4, 5), want: 2},
		{name: "lapsed", ledger: submittedDaysAgo(2, 3), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Streak(tt.ledger, now, time.UTC))
		})
	}
}
