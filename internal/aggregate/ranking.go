package aggregate

import (
	"sort"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

// ComputeRanking orders standings by papers descending, keeping input order
// for ties, and assigns 1-based ranks. Trend and change come from previous;
// with no previous snapshot, or for an entry absent from it, they are neutral.
func ComputeRanking(current []domain.Standing, previous *domain.Snapshot) []domain.LeaderboardEntry {
	sorted := make([]domain.Standing, len(current))
	copy(sorted, current)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Papers > sorted[j].Papers
	})

	entries := make([]domain.LeaderboardEntry, len(sorted))
	for i, st := range sorted {
		e := domain.LeaderboardEntry{
			Standing: st,
			Rank:     i + 1,
			Trend:    domain.TrendSame,
		}
		if previous != nil {
			if prevRank, ok := previous.Ranks[st.ID]; ok {
				e.Change = prevRank - e.Rank
				switch {
				case e.Change > 0:
					e.Trend = domain.TrendUp
				case e.Change < 0:
					e.Trend = domain.TrendDown
				}
			}
		}
		entries[i] = e
	}
	return entries
}

// RankMap is the persisted form of a ranking.
func RankMap(entries []domain.LeaderboardEntry) map[string]int {
	ranks := make(map[string]int, len(entries))
	for _, e := range entries {
		ranks[e.ID] = e.Rank
	}
	return ranks
}
