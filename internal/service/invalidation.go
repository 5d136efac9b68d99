package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/query"
	"github.com/ecobox-ge/ecobox-api/internal/realtime"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

// LeaderboardKey is the cache key of one board. The student board is the default and has no param.
func LeaderboardKey(board domain.BoardType) query.Key {
	if board == "" || board == domain.BoardStudent {
		return query.NewKey(query.KeyLeaderboard)
	}
	return query.NewKey(query.KeyLeaderboard, string(board))
}

func leaderboardKeys() []query.Key {
	return []query.Key{
		LeaderboardKey(domain.BoardStudent),
		LeaderboardKey(domain.BoardClass),
		LeaderboardKey(domain.BoardSchool),
	}
}

// SubmissionKeys is every key a new paper submission by userID can change.
func SubmissionKeys(userID string) []query.Key {
	keys := []query.Key{
		query.NewKey(query.KeyStatistics),
		query.NewKey(query.KeyUserAchievements, userID),
		query.NewKey(query.KeyUserChallenges, userID),
		query.NewKey(query.KeyDevices),
		query.NewKey(query.KeyUserProfile, userID),
		query.NewKey(query.KeySchools),
	}
	return append(keys, leaderboardKeys()...)
}

// KeysForChange maps a table change to the keys it invalidates. Submissions
// map through SubmissionKeys, the same set a local submit invalidates.
func KeysForChange(c realtime.Change) []query.Key {
	row := c.Row()
	str := func(col string) string {
		if row == nil || row[col] == nil {
			return ""
		}
		return fmt.Sprint(row[col])
	}

	switch c.Table {
	case rowstore.TableSubmissions:
		if uid := str("user_id"); uid != "" {
			return SubmissionKeys(uid)
		}
	case rowstore.TableDevices:
		return []query.Key{query.NewKey(query.KeyDevices), query.NewKey(query.KeySchools)}
	case rowstore.TableNotifications:
		if uid := str("user_id"); uid != "" {
			return []query.Key{query.NewKey(query.KeyUserNotifications, uid)}
		}
	case rowstore.TableProfiles:
		keys := []query.Key{query.NewKey(query.KeyUserProfile, str("id"))}
		if papersChanged(c) {
			keys = append(keys, query.NewKey(query.KeyStatistics))
			keys = append(keys, leaderboardKeys()...)
		}
		return keys
	case rowstore.TableSchools:
		return []query.Key{
			query.NewKey(query.KeySchools),
			query.NewKey(query.KeyStatistics),
			LeaderboardKey(domain.BoardSchool),
		}
	case rowstore.TableClasses:
		return []query.Key{LeaderboardKey(domain.BoardClass)}
	case rowstore.TableUserAchieve:
		if uid := str("user_id"); uid != "" {
			return []query.Key{query.NewKey(query.KeyUserAchievements, uid), query.NewKey(query.KeyUserProfile, uid)}
		}
	case rowstore.TableUserChallenge:
		if uid := str("user_id"); uid != "" {
			return []query.Key{query.NewKey(query.KeyUserChallenges, uid), query.NewKey(query.KeyChallenges)}
		}
	case rowstore.TableChallenges:
		return []query.Key{query.NewKey(query.KeyChallenges), query.NewKey(query.KeyStatistics)}
	case rowstore.TableAchievements:
		return []query.Key{query.NewKey(query.KeyAchievements)}
	case rowstore.TableEcoTips:
		return []query.Key{query.NewKey(query.KeyEcoTips)}
	case rowstore.TableQuiz:
		return []query.Key{query.NewKey(query.KeyQuizQuestions)}
	}
	return nil
}

// papersChanged is true unless both images are present and agree on total_papers.
func papersChanged(c realtime.Change) bool {
	if c.Old == nil || c.New == nil {
		return true
	}
	return rowstore.Compare(c.Old["total_papers"], c.New["total_papers"]) != 0
}

// Invalidator feeds realtime changes into the cache.
type Invalidator struct {
	client *query.Client
}

func NewInvalidator(client *query.Client) *Invalidator {
	return &Invalidator{client: client}
}

func (i *Invalidator) InvalidateChange(c realtime.Change) {
	keys := KeysForChange(c)
	if len(keys) == 0 {
		zap.L().Debug("change ignored", zap.String("table", c.Table), zap.String("event", string(c.Event)))
		return
	}

	// eco-tips and quiz-questions are keyed by category, so every cached variant goes.
	switch c.Table {
	case rowstore.TableEcoTips:
		i.client.InvalidateName(query.KeyEcoTips)
		return
	case rowstore.TableQuiz:
		i.client.InvalidateName(query.KeyQuizQuestions)
		return
	}
	i.client.Invalidate(keys...)
}
