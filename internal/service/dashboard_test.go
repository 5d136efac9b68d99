package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/query"
	"github.com/ecobox-ge/ecobox-api/internal/realtime"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
	"github.com/ecobox-ge/ecobox-api/internal/service"
)

func TestDashboard_Statistics(t *testing.T) {
	h := newHarness(t)

	stats, err := h.dashboard.Statistics(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, stats.UpdatedAt)
	assert.False(t, stats.IsError)

	assert.Equal(t, 156, stats.Data.TotalPapers)
	assert.Equal(t, 6, stats.Data.TotalStudents)
	assert.Equal(t, 5, stats.Data.TotalSchools)
	assert.Equal(t, 5, stats.Data.DailyAverage)
	assert.Equal(t, 2, stats.Data.ActiveChallenges)
	assert.Equal(t, "თბილისის #1 საჯარო სკოლა", stats.Data.TopSchool)
	assert.InDelta(t, 1.56, stats.Data.SavedTrees, 1e-9)
}

func TestDashboard_SchoolsAndDevicesAreDecorated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	schools, err := h.dashboard.Schools(ctx, false)
	require.NoError(t, err)
	require.Len(t, schools.Data, 5)
	assert.InDelta(t, 23.4, schools.Data[0].SavedTrees, 1e-9)
	assert.InDelta(t, 1170.0, schools.Data[0].CarbonReduced, 1e-9)

	devices, err := h.dashboard.Devices(ctx, false)
	require.NoError(t, err)

	byID := map[string]domain.EcoBoxDevice{}
	for _, d := range devices.Data {
		byID[d.ID] = d
	}
	require.Len(t, byID, 6)

	assert.Equal(t, domain.DeviceMaintenance, byID["eco4"].Status)
	assert.Equal(t, domain.DeviceOffline, byID["eco4"].DisplayStatus)
	assert.True(t, byID["eco4"].Stale)

	assert.Equal(t, domain.DeviceFull, byID["eco6"].Status)
	assert.Equal(t, domain.DeviceFull, byID["eco6"].DisplayStatus)
	assert.InDelta(t, 98.0, byID["eco6"].CapacityPercentage, 1e-9)
}

func TestDashboard_UserAchievementsProjectLiveTotals(t *testing.T) {
	h := newHarness(t)

	res, err := h.dashboard.UserAchievements(context.Background(), "user1", false)
	require.NoError(t, err)
	require.Len(t, res.Data, 5)

	byID := map[string]domain.AchievementProgress{}
	for _, p := range res.Data {
		byID[p.Achievement.ID] = p
	}

	assert.True(t, byID["ach1"].Earned)
	assert.True(t, byID["ach2"].Earned)
	assert.False(t, byID["ach3"].Earned)
	assert.Equal(t, 8, byID["ach3"].Progress, "competition progress stays as stored")
	assert.Equal(t, 12, byID["ach4"].Progress, "streak progress comes from the ledger")
	assert.Equal(t, 156, byID["ach5"].Progress)
	assert.InDelta(t, 31.2, byID["ach5"].ProgressPercent, 1e-9)
}

func TestDashboard_DerivedEarnedDateIsStable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	earned := func() *time.Time {
		res, err := h.dashboard.UserAchievements(ctx, "s1", true)
		require.NoError(t, err)
		for _, p := range res.Data {
			if p.Achievement.ID == "ach1" {
				require.True(t, p.Earned)
				return p.EarnedDate
			}
		}
		t.Fatal("ach1 missing")
		return nil
	}

	first := earned()
	require.NotNil(t, first)
	assert.True(t, h.now.Add(-90*24*time.Hour).Equal(*first), "papers predating the ledger date from the join date")

	again := earned()
	assert.True(t, first.Equal(*again))
}

func TestDashboard_UserChallengesUseLedgerWindow(t *testing.T) {
	h := newHarness(t)

	res, err := h.dashboard.UserChallenges(context.Background(), "user1", false)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)

	uc := res.Data[0]
	assert.Equal(t, 26, uc.Progress)
	assert.True(t, uc.Completed)
	assert.Equal(t, 100.0, uc.ProgressPercent)
}

func TestDashboard_Profile(t *testing.T) {
	h := newHarness(t)

	res, err := h.dashboard.Profile(context.Background(), "user1", false)
	require.NoError(t, err)

	p := res.Data
	assert.Equal(t, 1, p.Level)
	assert.InDelta(t, 56.0, p.LevelProgressPercent, 1e-9)
	assert.Equal(t, 12, p.Streak)
	assert.Len(t, p.Achievements, 5)
	require.NotNil(t, p.Class)
	assert.Equal(t, "class2", p.Class.ID)
}

func TestDashboard_EcoTips(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	all, err := h.dashboard.EcoTips(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, all.Data, 3)

	water, err := h.dashboard.EcoTips(ctx, "water", false)
	require.NoError(t, err)
	require.Len(t, water.Data, 1)
	assert.Equal(t, "tip3", water.Data[0].ID)

	_, err = h.dashboard.EcoTips(ctx, "plastic", false)
	assert.ErrorIs(t, err, service.ErrUnknownCategory)
}

func TestDashboard_LeaderboardWithoutSnapshotIsNeutral(t *testing.T) {
	h := newHarness(t)

	res, err := h.dashboard.Leaderboard(context.Background(), domain.BoardStudent, false)
	require.NoError(t, err)
	require.Len(t, res.Data, 6)

	assert.Equal(t, "s1", res.Data[0].ID)
	assert.Equal(t, 1, res.Data[0].Rank)
	for _, e := range res.Data {
		assert.Equal(t, domain.TrendSame, e.Trend)
		assert.Zero(t, e.Change)
	}

	_, err = h.dashboard.Leaderboard(context.Background(), "galaxy", false)
	assert.ErrorIs(t, err, service.ErrUnknownBoard)
}

func TestDashboard_LeaderboardTrendAgainstSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.snapshots.Take(ctx, domain.BoardStudent)
	require.NoError(t, err)

	_, err = h.activity.SubmitPapers(ctx, student("s5"), "s5", "eco6", 100)
	require.NoError(t, err)

	res, err := h.dashboard.Leaderboard(ctx, domain.BoardStudent, false)
	require.NoError(t, err)

	first := res.Data[0]
	assert.Equal(t, "s5", first.ID)
	assert.Equal(t, 245, first.Papers)
	assert.Equal(t, 5, first.Change)
	assert.Equal(t, domain.TrendUp, first.Trend)

	second := res.Data[1]
	assert.Equal(t, "s1", second.ID)
	assert.Equal(t, -1, second.Change)
	assert.Equal(t, domain.TrendDown, second.Trend)
}

func TestDashboard_SchoolAndClassBoards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	schools, err := h.dashboard.Leaderboard(ctx, domain.BoardSchool, false)
	require.NoError(t, err)
	require.Len(t, schools.Data, 5)
	assert.Equal(t, "1", schools.Data[0].ID)

	classes, err := h.dashboard.Leaderboard(ctx, domain.BoardClass, false)
	require.NoError(t, err)
	require.Len(t, classes.Data, 3)
	assert.Equal(t, "class2", classes.Data[0].ID)
	require.NotNil(t, classes.Data[0].School)
}

func TestDashboard_Refetch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.dashboard.Achievements(ctx, false)
	require.NoError(t, err)

	h.store.Load(rowstore.TableAchievements, rowstore.Row{
		"id": "ach6", "name": "Tip Reader", "name_georgian": "რჩევების მკითხველი", "description": "Read 5 tips",
		"description_georgian": "წაიკითხე 5 რჩევა", "icon": "📘", "category": "education", "requirement": 5, "rarity": "common",
	})

	cached, err := h.dashboard.Achievements(ctx, false)
	require.NoError(t, err)
	assert.Len(t, cached.Data, len(first.Data), "fresh data is served from cache")

	refetched, err := h.dashboard.Achievements(ctx, true)
	require.NoError(t, err)
	assert.Len(t, refetched.Data, len(first.Data)+1)
}

func TestRealtime_OtherUsersSubmissionInvalidatesLeaderboard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.bridge(t)

	_, err := b.Open(rowstore.TableSubmissions, realtime.EventInsert, "", nil)
	require.NoError(t, err)
	_, err = b.Open(rowstore.TableProfiles, realtime.EventUpdate, "", nil)
	require.NoError(t, err)

	before, err := h.dashboard.Leaderboard(ctx, domain.BoardStudent, false)
	require.NoError(t, err)
	assert.Equal(t, "s1", before.Data[0].ID)

	// s2 submits from another client: no local mutate runs.
	_, err = h.store.Insert(ctx, rowstore.TableSubmissions, rowstore.Row{"user_id": "s2", "ecobox_id": "eco3", "papers_count": 50})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, k := range h.seen() {
			if k == query.NewKey(query.KeyLeaderboard) {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	after, err := h.dashboard.Leaderboard(ctx, domain.BoardStudent, false)
	require.NoError(t, err)
	assert.Equal(t, "s2", after.Data[0].ID)
	assert.Equal(t, 248, after.Data[0].Papers)
}

func TestRealtime_NotificationSubscriptionFollowsUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.bridge(t)

	got := make(chan realtime.Change, 4)
	sub, err := b.Open(rowstore.TableNotifications, realtime.EventInsert, realtime.EqFilter("user_id", "user1"), func(c realtime.Change) {
		got <- c
	})
	require.NoError(t, err)

	insert := func(uid string) {
		_, err := h.store.Insert(ctx, rowstore.TableNotifications, rowstore.Row{
			"user_id": uid, "type": "system", "title": "t", "title_georgian": "t", "message": "m", "message_georgian": "m",
		})
		require.NoError(t, err)
	}

	insert("user1")
	select {
	case c := <-got:
		assert.Equal(t, "user1", c.New["user_id"])
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
	assert.Contains(t, h.seen(), query.NewKey(query.KeyUserNotifications, "user1"))

	require.NoError(t, sub.Refilter(realtime.EqFilter("user_id", "s1")))
	insert("user1")
	insert("s1")

	select {
	case c := <-got:
		assert.Equal(t, "s1", c.New["user_id"])
	case <-time.After(time.Second):
		t.Fatal("no change delivered after refilter")
	}
}
