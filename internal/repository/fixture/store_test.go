package fixture_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecobox-ge/ecobox-api/internal/realtime"
	"github.com/ecobox-ge/ecobox-api/internal/realtime/memstream"
	"github.com/ecobox-ge/ecobox-api/internal/repository/fixture"
	"github.com/ecobox-ge/ecobox-api/internal/repository/mapper"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (r *recorder) Publish(c realtime.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) tables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Table + ":" + string(c.Event)
	}
	return out
}

func seeded(t *testing.T, pub fixture.Publisher) *fixture.Store {
	t.Helper()

	s, err := fixture.NewSeeded(pub, now, bcrypt.MinCost, fixture.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return s
}

func TestSeed_MapsCleanly(t *testing.T) {
	s := seeded(t, nil)
	ctx := context.Background()

	schools, err := s.Select(ctx, rowstore.TableSchools, rowstore.Query{Joins: []rowstore.Join{
		{Table: rowstore.TableDevices, As: mapper.JoinDevices, ForeignKey: "school_id", Many: true},
		{Table: rowstore.TableClasses, As: mapper.JoinClasses, ForeignKey: "school_id", Many: true},
	}})
	require.NoError(t, err)
	require.Len(t, schools, 5)
	for _, row := range schools {
		_, err := mapper.School(row)
		require.NoError(t, err)
	}

	profiles, err := s.Select(ctx, rowstore.TableProfiles, rowstore.Query{Joins: []rowstore.Join{
		{Table: rowstore.TableSchools, As: mapper.JoinSchool, ForeignKey: "school_id"},
		{Table: rowstore.TableClasses, As: mapper.JoinClass, ForeignKey: "class_id"},
	}})
	require.NoError(t, err)
	for _, row := range profiles {
		_, err := mapper.Profile(row)
		require.NoError(t, err, row["id"])
	}

	owned, err := s.Select(ctx, rowstore.TableUserAchieve, rowstore.Query{Joins: []rowstore.Join{
		{Table: rowstore.TableAchievements, As: mapper.JoinAchievement, ForeignKey: "achievement_id"},
	}})
	require.NoError(t, err)
	for _, row := range owned {
		_, err := mapper.AchievementProgress(row)
		require.NoError(t, err)
	}

	creds, err := s.Select(ctx, rowstore.TableCredentials, rowstore.Query{Filters: []rowstore.Filter{rowstore.Eq("email", "admin@ecobox.ge")}})
	require.NoError(t, err)
	require.Len(t, creds, 1)
	c, err := mapper.Credential(creds[0])
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(fixture.DemoPassword)))
}

func TestInsert_SubmissionMaintainsTotals(t *testing.T) {
	rec := &recorder{}
	s := seeded(t, rec)
	ctx := context.Background()

	row, err := s.Insert(ctx, rowstore.TableSubmissions, rowstore.Row{"user_id": "user1", "ecobox_id": "eco1", "papers_count": 10})
	require.NoError(t, err)
	assert.NotEmpty(t, row["id"])
	assert.Equal(t, now, row["submission_date"])

	profiles, err := s.Select(ctx, rowstore.TableProfiles, rowstore.Query{Filters: []rowstore.Filter{rowstore.Eq("id", "user1")}})
	require.NoError(t, err)
	assert.Equal(t, 166, profiles[0]["total_papers"])
	assert.Equal(t, now, profiles[0]["last_active"])

	schools, err := s.Select(ctx, rowstore.TableSchools, rowstore.Query{Filters: []rowstore.Filter{rowstore.Eq("id", "1")}})
	require.NoError(t, err)
	assert.Equal(t, 2350, schools[0]["total_papers"])

	assert.Equal(t, []string{
		"paper_submissions:INSERT",
		"profiles:UPDATE",
		"schools:UPDATE",
		"school_classes:UPDATE",
	}, rec.tables())
}

func TestInsert_Constraints(t *testing.T) {
	s := seeded(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		table string
		row   rowstore.Row
	}{
		{name: "zero papers", table: rowstore.TableSubmissions, row: rowstore.Row{"user_id": "user1", "ecobox_id": "eco1", "papers_count": 0}},
		{name: "unknown device", table: rowstore.TableSubmissions, row: rowstore.Row{"user_id": "user1", "ecobox_id": "eco404", "papers_count": 5}},
		{name: "duplicate email", table: rowstore.TableProfiles, row: rowstore.Row{"id": "x", "email": "admin@ecobox.ge", "first_name": "a", "last_name": "b"}},
		{name: "duplicate id", table: rowstore.TableEcoTips, row: rowstore.Row{"id": "tip1"}},
		{name: "joined twice", table: rowstore.TableUserChallenge, row: rowstore.Row{"user_id": "user1", "challenge_id": "ch1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Insert(ctx, tt.table, tt.row)
			assert.ErrorIs(t, err, rowstore.ErrConstraintViolation)
		})
	}
}

func TestUpdate(t *testing.T) {
	rec := &recorder{}
	s := seeded(t, rec)
	ctx := context.Background()

	err := s.Update(ctx, rowstore.TableNotifications, []rowstore.Filter{rowstore.Eq("id", "n1")}, rowstore.Row{"read": true})
	require.NoError(t, err)

	rows, err := s.Select(ctx, rowstore.TableNotifications, rowstore.Query{Filters: []rowstore.Filter{rowstore.Eq("read", false)}})
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.Len(t, rec.changes, 1)
	assert.Equal(t, false, rec.changes[0].Old["read"])
	assert.Equal(t, true, rec.changes[0].New["read"])

	err = s.Update(ctx, rowstore.TableNotifications, []rowstore.Filter{rowstore.Eq("id", "n404")}, rowstore.Row{"read": true})
	assert.ErrorIs(t, err, rowstore.ErrNotFound)

	err = s.Update(ctx, rowstore.TableNotifications, nil, rowstore.Row{"read": true})
	assert.ErrorIs(t, err, rowstore.ErrConstraintViolation)
}

func TestSelect_OrderLimitIsolation(t *testing.T) {
	s := seeded(t, nil)
	ctx := context.Background()

	rows, err := s.Select(ctx, rowstore.TableProfiles, rowstore.Query{
		Filters: []rowstore.Filter{rowstore.Eq("role", "student")},
		Order:   []rowstore.Order{{Column: "total_papers", Desc: true}},
		Limit:   3,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []any{"s1", "s2", "s3"}, []any{rows[0]["id"], rows[1]["id"], rows[2]["id"]})

	rows[0]["total_papers"] = -1
	again, err := s.Select(ctx, rowstore.TableProfiles, rowstore.Query{Filters: []rowstore.Filter{rowstore.Eq("id", "s1")}})
	require.NoError(t, err)
	assert.Equal(t, 234, again[0]["total_papers"])
}

func TestSelect_UnknownTableAndCancelled(t *testing.T) {
	s := fixture.New(nil)

	_, err := s.Select(context.Background(), "nope", rowstore.Query{})
	assert.ErrorIs(t, err, fixture.ErrUnknownTable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Select(ctx, rowstore.TableSchools, rowstore.Query{})
	assert.True(t, rowstore.IsTransient(err))
}

func TestPublishesIntoMemstream(t *testing.T) {
	stream := memstream.New()
	s := seeded(t, stream)

	got := make(chan realtime.Change, 1)
	_, err := stream.Subscribe(realtime.Spec{
		Table:  rowstore.TableNotifications,
		Event:  realtime.EventInsert,
		Filter: realtime.EqFilter("user_id", "user1"),
	}, func(c realtime.Change) { got <- c })
	require.NoError(t, err)

	_, err = s.Insert(context.Background(), rowstore.TableNotifications, rowstore.Row{
		"user_id": "user1", "type": "system", "title": "t", "title_georgian": "t", "message": "m", "message_georgian": "m",
	})
	require.NoError(t, err)

	select {
	case c := <-got:
		assert.Equal(t, "user1", c.New["user_id"])
		assert.Equal(t, false, c.New["read"])
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
}
