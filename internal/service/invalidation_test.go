package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecobox-ge/ecobox-api/internal/query"
	"github.com/ecobox-ge/ecobox-api/internal/realtime"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
	"github.com/ecobox-ge/ecobox-api/internal/service"
)

func TestKeysForChange(t *testing.T) {
	tests := []struct {
		name   string
		change realtime.Change
		want   []query.Key
	}{
		{
			name:   "submission uses the mutation set",
			change: realtime.Change{Table: rowstore.TableSubmissions, Event: realtime.EventInsert, New: rowstore.Row{"user_id": "u1"}},
			want:   service.SubmissionKeys("u1"),
		},
		{
			name:   "device update",
			change: realtime.Change{Table: rowstore.TableDevices, Event: realtime.EventUpdate, New: rowstore.Row{"id": "eco1"}},
			want:   []query.Key{query.NewKey(query.KeyDevices), query.NewKey(query.KeySchools)},
		},
		{
			name:   "notification for one user",
			change: realtime.Change{Table: rowstore.TableNotifications, Event: realtime.EventInsert, New: rowstore.Row{"user_id": "u1"}},
			want:   []query.Key{query.NewKey(query.KeyUserNotifications, "u1")},
		},
		{
			name: "profile rename leaves the boards alone",
			change: realtime.Change{
				Table: rowstore.TableProfiles, Event: realtime.EventUpdate,
				Old: rowstore.Row{"id": "u1", "total_papers": 10, "first_name": "a"},
				New: rowstore.Row{"id": "u1", "total_papers": int64(10), "first_name": "b"},
			},
			want: []query.Key{query.NewKey(query.KeyUserProfile, "u1")},
		},
		{
			name:   "quiz bank edit",
			change: realtime.Change{Table: rowstore.TableQuiz, Event: realtime.EventUpdate, New: rowstore.Row{"id": "q1"}},
			want:   []query.Key{query.NewKey(query.KeyQuizQuestions)},
		},
		{
			name:   "unknown table",
			change: realtime.Change{Table: "audit_log", Event: realtime.EventInsert, New: rowstore.Row{}},
			want:   nil,
		},
		{
			name:   "submission without user",
			change: realtime.Change{Table: rowstore.TableSubmissions, Event: realtime.EventInsert, New: rowstore.Row{}},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.KeysForChange(tt.change))
		})
	}
}

func TestKeysForChange_ProfileTotalsMoveBoards(t *testing.T) {
	keys := service.KeysForChange(realtime.Change{
		Table: rowstore.TableProfiles, Event: realtime.EventUpdate,
		Old: rowstore.Row{"id": "u1", "total_papers": 10},
		New: rowstore.Row{"id": "u1", "total_papers": 15},
	})

	assert.Contains(t, keys, query.NewKey(query.KeyStatistics))
	assert.Contains(t, keys, query.NewKey(query.KeyLeaderboard))
	assert.Contains(t, keys, query.NewKey(query.KeyLeaderboard, "school"))
}

func TestSubmissionKeys_CoverTheRequiredSet(t *testing.T) {
	keys := service.SubmissionKeys("u1")

	for _, want := range []string{"statistics", "leaderboard", "user-achievements:u1", "user-challenges:u1", "ecobox-devices"} {
		assert.Contains(t, keys, query.ParseKey(want))
	}
}
