package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    *rowstore.Filter
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "user_id=eq.42", want: &rowstore.Filter{Column: "user_id", Op: rowstore.OpEq, Value: "42"}},
		{in: "papers_count=gte.10", want: &rowstore.Filter{Column: "papers_count", Op: rowstore.OpGte, Value: "10"}},
		{in: "status=in.(online, full)", want: &rowstore.Filter{Column: "status", Op: rowstore.OpIn, Value: []any{"online", "full"}}},
		{in: "user_id", wantErr: true},
		{in: "user_id=42", wantErr: true},
		{in: "user_id=like.4%", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilter(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcher(t *testing.T) {
	m, err := newMatcher(Spec{Table: "profiles", Event: EventUpdate, Filter: "id=eq.u1"})
	require.NoError(t, err)

	assert.True(t, m.matches(Change{Table: "profiles", Event: EventUpdate, New: rowstore.Row{"id": "u1"}}))
	assert.False(t, m.matches(Change{Table: "profiles", Event: EventInsert, New: rowstore.Row{"id": "u1"}}))
	assert.False(t, m.matches(Change{Table: "schools", Event: EventUpdate, New: rowstore.Row{"id": "u1"}}))
	assert.False(t, m.matches(Change{Table: "profiles", Event: EventUpdate, New: rowstore.Row{"id": "u2"}}))

	all, err := newMatcher(Spec{Table: "profiles"})
	require.NoError(t, err)
	assert.True(t, all.matches(Change{Table: "profiles", Event: EventDelete, Old: rowstore.Row{"id": "x"}}))
}

func TestChange_Row(t *testing.T) {
	del := Change{Event: EventDelete, New: rowstore.Row{"id": "new"}, Old: rowstore.Row{"id": "old"}}
	assert.Equal(t, "old", del.Row()["id"])

	upd := Change{Event: EventUpdate, New: rowstore.Row{"id": "new"}, Old: rowstore.Row{"id": "old"}}
	assert.Equal(t, "new", upd.Row()["id"])
}
