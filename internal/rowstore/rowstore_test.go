package rowstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestError_Kinds(t *testing.T) {
	err := fmt.Errorf("repo -> %w", NewError(ErrTransient, "select", TableSchools, errors.New("dial tcp: refused")))

	assert.True(t, IsTransient(err))
	assert.False(t, IsPermissionDenied(err))
	assert.ErrorIs(t, err, ErrTransient)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "dial tcp: refused")

	denied := NewError(ErrPermissionDenied, "insert", TableSubmissions, nil)
	assert.True(t, IsPermissionDenied(denied))
	assert.Equal(t, "rowstore insert paper_submissions: permission denied", denied.Error())
}

func TestMatches(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	row := Row{
		"id":           "eco1",
		"papers_count": int64(12),
		"end_date":     at,
		"school_id":    nil,
		"score":        json.Number("7"),
	}

	tests := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{name: "no filters", want: true},
		{name: "eq string", filters: []Filter{Eq("id", "eco1")}, want: true},
		{name: "eq number across kinds", filters: []Filter{Eq("papers_count", 12)}, want: true},
		{name: "eq from filter text", filters: []Filter{Eq("papers_count", "12")}, want: true},
		{name: "json number", filters: []Filter{{Column: "score", Op: OpGt, Value: 6}}, want: true},
		{name: "gte time", filters: []Filter{Gte("end_date", at.Add(-time.Hour))}, want: true},
		{name: "gte time fails", filters: []Filter{Gte("end_date", at.Add(time.Hour))}, want: false},
		{name: "null never ordered", filters: []Filter{{Column: "school_id", Op: OpGte, Value: "a"}}, want: false},
		{name: "eq null", filters: []Filter{Eq("school_id", nil)}, want: true},
		{name: "in", filters: []Filter{In("id", "eco2", "eco1")}, want: true},
		{name: "in misses", filters: []Filter{In("id", "eco2")}, want: false},
		{name: "all must hold", filters: []Filter{Eq("id", "eco1"), Eq("papers_count", 13)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(row, tt.filters))
		})
	}
}

func TestRow_Clone(t *testing.T) {
	orig := Row{"id": "s1", "ecobox_devices": []Row{{"id": "eco1"}}, "schools": Row{"name": "A"}}

	cp := orig.Clone()
	cp["id"] = "s2"
	cp["ecobox_devices"].([]Row)[0]["id"] = "eco2"
	cp["schools"].(Row)["name"] = "B"

	assert.Equal(t, "s1", orig["id"])
	assert.Equal(t, "eco1", orig["ecobox_devices"].([]Row)[0]["id"])
	assert.Equal(t, "A", orig["schools"].(Row)["name"])
}
