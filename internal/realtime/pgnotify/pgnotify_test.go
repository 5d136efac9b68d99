package pgnotify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobox-ge/ecobox-api/internal/realtime"
)

func TestDecode(t *testing.T) {
	c, err := Decode(`{"table":"profiles","event":"UPDATE","new":{"id":"u1","total_papers":105},"old":{"id":"u1","total_papers":95}}`)
	require.NoError(t, err)

	assert.Equal(t, "profiles", c.Table)
	assert.Equal(t, realtime.EventUpdate, c.Event)
	assert.Equal(t, json.Number("105"), c.New["total_papers"])
	assert.Equal(t, json.Number("95"), c.Old["total_papers"])
}

func TestDecode_Insert(t *testing.T) {
	c, err := Decode(`{"table":"paper_submissions","event":"INSERT","new":{"user_id":"u1"},"old":null}`)
	require.NoError(t, err)

	assert.Nil(t, c.Old)
	assert.Equal(t, "u1", c.Row()["user_id"])
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(`not json`)
	assert.Error(t, err)

	_, err = Decode(`{"event":"INSERT"}`)
	assert.Error(t, err)
}

func TestStream_DispatchesToSubscribers(t *testing.T) {
	s := New(nil, "table_changes", 0)

	var got []realtime.Change
	_, err := s.Subscribe(realtime.Spec{Table: "profiles", Event: realtime.EventUpdate}, func(c realtime.Change) {
		got = append(got, c)
	})
	require.NoError(t, err)

	c, err := Decode(`{"table":"profiles","event":"UPDATE","new":{"id":"u1"}}`)
	require.NoError(t, err)
	s.Dispatch(c)

	assert.Len(t, got, 1)
}
