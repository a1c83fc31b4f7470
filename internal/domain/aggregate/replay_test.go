package aggregate

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/example/agri-workflow/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	ID      string
	Total   int
	Version int
}

type incremented struct {
	By int `json:"by"`
}

var errOverflow = errors.New("overflow")

func (c *counter) GetID() string   { return c.ID }
func (c *counter) GetVersion() int { return c.Version }

func (c *counter) ApplyEvent(event store.Event) error {
	data, err := Decode[incremented](event)
	if err != nil {
		return err
	}
	if c.Total+data.By > 100 {
		return errOverflow
	}
	c.ID = event.AggregateID
	c.Total = c.Total*10 + data.By
	c.Version = event.Version
	return nil
}

func counterEvent(id string, version, by int) store.Event {
	data, _ := json.Marshal(incremented{By: by})
	return store.Event{
		ID:            id + "-" + string(rune('0'+version)),
		AggregateID:   id,
		AggregateType: "Counter",
		EventType:     "Incremented",
		Data:          data,
		Version:       version,
	}
}

func TestReplay_GroupsAndOrdersByVersion(t *testing.T) {
	events := []store.Event{
		counterEvent("b", 2, 2),
		counterEvent("a", 1, 1),
		{AggregateID: "x", AggregateType: "Other", EventType: "Ignored", Data: []byte(`{}`), Version: 1},
		counterEvent("b", 1, 1),
		counterEvent("a", 2, 3),
	}

	counters, err := Replay(events, "Counter", func() *counter { return &counter{} })

	require.NoError(t, err)
	require.Len(t, counters, 2)
	assert.Equal(t, "b", counters[0].ID, "first-seen order")
	assert.Equal(t, 12, counters[0].Total, "version 1 applied before version 2")
	assert.Equal(t, 2, counters[0].GetVersion())
	assert.Equal(t, "a", counters[1].ID)
	assert.Equal(t, 13, counters[1].Total)
}

func TestReplay_PropagatesApplyError(t *testing.T) {
	events := []store.Event{counterEvent("a", 1, 101)}

	_, err := Replay(events, "Counter", func() *counter { return &counter{} })

	assert.ErrorIs(t, err, errOverflow)
}

func TestReplay_Empty(t *testing.T) {
	counters, err := Replay(nil, "Counter", func() *counter { return &counter{} })

	require.NoError(t, err)
	assert.Empty(t, counters)
}

func TestDecode_InvalidPayload(t *testing.T) {
	_, err := Decode[incremented](store.Event{EventType: "Incremented", Data: []byte(`{"by":"x"}`)})

	assert.ErrorContains(t, err, "failed to decode Incremented")
}
