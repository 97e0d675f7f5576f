package broadcast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bms_bridge/internal/logger"
)

func TestPublish_EnvelopeShape(t *testing.T) {
	h := NewHub(4, logger.Nop())
	s := h.Subscribe()

	h.Publish(ChannelStatus, map[string]any{"total_voltage": 12.5})

	frame := <-s.Events()
	assert.JSONEq(t, `{"type":"bms-status","data":{"total_voltage":12.5}}`, string(frame))
}

func TestPublish_ChannelFilter(t *testing.T) {
	h := NewHub(4, logger.Nop())
	onlyFet := h.Subscribe(ChannelFetStatus)
	all := h.Subscribe()

	h.Publish(ChannelStatus, 1)
	h.Publish(ChannelFetStatus, 2)

	require.Len(t, onlyFet.Events(), 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(<-onlyFet.Events(), &env))
	assert.Equal(t, ChannelFetStatus, env.Type)
	assert.Len(t, all.Events(), 2)
}

func TestPublish_FullQueueDropsWithoutBlocking(t *testing.T) {
	h := NewHub(1, logger.Nop())
	s := h.Subscribe()

	h.Publish(ChannelControl, "first")
	h.Publish(ChannelControl, "second")

	require.Len(t, s.Events(), 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(<-s.Events(), &env))
	assert.Equal(t, "first", env.Data)
}

func TestPublish_NoSubscribers(t *testing.T) {
	h := NewHub(1, logger.Nop())
	assert.NotPanics(t, func() { h.Publish(ChannelStatus, nil) })
}

func TestUnsubscribe_ClosesAndIsIdempotent(t *testing.T) {
	h := NewHub(1, logger.Nop())
	s := h.Subscribe()
	require.Equal(t, 1, h.Len())

	h.Unsubscribe(s)
	h.Unsubscribe(s)

	_, open := <-s.Events()
	assert.False(t, open)
	assert.Equal(t, 0, h.Len())
	assert.NotPanics(t, func() { h.Publish(ChannelStatus, 1) })
}
