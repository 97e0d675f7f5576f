// Package broadcast fans bridge events out to live dashboard subscribers.
package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"bms_bridge/internal/logger"
	"bms_bridge/internal/metrics"
)

// Channels published by the bridge.
const (
	ChannelStatus         = "bms-status"
	ChannelControl        = "bms-control"
	ChannelFetStatus      = "bms-fet-status"
	ChannelElectronicLoad = "electronic-load-control"
)

// Channels lists every channel a subscriber may ask for.
var Channels = []string{ChannelStatus, ChannelControl, ChannelFetStatus, ChannelElectronicLoad}

// Envelope is the frame written to subscribers.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Subscriber receives encoded envelopes on a bounded queue.
type Subscriber struct {
	ID       string
	channels map[string]struct{}
	events   chan []byte
}

// Events is closed when the subscriber is removed from the hub.
func (s *Subscriber) Events() <-chan []byte { return s.events }

func (s *Subscriber) wants(channel string) bool {
	if len(s.channels) == 0 {
		return true
	}
	_, ok := s.channels[channel]
	return ok
}

// Hub is an at-most-once, non-blocking fan-out. A slow subscriber loses
// events instead of slowing the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	buffer int
	log    *logger.Logger
}

func NewHub(buffer int, log *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]*Subscriber),
		buffer: buffer,
		log:    log.Named("broadcast"),
	}
}

// Subscribe registers a subscriber for the given channels, or all channels when none are given.
func (h *Hub) Subscribe(channels ...string) *Subscriber {
	s := &Subscriber{
		ID:     uuid.NewString(),
		events: make(chan []byte, h.buffer),
	}
	if len(channels) > 0 {
		s.channels = make(map[string]struct{}, len(channels))
		for _, ch := range channels {
			s.channels[ch] = struct{}{}
		}
	}

	h.mu.Lock()
	h.subs[s.ID] = s
	n := len(h.subs)
	h.mu.Unlock()

	metrics.Subscribers.Inc()
	h.log.Debugw("subscriber_added", "id", s.ID, "channels", channels, "total", n)
	return s
}

// Unsubscribe removes s and closes its queue. Safe to call twice.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, s.ID)
	close(s.events)
	h.mu.Unlock()

	metrics.Subscribers.Dec()
	h.log.Debugw("subscriber_removed", "id", s.ID)
}

// Publish encodes v once and offers it to every interested subscriber.
func (h *Hub) Publish(channel string, v any) {
	frame, err := json.Marshal(Envelope{Type: channel, Data: v})
	if err != nil {
		h.log.Errorw("broadcast_encode_failed", "channel", channel, "err", err)
		return
	}
	metrics.BroadcastEvents.WithLabelValues(channel).Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if !s.wants(channel) {
			continue
		}
		select {
		case s.events <- frame:
		default:
			metrics.BroadcastDropped.WithLabelValues(channel).Inc()
			h.log.Debugw("broadcast_dropped", "id", s.ID, "channel", channel)
		}
	}
}

// Len reports the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
