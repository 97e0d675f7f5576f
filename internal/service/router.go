package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bms_bridge/internal/broadcast"
	"bms_bridge/internal/logger"
	"bms_bridge/internal/metrics"
	"bms_bridge/internal/models"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnmatchedTopic   = errors.New("no route for topic")
)

// Topic fragments, matched by substring. The first match in routeOrder wins.
const (
	routeFetStatus      = "bms/fet/status"
	routeStatus         = "bms/status"
	routeElectronicLoad = "electronic_load/control"
	routeControl        = "bms/control"
)

var routeOrder = []string{routeFetStatus, routeStatus, routeElectronicLoad, routeControl}

// StatusRecorder persists and rebroadcasts a status reading.
type StatusRecorder interface {
	Record(ctx context.Context, st models.BmsStatus) (models.Snapshot, error)
}

// Router dispatches inbound bus messages to exactly one handler by topic.
type Router struct {
	recorder StatusRecorder
	hub      Broadcaster
	log      *logger.Logger
}

func NewRouter(recorder StatusRecorder, hub Broadcaster, log *logger.Logger) *Router {
	return &Router{recorder: recorder, hub: hub, log: log.Named("router")}
}

// classify returns the route fragment found in topic, or "".
func classify(topic string) string {
	for _, r := range routeOrder {
		if strings.Contains(topic, r) {
			return r
		}
	}
	return ""
}

// HandleMessage never panics. A bad message is logged, counted and reported
// through the returned error only.
func (r *Router) HandleMessage(ctx context.Context, topic string, payload []byte) (err error) {
	route := classify(topic)
	defer func() {
		if p := recover(); p != nil {
			metrics.MessagesInvalid.WithLabelValues(route).Inc()
			r.log.Errorw("route_panic", "topic", topic, "panic", p)
			err = fmt.Errorf("%s: %w: %v", topic, ErrMalformedPayload, p)
		}
	}()

	switch route {
	case routeStatus:
		var st models.BmsStatus
		if err := r.decode(route, topic, payload, &st); err != nil {
			return err
		}
		_, err := r.recorder.Record(ctx, st)
		return err
	case routeFetStatus:
		var echo models.ControlEcho
		if err := r.decode(route, topic, payload, &echo); err != nil {
			return err
		}
		r.hub.Publish(broadcast.ChannelFetStatus, echo)
	case routeControl:
		var echo models.ControlEcho
		if err := r.decode(route, topic, payload, &echo); err != nil {
			return err
		}
		r.hub.Publish(broadcast.ChannelControl, echo)
	case routeElectronicLoad:
		var echo models.ElectronicLoadEcho
		if err := r.decode(route, topic, payload, &echo); err != nil {
			return err
		}
		r.hub.Publish(broadcast.ChannelElectronicLoad, echo)
	default:
		metrics.MessagesDropped.WithLabelValues(metrics.ReasonUnmatched).Inc()
		r.log.Debugw("topic_unmatched", "topic", topic)
		return fmt.Errorf("%s: %w", topic, ErrUnmatchedTopic)
	}
	return nil
}

func (r *Router) decode(route, topic string, payload []byte, v any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		metrics.MessagesInvalid.WithLabelValues(route).Inc()
		r.log.Warnw("payload_not_object", "topic", topic, "bytes", len(payload))
		return fmt.Errorf("%s: %w: not a JSON object", topic, ErrMalformedPayload)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		metrics.MessagesInvalid.WithLabelValues(route).Inc()
		r.log.Warnw("payload_decode_failed", "topic", topic, "err", err)
		return fmt.Errorf("%s: %w: %v", topic, ErrMalformedPayload, err)
	}
	return nil
}
