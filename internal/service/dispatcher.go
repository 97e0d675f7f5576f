package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bms_bridge/internal/logger"
	"bms_bridge/internal/metrics"
	"bms_bridge/internal/models"
)

// HardwareLink is the direct synchronous path to the controller.
type HardwareLink interface {
	Available(ctx context.Context) bool
	Execute(ctx context.Context, cmd models.Command) error
}

// Publisher is the asynchronous message-bus path.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Channel names the path a command was delivered on.
type Channel string

const (
	ChannelDirect Channel = "direct"
	ChannelBus    Channel = "bus"
)

// Delivery is a successful dispatch.
type Delivery struct {
	CommandID string
	Channel   Channel
}

// DispatchError means neither path accepted the command.
type DispatchError struct {
	CommandID string
	Kind      models.CommandKind
	DirectErr error // nil when the link was down
	BusErr    error
}

func (e *DispatchError) Error() string {
	if e.DirectErr != nil {
		return fmt.Sprintf("%s not delivered: direct: %v; bus: %v", e.Kind, e.DirectErr, e.BusErr)
	}
	return fmt.Sprintf("%s not delivered: hardware link unavailable; bus: %v", e.Kind, e.BusErr)
}

func (e *DispatchError) Unwrap() []error {
	if e.DirectErr != nil {
		return []error{e.DirectErr, e.BusErr}
	}
	return []error{e.BusErr}
}

// Dispatcher delivers commands over the direct link when it is up, and over
// the bus otherwise. It keeps no state between calls.
type Dispatcher struct {
	link       HardwareLink
	bus        Publisher
	topics     Topics
	busTimeout time.Duration
	log        *logger.Logger
}

// NewDispatcher builds a dispatcher. busTimeout bounds all bus messages of
// one command together; zero leaves it to the publisher.
func NewDispatcher(link HardwareLink, bus Publisher, topics Topics, busTimeout time.Duration, log *logger.Logger) *Dispatcher {
	return &Dispatcher{link: link, bus: bus, topics: topics, busTimeout: busTimeout, log: log.Named("dispatcher")}
}

func (d *Dispatcher) Dispatch(ctx context.Context, cmd models.Command) (Delivery, error) {
	id := uuid.NewString()
	kind := cmd.Kind()
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	var directErr error
	if d.link.Available(ctx) {
		if directErr = d.link.Execute(ctx, cmd); directErr == nil {
			metrics.DispatchTotal.WithLabelValues(string(kind), metrics.OutcomeDirect).Inc()
			d.log.Infow("dispatch_delivered", "command_id", id, "kind", kind, "channel", ChannelDirect)
			return Delivery{CommandID: id, Channel: ChannelDirect}, nil
		}
		d.log.Warnw("dispatch_direct_failed", "command_id", id, "kind", kind, "err", directErr)
	} else {
		d.log.Infow("dispatch_link_down", "command_id", id, "kind", kind)
	}

	if busErr := d.publish(ctx, cmd); busErr != nil {
		metrics.DispatchTotal.WithLabelValues(string(kind), metrics.OutcomeFailed).Inc()
		d.log.Errorw("dispatch_bus_failed", "command_id", id, "kind", kind, "err", busErr)
		return Delivery{}, &DispatchError{CommandID: id, Kind: kind, DirectErr: directErr, BusErr: busErr}
	}

	metrics.DispatchTotal.WithLabelValues(string(kind), metrics.OutcomeBus).Inc()
	d.log.Infow("dispatch_delivered", "command_id", id, "kind", kind, "channel", ChannelBus)
	return Delivery{CommandID: id, Channel: ChannelBus}, nil
}

// publish sends every bus message for cmd and stops at the first rejection.
func (d *Dispatcher) publish(ctx context.Context, cmd models.Command) error {
	msgs, err := EncodeCommand(cmd, d.topics)
	if err != nil {
		return err
	}
	if d.busTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.busTimeout)
		defer cancel()
	}
	for _, m := range msgs {
		if err := d.bus.Publish(ctx, m.Topic, m.Payload); err != nil {
			return err
		}
	}
	return nil
}
