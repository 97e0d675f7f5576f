package bus

import (
	"context"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"bms_bridge/internal/logger"
	"bms_bridge/internal/metrics"
)

// Handler processes one inbound message. Errors are logged by the inbox and
// never stop the queue.
type Handler interface {
	HandleMessage(ctx context.Context, topic string, payload []byte) error
}

type message struct {
	topic   string
	payload []byte
}

// Inbox gives every subscription filter its own bounded FIFO queue and worker,
// so one slow or broken topic cannot stall another.
type Inbox struct {
	handler Handler
	log     *logger.Logger

	mu     sync.RWMutex
	queues map[string]chan message
	closed bool
	wg     sync.WaitGroup
}

func NewInbox(handler Handler, filters []string, size int, log *logger.Logger) *Inbox {
	if size <= 0 {
		size = 1
	}
	queues := make(map[string]chan message, len(filters))
	for _, f := range filters {
		queues[f] = make(chan message, size)
	}
	return &Inbox{
		handler: handler,
		log:     log.Named("inbox"),
		queues:  queues,
	}
}

// Filters returns the subscription filters the inbox has queues for.
func (i *Inbox) Filters() []string {
	out := make([]string, 0, len(i.queues))
	for f := range i.queues {
		out = append(out, f)
	}
	return out
}

// Start launches one worker per queue. Workers exit when Close is called.
func (i *Inbox) Start(ctx context.Context) {
	for filter, q := range i.queues {
		i.wg.Add(1)
		go i.work(ctx, filter, q)
	}
}

func (i *Inbox) work(ctx context.Context, filter string, q <-chan message) {
	defer i.wg.Done()
	depth := metrics.InboxDepth.WithLabelValues(filter)
	for msg := range q {
		depth.Dec()
		if err := i.handler.HandleMessage(ctx, msg.topic, msg.payload); err != nil {
			i.log.Debugw("message_not_handled", "subscription", filter, "topic", msg.topic, "err", err)
		}
	}
}

// Enqueue copies payload onto the filter's queue without blocking. It returns
// false when the message was dropped.
func (i *Inbox) Enqueue(filter, topic string, payload []byte) bool {
	metrics.MessagesReceived.WithLabelValues(filter).Inc()

	data := make([]byte, len(payload))
	copy(data, payload)

	i.mu.RLock()
	defer i.mu.RUnlock()

	q, ok := i.queues[filter]
	if !ok || i.closed {
		metrics.MessagesDropped.WithLabelValues(metrics.ReasonUnmatched).Inc()
		return false
	}
	select {
	case q <- message{topic: topic, payload: data}:
		metrics.InboxDepth.WithLabelValues(filter).Inc()
		return true
	default:
		metrics.MessagesDropped.WithLabelValues(metrics.ReasonQueueFull).Inc()
		i.log.Warnw("inbox_full_dropped", "subscription", filter, "topic", topic)
		return false
	}
}

// Callback returns the paho handler for filter. It runs on paho's goroutine
// and only enqueues.
func (i *Inbox) Callback(filter string) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		i.Enqueue(filter, msg.Topic(), msg.Payload())
	}
}

// Close stops accepting messages, lets workers drain what is queued and waits
// for them.
func (i *Inbox) Close() {
	i.mu.Lock()
	if !i.closed {
		i.closed = true
		for _, q := range i.queues {
			close(q)
		}
	}
	i.mu.Unlock()
	i.wg.Wait()
}
