package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bms_bridge/internal/logger"
)

type recordingHandler struct {
	mu     sync.Mutex
	topics []string
	bodies []string
	block  chan struct{}
	fail   string
}

func (h *recordingHandler) HandleMessage(_ context.Context, topic string, payload []byte) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	h.topics = append(h.topics, topic)
	h.bodies = append(h.bodies, string(payload))
	h.mu.Unlock()
	if string(payload) == h.fail {
		return errors.New("bad payload")
	}
	return nil
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.bodies...)
}

func TestInbox_FIFOPerSubscription(t *testing.T) {
	h := &recordingHandler{fail: "broken"}
	in := NewInbox(h, []string{"bms/status"}, 16, logger.Nop())
	in.Start(context.Background())

	for _, p := range []string{"a", "broken", "b", "c"} {
		require.True(t, in.Enqueue("bms/status", "site/bms/status", []byte(p)))
	}
	in.Close()

	assert.Equal(t, []string{"a", "broken", "b", "c"}, h.seen())
}

func TestInbox_CopiesPayload(t *testing.T) {
	h := &recordingHandler{}
	in := NewInbox(h, []string{"bms/status"}, 4, logger.Nop())
	in.Start(context.Background())

	buf := []byte("first")
	in.Enqueue("bms/status", "bms/status", buf)
	copy(buf, "XXXXX")
	in.Close()

	assert.Equal(t, []string{"first"}, h.seen())
}

func TestInbox_DropsWhenFull(t *testing.T) {
	h := &recordingHandler{block: make(chan struct{})}
	in := NewInbox(h, []string{"bms/status"}, 1, logger.Nop())
	in.Start(context.Background())

	// The worker takes the first message and blocks, the second fills the queue.
	require.True(t, in.Enqueue("bms/status", "bms/status", []byte("1")))
	require.Eventually(t, func() bool { return len(in.queues["bms/status"]) == 0 }, time.Second, time.Millisecond)
	require.True(t, in.Enqueue("bms/status", "bms/status", []byte("2")))
	assert.False(t, in.Enqueue("bms/status", "bms/status", []byte("3")))

	close(h.block)
	in.Close()
	assert.Equal(t, []string{"1", "2"}, h.seen())
}

func TestInbox_UnknownFilterAndClosed(t *testing.T) {
	in := NewInbox(&recordingHandler{}, []string{"bms/status"}, 1, logger.Nop())
	in.Start(context.Background())

	assert.False(t, in.Enqueue("nope", "nope", []byte("x")))
	in.Close()
	assert.False(t, in.Enqueue("bms/status", "bms/status", []byte("x")))
	in.Close()
}

func TestInbox_SubscriptionsIndependent(t *testing.T) {
	slow := make(chan struct{})
	h := &topicBlockingHandler{blockTopic: "bms/status", release: slow, got: make(chan string, 4)}
	in := NewInbox(h, []string{"bms/status", "bms/control"}, 4, logger.Nop())
	in.Start(context.Background())

	in.Enqueue("bms/status", "bms/status", []byte("{}"))
	in.Enqueue("bms/control", "bms/control", []byte("{}"))

	select {
	case topic := <-h.got:
		assert.Equal(t, "bms/control", topic)
	case <-time.After(time.Second):
		t.Fatal("control message stuck behind blocked status worker")
	}
	close(slow)
	in.Close()
}

type topicBlockingHandler struct {
	blockTopic string
	release    chan struct{}
	got        chan string
}

func (h *topicBlockingHandler) HandleMessage(_ context.Context, topic string, _ []byte) error {
	if topic == h.blockTopic {
		<-h.release
	}
	h.got <- topic
	return nil
}
