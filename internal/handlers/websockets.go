package handlers

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"bms_bridge/internal/broadcast"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Live event stream
// @Description  Streams {"type":channel,"data":...} frames. The latest status is sent first when one is stored.
// @Tags         telemetry
// @Param        channels  query  string  false  "Comma separated channels: bms-status, bms-control, bms-fet-status, electronic-load-control"
// @Success      101
// @Failure      400  {object}  map[string]string
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	channels, ok := parseChannels(c.Query("channels"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown channel; use " + strings.Join(broadcast.Channels, ", ")})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Subscribe before the initial read so nothing published in between is lost.
	sub := h.events.Subscribe(channels...)
	defer h.events.Unsubscribe(sub)
	if h.log != nil {
		h.log.Infow("ws_connected", "subscriber", sub.ID, "channels", channels)
	}

	done := make(chan struct{})
	go h.startReader(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if wantsChannel(channels, broadcast.ChannelStatus) {
		if err := h.sendLatest(c.Request.Context(), conn); err != nil {
			if h.log != nil {
				h.log.Infow("ws_write_failed_initial", "err", err)
			}
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case frame, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "subscriber", sub.ID, "err", err)
				}
				return
			}
		}
	}
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// sendLatest writes the stored status, if any. A missing status is not an error.
func (h *Handler) sendLatest(ctx context.Context, conn *websocket.Conn) error {
	st, err := h.services.Monitoring.LatestStatus(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Debugw("ws_no_initial_status", "err", err)
		}
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(broadcast.Envelope{Type: broadcast.ChannelStatus, Data: st})
}

// parseChannels reads "a,b,c". An empty list means every channel.
func parseChannels(q string) ([]string, bool) {
	if strings.TrimSpace(q) == "" {
		return nil, true
	}
	var out []string
	for _, ch := range strings.Split(q, ",") {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			continue
		}
		if !slices.Contains(broadcast.Channels, ch) {
			return nil, false
		}
		if !slices.Contains(out, ch) {
			out = append(out, ch)
		}
	}
	return out, true
}

func wantsChannel(channels []string, ch string) bool {
	return len(channels) == 0 || slices.Contains(channels, ch)
}
