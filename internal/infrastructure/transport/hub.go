package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"jobtracker/internal/domain/entity"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

type wsMessage struct {
	Type string       `json:"type"`
	Jobs []entity.Job `json:"jobs"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans job list snapshots out to connected websocket clients. A client
// whose buffer is full is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Broadcast(jobs []entity.Job) {
	msg, err := encodeSnapshot(jobs)
	if err != nil {
		h.logger.Error("encode snapshot failed", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("websocket client too slow, dropping", "remote", c.conn.RemoteAddr().String())
			h.removeLocked(c)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// SnapshotViewer hands out the current job list under the same lock that
// orders change notifications.
type SnapshotViewer interface {
	View(ctx context.Context, fn func([]entity.Job))
}

// Serve registers conn and queues the current list inside one View call, so
// every later change reaches the client after that list. It blocks for the
// lifetime of the connection.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, jobs SnapshotViewer) {
	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}

	var err error
	jobs.View(ctx, func(snapshot []entity.Job) {
		var msg []byte
		if msg, err = encodeSnapshot(snapshot); err != nil {
			return
		}
		c.send <- msg

		h.mu.Lock()
		h.clients[c] = struct{}{}
		h.mu.Unlock()
	})
	if err != nil {
		h.logger.Error("encode snapshot failed", "err", err)
		_ = conn.Close()
		return
	}
	h.logger.Info("websocket client connected", "remote", conn.RemoteAddr().String())

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.mu.Lock()
		h.removeLocked(c)
		h.mu.Unlock()
		h.logger.Info("websocket client disconnected", "remote", c.conn.RemoteAddr().String())
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func encodeSnapshot(jobs []entity.Job) ([]byte, error) {
	if jobs == nil {
		jobs = []entity.Job{}
	}
	return json.Marshal(wsMessage{Type: "jobs", Jobs: jobs})
}
