package push

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"frontdesk/internal/adapters/observability"
	"frontdesk/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

// connection is a single console joined to one hotel group.
type connection struct {
	group string
	conn  *websocket.Conn
	send  chan []byte
}

// Hub fans room events out to every console of a hotel.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*connection]struct{}
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[*connection]struct{})}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[c.group]
	if !ok {
		g = make(map[*connection]struct{})
		h.groups[c.group] = g
	}
	g[c] = struct{}{}
	observability.PushConnections.Inc()
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[c.group]
	if !ok {
		return
	}
	if _, ok := g[c]; !ok {
		return
	}
	delete(g, c)
	if len(g) == 0 {
		delete(h.groups, c.group)
	}
	close(c.send)
	observability.PushConnections.Dec()
}

// Members reports how many consoles are joined to a hotel.
func (h *Hub) Members(hotelID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[Group(hotelID)])
}

// Publish implements domain.EventPublisher. Slow consumers are skipped; they
// recover by re-fetching the snapshot on reconnect.
func (h *Hub) Publish(_ context.Context, hotelID int64, ev domain.RoomEvent) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	observability.ObservePush("out", string(ev.Type))

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.groups[Group(hotelID)] {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("group", c.group).Msg("push consumer too slow, dropping event")
		}
	}
	return nil
}

// Serve joins conn to the hotel's group and blocks until it disconnects.
func (h *Hub) Serve(conn *websocket.Conn, hotelID int64) {
	c := &connection{
		group: Group(hotelID),
		conn:  conn,
		send:  make(chan []byte, 64),
	}
	h.register(c)
	log.Debug().Str("group", c.group).Msg("push client joined")

	go h.writePump(c)
	h.readPump(c)
}

// readPump only services control frames; consoles never send events upstream.
func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		log.Debug().Str("group", c.group).Msg("push client left")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
