package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

// Events emitted by the hub itself.
const (
	EventConnectionStatus = "connection-status"
	EventClientsUpdate    = "clients-update"
	EventPong             = "pong"
	eventPing             = "ping"
)

const (
	clientBuffer = 256
	writeWait    = 10 * time.Second
)

// ConnectionGauge records the number of connected observers.
type ConnectionGauge interface {
	SetConnections(n int)
}

// Envelope is the frame written to websocket observers.
type Envelope struct {
	Event     string `json:"event"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans published payloads out to every connected websocket observer. Slow
// observers lose frames instead of blocking publishers.
type Hub struct {
	upgrader websocket.Upgrader
	gauge    ConnectionGauge
	now      func() time.Time

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty hub. gauge may be nil.
func NewHub(gauge ConnectionGauge) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// the dashboard is served from another origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		gauge:   gauge,
		now:     time.Now,
		clients: make(map[*wsClient]struct{}),
	}
}

// Publish implements domain.Broadcaster.
func (h *Hub) Publish(channel string, payload any) {
	frame, err := h.encode(channel, payload)
	if err != nil {
		utils.Logger.Error("failed to encode broadcast", "event", channel, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.offer(c, frame)
	}
}

// Clients returns the number of connected observers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and serves the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.Logger.Error("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
	total := h.register(c)
	utils.Logger.Info("websocket client connected", "remote", r.RemoteAddr, "clients", total)

	go h.writeLoop(c)

	h.sendTo(c, EventConnectionStatus, map[string]any{
		"status":       "connected",
		"timestamp":    h.timestamp(),
		"totalClients": total,
	})
	h.Publish(EventClientsUpdate, map[string]int{"totalClients": total})

	h.readLoop(c)

	total = h.unregister(c)
	utils.Logger.Info("websocket client disconnected", "remote", r.RemoteAddr, "clients", total)
	h.Publish(EventClientsUpdate, map[string]int{"totalClients": total})
}

// Close disconnects every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.setGauge(0)
}

// readLoop answers pings until the connection fails.
func (h *Hub) readLoop(c *wsClient) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var in Envelope
		if string(data) == eventPing || (json.Unmarshal(data, &in) == nil && in.Event == eventPing) {
			h.sendTo(c, EventPong, map[string]string{"timestamp": h.timestamp()})
		}
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			utils.Logger.Debug("websocket write failed", "err", err)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) sendTo(c *wsClient, event string, payload any) {
	frame, err := h.encode(event, payload)
	if err != nil {
		utils.Logger.Error("failed to encode frame", "event", event, "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		h.offer(c, frame)
	}
}

// offer queues frame for c without blocking. Callers hold h.mu.
func (h *Hub) offer(c *wsClient, frame []byte) {
	select {
	case c.send <- frame:
	default:
		utils.Logger.Warn("dropping frame for slow websocket client", "remote", c.conn.RemoteAddr().String())
	}
}

func (h *Hub) register(c *wsClient) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.setGauge(len(h.clients))
	return len(h.clients)
}

func (h *Hub) unregister(c *wsClient) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.setGauge(len(h.clients))
	return len(h.clients)
}

func (h *Hub) setGauge(n int) {
	if h.gauge != nil {
		h.gauge.SetConnections(n)
	}
}

func (h *Hub) encode(event string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: payload, Timestamp: h.timestamp()})
}

func (h *Hub) timestamp() string {
	return h.now().UTC().Format("2006-01-02T15:04:05.000Z")
}
