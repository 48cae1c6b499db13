package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"pong/internal/game"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// BroadcastInterval is the game:state push rate (20 Hz)
	BroadcastInterval = 50 * time.Millisecond

	// streamStatsEvery broadcasts stream:stats once per this many state pushes
	streamStatsEvery = 20

	clientSendBuffer = 32
	writeWait        = 5 * time.Second
	maxMessageSize   = 4096
)

// wsMessage is a command sent by a client.
//
//	{"type":"input","up":true,"down":false}
//	{"type":"reset","winningScore":5}
type wsMessage struct {
	Type         string `json:"type"`
	Up           bool   `json:"up"`
	Down         bool   `json:"down"`
	WinningScore int    `json:"winningScore"`
}

// wsClient tracks a WebSocket connection with its source IP.
// Only writePump writes to conn.
type wsClient struct {
	conn *websocket.Conn
	ip   string
	send chan []byte
}

// WebSocketHub pushes game state to browser clients and accepts their input.
type WebSocketHub struct {
	game     GameInterface
	streamer StreamerInterface
	upgrader websocket.Upgrader

	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex

	stopChan chan struct{}
	stopOnce sync.Once

	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a hub. origins nil uses DefaultAllowedOrigins.
// Nothing runs until Run and StartBroadcastLoop are called.
func NewWebSocketHub(g GameInterface, streamer StreamerInterface, origins []string) *WebSocketHub {
	if origins == nil {
		origins = DefaultAllowedOrigins
	}

	h := &WebSocketHub{
		game:       g,
		streamer:   streamer,
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		stopChan:   make(chan struct{}),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(origin, origins) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run owns the client set until Stop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stopChan:
			h.mu.Lock()
			for c := range h.clients {
				h.dropLocked(c)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", c.ip, count)
			UpdateWSConnections(count)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				h.dropLocked(c)
			}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Slow client, drop it rather than stall everyone
					h.dropLocked(c)
				}
			}
			h.mu.Unlock()
			IncrementWSMessages()
		}
	}
}

// dropLocked removes c. Caller holds h.mu.
func (h *WebSocketHub) dropLocked(c *wsClient) {
	delete(h.clients, c)
	h.wsLimiter.Release(c.ip)
	close(c.send)
}

// Stop ends Run and the broadcast loop and closes every client.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

func encodeEvent(event string, data interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
}

// Broadcast sends an event to all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	msg, err := encodeEvent(event, data)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes game:state at 20 Hz and stream:stats at 1 Hz
// while at least one client is connected.
func (h *WebSocketHub) StartBroadcastLoop() {
	go func() {
		ticker := time.NewTicker(BroadcastInterval)
		defer ticker.Stop()

		var lastSeq uint64
		n := 0
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
			}

			if h.ClientCount() == 0 {
				continue
			}

			// Skip unchanged state while the loop is paused
			snap := h.game.GetSnapshot()
			if snap.Sequence != lastSeq {
				lastSeq = snap.Sequence
				h.Broadcast("game:state", snap)
			}

			n++
			if h.streamer != nil && n%streamStatsEvery == 0 {
				h.Broadcast("stream:stats", h.streamer.GetStats())
			}
		}
	}()
}

// HandleWebSocket upgrades the request and serves the client.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", MaxWSConnectionsTotal)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	c := &wsClient{conn: conn, ip: ip, send: make(chan []byte, clientSendBuffer)}

	// Initial state so the client can draw before the first broadcast
	if msg, err := encodeEvent("game:state", h.game.GetSnapshot()); err == nil {
		c.send <- msg
	}

	select {
	case h.register <- c:
	case <-h.stopChan:
		conn.Close()
		h.wsLimiter.Release(ip)
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *WebSocketHub) writePump(c *wsClient) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// readPump will see the closed conn and unregister
			return
		}
	}
	// send closed by the hub
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *WebSocketHub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stopChan:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	source := "ws:" + c.ip

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(c, "error", map[string]string{"error": "invalid message"})
			continue
		}

		switch msg.Type {
		case "input":
			h.game.SetInput(source, game.InputState{Up: msg.Up, Down: msg.Down})
		case "reset":
			if err := h.game.Reset(msg.WinningScore); err != nil {
				code := "reset failed"
				if errors.Is(err, game.ErrInvalidWinningScore) {
					code = err.Error()
				}
				h.reply(c, "error", map[string]string{"error": code})
				continue
			}
			h.Broadcast("game:state", h.game.GetSnapshot())
		default:
			h.reply(c, "error", map[string]string{"error": "unknown message type"})
		}
	}
}

// reply queues a message for one client, dropping it if the client is backed up.
func (h *WebSocketHub) reply(c *wsClient, event string, data interface{}) {
	msg, err := encodeEvent(event, data)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
