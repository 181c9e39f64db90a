package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"pong-arena/internal/config"
	"pong-arena/internal/game"
)

const (
	// MaxWSConnectionsTotal caps game websocket connections
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP caps game websocket connections per IP
	MaxWSConnectionsPerIP = 10

	writeWait      = 10 * time.Second
	maxInboundSize = 4096
	clientBuffer   = 64
)

type wsFormat uint8

const (
	formatJSON wsFormat = iota
	formatMsgpack
)

func parseFormat(r *http.Request) wsFormat {
	if r.URL.Query().Get("format") == "msgpack" {
		return formatMsgpack
	}
	return formatJSON
}

// wsEnvelope is every server-to-client game frame.
type wsEnvelope struct {
	Event string      `json:"event" msgpack:"event"`
	Data  interface{} `json:"data" msgpack:"data"`
}

// wsInbound is a client message: key events or a named command.
type wsInbound struct {
	Type   string `json:"type" msgpack:"type"`
	Key    string `json:"key,omitempty" msgpack:"key,omitempty"`
	Action string `json:"action,omitempty" msgpack:"action,omitempty"`
}

// wsFrame carries one broadcast in both encodings. Msgpack is only built
// while msgpack clients are connected.
type wsFrame struct {
	json    []byte
	msgpack []byte
}

type wsClient struct {
	conn   *websocket.Conn
	ip     string
	id     string // input source: one held-key set per connection
	user   string // signed-in user, "" for guests
	format wsFormat
	send   chan []byte
}

func (c *wsClient) payload(f wsFrame) []byte {
	if c.format == formatMsgpack {
		return f.msgpack
	}
	return f.json
}

func (c *wsClient) messageType() int {
	if c.format == formatMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// GameHub fans game state out to websocket clients and feeds their key
// presses and commands into the loop.
type GameHub struct {
	game     GameInterface
	interval time.Duration
	upgrader websocket.Upgrader

	clients    map[*wsClient]struct{}
	broadcast  chan wsFrame
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex

	wsLimiter      *WebSocketRateLimiter
	msgpackClients atomic.Int32
	nextID         atomic.Uint64

	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

// NewGameHub creates a hub. Nothing runs until Start.
func NewGameHub(g GameInterface, cfg config.ServerConfig) *GameHub {
	interval := cfg.BroadcastInterval
	if interval <= 0 {
		interval = config.DefaultServer().BroadcastInterval
	}
	origins := NewOriginChecker(cfg.CORSOrigins)

	return &GameHub{
		game:     g,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.CheckOrigin,
		},
		clients:    make(map[*wsClient]struct{}),
		broadcast:  make(chan wsFrame, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		stopChan:   make(chan struct{}),
	}
}

// Start runs the hub and the state broadcast loop.
func (h *GameHub) Start() {
	if !h.running.CompareAndSwap(false, true) {
		return
	}
	go h.run()
	go h.broadcastLoop()
}

// Stop disconnects every client and ends the hub goroutines.
func (h *GameHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

func (h *GameHub) run() {
	for {
		select {
		case <-h.stopChan:
			h.mu.Lock()
			for c := range h.clients {
				h.dropLocked(c)
			}
			h.mu.Unlock()
			UpdateWSConnections("game", 0)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", c.ip, count)
			UpdateWSConnections("game", count)

		case c := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(c)
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections("game", count)

		case f := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				p := c.payload(f)
				if p == nil {
					// Joined after the frame was encoded
					continue
				}
				select {
				case c.send <- p:
				default:
					// Slow consumer
					h.dropLocked(c)
				}
			}
			h.mu.Unlock()
			IncrementWSMessages()
		}
	}
}

// dropLocked removes c and closes its send channel, which ends its writer.
func (h *GameHub) dropLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.wsLimiter.Release(c.ip)
	if c.format == formatMsgpack {
		h.msgpackClients.Add(-1)
	}
}

func (h *GameHub) broadcastLoop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-h.stopChan:
			return
		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			snap := h.game.Snapshot()
			if snap.Sequence == last {
				continue
			}
			last = snap.Sequence
			h.Broadcast("game:state", snap)
		}
	}
}

func (h *GameHub) encode(event string, data interface{}) (wsFrame, bool) {
	env := wsEnvelope{Event: event, Data: data}

	var f wsFrame
	var err error
	if f.json, err = json.Marshal(env); err != nil {
		log.Printf("⚠️ Failed to encode %s frame: %v", event, err)
		return f, false
	}
	if h.msgpackClients.Load() > 0 {
		if f.msgpack, err = msgpack.Marshal(env); err != nil {
			log.Printf("⚠️ Failed to encode %s msgpack frame: %v", event, err)
			return f, false
		}
	}
	return f, true
}

// Broadcast sends an event to every client. It never blocks; when the
// broadcast queue is full the event is dropped.
func (h *GameHub) Broadcast(event string, data interface{}) {
	f, ok := h.encode(event, data)
	if !ok {
		return
	}
	select {
	case h.broadcast <- f:
	default:
	}
}

// BroadcastScore is a loop score listener.
func (h *GameHub) BroadcastScore(side game.Side, value string) {
	h.Broadcast("score", map[string]string{"side": side.String(), "value": value})
}

// BroadcastGoal is a loop goal listener.
func (h *GameHub) BroadcastGoal(goal game.Side, score game.Score) {
	h.Broadcast("goal", map[string]interface{}{
		"goal":   goal.String(),
		"scorer": goal.Opposite().String(),
		"score":  score,
	})
}

// ClientCount returns the number of connected clients.
func (h *GameHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades a game connection.
func (h *GameHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.running.Load() {
		writeError(w, "game socket not running", http.StatusServiceUnavailable)
		return
	}

	ip := GetClientIP(r)
	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	user, _ := UserFromContext(r.Context())
	c := &wsClient{
		conn:   conn,
		ip:     ip,
		id:     fmt.Sprintf("%s#%d", ip, h.nextID.Add(1)),
		user:   user,
		format: parseFormat(r),
		send:   make(chan []byte, clientBuffer),
	}
	if c.format == formatMsgpack {
		h.msgpackClients.Add(1)
	}

	// Current state first so the client can draw before the next tick
	if f, ok := h.encode("game:state", h.game.Snapshot()); ok {
		c.send <- c.payload(f)
	}

	select {
	case h.register <- c:
	case <-h.stopChan:
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *GameHub) writePump(c *wsClient) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(c.messageType(), msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *GameHub) readPump(c *wsClient) {
	pressed := false
	defer func() {
		// Keys held by a vanished client would keep its paddle moving
		if pressed {
			h.game.Submit(game.Command{Kind: game.CmdReleaseKeys, Source: c.id})
		}
		select {
		case h.unregister <- c:
		case <-h.stopChan:
		}
	}()

	c.conn.SetReadLimit(maxInboundSize)
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wsInbound
		if kind == websocket.BinaryMessage {
			err = msgpack.Unmarshal(data, &msg)
		} else {
			err = json.Unmarshal(data, &msg)
		}
		if err != nil {
			log.Printf("discarding malformed message from %s: %v", c.ip, err)
			continue
		}

		cmd := game.Command{Key: msg.Key, Source: c.id, User: c.user}
		switch msg.Type {
		case "keydown":
			cmd.Kind = game.CmdKeyDown
			pressed = true
		case "keyup":
			cmd.Kind = game.CmdKeyUp
		case "command":
			k, ok := game.ParseAction(msg.Action)
			if !ok {
				log.Printf("unknown command %q from %s", msg.Action, c.ip)
				continue
			}
			cmd.Kind = k
		default:
			log.Printf("unknown message type %q from %s", msg.Type, c.ip)
			continue
		}
		if !h.game.Submit(cmd) {
			RecordCommandRejected()
		}
	}
}
