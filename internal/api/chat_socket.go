package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"pong-arena/internal/chat"
	"pong-arena/internal/config"
)

// ChatSockets relays chat rooms over websockets. The client authenticates
// with ?token=<access token> and may only join rooms it belongs to.
type ChatSockets struct {
	hub      *chat.Hub
	auth     *AuthManager
	upgrader websocket.Upgrader
	active   atomic.Int64
}

// NewChatSockets creates the chat websocket handler.
func NewChatSockets(hub *chat.Hub, auth *AuthManager, cfg config.ServerConfig) *ChatSockets {
	origins := NewOriginChecker(cfg.CORSOrigins)
	return &ChatSockets{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.CheckOrigin,
		},
	}
}

// chatConn serializes writes; gorilla allows one concurrent writer.
type chatConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *chatConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// HandleWebSocket serves /api/ws/chat/{room}.
func (cs *ChatSockets) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	username, err := cs.auth.Verify(bearerToken(r))
	if err != nil {
		RecordConnectionRejected("auth")
		writeError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if _, _, ok := chat.RoomMembers(room); !ok {
		writeError(w, chat.ErrInvalidRoom.Error(), http.StatusBadRequest)
		return
	}
	if !chat.IsMember(room, username) {
		writeError(w, chat.ErrNotRoomMember.Error(), http.StatusForbidden)
		return
	}

	sub, err := cs.hub.Subscribe(room)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := cs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		sub.Close()
		return
	}
	UpdateWSConnections("chat", int(cs.active.Add(1)))
	log.Printf("💬 %s joined chat %s", username, room)

	c := &chatConn{conn: conn}
	done := make(chan struct{})

	// Relay room messages until the subscription closes
	go func() {
		defer close(done)
		for msg := range sub.C {
			if err := c.writeJSON(chat.Outbound{Sender: msg.Sender, Message: msg.Content}); err != nil {
				conn.Close()
				return
			}
		}
	}()

	cs.readLoop(c, room, username)

	sub.Close()
	<-done
	conn.Close()
	UpdateWSConnections("chat", int(cs.active.Add(-1)))
	log.Printf("💬 %s left chat %s", username, room)
}

// readLoop posts inbound messages as the authenticated user. A username in
// the payload that differs from the token's is rejected.
func (cs *ChatSockets) readLoop(c *chatConn, room, username string) {
	c.conn.SetReadLimit(maxInboundSize)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("⚠️ Chat read from %s: %v", username, err)
			}
			return
		}

		var in chat.Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.writeJSON(map[string]string{"error": "invalid message"})
			continue
		}
		if in.Username != "" && in.Username != username {
			c.writeJSON(map[string]string{"error": chat.ErrNotRoomMember.Error()})
			RecordChat(false)
			continue
		}

		if _, err := cs.hub.Post(room, username, in.Message); err != nil {
			c.writeJSON(map[string]string{"error": err.Error()})
			RecordChat(false)
			continue
		}
		RecordChat(true)
	}
}
