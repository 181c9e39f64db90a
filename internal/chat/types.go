package chat

import (
	"sort"
	"strings"
	"time"
)

// Message is one chat line in a room.
type Message struct {
	Room    string    `json:"room"`
	Sender  string    `json:"sender"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sentAt"`
}

// Inbound is what a chat websocket client sends.
type Inbound struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// Outbound is what the server relays to room subscribers.
type Outbound struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// HistoryEntry is one line of room history as served over HTTP.
type HistoryEntry struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// RoomName returns the room shared by two users: their names sorted and
// joined with "_", so both sides compute the same room.
func RoomName(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}

// RoomMembers splits a room name back into its two users.
func RoomMembers(room string) (string, string, bool) {
	a, b, ok := strings.Cut(room, "_")
	if !ok || a == "" || b == "" || strings.Contains(b, "_") {
		return "", "", false
	}
	return a, b, true
}

// IsMember reports whether username is one of the room's two users.
func IsMember(room, username string) bool {
	a, b, ok := RoomMembers(room)
	return ok && (a == username || b == username)
}
