package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vmihailenco/msgpack/v5"

	"pong-arena/internal/chat"
	"pong-arena/internal/game"
)

const (
	maxBodyBytes     = 1 << 16
	defaultBoardSize = 10
	maxBoardSize     = 100
)

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.game.Snapshot()
	if r.URL.Query().Get("format") == "msgpack" {
		writeMsgpack(w, snap)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetScore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.game.Snapshot().Score)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.game.Snapshot()
	stats := map[string]interface{}{
		"loop":     h.game.Stats(),
		"sequence": snap.Sequence,
		"step":     snap.Step,
		"seed":     snap.Seed,
		"loaded":   snap.Loaded,
		"score":    snap.Score,
		"players":  h.game.Leaderboard().Len(),
	}
	if h.chat != nil {
		stats["chat"] = h.chat.Stats()
	}
	if h.socket != nil {
		stats["websocketClients"] = h.socket.ClientCount()
	}
	writeJSON(w, stats)
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultBoardSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxBoardSize)
	}
	writeJSON(w, h.game.Leaderboard().Top(limit))
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	if h.frames == nil {
		writeError(w, "renderer disabled", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.frames.WritePNG(w); err != nil {
		log.Printf("⚠️ Frame render failed: %v", err)
	}
}

func (h *routerHandlers) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	kind, ok := game.ParseAction(req.Action)
	if !ok {
		writeError(w, fmt.Sprintf("unknown command %q", req.Action), http.StatusBadRequest)
		return
	}
	user, _ := UserFromContext(r.Context())
	if side, ok := kind.PaddleSide(); ok && !h.game.Seats().CanDrive(side, user) {
		writeError(w, fmt.Sprintf("the %s paddle is held by another player", side), http.StatusForbidden)
		return
	}
	h.submit(w, game.Command{Kind: kind, Source: GetClientIP(r), User: user})
}

func (h *routerHandlers) handleScoreReset(w http.ResponseWriter, r *http.Request) {
	h.submit(w, game.Command{Kind: game.CmdResetScore, Source: GetClientIP(r)})
}

func (h *routerHandlers) submit(w http.ResponseWriter, cmd game.Command) {
	if !h.game.Submit(cmd) {
		RecordCommandRejected()
		writeError(w, "command queue full", http.StatusServiceUnavailable)
		return
	}
	writeJSONStatus(w, map[string]interface{}{
		"queued": true,
		"action": cmd.Kind.String(),
	}, http.StatusAccepted)
}

func (h *routerHandlers) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	users := h.auth.Users()
	out := make([]map[string]string, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]string{"username": u})
	}
	writeJSON(w, out)
}

func (h *routerHandlers) handleClaimSeat(w http.ResponseWriter, r *http.Request) {
	username, _ := UserFromContext(r.Context())

	var req struct {
		Side string `json:"side"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	side, ok := game.ParseSide(req.Side)
	if !ok {
		writeError(w, "side must be left or right", http.StatusBadRequest)
		return
	}

	if err := h.game.Seats().Claim(side, username); err != nil {
		if errors.Is(err, game.ErrSeatTaken) {
			writeError(w, err.Error(), http.StatusConflict)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Printf("🎮 %s took the %s paddle", username, side)
	writeJSON(w, map[string]string{"side": side.String(), "player": username})
}

func (h *routerHandlers) handleReleaseSeat(w http.ResponseWriter, r *http.Request) {
	username, _ := UserFromContext(r.Context())
	h.game.Seats().ReleaseAll(username)
	w.WriteHeader(http.StatusNoContent)
}

func (h *routerHandlers) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	username, _ := UserFromContext(r.Context())
	a, b := chi.URLParam(r, "a"), chi.URLParam(r, "b")
	if username != a && username != b {
		writeError(w, chat.ErrNotRoomMember.Error(), http.StatusForbidden)
		return
	}

	history := h.chat.History(chat.RoomName(a, b))
	messages := make([]chat.HistoryEntry, 0, len(history))
	for _, m := range history {
		messages = append(messages, chat.HistoryEntry{Sender: m.Sender, Content: m.Content})
	}
	writeJSON(w, map[string]interface{}{"messages": messages})
}

// Helper functions (package-level for reuse)

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, data, http.StatusOK)
}

func writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeMsgpack(w http.ResponseWriter, data interface{}) {
	b, err := msgpack.Marshal(data)
	if err != nil {
		writeError(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/msgpack")
	w.Write(b)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, map[string]string{"error": message}, code)
}
