package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"pong-arena/internal/api"
	"pong-arena/internal/game"
)

func postJSON(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func getAuth(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func TestAPIGetState(t *testing.T) {
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(NewMockGame())))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var snap game.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if snap.Step != 42 || snap.Score.Left != 2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestAPIGetStateMsgpack(t *testing.T) {
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(NewMockGame())))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state?format=msgpack")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/msgpack" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	var snap game.Snapshot
	if err := msgpack.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode msgpack: %v", err)
	}
	if snap.Sequence != 7 {
		t.Errorf("Sequence = %d, want 7", snap.Sequence)
	}
}

func TestAPIGetScore(t *testing.T) {
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(NewMockGame())))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/score")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var score map[string]uint
	json.NewDecoder(resp.Body).Decode(&score)
	if score["left"] != 2 || score["right"] != 1 {
		t.Errorf("score = %v", score)
	}
}

func TestAPIStats(t *testing.T) {
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(NewMockGame())))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	loop, ok := stats["loop"].(map[string]interface{})
	if !ok || loop["steps"] != float64(42) {
		t.Errorf("loop stats = %v", stats["loop"])
	}
	if _, ok := stats["chat"]; !ok {
		t.Error("missing chat stats")
	}
}

func TestAPICommand(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		full       bool
		wantStatus int
		wantKind   game.CommandKind
	}{
		{"serve", `{"action":"startBall"}`, false, http.StatusAccepted, game.CmdStartBall},
		{"move", `{"action":"moveUp2"}`, false, http.StatusAccepted, game.CmdMoveUp2},
		{"stop", `{"action":"stopPlayerMovement"}`, false, http.StatusAccepted, game.CmdStopPlayer},
		{"unknown", `{"action":"jump"}`, false, http.StatusBadRequest, game.CmdNone},
		{"invalid json", `{invalid}`, false, http.StatusBadRequest, game.CmdNone},
		{"queue full", `{"action":"startBall"}`, true, http.StatusServiceUnavailable, game.CmdNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewMockGame()
			g.full = tt.full
			ts := httptest.NewServer(api.NewRouter(testRouterConfig(g)))
			defer ts.Close()

			resp := postJSON(t, ts.URL+"/api/command", "", tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			cmds := g.Commands()
			if tt.wantKind == game.CmdNone {
				if len(cmds) != 0 {
					t.Errorf("unexpected commands %v", cmds)
				}
				return
			}
			if len(cmds) != 1 || cmds[0].Kind != tt.wantKind {
				t.Errorf("commands = %v, want one %v", cmds, tt.wantKind)
			}
		})
	}
}

func TestAPITrailingSlash(t *testing.T) {
	g := NewMockGame()
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(g)))
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/command/", "", `{"action":"startBall"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", resp.StatusCode)
	}
}

func TestAPIScoreReset(t *testing.T) {
	g := NewMockGame()
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(g)))
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/score/reset", "", "")
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", resp.StatusCode)
	}
	if cmds := g.Commands(); len(cmds) != 1 || cmds[0].Kind != game.CmdResetScore {
		t.Errorf("commands = %v", cmds)
	}
}

func TestAPILeaderboard(t *testing.T) {
	g := NewMockGame()
	g.board.AddGoals("alice", 3)
	g.board.AddGoals("bob", 5)
	g.board.AddGoals("carol", 1)

	ts := httptest.NewServer(api.NewRouter(testRouterConfig(g)))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/leaderboard?limit=2")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var board []game.LeaderboardEntry
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		t.Fatal(err)
	}
	if len(board) != 2 {
		t.Fatalf("got %d entries, want 2", len(board))
	}
	if board[0].Username != "bob" || board[0].Rank != 1 || board[1].Username != "alice" {
		t.Errorf("board = %+v", board)
	}

	bad, _ := http.Get(ts.URL + "/api/leaderboard?limit=zero")
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid limit: expected 400, got %d", bad.StatusCode)
	}
}

type stubFrames struct{}

func (stubFrames) WritePNG(w io.Writer) error {
	_, err := w.Write([]byte("\x89PNG"))
	return err
}

func TestAPIFrame(t *testing.T) {
	cfg := testRouterConfig(NewMockGame())
	ts := httptest.NewServer(api.NewRouter(cfg))
	resp, _ := http.Get(ts.URL + "/api/frame.png")
	resp.Body.Close()
	ts.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("without renderer: expected 404, got %d", resp.StatusCode)
	}

	cfg.Frames = stubFrames{}
	ts = httptest.NewServer(api.NewRouter(cfg))
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/api/frame.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Errorf("body = %q", body)
	}
}

func TestAPIRateLimit(t *testing.T) {
	cfg := testRouterConfig(NewMockGame())
	cfg.RateLimitConfig = &api.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, CleanupInterval: time.Hour}
	ts := httptest.NewServer(api.NewRouter(cfg))
	defer ts.Close()

	var last int
	for i := 0; i < 3; i++ {
		resp, _ := http.Get(ts.URL + "/api/score")
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request: expected 429, got %d", last)
	}
}

func TestAPICORS(t *testing.T) {
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(NewMockGame())))
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/score", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
