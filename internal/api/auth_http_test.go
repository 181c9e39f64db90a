package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pong-arena/internal/api"
	"pong-arena/internal/game"
)

type tokenResponse struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	Username string `json:"username"`
}

func register(t *testing.T, baseURL, username string) tokenResponse {
	t.Helper()
	resp := postJSON(t, baseURL+"/api/register/", "",
		`{"email":"`+username+`@pong.test","username":"`+username+`","password":"password1","confirmPassword":"password1"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d", username, resp.StatusCode)
	}
	var tok tokenResponse
	json.NewDecoder(resp.Body).Decode(&tok)
	return tok
}

func TestAuthFlow(t *testing.T) {
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(NewMockGame())))
	defer ts.Close()

	reg := register(t, ts.URL, "alice")
	if reg.Username != "alice" || reg.Access == "" || reg.Refresh == "" {
		t.Fatalf("register response %+v", reg)
	}

	// Login wraps tokens like the browser client expects
	resp := postJSON(t, ts.URL+"/api/login/", "", `{"username":"alice","password":"password1"}`)
	var login struct {
		Tokens tokenResponse `json:"tokens"`
	}
	json.NewDecoder(resp.Body).Decode(&login)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || login.Tokens.Username != "alice" {
		t.Fatalf("login: %d %+v", resp.StatusCode, login)
	}

	resp = postJSON(t, ts.URL+"/api/verify-token", "", `{"token":"`+login.Tokens.Access+`"}`)
	var verified map[string]string
	json.NewDecoder(resp.Body).Decode(&verified)
	resp.Body.Close()
	if verified["username"] != "alice" {
		t.Errorf("verify-token = %v", verified)
	}

	resp = postJSON(t, ts.URL+"/api/refresh-token", "", `{"refresh":"`+login.Tokens.Refresh+`"}`)
	var refreshed map[string]string
	json.NewDecoder(resp.Body).Decode(&refreshed)
	resp.Body.Close()
	if refreshed["access"] == "" || refreshed["username"] != "alice" {
		t.Errorf("refresh-token = %v", refreshed)
	}

	resp = postJSON(t, ts.URL+"/api/login", "", `{"username":"alice","password":"nope-nope"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login: expected 401, got %d", resp.StatusCode)
	}
}

func TestRegisterErrors(t *testing.T) {
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(NewMockGame())))
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/register", "",
		`{"email":"bad","username":"x","password":"1","confirmPassword":"2"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var fields map[string][]string
	json.NewDecoder(resp.Body).Decode(&fields)
	for _, f := range []string{"email", "username", "password"} {
		if len(fields[f]) == 0 {
			t.Errorf("no error for %s: %v", f, fields)
		}
	}

	register(t, ts.URL, "bob")
	dup := postJSON(t, ts.URL+"/api/register", "",
		`{"email":"b2@pong.test","username":"bob","password":"password1","confirmPassword":"password1"}`)
	dup.Body.Close()
	if dup.StatusCode != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", dup.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(NewMockGame())))
	defer ts.Close()

	for _, path := range []string{"/api/users", "/api/chat/room/alice/bob"} {
		resp := getAuth(t, ts.URL+path, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s without token: expected 401, got %d", path, resp.StatusCode)
		}
	}
	resp := postJSON(t, ts.URL+"/api/seat", "not-a-token", `{"side":"left"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("seat with bad token: expected 401, got %d", resp.StatusCode)
	}
}

func TestSeatClaim(t *testing.T) {
	g := NewMockGame()
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(g)))
	defer ts.Close()

	alice := register(t, ts.URL, "alice")
	bob := register(t, ts.URL, "bob")

	tests := []struct {
		name       string
		token      string
		body       string
		wantStatus int
	}{
		{"alice left", alice.Access, `{"side":"left"}`, http.StatusOK},
		{"alice again", alice.Access, `{"side":"left"}`, http.StatusOK},
		{"bob taken", bob.Access, `{"side":"left"}`, http.StatusConflict},
		{"bob right", bob.Access, `{"side":"player2"}`, http.StatusOK},
		{"bad side", bob.Access, `{"side":"middle"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/seat", tt.token, tt.body)
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}

	if h := g.seats.Holders(); h[game.SideLeft] != "alice" || h[game.SideRight] != "bob" {
		t.Errorf("holders = %v", h)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/seat", nil)
	req.Header.Set("Authorization", "Bearer "+alice.Access)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || g.seats.Holder(game.SideLeft) != "" {
		t.Errorf("release: %d, holder %q", resp.StatusCode, g.seats.Holder(game.SideLeft))
	}
}

func TestCommandRespectsSeats(t *testing.T) {
	g := NewMockGame()
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(g)))
	defer ts.Close()

	alice := register(t, ts.URL, "alice")
	bob := register(t, ts.URL, "bob")
	if err := g.seats.Claim(game.SideLeft, "alice"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		token      string
		action     string
		wantStatus int
		wantUser   string
	}{
		{"guest on held paddle", "", "moveUp", http.StatusForbidden, ""},
		{"bob on held paddle", bob.Access, "moveDown", http.StatusForbidden, ""},
		{"alice on her paddle", alice.Access, "moveUp", http.StatusAccepted, "alice"},
		{"guest on free paddle", "", "moveUp2", http.StatusAccepted, ""},
		{"guest serve", "", "startBall", http.StatusAccepted, ""},
		{"bad token", "not-a-token", "moveUp2", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(g.Commands())
			resp := postJSON(t, ts.URL+"/api/command", tt.token, `{"action":"`+tt.action+`"}`)
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			cmds := g.Commands()
			if tt.wantStatus != http.StatusAccepted {
				if len(cmds) != before {
					t.Errorf("rejected command was queued: %+v", cmds[before:])
				}
				return
			}
			if len(cmds) != before+1 || cmds[before].User != tt.wantUser {
				t.Errorf("queued %+v, want user %q", cmds[before:], tt.wantUser)
			}
		})
	}
}

func TestChatHistoryEndpoint(t *testing.T) {
	cfg := testRouterConfig(NewMockGame())
	ts := httptest.NewServer(api.NewRouter(cfg))
	defer ts.Close()

	alice := register(t, ts.URL, "alice")
	carol := register(t, ts.URL, "carol")

	if _, err := cfg.Chat.Post("alice_bob", "bob", "hello alice"); err != nil {
		t.Fatal(err)
	}

	resp := getAuth(t, ts.URL+"/api/chat/room/alice/bob/", alice.Access)
	var body struct {
		Messages []struct {
			Sender  string `json:"sender"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if len(body.Messages) != 1 || body.Messages[0].Sender != "bob" || body.Messages[0].Content != "hello alice" {
		t.Errorf("history = %+v", body)
	}

	resp = getAuth(t, ts.URL+"/api/chat/room/alice/bob", carol.Access)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-member: expected 403, got %d", resp.StatusCode)
	}
}

func TestUsersList(t *testing.T) {
	ts := httptest.NewServer(api.NewRouter(testRouterConfig(NewMockGame())))
	defer ts.Close()

	alice := register(t, ts.URL, "alice")
	register(t, ts.URL, "bob")

	resp := getAuth(t, ts.URL+"/api/users", alice.Access)
	defer resp.Body.Close()
	var users []map[string]string
	json.NewDecoder(resp.Body).Decode(&users)
	if len(users) != 2 || users[0]["username"] != "alice" || users[1]["username"] != "bob" {
		t.Errorf("users = %v", users)
	}
}
