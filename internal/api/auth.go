package api

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pong-arena/internal/config"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var (
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// Usernames double as chat room halves, so "_" is not allowed.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9.-]{3,32}$`)

// FieldErrors maps a form field to its problems, the shape the browser
// client renders on failed registration.
type FieldErrors map[string][]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

func (fe FieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

type account struct {
	Username  string
	Email     string
	Hash      []byte
	CreatedAt time.Time
}

// TokenPair is issued on register and login.
type TokenPair struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	Username string `json:"username"`
}

type tokenClaims struct {
	Sub string `json:"sub"`
	Typ string `json:"typ"`
	Exp int64  `json:"exp"`
}

// AuthManager keeps accounts in memory and issues HMAC-signed tokens.
type AuthManager struct {
	mu       sync.RWMutex
	accounts map[string]*account

	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	cost       int
	now        func() time.Time
}

// NewAuthManager creates an auth manager. Without a configured secret a
// random one is generated, so tokens do not survive a restart.
func NewAuthManager(cfg config.AuthConfig) *AuthManager {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.Printf("⚠️ Failed to generate auth secret, using fallback")
			secret = []byte("pong-arena-default-secret-key-32")
		}
		log.Println("⚠️ AUTH_SECRET not set, tokens are valid for this process only")
	}

	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	defaults := config.DefaultAuth()
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaults.AccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaults.RefreshTTL
	}

	return &AuthManager{
		accounts:   make(map[string]*account),
		secretKey:  secret,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		cost:       cost,
		now:        time.Now,
	}
}

// Register validates and stores a new account and logs it in.
func (am *AuthManager) Register(email, username, password, confirm string) (TokenPair, error) {
	errs := FieldErrors{}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		errs.add("email", "Enter a valid email address.")
	}
	if !usernamePattern.MatchString(username) {
		errs.add("username", "Username must be 3-32 letters, digits, '.' or '-'.")
	}
	if len(password) < 8 {
		errs.add("password", "Password must be at least 8 characters long.")
	}
	if password != confirm {
		errs.add("password", "Passwords don't match.")
	}
	if len(errs) > 0 {
		return TokenPair{}, errs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), am.cost)
	if err != nil {
		return TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	am.mu.Lock()
	if _, exists := am.accounts[strings.ToLower(username)]; exists {
		am.mu.Unlock()
		return TokenPair{}, ErrUserExists
	}
	am.accounts[strings.ToLower(username)] = &account{
		Username:  username,
		Email:     email,
		Hash:      hash,
		CreatedAt: am.now(),
	}
	am.mu.Unlock()

	log.Printf("🔐 Registered user %s", username)
	return am.issue(username)
}

// Login checks credentials and issues a token pair.
func (am *AuthManager) Login(username, password string) (TokenPair, error) {
	am.mu.RLock()
	acc, ok := am.accounts[strings.ToLower(username)]
	am.mu.RUnlock()

	if !ok {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.Hash, []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return am.issue(acc.Username)
}

// Verify checks an access token and returns its username.
func (am *AuthManager) Verify(token string) (string, error) {
	return am.parse(token, tokenAccess)
}

// Refresh exchanges a refresh token for a new access token.
func (am *AuthManager) Refresh(refresh string) (string, string, error) {
	username, err := am.parse(refresh, tokenRefresh)
	if err != nil {
		return "", "", err
	}
	access, err := am.sign(username, tokenAccess, am.accessTTL)
	if err != nil {
		return "", "", err
	}
	return access, username, nil
}

// Users returns registered usernames in order.
func (am *AuthManager) Users() []string {
	am.mu.RLock()
	defer am.mu.RUnlock()

	out := make([]string, 0, len(am.accounts))
	for _, acc := range am.accounts {
		out = append(out, acc.Username)
	}
	sort.Strings(out)
	return out
}

func (am *AuthManager) issue(username string) (TokenPair, error) {
	access, err := am.sign(username, tokenAccess, am.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := am.sign(username, tokenRefresh, am.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh, Username: username}, nil
}

// sign encodes claims as base64url(json) + "." + hex(hmac).
func (am *AuthManager) sign(username, typ string, ttl time.Duration) (string, error) {
	payload, err := json.Marshal(tokenClaims{
		Sub: username,
		Typ: typ,
		Exp: am.now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + am.signature(body), nil
}

func (am *AuthManager) signature(body string) string {
	mac := hmac.New(sha256.New, am.secretKey)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func (am *AuthManager) parse(token, typ string) (string, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrInvalidToken
	}
	if !hmac.Equal([]byte(sig), []byte(am.signature(body))) {
		return "", ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", ErrInvalidToken
	}
	var claims tokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", ErrInvalidToken
	}
	if claims.Typ != typ || claims.Sub == "" {
		return "", ErrInvalidToken
	}
	if am.now().Unix() >= claims.Exp {
		return "", ErrTokenExpired
	}
	return claims.Sub, nil
}

type userKey struct{}

// UserFromContext returns the username set by RequireUser or OptionalUser.
func UserFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(userKey{}).(string)
	return u, ok && u != ""
}

// bearerToken reads "Authorization: Bearer <t>", falling back to ?token=
// for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	return r.URL.Query().Get("token")
}

// RequireUser rejects requests without a valid access token.
func (am *AuthManager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, err := am.Verify(bearerToken(r))
		if err != nil {
			RecordConnectionRejected("auth")
			writeError(w, err.Error(), http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalUser attaches the user when a token is sent and lets anonymous
// requests through. A token that does not verify is still rejected.
func (am *AuthManager) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		username, err := am.Verify(token)
		if err != nil {
			RecordConnectionRejected("auth")
			writeError(w, err.Error(), http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HTTP handlers for the browser client's auth calls

func (am *AuthManager) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		Username        string `json:"username"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	pair, err := am.Register(req.Email, req.Username, req.Password, req.ConfirmPassword)
	var fieldErrs FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		writeJSONStatus(w, fieldErrs, http.StatusBadRequest)
	case errors.Is(err, ErrUserExists):
		writeJSONStatus(w, FieldErrors{"username": {err.Error()}}, http.StatusConflict)
	case err != nil:
		writeError(w, "registration failed", http.StatusInternalServerError)
	default:
		writeJSONStatus(w, pair, http.StatusCreated)
	}
}

func (am *AuthManager) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	pair, err := am.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]TokenPair{"tokens": pair})
}

func (am *AuthManager) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	username, err := am.Verify(req.Token)
	if err != nil {
		writeError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"username": username})
}

func (am *AuthManager) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	access, username, err := am.Refresh(req.Refresh)
	if err != nil {
		writeError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"access": access, "username": username})
}
