package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"solvencia-backend/internal/middleware"
)

func TestSessionChannel(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	if got := SessionChannel(id); got != "session_updates:11111111-2222-3333-4444-555555555555" {
		t.Errorf("SessionChannel = %q", got)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173/"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := check(r); got != tt.want {
			t.Errorf("origin %q: got %v, want %v", tt.origin, got, tt.want)
		}
	}

	wildcard := originChecker([]string{"*"})
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://anywhere.example")
	if !wildcard(r) {
		t.Error("wildcard should allow any origin")
	}
}

func TestHandleWebSocket_RejectsBadTokens(t *testing.T) {
	auth := middleware.NewJWTAuth("test-secret")
	hub := NewHub(nil, auth, "*")
	adminToken, _ := auth.GenerateAdminToken()

	for _, query := range []string{"", "?token=garbage", "?token=" + adminToken} {
		rec := httptest.NewRecorder()
		hub.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws"+query, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("query %q: expected 401, got %d", query, rec.Code)
		}
	}
}

func TestHandleWebSocket_DeliversSessionMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	auth := middleware.NewJWTAuth("test-secret")
	hub := NewHub(rdb, auth, "*")
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	sessionID := uuid.New()
	token, err := auth.GenerateSessionToken(sessionID)
	if err != nil {
		t.Fatal(err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	channel := SessionChannel(sessionID)
	waitFor(t, func() bool { return hub.connectionCount(sessionID) == 1 })
	waitFor(t, func() bool { return mr.PubSubNumSub(channel)[channel] == 1 })

	mr.Publish(channel, `{"type":"job_completed"}`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "job_completed") {
		t.Errorf("unexpected payload %s", data)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.connectionCount(sessionID) == 0 })
	waitFor(t, func() bool { return mr.PubSubNumSub(channel)[channel] == 0 })
}

func (h *Hub) connectionCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
