package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gamelink/gamelink-server/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	ts := httptest.NewServer(env.server.Handler)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	ts := httptest.NewServer(env.server.Handler)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	ts := httptest.NewServer(env.server.Handler)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/ws")
	if err != nil {
		t.Fatalf("ws request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, err = ts.Client().Get(ts.URL + "/ws?token=garbage")
	if err != nil {
		t.Fatalf("ws request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", resp.StatusCode)
	}
}

func TestWebSocketReceivesNewMessagePush(t *testing.T) {
	env := newTestEnv(t)

	ts := httptest.NewServer(env.server.Handler)
	defer ts.Close()

	aliceToken := env.registerUser(t, "alice")
	bobToken := env.registerUser(t, "bob")
	aliceID := env.userID(t, "alice")
	bobID := env.userID(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?token=" + bobToken
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// The handler registers presence just after the handshake; wait for it
	// before sending, otherwise the push is skipped as offline.
	deadline := time.Now().Add(2 * time.Second)
	for env.registry.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp := doJSON(t, env, http.MethodPost, "/api/messages/send/"+itoa(bobID), aliceToken, `{"text":"hello push"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("send failed: %d: %s", resp.Code, resp.Body.String())
	}

	var outbound struct {
		Type  string          `json:"type"`
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &outbound); err != nil {
		t.Fatalf("read outbound: %v", err)
	}

	if outbound.Type != proto.OutboundTypeEvent {
		t.Fatalf("unexpected outbound type: %s", outbound.Type)
	}
	if outbound.Event != proto.EventNewMessage {
		t.Fatalf("unexpected event: %s", outbound.Event)
	}

	var msg proto.Message
	if err := json.Unmarshal(outbound.Data, &msg); err != nil {
		t.Fatalf("unmarshal event data: %v", err)
	}
	if msg.SenderID != aliceID || msg.ReceiverID != bobID || msg.Text != "hello push" {
		t.Fatalf("unexpected event payload: %+v", msg)
	}
	if msg.IsRead {
		t.Error("pushed message must be unread")
	}
}

func TestOfflineReceiverSkipsPush(t *testing.T) {
	env := newTestEnv(t)

	aliceToken := env.registerUser(t, "alice")
	env.registerUser(t, "bob")
	bobID := env.userID(t, "bob")

	// Nobody is connected; sending must still succeed.
	resp := doJSON(t, env, http.MethodPost, "/api/messages/send/"+itoa(bobID), aliceToken, `{"text":"missed you"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("send failed: %d: %s", resp.Code, resp.Body.String())
	}
}
