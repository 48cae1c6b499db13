package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pong/internal/api"
	"pong/internal/game"

	"github.com/gorilla/websocket"
)

type wsEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newWSServer(t *testing.T) (*game.Runner, string) {
	t.Helper()

	runner := newRunner()
	server := api.NewServer(api.ServerConfig{Game: runner, Streamer: &MockStreamer{}})
	go server.Hub().Run()

	ts := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
		ts.Close()
	})

	return runner, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	header.Set("Origin", origin)
	return websocket.DefaultDialer.Dial(url, header)
}

// readUntil reads events until one named event arrives or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, event string) wsEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var ev wsEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("Waiting for %q: %v", event, err)
		}
		if ev.Event == event {
			return ev
		}
	}
}

func TestWebSocketInitialState(t *testing.T) {
	_, url := newWSServer(t)

	conn, _, err := dial(t, url, "http://localhost")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	ev := readUntil(t, conn, "game:state")
	var snap game.GameSnapshot
	if err := json.Unmarshal(ev.Data, &snap); err != nil {
		t.Fatalf("Invalid state payload: %v", err)
	}
	if snap.WinningScore != 5 {
		t.Errorf("Expected winning score 5, got %d", snap.WinningScore)
	}
}

func TestWebSocketRejectsOrigin(t *testing.T) {
	_, url := newWSServer(t)

	conn, resp, err := dial(t, url, "https://evil.example")
	if err == nil {
		conn.Close()
		t.Fatal("Expected dial to fail for a foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
}

func TestWebSocketInput(t *testing.T) {
	runner, url := newWSServer(t)

	conn, _, err := dial(t, url, "http://localhost:5173")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, "game:state")

	if err := conn.WriteJSON(map[string]interface{}{"type": "input", "up": true}); err != nil {
		t.Fatal(err)
	}

	startY := runner.GetSnapshot().Player.Y
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := runner.Step(); snap.Player.Y < startY {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Player paddle never moved up after WebSocket input")
}

func TestWebSocketReset(t *testing.T) {
	runner, url := newWSServer(t)

	conn, _, err := dial(t, url, "http://127.0.0.1")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, "game:state")

	conn.WriteJSON(map[string]interface{}{"type": "reset", "winningScore": 4})
	ev := readUntil(t, conn, "error")
	if !strings.Contains(string(ev.Data), "invalid winning score") {
		t.Errorf("Unexpected error payload %s", ev.Data)
	}

	conn.WriteJSON(map[string]interface{}{"type": "reset", "winningScore": 7})
	ev = readUntil(t, conn, "game:state")
	var snap game.GameSnapshot
	json.Unmarshal(ev.Data, &snap)
	if snap.WinningScore != 7 {
		t.Errorf("Broadcast state should carry the new threshold, got %d", snap.WinningScore)
	}
	if runner.GetSnapshot().WinningScore != 7 {
		t.Error("Runner was not reset")
	}
}

func TestWebSocketUnknownMessage(t *testing.T) {
	_, url := newWSServer(t)

	conn, _, err := dial(t, url, "http://localhost")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, "game:state")

	conn.WriteJSON(map[string]string{"type": "fire"})
	ev := readUntil(t, conn, "error")
	if !strings.Contains(string(ev.Data), "unknown message type") {
		t.Errorf("Unexpected error payload %s", ev.Data)
	}
}
