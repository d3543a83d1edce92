package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestClient(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func subscribe(t *testing.T, conn *websocket.Conn, pipelineID string) {
	t.Helper()
	msg, _ := json.Marshal(map[string]string{"action": "subscribe", "pipelineId": pipelineID})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("subscribe write failed: %v", err)
	}
}

func waitForSubscribers(t *testing.T, hub *Hub, room string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.SubscriberCount(room) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %d subscribers", room, n)
}

func TestHub_BroadcastToRoom(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	a := dialTestClient(t, wsURL)
	b := dialTestClient(t, wsURL)
	other := dialTestClient(t, wsURL)

	subscribe(t, a, "P")
	subscribe(t, b, "P")
	subscribe(t, other, "Q")
	waitForSubscribers(t, hub, RoomForPipeline("P"), 2)
	waitForSubscribers(t, hub, RoomForPipeline("Q"), 1)

	payload := []byte(`{"type":"event","payload":{"pipelineId":"P"}}`)
	hub.Broadcast(RoomForPipeline("P"), payload)

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("subscriber did not receive message: %v", err)
		}
		if string(msg) != string(payload) {
			t.Errorf("message = %s", msg)
		}
	}

	// The subscriber of another room must not receive it.
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("subscriber outside the room received the message")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn := dialTestClient(t, wsURL)
	subscribe(t, conn, "P")
	waitForSubscribers(t, hub, RoomForPipeline("P"), 1)

	msg, _ := json.Marshal(map[string]string{"action": "unsubscribe", "pipelineId": "P"})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatal(err)
	}
	waitForSubscribers(t, hub, RoomForPipeline("P"), 0)
}

func TestHub_SlowSubscriberDropsOldest(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	// A client that never reads: its queue fills and old messages drop, but
	// Broadcast must never block.
	c := &Client{hub: hub, send: make(chan []byte, 2), rooms: make(map[string]bool)}
	hub.subscribe(c, RoomForPipeline("P"))

	done := make(chan bool)
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast(RoomForPipeline("P"), []byte{byte(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on slow subscriber")
	}
	if len(c.send) != 2 {
		t.Errorf("queue length = %d, want full at 2", len(c.send))
	}
	// Newest messages survive.
	last := <-c.send
	if last[0] < 90 {
		t.Errorf("expected a recent message, got %d", last[0])
	}
}

func TestHub_ClosedBroadcastNoop(t *testing.T) {
	hub := NewHub()
	hub.Close()
	hub.Broadcast(RoomForPipeline("P"), []byte("x")) // must not panic
}
