package server

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/JunShern/reality-dixit/internal/config"

	"github.com/gorilla/websocket"
)

func TestWebsocketSendsSnapshotOnConnect(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	roomID, _ := createRoom(t, ts, "Ada")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	defer conn.Close()

	message := readWSMessage(t, conn, 5*time.Second)
	if message["type"] != "room" {
		t.Fatalf("expected initial room message, got %v", message["type"])
	}
	room := message["room"].(map[string]any)
	if room["room_id"] != roomID {
		t.Fatalf("expected room %s, got %v", roomID, room["room_id"])
	}
}

func TestWebsocketBroadcastsChanges(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	roomID, _ := createRoom(t, ts, "Ada")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	defer conn.Close()

	if message := readWSMessage(t, conn, 5*time.Second); message["type"] != "room" {
		t.Fatalf("expected initial room message, got %v", message["type"])
	}

	joinPlayer(t, ts, roomID, "Ben")

	change := readWSMessage(t, conn, 5*time.Second)
	if change["type"] != "change" || change["table"] != tablePlayers || change["action"] != changeInsert {
		t.Fatalf("expected players insert change, got %#v", change)
	}
	record := change["record"].(map[string]any)
	if record["name"] != "Ben" {
		t.Fatalf("expected Ben in change record, got %#v", record)
	}

	refresh := readWSMessage(t, conn, 5*time.Second)
	if refresh["type"] != "room" {
		t.Fatalf("expected snapshot after change, got %v", refresh["type"])
	}
	room := refresh["room"].(map[string]any)
	if len(room["players"].([]any)) != 2 {
		t.Fatalf("expected 2 players in refreshed snapshot")
	}
}

func TestWebsocketUnknownRoom(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/room-999"
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatalf("expected dial to an unknown room to fail")
	}
}

func readWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var message map[string]any
	if err := json.Unmarshal(payload, &message); err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	return message
}
