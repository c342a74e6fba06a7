package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/JunShern/reality-dixit/internal/config"
)

func TestParseRoomPath(t *testing.T) {
	cases := []struct {
		path   string
		roomID string
		action string
		ok     bool
	}{
		{"/api/rooms/room-1", "room-1", "", true},
		{"/api/rooms/room-1/", "room-1", "", true},
		{"/api/rooms/ABCD/join", "ABCD", "join", true},
		{"/api/rooms/room-1/votes", "room-1", "votes", true},
		{"/api/rooms/", "", "", false},
		{"/api/rooms/room-1/votes/extra", "", "", false},
		{"/other/path", "", "", false},
	}
	for _, tc := range cases {
		roomID, action, ok := parseRoomPath(tc.path)
		if roomID != tc.roomID || action != tc.action || ok != tc.ok {
			t.Fatalf("parseRoomPath(%q) = %q, %q, %v", tc.path, roomID, action, ok)
		}
	}
}

func TestParseWebsocketPath(t *testing.T) {
	if roomID, ok := parseWebsocketPath("/ws/rooms/room-3"); !ok || roomID != "room-3" {
		t.Fatalf("expected room-3, got %q ok=%v", roomID, ok)
	}
	for _, bad := range []string{"/ws/rooms/", "/ws/rooms/a/b", "/api/rooms/room-1"} {
		if _, ok := parseWebsocketPath(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestRateLimiterWindow(t *testing.T) {
	limiter := newRateLimiter()
	for i := 0; i < 3; i++ {
		if !limiter.allow("ip|join", 3, time.Minute) {
			t.Fatalf("expected hit %d to be allowed", i)
		}
	}
	if limiter.allow("ip|join", 3, time.Minute) {
		t.Fatalf("expected fourth hit to be rejected")
	}
	if !limiter.allow("ip|create", 3, time.Minute) {
		t.Fatalf("per-action keys must not share a bucket")
	}
}

func TestUnknownRoutes(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/room-1/unknown-action", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown action, got %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/room-999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", resp.StatusCode)
	}
}

func TestListRoomSummaries(t *testing.T) {
	store := NewStore()
	for _, name := range []string{"Ada", "Ben"} {
		if _, _, err := store.CreateRoom(name, 5); err != nil {
			t.Fatalf("create room: %v", err)
		}
	}
	summaries := store.ListRoomSummaries()
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].ID != "room-1" || summaries[1].ID != "room-2" {
		t.Fatalf("expected creation order, got %#v", summaries)
	}
	if summaries[0].Players != 1 {
		t.Fatalf("expected host counted, got %d", summaries[0].Players)
	}
}
