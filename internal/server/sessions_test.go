package server

import (
	"testing"

	"github.com/JunShern/reality-dixit/internal/db"
)

func TestSessionFromRecordKeepsPlayerSeat(t *testing.T) {
	record := db.Session{
		Token:    "abc",
		RoomID:   7,
		PlayerID: 42,
		RoomCode: "WXYZ",
		Name:     "Dana",
	}

	data := sessionFromRecord(record)

	if data.RoomID != "room-7" {
		t.Fatalf("room id = %q, want room-7", data.RoomID)
	}
	if data.PlayerID != 42 {
		t.Fatalf("player id = %d, want 42", data.PlayerID)
	}
	if data.RoomCode != "WXYZ" || data.Name != "Dana" {
		t.Fatalf("unexpected session data %+v", data)
	}
}
