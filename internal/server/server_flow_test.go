package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/JunShern/reality-dixit/internal/config"
)

// Plays a full three-player game over the HTTP surface: create, join,
// prompts, three rounds of upload/reveal/voting/results, then the final
// scoreboard and a rematch.
func TestFullGameFlow(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	roomID, hostID := createRoom(t, ts, "Ada")
	benID := joinPlayer(t, ts, roomID, "Ben")
	caraID := joinPlayer(t, ts, roomID, "Cara")
	playerIDs := []int{hostID, benID, caraID}

	hostAction(t, ts, roomID, "start", hostID)
	snapshot := fetchSnapshot(t, ts, roomID)
	if snapshot["status"] != statusPrompts {
		t.Fatalf("expected prompts status, got %v", snapshot["status"])
	}

	for i, playerID := range playerIDs {
		submitPrompt(t, ts, roomID, playerID, fmt.Sprintf("something that looks like %d", i))
	}
	snapshot = fetchSnapshot(t, ts, roomID)
	if snapshot["can_start_rounds"] != true {
		t.Fatalf("expected rounds startable after all prompts")
	}

	hostAction(t, ts, roomID, "start-rounds", hostID)
	snapshot = fetchSnapshot(t, ts, roomID)
	if snapshot["status"] != statusPlaying || snapshot["round_phase"] != phaseUpload {
		t.Fatalf("expected playing/upload, got %v/%v", snapshot["status"], snapshot["round_phase"])
	}
	if snapshot["total_rounds"].(float64) != 3 {
		t.Fatalf("expected 3 rounds, got %v", snapshot["total_rounds"])
	}
	if snapshot["phase_ends_at"] == "" {
		t.Fatalf("expected an upload deadline")
	}

	for round := 1; round <= 3; round++ {
		for _, playerID := range playerIDs {
			submitPhoto(t, ts, roomID, playerID,
				fmt.Sprintf("https://photos.example/round%d/player%d.jpg", round, playerID))
		}
		snapshot = fetchSnapshot(t, ts, roomID)
		if snapshot["all_submitted"] != true {
			t.Fatalf("round %d: expected all submitted", round)
		}

		hostAction(t, ts, roomID, "advance", hostID)
		for i := 0; i < 3; i++ {
			hostAction(t, ts, roomID, "reveal", hostID)
		}
		snapshot = fetchSnapshot(t, ts, roomID)
		if snapshot["round_phase"] != phaseReveal {
			t.Fatalf("round %d: expected reveal, got %v", round, snapshot["round_phase"])
		}
		if snapshot["reveal_index"].(float64) != 3 {
			t.Fatalf("round %d: expected reveal index 3, got %v", round, snapshot["reveal_index"])
		}

		hostAction(t, ts, roomID, "advance", hostID)
		snapshot = fetchSnapshot(t, ts, roomID)
		submissions := snapshot["submissions"].([]any)
		for _, playerID := range playerIDs {
			target := 0
			for _, raw := range submissions {
				submission := raw.(map[string]any)
				if int(submission["player_id"].(float64)) != playerID {
					target = int(submission["id"].(float64))
					break
				}
			}
			resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/votes", map[string]any{
				"player_id":     playerID,
				"submission_id": target,
			})
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("round %d: vote by %d got status %d", round, playerID, resp.StatusCode)
			}
		}
		snapshot = fetchSnapshot(t, ts, roomID)
		if snapshot["all_voted"] != true {
			t.Fatalf("round %d: expected all voted", round)
		}

		hostAction(t, ts, roomID, "advance", hostID)
		snapshot = fetchSnapshot(t, ts, roomID)
		if snapshot["round_phase"] != phaseResults {
			t.Fatalf("round %d: expected results, got %v", round, snapshot["round_phase"])
		}
		hostAction(t, ts, roomID, "next-round", hostID)
	}

	snapshot = fetchSnapshot(t, ts, roomID)
	if snapshot["status"] != statusFinished {
		t.Fatalf("expected finished after last round, got %v", snapshot["status"])
	}
	recap := snapshot["recap"].([]any)
	if len(recap) != 3 {
		t.Fatalf("expected 3 recap entries, got %d", len(recap))
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/results", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("results: expected 200, got %d", resp.StatusCode)
	}
	results := decodeBody(t, resp)
	total := 0
	for _, raw := range results["scores"].([]any) {
		entry := raw.(map[string]any)
		total += int(entry["score"].(float64))
	}
	if total != 9 {
		t.Fatalf("expected 9 points across 3 rounds of 3 votes, got %d", total)
	}

	hostAction(t, ts, roomID, "play-again", hostID)
	snapshot = fetchSnapshot(t, ts, roomID)
	if snapshot["status"] != statusWaiting {
		t.Fatalf("expected waiting after rematch reset, got %v", snapshot["status"])
	}
	if snapshot["prompt_count"].(float64) != 0 {
		t.Fatalf("expected prompts cleared, got %v", snapshot["prompt_count"])
	}
	for _, raw := range snapshot["players"].([]any) {
		player := raw.(map[string]any)
		if player["score"].(float64) != 0 {
			t.Fatalf("expected scores zeroed after rematch, got %#v", player)
		}
	}
}

func TestUploadTimeoutAdvancesOnce(t *testing.T) {
	cfg := config.Default()
	cfg.UploadDurationSeconds = 1
	srv := New(nil, cfg)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	roomID, hostID := createRoom(t, ts, "Ada")
	benID := joinPlayer(t, ts, roomID, "Ben")
	caraID := joinPlayer(t, ts, roomID, "Cara")
	hostAction(t, ts, roomID, "start", hostID)
	for _, playerID := range []int{hostID, benID, caraID} {
		submitPrompt(t, ts, roomID, playerID, "a prompt")
	}
	hostAction(t, ts, roomID, "start-rounds", hostID)

	// Host advances before the deadline; the timer must then be a no-op.
	hostAction(t, ts, roomID, "advance", hostID)
	srv.autoAdvanceUpload(roomID, 1)

	snapshot := fetchSnapshot(t, ts, roomID)
	if snapshot["round_phase"] != phaseReveal {
		t.Fatalf("expected reveal after single advance, got %v", snapshot["round_phase"])
	}
}
