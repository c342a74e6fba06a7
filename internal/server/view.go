package server

import (
	"time"

	"github.com/JunShern/reality-dixit/internal/config"
)

// snapshotWithConfig projects a room into the wire view. Everything here is
// recomputed from the entity collections on every call; nothing is cached.
func snapshotWithConfig(room *Room, cfg config.Config) map[string]any {
	submissions := buildSubmissions(room)
	phaseEndsAt := ""
	if !room.PhaseEndsAt.IsZero() {
		phaseEndsAt = room.PhaseEndsAt.UTC().Format(time.RFC3339)
	}
	currentPrompt := map[string]any(nil)
	if prompt, ok := promptForRound(room, room.CurrentRound); ok {
		currentPrompt = map[string]any{
			"text":  prompt.Text,
			"round": prompt.RoundNumber,
		}
	}
	view := map[string]any{
		"room_id":             room.ID,
		"join_code":           room.Code,
		"status":              room.Status,
		"current_round":       room.CurrentRound,
		"total_rounds":        totalRounds(room),
		"round_phase":         room.RoundPhase,
		"reveal_index":        room.RevealIndex,
		"reveal_step_seconds": cfg.RevealStepSeconds,
		"phase_ends_at":       phaseEndsAt,
		"host_id":             room.HostID,
		"players":             buildPlayers(room),
		"scores":              buildScores(room),
		"prompt_count":        len(room.Prompts),
		"current_prompt":      currentPrompt,
		"submissions":         submissions,
		"submitted_count":     len(currentRoundSubmissions(room)),
		"voted_count":         len(currentRoundVotes(room)),
		"all_submitted":       submissionsComplete(room),
		"all_voted":           votesComplete(room),
		"can_join":            room.Status == statusWaiting,
		"can_start":           room.Status == statusWaiting && len(room.Players) >= cfg.MinPlayers,
		"can_start_rounds":    room.Status == statusPrompts && promptsComplete(room),
	}
	if next, ok := previewNextPhase(room); ok {
		view["next_phase"] = next
	}
	if room.Status == statusFinished {
		view["recap"] = buildRecap(room)
	}
	return view
}

// viewForPlayer is the snapshot plus the viewer-specific slice: their
// prompt, submission, and vote for the current round.
func viewForPlayer(room *Room, cfg config.Config, playerID int) map[string]any {
	view := snapshotWithConfig(room, cfg)
	player, ok := findPlayerByID(room, playerID)
	if !ok {
		return view
	}
	view["player_id"] = player.ID
	view["is_host"] = player.IsHost
	if prompt, found := promptByPlayer(room, player.ID); found {
		view["my_prompt"] = map[string]any{
			"text":  prompt.Text,
			"round": prompt.RoundNumber,
		}
	}
	for _, submission := range currentRoundSubmissions(room) {
		if submission.PlayerID == player.ID {
			view["my_submission"] = map[string]any{
				"id":        submission.ID,
				"photo_url": submission.PhotoURL,
				"round":     submission.Round,
			}
			break
		}
	}
	for _, vote := range currentRoundVotes(room) {
		if vote.VoterID == player.ID {
			view["my_vote"] = map[string]any{
				"submission_id": vote.SubmissionID,
				"round":         vote.Round,
			}
			break
		}
	}
	return view
}

func buildPlayers(room *Room) []map[string]any {
	list := make([]map[string]any, 0, len(room.Players))
	for _, player := range room.Players {
		list = append(list, map[string]any{
			"id":      player.ID,
			"name":    player.Name,
			"score":   player.Score,
			"is_host": player.IsHost,
		})
	}
	return list
}

func buildScores(room *Room) []map[string]any {
	ranked := rankedPlayers(room.Players)
	list := make([]map[string]any, 0, len(ranked))
	for rank, player := range ranked {
		list = append(list, map[string]any{
			"rank":   rank + 1,
			"id":     player.ID,
			"name":   player.Name,
			"score":  player.Score,
			"isHost": player.IsHost,
		})
	}
	return list
}

func buildSubmissions(room *Room) []map[string]any {
	submissions := currentRoundSubmissions(room)
	tally := roundTally(room.Submissions, room.Votes, room.CurrentRound)
	list := make([]map[string]any, 0, len(submissions))
	for _, submission := range submissions {
		list = append(list, map[string]any{
			"id":         submission.ID,
			"player_id":  submission.PlayerID,
			"photo_url":  submission.PhotoURL,
			"round":      submission.Round,
			"vote_count": tally[submission.ID],
		})
	}
	return list
}

// buildRecap summarizes each played round once the game is finished: the
// round's prompt and its winning submission, if any round winner exists.
func buildRecap(room *Room) []map[string]any {
	names := make(map[int]string, len(room.Players))
	for _, player := range room.Players {
		names[player.ID] = player.Name
	}
	recap := make([]map[string]any, 0, totalRounds(room))
	for round := 1; round <= totalRounds(room); round++ {
		entry := map[string]any{"round": round}
		if prompt, ok := promptForRound(room, round); ok {
			entry["prompt"] = prompt.Text
		}
		if winner, count, ok := roundWinner(room.Submissions, room.Votes, round); ok {
			entry["winner"] = map[string]any{
				"submission_id": winner.ID,
				"player_id":     winner.PlayerID,
				"player_name":   names[winner.PlayerID],
				"photo_url":     winner.PhotoURL,
				"vote_count":    count,
			}
		}
		recap = append(recap, entry)
	}
	return recap
}

func previewNextPhase(room *Room) (string, bool) {
	if room.Status != statusPlaying {
		return "", false
	}
	switch room.RoundPhase {
	case phaseUpload:
		return phaseReveal, true
	case phaseReveal:
		return phaseVoting, true
	case phaseVoting:
		return phaseResults, true
	case phaseResults:
		if room.CurrentRound < totalRounds(room) {
			return phaseUpload, true
		}
		return statusFinished, true
	default:
		return "", false
	}
}

func findPlayerByID(room *Room, playerID int) (Player, bool) {
	for _, player := range room.Players {
		if player.ID == playerID {
			return player, true
		}
	}
	return Player{}, false
}
