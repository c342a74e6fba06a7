package server

import "sort"

// finalScores recomputes every player's score from the full vote history:
// one point per vote whose target submission belongs to the player. Pure
// and idempotent over the same inputs.
func finalScores(players []Player, submissions []SubmissionEntry, votes []VoteEntry) map[int]int {
	owners := make(map[int]int, len(submissions))
	for _, submission := range submissions {
		owners[submission.ID] = submission.PlayerID
	}
	scores := make(map[int]int, len(players))
	for _, player := range players {
		scores[player.ID] = 0
	}
	for _, vote := range votes {
		owner, ok := owners[vote.SubmissionID]
		if !ok {
			continue
		}
		if _, known := scores[owner]; !known {
			continue
		}
		scores[owner]++
	}
	return scores
}

func applyFinalScores(room *Room) {
	scores := finalScores(room.Players, room.Submissions, room.Votes)
	for i := range room.Players {
		room.Players[i].Score = scores[room.Players[i].ID]
	}
}

// roundTally counts votes per submission for one round. Submissions with
// no votes tally 0.
func roundTally(submissions []SubmissionEntry, votes []VoteEntry, round int) map[int]int {
	tally := make(map[int]int)
	for _, submission := range submissions {
		if submission.Round == round {
			tally[submission.ID] = 0
		}
	}
	for _, vote := range votes {
		if vote.Round != round {
			continue
		}
		if _, ok := tally[vote.SubmissionID]; !ok {
			continue
		}
		tally[vote.SubmissionID]++
	}
	return tally
}

// roundWinner picks the submission with the strictly highest vote count in
// a round. A zero maximum means no winner. Ties break to the earliest
// submission (creation order), an explicit rule rather than an accident of
// iteration order.
func roundWinner(submissions []SubmissionEntry, votes []VoteEntry, round int) (SubmissionEntry, int, bool) {
	tally := roundTally(submissions, votes, round)
	var winner SubmissionEntry
	best := 0
	found := false
	for _, submission := range submissions {
		if submission.Round != round {
			continue
		}
		if count := tally[submission.ID]; count > best {
			best = count
			winner = submission
			found = true
		}
	}
	return winner, best, found
}

// rankedPlayers orders players by score descending; equal scores keep join
// order (earliest joined ranks first).
func rankedPlayers(players []Player) []Player {
	ranked := make([]Player, len(players))
	copy(ranked, players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
