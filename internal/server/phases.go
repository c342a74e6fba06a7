package server

import (
	"errors"
	"math/rand"
	"time"
)

type transitionMode int

const (
	transitionPreview transitionMode = iota
	transitionManual
	transitionAuto
)

type phaseTransition struct {
	advance func(s *Server, room *Room, mode transitionMode, at time.Time) (string, error)
}

var phaseTransitions = map[string]phaseTransition{
	phaseUpload: {
		advance: func(s *Server, room *Room, mode transitionMode, at time.Time) (string, error) {
			if mode != transitionPreview {
				room.RevealIndex = 0
				room.PhaseEndsAt = time.Time{}
			}
			applyPhase(room, phaseReveal, mode)
			return phaseReveal, nil
		},
	},
	phaseReveal: {
		advance: func(s *Server, room *Room, mode transitionMode, at time.Time) (string, error) {
			applyPhase(room, phaseVoting, mode)
			return phaseVoting, nil
		},
	},
	phaseVoting: {
		advance: func(s *Server, room *Room, mode transitionMode, at time.Time) (string, error) {
			applyPhase(room, phaseResults, mode)
			return phaseResults, nil
		},
	},
	phaseResults: {
		advance: func(s *Server, room *Room, mode transitionMode, at time.Time) (string, error) {
			if room.CurrentRound < totalRounds(room) {
				if mode != transitionPreview {
					room.CurrentRound++
					room.RevealIndex = 0
					room.PhaseEndsAt = at.Add(s.uploadDuration())
				}
				applyPhase(room, phaseUpload, mode)
				return phaseUpload, nil
			}
			if mode != transitionPreview {
				applyFinalScores(room)
				room.Status = statusFinished
				room.RoundPhase = ""
				room.PhaseEndsAt = time.Time{}
			}
			return statusFinished, nil
		},
	},
}

// startGame moves a waiting room into prompt collection. Host-gated by the
// caller; here only the player-count precondition is checked.
func (s *Server) startGame(room *Room) error {
	if room.Status != statusWaiting {
		return errors.New("game already started")
	}
	if len(room.Players) < s.cfg.MinPlayers {
		return errors.New("not enough players")
	}
	room.Status = statusPrompts
	return nil
}

// startRounds moves a room from prompt collection into play. Every player
// must have submitted a prompt; the shuffle assigns each prompt a round
// number, a permutation of 1..N.
func (s *Server) startRounds(room *Room, at time.Time) error {
	if room.Status != statusPrompts {
		return errors.New("rounds already started")
	}
	if !promptsComplete(room) {
		return errors.New("waiting for prompts")
	}
	order := rand.Perm(len(room.Prompts))
	for i := range room.Prompts {
		room.Prompts[i].RoundNumber = order[i] + 1
	}
	room.Status = statusPlaying
	room.CurrentRound = 1
	room.RoundPhase = phaseUpload
	room.RevealIndex = 0
	room.PhaseEndsAt = at.Add(s.uploadDuration())
	return nil
}

// advanceRoundPhase moves one step in the upload -> reveal -> voting ->
// results cycle; at results it rolls into the next round's upload or
// finishes the game after the last round.
func (s *Server) advanceRoundPhase(room *Room, mode transitionMode, at time.Time) (string, error) {
	if room == nil {
		return "", errors.New("room not found")
	}
	if room.Status != statusPlaying {
		return "", errors.New("no round in progress")
	}
	transition, ok := phaseTransitions[room.RoundPhase]
	if !ok {
		return "", errors.New("no next phase")
	}
	return transition.advance(s, room, mode, at)
}

func (s *Server) nextRoundPhase(room *Room) (string, bool) {
	next, err := s.advanceRoundPhase(room, transitionPreview, time.Time{})
	if err != nil || next == "" {
		return "", false
	}
	return next, true
}

// advanceReveal steps the reveal cursor by one submission. The cursor is
// clamped to the current round's submission count and never moves backward.
func advanceReveal(room *Room) error {
	if room.Status != statusPlaying || room.RoundPhase != phaseReveal {
		return errors.New("not revealing")
	}
	limit := len(currentRoundSubmissions(room))
	if room.RevealIndex >= limit {
		return nil
	}
	room.RevealIndex++
	return nil
}

// playAgain resets a finished room to waiting. Room and player rows are
// reused; prompts, submissions, and votes are dropped and scores zeroed.
func playAgain(room *Room) error {
	if room.Status != statusFinished {
		return errors.New("game not finished")
	}
	room.Status = statusWaiting
	room.CurrentRound = 0
	room.RoundPhase = ""
	room.RevealIndex = 0
	room.PhaseEndsAt = time.Time{}
	room.Prompts = nil
	room.Submissions = nil
	room.Votes = nil
	room.nextSubmissionID = 0
	for i := range room.Players {
		room.Players[i].Score = 0
	}
	return nil
}

func applyPhase(room *Room, phase string, mode transitionMode) {
	if mode == transitionPreview {
		return
	}
	room.RoundPhase = phase
}

func (s *Server) uploadDuration() time.Duration {
	return time.Duration(s.cfg.UploadDurationSeconds) * time.Second
}

func promptsComplete(room *Room) bool {
	return len(room.Players) > 0 && len(room.Prompts) >= len(room.Players)
}

func submissionsComplete(room *Room) bool {
	return len(room.Players) > 0 && len(currentRoundSubmissions(room)) >= len(room.Players)
}

func votesComplete(room *Room) bool {
	return len(room.Players) > 0 && len(currentRoundVotes(room)) >= len(room.Players)
}

func promptForRound(room *Room, round int) (PromptEntry, bool) {
	for _, entry := range room.Prompts {
		if entry.RoundNumber == round && round > 0 {
			return entry, true
		}
	}
	return PromptEntry{}, false
}

func promptByPlayer(room *Room, playerID int) (PromptEntry, bool) {
	for _, entry := range room.Prompts {
		if entry.PlayerID == playerID {
			return entry, true
		}
	}
	return PromptEntry{}, false
}

func currentRoundSubmissions(room *Room) []SubmissionEntry {
	return submissionsForRound(room, room.CurrentRound)
}

func submissionsForRound(room *Room, round int) []SubmissionEntry {
	list := make([]SubmissionEntry, 0)
	for _, entry := range room.Submissions {
		if entry.Round == round {
			list = append(list, entry)
		}
	}
	return list
}

func currentRoundVotes(room *Room) []VoteEntry {
	return votesForRound(room, room.CurrentRound)
}

func votesForRound(room *Room, round int) []VoteEntry {
	list := make([]VoteEntry, 0)
	for _, entry := range room.Votes {
		if entry.Round == round {
			list = append(list, entry)
		}
	}
	return list
}

func submissionByID(room *Room, id int) (SubmissionEntry, bool) {
	for _, entry := range room.Submissions {
		if entry.ID == id {
			return entry, true
		}
	}
	return SubmissionEntry{}, false
}
