package server

import "time"

const (
	statusWaiting  = "waiting"
	statusPrompts  = "prompts"
	statusPlaying  = "playing"
	statusFinished = "finished"
)

const (
	phaseUpload  = "upload"
	phaseReveal  = "reveal"
	phaseVoting  = "voting"
	phaseResults = "results"
)

type RoomSummary struct {
	ID      string
	Code    string
	Status  string
	Players int
}

type Room struct {
	ID           string
	DBID         uint
	Code         string
	Status       string
	CurrentRound int
	RoundPhase   string
	RevealIndex  int
	PhaseEndsAt  time.Time
	HostID       int
	Players      []Player
	Prompts      []PromptEntry
	Submissions  []SubmissionEntry
	Votes        []VoteEntry

	nextSubmissionID int
}

type Player struct {
	ID           int
	Name         string
	Score        int
	IsHost       bool
	SessionToken string
	DBID         uint
}

// PromptEntry is one player's prompt for the game. RoundNumber stays 0
// until the shuffle at round start assigns it a round.
type PromptEntry struct {
	PlayerID    int
	Text        string
	RoundNumber int
	DBID        uint
}

type SubmissionEntry struct {
	ID       int
	PlayerID int
	Round    int
	PhotoURL string
	DBID     uint
}

type VoteEntry struct {
	VoterID      int
	Round        int
	SubmissionID int
	DBID         uint
}

// totalRounds is the number of rounds in a game: one per player, since
// every player contributes exactly one prompt.
func totalRounds(room *Room) int {
	return len(room.Players)
}
