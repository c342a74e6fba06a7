package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID           uint      `gorm:"primaryKey"`
	Code         string    `gorm:"size:8;uniqueIndex;not null"`
	Status       string    `gorm:"size:32;not null"`
	CurrentRound int       `gorm:"not null;default:0"`
	RoundPhase   string    `gorm:"size:32"`
	RevealIndex  int       `gorm:"not null;default:0"`
	PhaseEndTime *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	Players      []Player
	Prompts      []Prompt
	Submissions  []Submission
	Votes        []Vote
	Events       []Event
}

type Player struct {
	ID           uint      `gorm:"primaryKey"`
	RoomID       uint      `gorm:"index;not null;uniqueIndex:idx_players_room_name"`
	Name         string    `gorm:"size:64;not null;uniqueIndex:idx_players_room_name"`
	Score        int       `gorm:"not null;default:0"`
	IsHost       bool      `gorm:"not null;default:false"`
	SessionToken string    `gorm:"size:64;index"`
	JoinedAt     time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	Prompts      []Prompt
	Submissions  []Submission
	Events       []Event
}

type Prompt struct {
	ID          uint      `gorm:"primaryKey"`
	RoomID      uint      `gorm:"index;not null;uniqueIndex:idx_prompts_room_player"`
	PlayerID    uint      `gorm:"index;not null;uniqueIndex:idx_prompts_room_player"`
	Text        string    `gorm:"size:280;not null"`
	RoundNumber *int      `gorm:"index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type Submission struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"index;not null;uniqueIndex:idx_submissions_room_round_player"`
	Round     int       `gorm:"not null;uniqueIndex:idx_submissions_room_round_player"`
	PlayerID  uint      `gorm:"index;not null;uniqueIndex:idx_submissions_room_round_player"`
	PhotoURL  string    `gorm:"size:2048;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Vote struct {
	ID           uint      `gorm:"primaryKey"`
	RoomID       uint      `gorm:"index;not null;uniqueIndex:idx_votes_room_round_voter"`
	Round        int       `gorm:"not null;uniqueIndex:idx_votes_room_round_voter"`
	VoterID      uint      `gorm:"index;not null;uniqueIndex:idx_votes_room_round_voter"`
	SubmissionID uint      `gorm:"index;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type Session struct {
	Token     string    `gorm:"primaryKey;size:64"`
	RoomID    uint      `gorm:"index;not null"`
	PlayerID  uint      `gorm:"index;not null"`
	RoomCode  string    `gorm:"size:8;not null"`
	Name      string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    uint           `gorm:"index;not null"`
	PlayerID  *uint          `gorm:"index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
