package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JunShern/reality-dixit/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

var (
	errDuplicatePrompt = errors.New("prompt already submitted")
	errDuplicatePhoto  = errors.New("photo already submitted")
	errDuplicateVote   = errors.New("vote already submitted")
)

func (s *Server) persistRoom(room *Room) error {
	if s.db == nil {
		return nil
	}
	record := db.Room{
		Code:   room.Code,
		Status: room.Status,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	room.DBID = record.ID
	newID := fmt.Sprintf("room-%d", record.ID)
	if room.ID != newID {
		s.store.UpdateRoomID(room, newID)
	}
	return s.persistEvent(room, "room_created", EventPayload{
		RoomID:   room.ID,
		JoinCode: room.Code,
	})
}

func (s *Server) persistPlayer(room *Room, player *Player) error {
	if s.db == nil {
		return nil
	}
	if player.DBID != 0 {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	if room.DBID == 0 {
		return errors.New("room not found")
	}
	record := db.Player{
		RoomID:       room.DBID,
		Name:         player.Name,
		IsHost:       player.IsHost,
		SessionToken: player.SessionToken,
		JoinedAt:     time.Now().UTC(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.findPlayerDBID(room.DBID, player.Name)
			if lookupErr == nil && existing != 0 {
				player.DBID = existing
				return nil
			}
		}
		return err
	}
	player.DBID = record.ID
	return s.persistEvent(room, "player_joined", EventPayload{
		PlayerName: player.Name,
		PlayerID:   player.ID,
	})
}

// persistRoomState mirrors the room's machine state to its row and records
// an event describing the transition.
func (s *Server) persistRoomState(room *Room, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	if room.DBID == 0 {
		return errors.New("room not found")
	}
	var phaseEnd *time.Time
	if !room.PhaseEndsAt.IsZero() {
		end := room.PhaseEndsAt.UTC()
		phaseEnd = &end
	}
	updates := map[string]any{
		"status":         room.Status,
		"current_round":  room.CurrentRound,
		"round_phase":    room.RoundPhase,
		"reveal_index":   room.RevealIndex,
		"phase_end_time": phaseEnd,
	}
	if err := s.db.Model(&db.Room{}).Where("id = ?", room.DBID).Updates(updates).Error; err != nil {
		return err
	}
	return s.persistEvent(room, eventType, payload)
}

func (s *Server) persistPrompt(room *Room, entry *PromptEntry) error {
	if s.db == nil {
		return nil
	}
	if entry.DBID != 0 {
		return nil
	}
	player, ok := s.store.FindPlayer(room, entry.PlayerID)
	if !ok || player.DBID == 0 {
		return errors.New("player not found")
	}
	record := db.Prompt{
		RoomID:   room.DBID,
		PlayerID: player.DBID,
		Text:     entry.Text,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return errDuplicatePrompt
		}
		return err
	}
	entry.DBID = record.ID
	return s.persistEvent(room, "prompt_submitted", EventPayload{
		PlayerID: entry.PlayerID,
	})
}

// persistPromptRounds writes the shuffled round assignment back to each
// prompt row.
func (s *Server) persistPromptRounds(room *Room) error {
	if s.db == nil {
		return nil
	}
	for i := range room.Prompts {
		entry := &room.Prompts[i]
		if entry.DBID == 0 || entry.RoundNumber == 0 {
			continue
		}
		if err := s.db.Model(&db.Prompt{}).
			Where("id = ?", entry.DBID).
			Update("round_number", entry.RoundNumber).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) persistSubmission(room *Room, entry *SubmissionEntry) error {
	if s.db == nil {
		return nil
	}
	if entry.DBID != 0 {
		return nil
	}
	player, ok := s.store.FindPlayer(room, entry.PlayerID)
	if !ok || player.DBID == 0 {
		return errors.New("player not found")
	}
	record := db.Submission{
		RoomID:   room.DBID,
		Round:    entry.Round,
		PlayerID: player.DBID,
		PhotoURL: entry.PhotoURL,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return errDuplicatePhoto
		}
		return err
	}
	entry.DBID = record.ID
	return s.persistEvent(room, "photo_submitted", EventPayload{
		PlayerID: entry.PlayerID,
		Round:    entry.Round,
	})
}

func (s *Server) persistVote(room *Room, entry *VoteEntry) error {
	if s.db == nil {
		return nil
	}
	if entry.DBID != 0 {
		return nil
	}
	voter, ok := s.store.FindPlayer(room, entry.VoterID)
	if !ok || voter.DBID == 0 {
		return errors.New("player not found")
	}
	submissionDBID := uint(0)
	if submission, found := submissionByID(room, entry.SubmissionID); found {
		submissionDBID = submission.DBID
	}
	record := db.Vote{
		RoomID:       room.DBID,
		Round:        entry.Round,
		VoterID:      voter.DBID,
		SubmissionID: submissionDBID,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return errDuplicateVote
		}
		return err
	}
	entry.DBID = record.ID
	return s.persistEvent(room, "vote_submitted", EventPayload{
		PlayerID:     entry.VoterID,
		Round:        entry.Round,
		SubmissionID: entry.SubmissionID,
	})
}

func (s *Server) persistScores(room *Room) error {
	if s.db == nil {
		return nil
	}
	for _, player := range room.Players {
		if player.DBID == 0 {
			continue
		}
		if err := s.db.Model(&db.Player{}).
			Where("id = ?", player.DBID).
			Update("score", player.Score).Error; err != nil {
			return err
		}
	}
	return nil
}

// persistPlayAgain drops the room's prompt/submission/vote rows en masse
// and zeroes scores; room and player rows are reused.
func (s *Server) persistPlayAgain(room *Room) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	if room.DBID == 0 {
		return errors.New("room not found")
	}
	if err := s.db.Where("room_id = ?", room.DBID).Delete(&db.Vote{}).Error; err != nil {
		return err
	}
	if err := s.db.Where("room_id = ?", room.DBID).Delete(&db.Submission{}).Error; err != nil {
		return err
	}
	if err := s.db.Where("room_id = ?", room.DBID).Delete(&db.Prompt{}).Error; err != nil {
		return err
	}
	if err := s.db.Model(&db.Player{}).
		Where("room_id = ?", room.DBID).
		Update("score", 0).Error; err != nil {
		return err
	}
	return s.persistRoomState(room, "room_reset", EventPayload{Status: room.Status})
}

func (s *Server) persistEvent(room *Room, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	if room.DBID == 0 {
		return errors.New("room not found")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := db.Event{
		RoomID:   room.DBID,
		PlayerID: s.resolveEventPlayerID(room, payload),
		Type:     eventType,
		Payload:  datatypes.JSON(data),
	}
	return s.db.Create(&event).Error
}

func (s *Server) resolveEventPlayerID(room *Room, payload EventPayload) *uint {
	if payload.PlayerID <= 0 {
		return nil
	}
	player, found := s.store.FindPlayer(room, payload.PlayerID)
	if found && player.DBID != 0 {
		value := player.DBID
		return &value
	}
	return nil
}

func (s *Server) ensureRoomDBID(room *Room) error {
	if s.db == nil || room.DBID != 0 {
		return nil
	}
	var record db.Room
	if err := s.db.Where("code = ?", room.Code).First(&record).Error; err != nil {
		return nil
	}
	room.DBID = record.ID
	return nil
}

func (s *Server) findPlayerDBID(roomDBID uint, name string) (uint, error) {
	var record db.Player
	if err := s.db.Where("room_id = ? AND name = ?", roomDBID, name).First(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
