package server

import (
	"fmt"
	"log"
	"sort"

	"github.com/JunShern/reality-dixit/internal/db"
)

// RestoreRooms reloads unfinished rooms from the database into the store
// after a restart. Finished rooms stay in the database for their results
// but are not brought back live.
func (s *Server) RestoreRooms() error {
	if s.db == nil {
		return nil
	}
	var records []db.Room
	if err := s.db.Where("status <> ?", statusFinished).Order("id asc").Find(&records).Error; err != nil {
		return fmt.Errorf("load rooms: %w", err)
	}
	restored := 0
	for i := range records {
		room, err := s.rebuildRoom(&records[i])
		if err != nil {
			log.Printf("room restore failed room=%d error=%v", records[i].ID, err)
			continue
		}
		if err := s.store.RestoreRoom(room); err != nil {
			log.Printf("room restore skipped room_id=%s error=%v", room.ID, err)
			continue
		}
		s.schedulePhaseTimer(room)
		restored++
	}
	if restored > 0 {
		log.Printf("rooms restored count=%d", restored)
	}
	return nil
}

func (s *Server) rebuildRoom(record *db.Room) (*Room, error) {
	room := &Room{
		ID:           fmt.Sprintf("room-%d", record.ID),
		DBID:         record.ID,
		Code:         record.Code,
		Status:       record.Status,
		CurrentRound: record.CurrentRound,
		RoundPhase:   record.RoundPhase,
		RevealIndex:  record.RevealIndex,
	}
	if record.PhaseEndTime != nil {
		room.PhaseEndsAt = record.PhaseEndTime.UTC()
	}

	var players []db.Player
	if err := s.db.Where("room_id = ?", record.ID).Order("joined_at asc, id asc").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("room has no players")
	}
	playerIDs := make(map[uint]int, len(players))
	for _, p := range players {
		id := int(p.ID)
		playerIDs[p.ID] = id
		room.Players = append(room.Players, Player{
			ID:           id,
			Name:         p.Name,
			Score:        p.Score,
			IsHost:       p.IsHost,
			SessionToken: p.SessionToken,
			DBID:         p.ID,
		})
		if p.IsHost {
			room.HostID = id
		}
	}
	if room.HostID == 0 {
		room.HostID = room.Players[0].ID
	}

	var prompts []db.Prompt
	if err := s.db.Where("room_id = ?", record.ID).Order("created_at asc, id asc").Find(&prompts).Error; err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	for _, p := range prompts {
		playerID, ok := playerIDs[p.PlayerID]
		if !ok {
			continue
		}
		entry := PromptEntry{
			PlayerID: playerID,
			Text:     p.Text,
			DBID:     p.ID,
		}
		if p.RoundNumber != nil {
			entry.RoundNumber = *p.RoundNumber
		}
		room.Prompts = append(room.Prompts, entry)
	}

	var submissions []db.Submission
	if err := s.db.Where("room_id = ?", record.ID).Order("created_at asc, id asc").Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	submissionIDs := make(map[uint]int, len(submissions))
	for _, sub := range submissions {
		playerID, ok := playerIDs[sub.PlayerID]
		if !ok {
			continue
		}
		room.nextSubmissionID++
		submissionIDs[sub.ID] = room.nextSubmissionID
		room.Submissions = append(room.Submissions, SubmissionEntry{
			ID:       room.nextSubmissionID,
			PlayerID: playerID,
			Round:    sub.Round,
			PhotoURL: sub.PhotoURL,
			DBID:     sub.ID,
		})
	}

	var votes []db.Vote
	if err := s.db.Where("room_id = ?", record.ID).Order("created_at asc, id asc").Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	for _, v := range votes {
		voterID, okVoter := playerIDs[v.VoterID]
		submissionID, okSub := submissionIDs[v.SubmissionID]
		if !okVoter || !okSub {
			continue
		}
		room.Votes = append(room.Votes, VoteEntry{
			VoterID:      voterID,
			Round:        v.Round,
			SubmissionID: submissionID,
			DBID:         v.ID,
		})
	}

	sort.SliceStable(room.Prompts, func(i, j int) bool {
		if room.Prompts[i].RoundNumber == 0 || room.Prompts[j].RoundNumber == 0 {
			return false
		}
		return room.Prompts[i].RoundNumber < room.Prompts[j].RoundNumber
	})
	return room, nil
}
