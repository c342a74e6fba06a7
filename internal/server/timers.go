package server

import (
	"errors"
	"log"
	"time"
)

// schedulePhaseTimer arms the upload deadline for the room's current round.
// Only the upload phase carries a deadline; any other state cancels.
func (s *Server) schedulePhaseTimer(room *Room) {
	if room.Status != statusPlaying || room.RoundPhase != phaseUpload || room.PhaseEndsAt.IsZero() {
		s.cancelPhaseTimer(room.ID)
		return
	}
	duration := time.Until(room.PhaseEndsAt)
	if duration <= 0 {
		duration = time.Millisecond
	}
	roomID := room.ID
	expectedRound := room.CurrentRound
	s.timersMu.Lock()
	if existing, ok := s.timers[roomID]; ok {
		existing.Stop()
	}
	timer := time.AfterFunc(duration, func() {
		s.autoAdvanceUpload(roomID, expectedRound)
	})
	s.timers[roomID] = timer
	s.timersMu.Unlock()
}

func (s *Server) cancelPhaseTimer(roomID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[roomID]; ok {
		timer.Stop()
		delete(s.timers, roomID)
	}
}

// autoAdvanceUpload fires at the upload deadline. The advance is
// conditional on the room still sitting in the same round's upload phase,
// so a host advance that already happened (or a duplicate timer) is a
// no-op rather than a double skip. When every player has already
// submitted, the advance stays host-triggered and the timer does nothing.
func (s *Server) autoAdvanceUpload(roomID string, expectedRound int) {
	now := timeNowUTC()
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if room.Status != statusPlaying || room.RoundPhase != phaseUpload {
			return errors.New("phase changed")
		}
		if room.CurrentRound != expectedRound {
			return errors.New("round changed")
		}
		if submissionsComplete(room) {
			return errors.New("all photos submitted")
		}
		_, err := s.advanceRoundPhase(room, transitionAuto, now)
		return err
	})
	if err != nil {
		return
	}
	if err := s.persistRoomState(room, "phase_advanced", EventPayload{
		Phase:  room.RoundPhase,
		Round:  room.CurrentRound,
		Reason: "timeout",
	}); err != nil {
		log.Printf("auto-advance persist failed room_id=%s error=%v", room.ID, err)
		return
	}
	log.Printf("room auto-advanced room_id=%s round=%d phase=%s", room.ID, room.CurrentRound, room.RoundPhase)
	s.cancelPhaseTimer(room.ID)
	s.publishChange(room, Change{Table: tableRooms, Action: changeUpdate, Record: roomRecord(room)})
}

func roomRecord(room *Room) map[string]any {
	phaseEndsAt := ""
	if !room.PhaseEndsAt.IsZero() {
		phaseEndsAt = room.PhaseEndsAt.UTC().Format(time.RFC3339)
	}
	return map[string]any{
		"id":            room.ID,
		"code":          room.Code,
		"status":        room.Status,
		"current_round": room.CurrentRound,
		"round_phase":   room.RoundPhase,
		"reveal_index":  room.RevealIndex,
		"phase_ends_at": phaseEndsAt,
	}
}
