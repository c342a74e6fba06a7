package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/JunShern/reality-dixit/internal/db"
)

type createRoomRequest struct {
	Username string `json:"username"`
}

type joinRequest struct {
	Username string `json:"username"`
}

type hostRequest struct {
	PlayerID int `json:"player_id"`
}

// advanceRequest optionally names the phase the caller believes it is
// leaving. When the room has already moved on, the request is a no-op
// instead of a second transition, so a double-clicking host cannot skip
// a phase.
type advanceRequest struct {
	PlayerID int    `json:"player_id"`
	From     string `json:"from,omitempty"`
}

type promptRequest struct {
	PlayerID int    `json:"player_id"`
	Text     string `json:"text"`
}

type submissionRequest struct {
	PlayerID int    `json:"player_id"`
	PhotoURL string `json:"photo_url"`
}

type voteRequest struct {
	PlayerID     int `json:"player_id"`
	SubmissionID int `json:"submission_id"`
}

var errNotHost = errors.New("only the host can do that")

func requireHost(room *Room, playerID int) error {
	if playerID <= 0 {
		return errNotHost
	}
	if room.HostID != 0 && playerID != room.HostID {
		return errNotHost
	}
	return nil
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "create") {
		return
	}
	var req createRoomRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	name, err := validateName(req.Username)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	room, host, err := s.store.CreateRoom(name, s.cfg.JoinCodeAttempts)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err := s.persistRoom(room); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	if err := s.persistPlayer(room, host); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	s.sessions.Save(host.SessionToken, room, host)
	setSessionCookie(w, host.SessionToken)
	log.Printf("room created room_id=%s join_code=%s host=%s", room.ID, room.Code, host.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"room_id":       room.ID,
		"join_code":     room.Code,
		"player_id":     host.ID,
		"session_token": host.SessionToken,
	})
}

func (s *Server) handleRoomSubroutes(w http.ResponseWriter, r *http.Request) {
	roomID, action, ok := parseRoomPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		switch action {
		case "":
			s.handleGetRoom(w, r, roomID)
		case "results":
			s.handleResults(w, r, roomID)
		case "events":
			s.handleEvents(w, r, roomID)
		default:
			http.NotFound(w, r)
		}
	case http.MethodPost:
		switch action {
		case "join":
			s.handleJoinRoom(w, r, roomID)
		case "start":
			s.handleStart(w, r, roomID)
		case "start-rounds":
			s.handleStartRounds(w, r, roomID)
		case "prompts":
			s.handleSubmitPrompt(w, r, roomID)
		case "submissions":
			s.handleSubmitPhoto(w, r, roomID)
		case "votes":
			s.handleSubmitVote(w, r, roomID)
		case "advance":
			s.handleAdvance(w, r, roomID)
		case "next-round":
			s.handleNextRound(w, r, roomID)
		case "reveal":
			s.handleReveal(w, r, roomID)
		case "play-again":
			s.handlePlayAgain(w, r, roomID)
		default:
			http.NotFound(w, r)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) lookupRoom(idOrCode string) (*Room, bool) {
	if room, ok := s.store.GetRoom(idOrCode); ok {
		return room, true
	}
	return s.store.FindRoomByCode(idOrCode)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	room, ok := s.lookupRoom(roomID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if viewerID := viewerPlayerID(r, room); viewerID > 0 {
		writeJSON(w, http.StatusOK, viewForPlayer(room, s.cfg, viewerID))
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(room))
}

// viewerPlayerID resolves the requesting player from a session token or an
// explicit player_id query parameter.
func viewerPlayerID(r *http.Request, room *Room) int {
	if token := requestSessionToken(r); token != "" {
		for _, player := range room.Players {
			if player.SessionToken == token {
				return player.ID
			}
		}
	}
	if raw := r.URL.Query().Get("player_id"); raw != "" {
		for _, player := range room.Players {
			if raw == intString(player.ID) {
				return player.ID
			}
		}
	}
	return 0
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "join") {
		return
	}
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	name, err := validateName(req.Username)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	room, player, err := s.store.AddPlayer(roomID, name)
	if err != nil {
		if err.Error() == "room not found" {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.persistPlayer(room, player); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to join room")
		return
	}
	s.sessions.Save(player.SessionToken, room, player)
	setSessionCookie(w, player.SessionToken)
	log.Printf("player joined room_id=%s player_id=%d player_name=%s", room.ID, player.ID, name)
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":       room.ID,
		"join_code":     room.Code,
		"player_id":     player.ID,
		"session_token": player.SessionToken,
	})
	s.publishChange(room, Change{Table: tablePlayers, Action: changeInsert, Record: map[string]any{
		"id":      player.ID,
		"name":    player.Name,
		"is_host": player.IsHost,
	}})
}

// handleStart moves waiting -> prompts. Host-only; needs the minimum
// player count.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "start") {
		return
	}
	var req hostRequest
	_ = readJSON(r.Body, &req)
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if err := requireHost(room, req.PlayerID); err != nil {
			return err
		}
		return s.startGame(room)
	})
	if err != nil {
		s.writeTransitionError(w, r, err)
		return
	}
	if err := s.persistRoomState(room, "game_started", EventPayload{Status: room.Status}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start game")
		return
	}
	log.Printf("game started room_id=%s status=%s", room.ID, room.Status)
	writeJSON(w, http.StatusOK, s.snapshot(room))
	s.publishChange(room, Change{Table: tableRooms, Action: changeUpdate, Record: roomRecord(room)})
}

// handleStartRounds moves prompts -> playing: the shuffle assigns every
// prompt its round, round 1 opens in the upload phase with its deadline.
func (s *Server) handleStartRounds(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "start-rounds") {
		return
	}
	var req hostRequest
	_ = readJSON(r.Body, &req)
	now := timeNowUTC()
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if err := requireHost(room, req.PlayerID); err != nil {
			return err
		}
		return s.startRounds(room, now)
	})
	if err != nil {
		s.writeTransitionError(w, r, err)
		return
	}
	if err := s.persistPromptRounds(room); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start rounds")
		return
	}
	if err := s.persistRoomState(room, "rounds_started", EventPayload{
		Status: room.Status,
		Phase:  room.RoundPhase,
		Round:  room.CurrentRound,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start rounds")
		return
	}
	log.Printf("rounds started room_id=%s round=%d phase=%s", room.ID, room.CurrentRound, room.RoundPhase)
	writeJSON(w, http.StatusOK, s.snapshot(room))
	s.publishChange(room, Change{Table: tableRooms, Action: changeUpdate, Record: roomRecord(room)})
	s.schedulePhaseTimer(room)
}

func (s *Server) handleSubmitPrompt(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "prompts") {
		return
	}
	var req promptRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id and text are required")
		return
	}
	text, err := validatePrompt(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var entry *PromptEntry
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if room.Status != statusPrompts {
			return errors.New("prompts not accepted in this phase")
		}
		player, ok := s.store.FindPlayer(room, req.PlayerID)
		if !ok {
			return errors.New("player not found")
		}
		if _, exists := promptByPlayer(room, player.ID); exists {
			return errDuplicatePrompt
		}
		room.Prompts = append(room.Prompts, PromptEntry{
			PlayerID: player.ID,
			Text:     text,
		})
		entry = &room.Prompts[len(room.Prompts)-1]
		return nil
	})
	if err != nil {
		s.writeTransitionError(w, r, err)
		return
	}
	if err := s.persistPrompt(room, entry); err != nil {
		if errors.Is(err, errDuplicatePrompt) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save prompt")
		return
	}
	log.Printf("prompt submitted room_id=%s player_id=%d", room.ID, req.PlayerID)
	writeJSON(w, http.StatusOK, s.snapshot(room))
	s.publishChange(room, Change{Table: tablePrompts, Action: changeInsert, Record: map[string]any{
		"player_id": req.PlayerID,
	}})
}

func (s *Server) handleSubmitPhoto(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "submissions") {
		return
	}
	var req submissionRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id and photo_url are required")
		return
	}
	photoURL, err := validatePhotoURL(req.PhotoURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var entry *SubmissionEntry
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		// The deadline is advisory: submissions count until the host (or
		// the timer) actually leaves the upload phase.
		if room.Status != statusPlaying || room.RoundPhase != phaseUpload {
			return errors.New("photos not accepted in this phase")
		}
		player, ok := s.store.FindPlayer(room, req.PlayerID)
		if !ok {
			return errors.New("player not found")
		}
		for _, submission := range currentRoundSubmissions(room) {
			if submission.PlayerID == player.ID {
				return errDuplicatePhoto
			}
		}
		room.nextSubmissionID++
		room.Submissions = append(room.Submissions, SubmissionEntry{
			ID:       room.nextSubmissionID,
			PlayerID: player.ID,
			Round:    room.CurrentRound,
			PhotoURL: photoURL,
		})
		entry = &room.Submissions[len(room.Submissions)-1]
		return nil
	})
	if err != nil {
		s.writeTransitionError(w, r, err)
		return
	}
	if err := s.persistSubmission(room, entry); err != nil {
		if errors.Is(err, errDuplicatePhoto) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save photo")
		return
	}
	log.Printf("photo submitted room_id=%s player_id=%d round=%d", room.ID, req.PlayerID, entry.Round)
	writeJSON(w, http.StatusOK, s.snapshot(room))
	s.publishChange(room, Change{Table: tableSubmissions, Action: changeInsert, Record: map[string]any{
		"id":        entry.ID,
		"player_id": entry.PlayerID,
		"round":     entry.Round,
	}})
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "votes") {
		return
	}
	var req voteRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 || req.SubmissionID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id and submission_id are required")
		return
	}
	var entry *VoteEntry
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if room.Status != statusPlaying || room.RoundPhase != phaseVoting {
			return errors.New("votes not accepted in this phase")
		}
		voter, ok := s.store.FindPlayer(room, req.PlayerID)
		if !ok {
			return errors.New("player not found")
		}
		submission, found := submissionByID(room, req.SubmissionID)
		if !found || submission.Round != room.CurrentRound {
			return errors.New("submission not found in this round")
		}
		if submission.PlayerID == voter.ID {
			return errors.New("cannot vote for your own photo")
		}
		for _, vote := range currentRoundVotes(room) {
			if vote.VoterID == voter.ID {
				return errDuplicateVote
			}
		}
		room.Votes = append(room.Votes, VoteEntry{
			VoterID:      voter.ID,
			Round:        room.CurrentRound,
			SubmissionID: submission.ID,
		})
		entry = &room.Votes[len(room.Votes)-1]
		return nil
	})
	if err != nil {
		s.writeTransitionError(w, r, err)
		return
	}
	if err := s.persistVote(room, entry); err != nil {
		if errors.Is(err, errDuplicateVote) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save vote")
		return
	}
	log.Printf("vote submitted room_id=%s player_id=%d round=%d", room.ID, req.PlayerID, entry.Round)
	writeJSON(w, http.StatusOK, s.snapshot(room))
	s.publishChange(room, Change{Table: tableVotes, Action: changeInsert, Record: map[string]any{
		"voter_id":      entry.VoterID,
		"round":         entry.Round,
		"submission_id": entry.SubmissionID,
	}})
}

// handleAdvance steps the round phase: upload -> reveal -> voting ->
// results, and from results into the next round or the finished state.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "advance") {
		return
	}
	var req advanceRequest
	_ = readJSON(r.Body, &req)
	s.advanceForHost(w, r, roomID, req, "")
}

// handleNextRound is the explicit results -> next round (or finished)
// action; outside the results phase it is rejected.
func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "next-round") {
		return
	}
	var req advanceRequest
	_ = readJSON(r.Body, &req)
	s.advanceForHost(w, r, roomID, req, phaseResults)
}

func (s *Server) advanceForHost(w http.ResponseWriter, r *http.Request, roomID string, req advanceRequest, requiredPhase string) {
	now := timeNowUTC()
	advanced := true
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if err := requireHost(room, req.PlayerID); err != nil {
			return err
		}
		if requiredPhase != "" && room.RoundPhase != requiredPhase {
			return errors.New("round still in progress")
		}
		if req.From != "" && room.RoundPhase != req.From {
			advanced = false
			return nil
		}
		_, err := s.advanceRoundPhase(room, transitionManual, now)
		return err
	})
	if err != nil {
		s.writeTransitionError(w, r, err)
		return
	}
	if !advanced {
		log.Printf("advance skipped room_id=%s from=%s phase=%s", room.ID, req.From, room.RoundPhase)
		writeJSON(w, http.StatusOK, s.snapshot(room))
		return
	}
	eventType := "phase_advanced"
	if room.Status == statusFinished {
		eventType = "game_finished"
		if err := s.persistScores(room); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save scores")
			return
		}
	}
	if err := s.persistRoomState(room, eventType, EventPayload{
		Status: room.Status,
		Phase:  room.RoundPhase,
		Round:  room.CurrentRound,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to advance")
		return
	}
	log.Printf("room advanced room_id=%s status=%s round=%d phase=%s", room.ID, room.Status, room.CurrentRound, room.RoundPhase)
	writeJSON(w, http.StatusOK, s.snapshot(room))
	s.publishChange(room, Change{Table: tableRooms, Action: changeUpdate, Record: roomRecord(room)})
	if room.Status == statusFinished {
		s.cancelPhaseTimer(room.ID)
		s.publishChange(room, Change{Table: tablePlayers, Action: changeUpdate, Record: map[string]any{
			"scores": buildScores(room),
		}})
		return
	}
	s.schedulePhaseTimer(room)
}

// handleReveal steps the reveal cursor by one submission (host paced).
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "reveal") {
		return
	}
	var req hostRequest
	_ = readJSON(r.Body, &req)
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if err := requireHost(room, req.PlayerID); err != nil {
			return err
		}
		return advanceReveal(room)
	})
	if err != nil {
		s.writeTransitionError(w, r, err)
		return
	}
	if err := s.persistRoomState(room, "reveal_advanced", EventPayload{
		Round:       room.CurrentRound,
		RevealIndex: room.RevealIndex,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to advance reveal")
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(room))
	s.publishChange(room, Change{Table: tableRooms, Action: changeUpdate, Record: roomRecord(room)})
}

// handlePlayAgain resets a finished room for another game with the same
// players.
func (s *Server) handlePlayAgain(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "play-again") {
		return
	}
	var req hostRequest
	_ = readJSON(r.Body, &req)
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if err := requireHost(room, req.PlayerID); err != nil {
			return err
		}
		return playAgain(room)
	})
	if err != nil {
		s.writeTransitionError(w, r, err)
		return
	}
	if err := s.persistPlayAgain(room); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset room")
		return
	}
	log.Printf("room reset room_id=%s", room.ID)
	s.cancelPhaseTimer(room.ID)
	writeJSON(w, http.StatusOK, s.snapshot(room))
	for _, table := range []string{tableVotes, tableSubmissions, tablePrompts} {
		s.publishChange(room, Change{Table: table, Action: changeDelete})
	}
	s.publishChange(room, Change{Table: tableRooms, Action: changeUpdate, Record: roomRecord(room)})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request, roomID string) {
	room, ok := s.lookupRoom(roomID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id": room.ID,
		"status":  room.Status,
		"scores":  buildScores(room),
		"recap":   buildRecap(room),
		"counts": map[string]int{
			"prompts":     len(room.Prompts),
			"submissions": len(room.Submissions),
			"votes":       len(room.Votes),
		},
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, roomID string) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "events not available")
		return
	}
	room, ok := s.lookupRoom(roomID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if room.DBID == 0 {
		if err := s.ensureRoomDBID(room); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load room")
			return
		}
	}
	var records []db.Event
	if err := s.db.Where("room_id = ?", room.DBID).Order("created_at asc").Find(&records).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	events := make([]map[string]any, 0, len(records))
	for _, record := range records {
		events = append(events, map[string]any{
			"id":         record.ID,
			"type":       record.Type,
			"player_id":  record.PlayerID,
			"created_at": record.CreatedAt,
			"payload":    record.Payload,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id": room.ID,
		"events":  events,
	})
}

func (s *Server) writeTransitionError(w http.ResponseWriter, r *http.Request, err error) {
	if err.Error() == "room not found" {
		http.NotFound(w, r)
		return
	}
	if errors.Is(err, errNotHost) {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	writeError(w, http.StatusConflict, err.Error())
}
