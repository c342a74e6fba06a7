package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/JunShern/reality-dixit/internal/db"

	"gorm.io/gorm"
)

const sessionCookieName = "rd_session"

// sessionStore maps opaque session tokens back to a seated player so a
// reloaded client can rejoin without re-auth. Backed by the database when
// one is configured, with an in-memory map otherwise.
type sessionStore struct {
	db       *gorm.DB
	mu       sync.Mutex
	sessions map[string]sessionData
}

type sessionData struct {
	RoomID   string
	RoomCode string
	PlayerID int
	Name     string
}

func newSessionStore(conn *gorm.DB) *sessionStore {
	return &sessionStore{
		db:       conn,
		sessions: make(map[string]sessionData),
	}
}

func (s *sessionStore) Save(token string, room *Room, player *Player) {
	if token == "" {
		return
	}
	s.mu.Lock()
	s.sessions[token] = sessionData{
		RoomID:   room.ID,
		RoomCode: room.Code,
		PlayerID: player.ID,
		Name:     player.Name,
	}
	s.mu.Unlock()
	if s.db == nil || room.DBID == 0 || player.DBID == 0 {
		return
	}
	record := db.Session{
		Token:    token,
		RoomID:   room.DBID,
		PlayerID: player.DBID,
		RoomCode: room.Code,
		Name:     player.Name,
	}
	_ = s.db.Save(&record).Error
}

func (s *sessionStore) Lookup(token string) (sessionData, bool) {
	s.mu.Lock()
	data, ok := s.sessions[token]
	s.mu.Unlock()
	if ok {
		return data, true
	}
	if s.db == nil {
		return sessionData{}, false
	}
	var record db.Session
	if err := s.db.Where("token = ?", token).First(&record).Error; err != nil {
		return sessionData{}, false
	}
	return sessionFromRecord(record), true
}

// sessionFromRecord maps a stored session row to the in-memory form.
// Restored rooms seat players under their database ids, so the row's
// player id is the seat id after a restart; handleSession still verifies
// the seat and falls back to the name scan when it no longer exists.
func sessionFromRecord(record db.Session) sessionData {
	return sessionData{
		RoomID:   fmt.Sprintf("room-%d", record.RoomID),
		RoomCode: record.RoomCode,
		PlayerID: int(record.PlayerID),
		Name:     record.Name,
	}
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func requestSessionToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("X-Session-Token")); token != "" {
		return token
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// handleSession is the reconnection bootstrap: a stored token resolves to
// the room and player it belongs to, or 404 when the session is unknown.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	token := requestSessionToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	data, ok := s.sessions.Lookup(token)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	room, found := s.store.FindRoomByCode(data.RoomCode)
	if !found {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	playerID := data.PlayerID
	if playerID != 0 {
		if _, _, seated := s.store.GetPlayer(room.ID, playerID); !seated {
			playerID = 0
		}
	}
	if playerID == 0 {
		for _, player := range room.Players {
			if player.SessionToken == token || strings.EqualFold(player.Name, data.Name) {
				playerID = player.ID
				break
			}
		}
	}
	if playerID == 0 {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":   room.ID,
		"room_code": room.Code,
		"player_id": playerID,
		"username":  data.Name,
	})
}
