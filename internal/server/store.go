package server

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Store struct {
	mu           sync.Mutex
	nextID       int
	nextPlayerID int
	rooms        map[string]*Room
}

func NewStore() *Store {
	return &Store{
		nextID:       1,
		nextPlayerID: 1,
		rooms:        make(map[string]*Room),
	}
}

// CreateRoom allocates a room in waiting status and seats the creator as
// host. The join code is collision-checked against live rooms, retrying
// with a fresh code a bounded number of times.
func (s *Store) CreateRoom(hostName string, codeAttempts int) (*Room, *Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := ""
	for attempt := 0; attempt < codeAttempts; attempt++ {
		candidate, err := newJoinCode()
		if err != nil {
			return nil, nil, err
		}
		if _, taken := s.findByCodeLocked(candidate); !taken {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, nil, errors.New("could not allocate join code")
	}

	id := fmt.Sprintf("room-%d", s.nextID)
	s.nextID++
	room := &Room{
		ID:     id,
		Code:   code,
		Status: statusWaiting,
	}
	host := Player{
		ID:           s.nextPlayerID,
		Name:         hostName,
		IsHost:       true,
		SessionToken: newSessionToken(),
	}
	s.nextPlayerID++
	room.Players = append(room.Players, host)
	room.HostID = host.ID
	s.rooms[id] = room
	return room, &room.Players[0], nil
}

func (s *Store) GetRoom(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	return room, ok
}

func (s *Store) UpdateRoom(id string, update func(room *Room) error) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		for _, candidate := range s.rooms {
			if candidate.Code == normalizeJoinCode(id) {
				room = candidate
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, errors.New("room not found")
	}
	if err := update(room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Store) FindRoomByCode(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByCodeLocked(normalizeJoinCode(code))
}

func (s *Store) findByCodeLocked(code string) (*Room, bool) {
	for _, room := range s.rooms {
		if room.Code == code {
			return room, true
		}
	}
	return nil, false
}

func (s *Store) UpdateRoomID(room *Room, newID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.ID == newID {
		return
	}
	delete(s.rooms, room.ID)
	room.ID = newID
	s.rooms[newID] = room
}

// AddPlayer seats a player in a waiting room, looked up by id or join code.
// A player rejoining under their existing name reclaims that seat instead
// of creating a duplicate.
func (s *Store) AddPlayer(roomIDOrCode, name string) (*Room, *Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomIDOrCode]
	if !ok {
		room, ok = s.findByCodeLocked(normalizeJoinCode(roomIDOrCode))
	}
	if !ok {
		return nil, nil, errors.New("room not found")
	}

	for i := range room.Players {
		if strings.EqualFold(room.Players[i].Name, name) {
			return room, &room.Players[i], nil
		}
	}
	if room.Status != statusWaiting {
		return nil, nil, errors.New("game already started")
	}

	player := Player{
		ID:           s.nextPlayerID,
		Name:         name,
		SessionToken: newSessionToken(),
	}
	s.nextPlayerID++
	room.Players = append(room.Players, player)
	return room, &room.Players[len(room.Players)-1], nil
}

func (s *Store) RestoreRoom(room *Room) error {
	if room == nil {
		return errors.New("room is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return errors.New("room already running")
	}
	for _, existing := range s.rooms {
		if existing.Code == room.Code {
			return errors.New("room already running")
		}
	}
	s.rooms[room.ID] = room
	if id := roomSortKey(room.ID); id >= s.nextID {
		s.nextID = id + 1
	}
	maxPlayerID := 0
	for _, player := range room.Players {
		if player.ID > maxPlayerID {
			maxPlayerID = player.ID
		}
	}
	if maxPlayerID >= s.nextPlayerID {
		s.nextPlayerID = maxPlayerID + 1
	}
	return nil
}

func (s *Store) ListRoomSummaries() []RoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]RoomSummary, 0, len(s.rooms))
	for _, room := range s.rooms {
		list = append(list, RoomSummary{
			ID:      room.ID,
			Code:    room.Code,
			Status:  room.Status,
			Players: len(room.Players),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return roomSortKey(list[i].ID) < roomSortKey(list[j].ID)
	})
	return list
}

func roomSortKey(id string) int {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return 0
	}
	value, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return value
}

func (s *Store) GetPlayer(roomID string, playerID int) (*Room, *Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, nil, false
	}
	for i := range room.Players {
		if room.Players[i].ID == playerID {
			return room, &room.Players[i], true
		}
	}
	return room, nil, false
}

func (s *Store) FindPlayer(room *Room, playerID int) (*Player, bool) {
	for i := range room.Players {
		if room.Players[i].ID == playerID {
			return &room.Players[i], true
		}
	}
	return nil, false
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
