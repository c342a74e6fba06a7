package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) Add(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.groups[roomID] = group
	}
	group[conn] = struct{}{}
}

func (h *wsHub) Remove(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, roomID)
	}
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Broadcast(roomID string, payload any) {
	h.mu.Lock()
	group := h.groups[roomID]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(roomID, conn)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	room, exists := s.store.GetRoom(roomID)
	if !exists {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected room_id=%s remote=%s", roomID, r.RemoteAddr)
	s.ws.Add(roomID, conn)
	s.ws.Send(conn, map[string]any{
		"type": "room",
		"room": s.snapshot(room),
	})
	go s.readWS(roomID, conn)
}

func (s *Server) readWS(roomID string, conn *websocket.Conn) {
	defer s.ws.Remove(roomID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected room_id=%s error=%v", roomID, err)
			return
		}
	}
}

// publishChange fans a table-scoped change event out to the room's
// subscribers, followed by a refreshed snapshot so clients that only track
// the snapshot stay current too.
func (s *Server) publishChange(room *Room, change Change) {
	if s.ws == nil {
		return
	}
	s.ws.Broadcast(room.ID, map[string]any{
		"type":   "change",
		"table":  change.Table,
		"action": change.Action,
		"record": change.Record,
	})
	s.broadcastRoomUpdate(room)
}

func (s *Server) broadcastRoomUpdate(room *Room) {
	if s.ws == nil {
		return
	}
	s.ws.Broadcast(room.ID, map[string]any{
		"type": "room",
		"room": s.snapshot(room),
	})
}
