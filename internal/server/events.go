package server

// EventPayload is the JSON body stored on durable event rows and echoed on
// the websocket change feed.
type EventPayload struct {
	RoomID       string `json:"room_id,omitempty"`
	JoinCode     string `json:"join_code,omitempty"`
	PlayerName   string `json:"player,omitempty"`
	PlayerID     int    `json:"player_id,omitempty"`
	Round        int    `json:"round,omitempty"`
	Status       string `json:"status,omitempty"`
	Phase        string `json:"phase,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
	SubmissionID int    `json:"submission_id,omitempty"`
	RevealIndex  int    `json:"reveal_index,omitempty"`
	Count        int    `json:"count,omitempty"`
}

const (
	changeInsert = "insert"
	changeUpdate = "update"
	changeDelete = "delete"
)

const (
	tableRooms       = "rooms"
	tablePlayers     = "players"
	tablePrompts     = "prompts"
	tableSubmissions = "submissions"
	tableVotes       = "votes"
)

// Change is one entry on the per-room change feed, partitioned by table the
// way repository subscribers expect.
type Change struct {
	Table  string         `json:"table"`
	Action string         `json:"action"`
	Record map[string]any `json:"record,omitempty"`
}
