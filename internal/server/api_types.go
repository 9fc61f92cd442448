package server

import "encoding/json"

// ============================================================================
// ERROR RESPONSES
// ============================================================================
type ErrorMessage struct {
	Message string `json:"message"`
}

// ============================================================================
// CONNECT (welcome, sent once per connection)
// ============================================================================
type WelcomeMessage struct {
	ConnectionID string `json:"connectionId"`
}

// ============================================================================
// CREATE ROOM (create_room)
// ============================================================================
type CreateRoomRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type CreateRoomResponse struct {
	RoomID  string   `json:"roomId"`
	Players []Player `json:"players"`
	HostID  string   `json:"hostId"`
}

// ============================================================================
// JOIN ROOM (join_room)
// ============================================================================
type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type JoinRoomResponse struct {
	Players []Player `json:"players"`
	HostID  string   `json:"hostId"`
}

// ============================================================================
// LOBBY ATTRIBUTES (toggle_ready, set_muted, upload_avatar)
// ============================================================================
type ReadyToggledResponse struct {
	Ready bool `json:"ready"`
}

type SetMutedRequest struct {
	Muted bool `json:"muted"`
}

type UploadAvatarRequest struct {
	Avatar string `json:"avatar"`
}

type UploadAvatarResponse struct {
	OK bool `json:"ok"`
}

// ============================================================================
// CHAT (send_chat request, chat broadcast)
// ============================================================================
type ChatRequest struct {
	Text string `json:"text"`
}

type ChatMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

// ============================================================================
// GAME (request_roll, request_move, game_action broadcasts)
// ============================================================================
type RollRequest struct {
	PlayerIndex int `json:"playerIndex"`
}

type RollResponse struct {
	Value int `json:"value"`
}

type MoveRequest struct {
	PlayerIndex int `json:"playerIndex"`
	TokenIndex  int `json:"tokenIndex"`
}

type MoveResponse struct {
	OK bool `json:"ok"`
}

// RollAction and MoveAction are the discriminated game_action payloads.
type RollAction struct {
	Type   string `json:"type"` // always "roll"
	Player int    `json:"player"`
	Value  int    `json:"value"`
}

type MoveAction struct {
	Type     string `json:"type"` // always "move"
	Player   int    `json:"player"`
	Token    int    `json:"token"`
	FromPos  int    `json:"fromPos"` // -1 when entering from home
	ToPos    int    `json:"toPos"`
	ToStatus string `json:"toStatus"`
}

// ============================================================================
// SIGNALING RELAY (webrtc_offer / webrtc_answer / webrtc_ice)
// ============================================================================
type SignalEnvelope struct {
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

type SignalRelay struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}
