package server

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"ludo-server/internal/ludo"
)

var (
	ErrRoomNotFound     = errors.New("ROOM_NOT_FOUND: room not found")
	ErrRoomFull         = errors.New("ROOM_FULL: room already has 4 players")
	ErrNotHost          = errors.New("NOT_HOST: only the host can start the game")
	ErrNotEnoughPlayers = errors.New("NOT_ENOUGH_PLAYERS: need at least 2 players to start")
	ErrPlayersNotReady  = errors.New("PLAYERS_NOT_READY: all players must be ready")
	ErrNotInRoom        = errors.New("NOT_IN_ROOM: no active room membership")
	ErrGameNotStarted   = errors.New("GAME_NOT_STARTED: game has not started")
)

const maxDisplayNameLen = 20

type Player struct {
	ConnectionID string `json:"id"`
	Name         string `json:"name"`
	ColorIndex   int    `json:"colorIndex"`
	Ready        bool   `json:"ready"`
	AvatarRef    string `json:"avatar,omitempty"`
	Muted        bool   `json:"muted"`
}

// Room is one lobby+game session. Every read-modify cycle on its players or
// game state runs under mu, so requests for a room apply in arrival order
// while distinct rooms stay independent.
type Room struct {
	code      string
	players   []*Player // insertion order = join order
	hostID    string
	game      *ludo.GameState
	seats     []string // connection ID per board index, frozen at game start
	seatNames []string // display name per board index, frozen at game start
	nextColor int
	destroyed bool
	mu        sync.Mutex
}

// RoomSnapshot is the room view broadcast as room_update.
type RoomSnapshot struct {
	RoomID  string   `json:"roomId"`
	Players []Player `json:"players"`
	HostID  string   `json:"hostId"`
}

// RoomSummary is one entry of the process-wide rooms_list directory.
type RoomSummary struct {
	RoomID      string `json:"roomId"`
	PlayerCount int    `json:"playerCount"`
}

// RoomManager owns the room table. It is injected into the server; there is
// no package-level store.
type RoomManager struct {
	rooms     map[string]*Room
	usedCodes map[string]bool
	mu        sync.RWMutex

	gameOpts []ludo.Option // deterministic dice in tests
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:     make(map[string]*Room),
		usedCodes: make(map[string]bool),
	}
}

// CreateRoom allocates a fresh code and seats the requester as host with
// color index 0. It cannot fail.
func (rm *RoomManager) CreateRoom(connID, name, avatarRef string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	code := GenerateRoomCode(rm.usedCodes)
	rm.usedCodes[code] = true

	room := &Room{
		code:   code,
		hostID: connID,
		players: []*Player{{
			ConnectionID: connID,
			Name:         cleanDisplayName(name),
			ColorIndex:   0,
			AvatarRef:    avatarRef,
		}},
		nextColor: 1,
	}
	rm.rooms[code] = room
	return room
}

func (rm *RoomManager) GetRoom(code string) (*Room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, exists := rm.rooms[code]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// JoinRoom appends a player with the next unused color index. Color indices
// are never reused while the room lives, so an exhausted index space rejects
// the join even if seats freed up.
func (rm *RoomManager) JoinRoom(code, connID, name, avatarRef string) (*Room, error) {
	room, err := rm.GetRoom(NormalizeRoomCode(code))
	if err != nil {
		return nil, err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	// The lookup above ran without the room lock, so the last member may
	// have left in between and taken the room with them.
	if room.destroyed {
		return nil, ErrRoomNotFound
	}
	if len(room.players) >= ludo.MaxPlayers || room.nextColor >= ludo.MaxPlayers {
		return nil, ErrRoomFull
	}
	room.players = append(room.players, &Player{
		ConnectionID: connID,
		Name:         cleanDisplayName(name),
		ColorIndex:   room.nextColor,
		AvatarRef:    avatarRef,
	})
	room.nextColor++
	return room, nil
}

// Leave removes the connection from the room. An empty room is destroyed
// (its code stays burned); a departing host promotes the first remaining
// player. Returns the post-removal snapshot, nil when the room is gone.
func (rm *RoomManager) Leave(code, connID string) (*RoomSnapshot, bool, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, exists := rm.rooms[code]
	if !exists {
		return nil, false, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	idx := -1
	for i, p := range room.players {
		if p.ConnectionID == connID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, false, ErrNotInRoom
	}
	room.players = append(room.players[:idx], room.players[idx+1:]...)

	if len(room.players) == 0 {
		room.destroyed = true
		delete(rm.rooms, code)
		return nil, true, nil
	}
	if room.hostID == connID {
		room.hostID = room.players[0].ConnectionID
	}
	return room.snapshotLocked(), false, nil
}

// RoomCount reports the number of live rooms.
func (rm *RoomManager) RoomCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// Directory lists every live room with its player count, sorted by code so
// repeated broadcasts are stable.
func (rm *RoomManager) Directory() []RoomSummary {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	out := make([]RoomSummary, 0, len(rm.rooms))
	for code, room := range rm.rooms {
		out = append(out, RoomSummary{RoomID: code, PlayerCount: room.PlayerCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

func (r *Room) Code() string { return r.code }

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// ToggleReady flips the player's ready flag and returns the new value.
func (r *Room) ToggleReady(connID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findLocked(connID)
	if p == nil {
		return false, ErrNotInRoom
	}
	p.Ready = !p.Ready
	return p.Ready, nil
}

func (r *Room) SetMuted(connID string, muted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findLocked(connID)
	if p == nil {
		return ErrNotInRoom
	}
	p.Muted = muted
	return nil
}

func (r *Room) SetAvatar(connID, avatarRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findLocked(connID)
	if p == nil {
		return ErrNotInRoom
	}
	p.AvatarRef = avatarRef
	return nil
}

// PlayerName returns the display name for a connection, "Unknown" when the
// connection is not seated.
func (r *Room) PlayerName(connID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p := r.findLocked(connID); p != nil {
		return p.Name
	}
	return "Unknown"
}

// StartGame freezes the current player order into the board seat table and
// creates the authoritative game state. Host only, at least two players,
// everyone ready.
func (r *Room) StartGame(connID string, opts ...ludo.Option) (*ludo.GameState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hostID != connID {
		return nil, ErrNotHost
	}
	if len(r.players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	for _, p := range r.players {
		if !p.Ready {
			return nil, ErrPlayersNotReady
		}
	}

	r.seats = make([]string, len(r.players))
	r.seatNames = make([]string, len(r.players))
	for i, p := range r.players {
		r.seats[i] = p.ConnectionID
		r.seatNames[i] = p.Name
	}
	r.game = ludo.NewGame(len(r.players), opts...)
	return r.game.Clone(), nil
}

// Roll draws the die for the given seat. The requester must own the seat;
// an impostor gets the same NOT_YOUR_TURN as an out-of-turn request.
func (r *Room) Roll(connID string, playerIndex int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil {
		return 0, ErrGameNotStarted
	}
	if !r.ownsSeatLocked(connID, playerIndex) {
		return 0, ludo.ErrNotYourTurn
	}
	return r.game.Roll(playerIndex)
}

// Move applies one move and returns the result plus a state snapshot for
// broadcasting outside the lock.
func (r *Room) Move(connID string, playerIndex, tokenIndex int) (*ludo.MoveResult, *ludo.GameState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil {
		return nil, nil, ErrGameNotStarted
	}
	if !r.ownsSeatLocked(connID, playerIndex) {
		return nil, nil, ludo.ErrNotYourTurn
	}
	res, err := r.game.Move(playerIndex, tokenIndex)
	if err != nil {
		return nil, nil, err
	}
	return res, r.game.Clone(), nil
}

// Snapshot copies the membership view for broadcasting.
func (r *Room) Snapshot() *RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// SeatNames returns the display names frozen at game start, nil before it.
func (r *Room) SeatNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seatNames...)
}

// MemberIDs lists the connection IDs currently seated, for room fanout.
func (r *Room) MemberIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ConnectionID
	}
	return ids
}

func (r *Room) snapshotLocked() *RoomSnapshot {
	snap := &RoomSnapshot{
		RoomID:  r.code,
		Players: make([]Player, len(r.players)),
		HostID:  r.hostID,
	}
	for i, p := range r.players {
		snap.Players[i] = *p
	}
	return snap
}

func (r *Room) findLocked(connID string) *Player {
	for _, p := range r.players {
		if p.ConnectionID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) ownsSeatLocked(connID string, idx int) bool {
	return idx >= 0 && idx < len(r.seats) && r.seats[idx] == connID
}

func cleanDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Player"
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLen {
		runes := []rune(name)
		name = string(runes[:maxDisplayNameLen])
	}
	return name
}
