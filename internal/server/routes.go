package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := json.Marshal(map[string]interface{}{
		"status":      "up",
		"rooms":       s.roomManager.RoomCount(),
		"connections": s.connectionManager.Count(),
	})
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		zap.L().Warn("health response write failed", zap.Error(err))
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.OriginPatterns,
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	zap.L().Info("connection opened", zap.String("connection_id", connectionID))
	s.connectionManager.AddConnection(connectionID, socket)
	s.health.UpdateActivity(connectionID)

	defer func() {
		// Disconnect runs the same cleanup as an explicit leave, exactly
		// once; a prior leave_room already cleared the membership.
		s.leaveCurrentRoom(connectionID)
		s.connectionManager.RemoveConnection(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		s.health.RemoveConnection(connectionID)
		zap.L().Info("connection closed", zap.String("connection_id", connectionID))
	}()

	// The client needs its own connection ID to be addressable by peers,
	// and the current directory to browse open rooms.
	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    "welcome",
		Payload: WelcomeMessage{ConnectionID: connectionID},
	}); err != nil {
		return
	}
	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    "rooms_list",
		Payload: s.roomManager.Directory(),
	}); err != nil {
		return
	}

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			zap.L().Debug("connection read ended",
				zap.String("connection_id", connectionID), zap.Error(err))
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		s.health.UpdateActivity(connectionID)

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, "RATE_LIMIT_EXCEEDED: too many requests")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(socket, ctx, "Invalid JSON")
			continue
		}

		zap.L().Debug("message received",
			zap.String("connection_id", connectionID),
			zap.String("type", msg.Type))

		switch msg.Type {
		case "ping":
			s.handlePing(socket, ctx)

		case "create_room":
			s.handleCreateRoom(socket, ctx, connectionID, msg.Payload)

		case "join_room":
			s.handleJoinRoom(socket, ctx, connectionID, msg.Payload)

		case "toggle_ready":
			s.handleToggleReady(socket, ctx, connectionID)

		case "set_muted":
			s.handleSetMuted(socket, ctx, connectionID, msg.Payload)

		case "upload_avatar":
			s.handleUploadAvatar(socket, ctx, connectionID, msg.Payload)

		case "send_chat":
			s.handleSendChat(connectionID, msg.Payload)

		case "start_game":
			s.handleStartGame(socket, ctx, connectionID)

		case "request_roll":
			s.handleRequestRoll(socket, ctx, connectionID, msg.Payload)

		case "request_move":
			s.handleRequestMove(socket, ctx, connectionID, msg.Payload)

		case "leave_room":
			s.handleLeaveRoom(socket, ctx, connectionID)

		case "webrtc_offer", "webrtc_answer", "webrtc_ice":
			s.handleSignal(connectionID, msg.Type, msg.Payload)

		default:
			s.sendError(socket, ctx, fmt.Sprintf("Unknown message type: %s", msg.Type))
		}
	}
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context) {
	if err := s.sendMessage(socket, ctx, ServerMessage{Type: "pong", Payload: struct{}{}}); err != nil {
		zap.L().Debug("pong send failed", zap.Error(err))
	}
}

func (s *Server) handleCreateRoom(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req CreateRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid create_room payload")
		return
	}

	// A connection owns at most one membership; creating a new room
	// implicitly leaves the old one.
	s.leaveCurrentRoom(connectionID)

	room := s.roomManager.CreateRoom(connectionID, req.Name, req.Avatar)
	s.connectionManager.SetMembership(connectionID, room.Code())

	snap := room.Snapshot()
	err := s.sendMessage(socket, ctx, ServerMessage{
		Type: "room_created",
		Payload: CreateRoomResponse{
			RoomID:  snap.RoomID,
			Players: snap.Players,
			HostID:  snap.HostID,
		},
	})
	if err != nil {
		zap.L().Warn("room_created send failed", zap.Error(err))
		return
	}

	s.broadcastToRoom(memberIDsOf(snap), "room_update", snap)
	s.broadcastRoomsList()
	zap.L().Info("room created",
		zap.String("room", snap.RoomID),
		zap.String("connection_id", connectionID))
}

func (s *Server) handleJoinRoom(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req JoinRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid join_room payload")
		return
	}

	s.leaveCurrentRoom(connectionID)

	room, err := s.roomManager.JoinRoom(req.RoomID, connectionID, req.Name, req.Avatar)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
	s.connectionManager.SetMembership(connectionID, room.Code())

	snap := room.Snapshot()
	err = s.sendMessage(socket, ctx, ServerMessage{
		Type: "room_joined",
		Payload: JoinRoomResponse{
			Players: snap.Players,
			HostID:  snap.HostID,
		},
	})
	if err != nil {
		zap.L().Warn("room_joined send failed", zap.Error(err))
		return
	}

	s.broadcastToRoom(memberIDsOf(snap), "room_update", snap)
	s.broadcastRoomsList()
}

func (s *Server) handleToggleReady(socket *websocket.Conn, ctx context.Context, connectionID string) {
	room, err := s.roomForConnection(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	ready, err := room.ToggleReady(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    "ready_toggled",
		Payload: ReadyToggledResponse{Ready: ready},
	}); err != nil {
		zap.L().Warn("ready_toggled send failed", zap.Error(err))
	}
	s.broadcastRoomUpdate(room)
}

func (s *Server) handleSetMuted(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req SetMutedRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid set_muted payload")
		return
	}

	room, err := s.roomForConnection(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
	if err := room.SetMuted(connectionID, req.Muted); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
	s.broadcastRoomUpdate(room)
}

func (s *Server) handleUploadAvatar(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req UploadAvatarRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid upload_avatar payload")
		return
	}

	room, err := s.roomForConnection(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
	if err := room.SetAvatar(connectionID, req.Avatar); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    "avatar_uploaded",
		Payload: UploadAvatarResponse{OK: true},
	}); err != nil {
		zap.L().Warn("avatar_uploaded send failed", zap.Error(err))
	}
	s.broadcastRoomUpdate(room)
}

func (s *Server) handleSendChat(connectionID string, payload json.RawMessage) {
	var req ChatRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}

	room, err := s.roomForConnection(connectionID)
	if err != nil {
		return
	}

	s.broadcastToRoom(room.MemberIDs(), "chat", ChatMessage{
		From: room.PlayerName(connectionID),
		Text: req.Text,
		Ts:   time.Now().UnixMilli(),
	})
}

func (s *Server) handleStartGame(socket *websocket.Conn, ctx context.Context, connectionID string) {
	room, err := s.roomForConnection(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	state, err := room.StartGame(connectionID, s.roomManager.gameOpts...)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.broadcastToRoom(room.MemberIDs(), "game_started", state)
	zap.L().Info("game started",
		zap.String("room", room.Code()),
		zap.Int("players", len(state.Players)))
}

func (s *Server) handleRequestRoll(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req RollRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid request_roll payload")
		return
	}

	room, err := s.roomForConnection(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	value, err := room.Roll(connectionID, req.PlayerIndex)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.broadcastToRoom(room.MemberIDs(), "game_action", RollAction{
		Type:   "roll",
		Player: req.PlayerIndex,
		Value:  value,
	})
	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    "roll_result",
		Payload: RollResponse{Value: value},
	}); err != nil {
		zap.L().Warn("roll_result send failed", zap.Error(err))
	}
}

func (s *Server) handleRequestMove(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req MoveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid request_move payload")
		return
	}

	room, err := s.roomForConnection(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	res, state, err := room.Move(connectionID, req.PlayerIndex, req.TokenIndex)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	members := room.MemberIDs()
	s.broadcastToRoom(members, "game_action", MoveAction{
		Type:     "move",
		Player:   res.PlayerIndex,
		Token:    res.TokenIndex,
		FromPos:  res.FromPos,
		ToPos:    res.ToPos,
		ToStatus: string(res.Status),
	})

	if len(res.Captures) > 0 {
		seatNames := room.SeatNames()
		for _, c := range res.Captures {
			s.broadcastToRoom(members, "chat", ChatMessage{
				From: "Server",
				Text: fmt.Sprintf("%s captured %s's token %d",
					seatNames[res.PlayerIndex], seatNames[c.PlayerIndex], c.TokenIndex+1),
				Ts: time.Now().UnixMilli(),
			})
		}
	}

	s.broadcastToRoom(members, "game_state", state)

	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    "move_result",
		Payload: MoveResponse{OK: true},
	}); err != nil {
		zap.L().Warn("move_result send failed", zap.Error(err))
	}
}

func (s *Server) handleLeaveRoom(socket *websocket.Conn, ctx context.Context, connectionID string) {
	s.leaveCurrentRoom(connectionID)
	if err := s.sendMessage(socket, ctx, ServerMessage{Type: "left_room", Payload: struct{}{}}); err != nil {
		zap.L().Debug("left_room send failed", zap.Error(err))
	}
}

// handleSignal forwards a session-negotiation envelope to the addressed
// connection. Store-free and connection-addressed: no room check, no retry;
// a dead recipient drops the message silently.
func (s *Server) handleSignal(connectionID, msgType string, payload json.RawMessage) {
	var env SignalEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return
	}

	conn := s.connectionManager.GetConnection(env.To)
	if conn == nil {
		zap.L().Debug("signal target gone",
			zap.String("from", connectionID),
			zap.String("to", env.To),
			zap.String("type", msgType))
		return
	}

	err := s.sendMessage(conn, context.Background(), ServerMessage{
		Type:    msgType,
		Payload: SignalRelay{From: connectionID, Payload: env.Payload},
	})
	if err != nil {
		zap.L().Debug("signal relay failed", zap.Error(err))
	}
}

// roomForConnection resolves a connection's current room via the registry.
func (s *Server) roomForConnection(connectionID string) (*Room, error) {
	code := s.connectionManager.GetMembership(connectionID)
	if code == "" {
		return nil, ErrNotInRoom
	}
	return s.roomManager.GetRoom(code)
}

// leaveCurrentRoom removes the connection from its room, if any, then
// broadcasts the post-mutation room state and the refreshed directory.
// Idempotent: with no membership it is a no-op.
func (s *Server) leaveCurrentRoom(connectionID string) {
	code := s.connectionManager.GetMembership(connectionID)
	if code == "" {
		return
	}
	if !s.connectionManager.ClearMembership(connectionID) {
		return
	}

	snap, destroyed, err := s.roomManager.Leave(code, connectionID)
	if err != nil {
		zap.L().Warn("leave failed",
			zap.String("room", code),
			zap.String("connection_id", connectionID),
			zap.Error(err))
		return
	}

	if !destroyed && snap != nil {
		s.broadcastToRoom(memberIDsOf(snap), "room_update", snap)
	}
	s.broadcastRoomsList()
	zap.L().Info("left room",
		zap.String("room", code),
		zap.String("connection_id", connectionID),
		zap.Bool("destroyed", destroyed))
}
