package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Fanout: snapshots are captured under the room lock by the caller; the
// socket writes here happen outside any lock.

func (s *Server) sendMessage(conn *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Type, err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(conn *websocket.Conn, ctx context.Context, message string) {
	err := s.sendMessage(conn, ctx, ServerMessage{
		Type:    "error",
		Payload: ErrorMessage{Message: message},
	})
	if err != nil {
		zap.L().Warn("send error message failed", zap.Error(err))
	}
}

// sendToConnection delivers one message to a connection by ID; a missing or
// failed connection is logged and otherwise ignored.
func (s *Server) sendToConnection(connID string, msg ServerMessage) {
	conn := s.connectionManager.GetConnection(connID)
	if conn == nil {
		return
	}
	if err := s.sendMessage(conn, context.Background(), msg); err != nil {
		zap.L().Debug("broadcast delivery failed",
			zap.String("connection_id", connID),
			zap.String("type", msg.Type),
			zap.Error(err))
	}
}

// broadcastToRoom delivers a message to every listed room member.
func (s *Server) broadcastToRoom(memberIDs []string, msgType string, payload interface{}) {
	msg := ServerMessage{Type: msgType, Payload: payload}
	for _, id := range memberIDs {
		s.sendToConnection(id, msg)
	}
}

// broadcastRoomUpdate pushes the post-mutation room snapshot to its members.
func (s *Server) broadcastRoomUpdate(room *Room) {
	snap := room.Snapshot()
	s.broadcastToRoom(memberIDsOf(snap), "room_update", snap)
}

// broadcastRoomsList refreshes the lobby directory on every connection.
func (s *Server) broadcastRoomsList() {
	msg := ServerMessage{Type: "rooms_list", Payload: s.roomManager.Directory()}
	for _, id := range s.connectionManager.ConnectionIDs() {
		s.sendToConnection(id, msg)
	}
}

func memberIDsOf(snap *RoomSnapshot) []string {
	ids := make([]string, len(snap.Players))
	for i, p := range snap.Players {
		ids[i] = p.ConnectionID
	}
	return ids
}
