package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBareServer() *Server {
	s, _ := New(testConfig())
	return s
}

func TestMemberIDsOf(t *testing.T) {
	snap := &RoomSnapshot{
		RoomID: "ABC123",
		Players: []Player{
			{ConnectionID: "conn-1"},
			{ConnectionID: "conn-2"},
		},
	}
	assert.Equal(t, []string{"conn-1", "conn-2"}, memberIDsOf(snap))
}

func TestBroadcastToRoomSkipsGoneConnections(t *testing.T) {
	s := newBareServer()

	// Why: a member can disconnect between snapshot and fanout; delivery to
	// the remaining IDs must not panic or block.
	s.broadcastToRoom([]string{"gone-1", "gone-2"}, "room_update", &RoomSnapshot{})
}

func TestBroadcastRoomsListWithNoConnections(t *testing.T) {
	s := newBareServer()
	s.broadcastRoomsList()
}

func TestSendToConnectionMissingIsNoop(t *testing.T) {
	s := newBareServer()
	s.sendToConnection("nope", ServerMessage{Type: "pong", Payload: struct{}{}})
}
