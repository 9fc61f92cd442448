package server

import (
	"sync"

	"github.com/coder/websocket"
)

// ConnectionManager tracks live sockets and which room, if any, each
// connection currently belongs to. A connection owns at most one membership.
type ConnectionManager struct {
	connections map[string]*websocket.Conn // connectionID -> socket
	memberships map[string]string          // connectionID -> room code
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		memberships: make(map[string]string),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.connections, id)
	delete(cm.memberships, id)
}

// GetConnection returns the socket for a connection ID, nil if gone.
func (cm *ConnectionManager) GetConnection(id string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.connections[id]
}

// SetMembership records the room a connection joined.
func (cm *ConnectionManager) SetMembership(id, roomCode string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.memberships[id] = roomCode
}

// ClearMembership removes the room mapping and reports whether one existed.
func (cm *ConnectionManager) ClearMembership(id string) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	_, existed := cm.memberships[id]
	delete(cm.memberships, id)
	return existed
}

// GetMembership returns the room code a connection belongs to, "" if none.
func (cm *ConnectionManager) GetMembership(id string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.memberships[id]
}

// ConnectionIDs lists every live connection, for process-wide fanout.
func (cm *ConnectionManager) ConnectionIDs() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	ids := make([]string, 0, len(cm.connections))
	for id := range cm.connections {
		ids = append(ids, id)
	}
	return ids
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}
