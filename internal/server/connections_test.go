package server_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ludo-server/internal/server"
)

func TestConnectionManagerAddAndCount(t *testing.T) {
	assert := assert.New(t)
	cm := server.NewConnectionManager()

	assert.Equal(0, cm.Count())

	cm.AddConnection("conn-1", nil)
	cm.AddConnection("conn-2", nil)

	assert.Equal(2, cm.Count())
	assert.ElementsMatch([]string{"conn-1", "conn-2"}, cm.ConnectionIDs())
}

func TestConnectionManagerMembership(t *testing.T) {
	assert := assert.New(t)
	cm := server.NewConnectionManager()
	cm.AddConnection("conn-1", nil)

	assert.Equal("", cm.GetMembership("conn-1"))

	cm.SetMembership("conn-1", "ABC123")
	assert.Equal("ABC123", cm.GetMembership("conn-1"))

	// Why: leave handling uses the return value to stay idempotent when a
	// client sends leave_room and then disconnects.
	assert.True(cm.ClearMembership("conn-1"))
	assert.False(cm.ClearMembership("conn-1"))
	assert.Equal("", cm.GetMembership("conn-1"))
}

func TestConnectionManagerRemoveClearsMembership(t *testing.T) {
	assert := assert.New(t)
	cm := server.NewConnectionManager()
	cm.AddConnection("conn-1", nil)
	cm.SetMembership("conn-1", "ABC123")

	cm.RemoveConnection("conn-1")

	assert.Equal(0, cm.Count())
	assert.Equal("", cm.GetMembership("conn-1"))
	assert.Nil(cm.GetConnection("conn-1"))
}

func TestConnectionManagerGetUnknownConnection(t *testing.T) {
	cm := server.NewConnectionManager()
	assert.Nil(t, cm.GetConnection("nope"))
}
