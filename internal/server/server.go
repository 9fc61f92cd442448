package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"ludo-server/internal/config"
)

type Server struct {
	cfg               *config.Config
	connectionManager *ConnectionManager
	roomManager       *RoomManager
	rateLimiter       *RateLimiter
	health            *ConnectionHealth

	done chan struct{}
}

// New wires the managers together and returns the coordinator plus a
// configured HTTP server. Room and game state is ephemeral: it lives and
// dies with the process.
func New(cfg *config.Config) (*Server, *http.Server) {
	s := &Server{
		cfg:               cfg,
		connectionManager: NewConnectionManager(),
		roomManager:       NewRoomManager(),
		rateLimiter:       NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow),
		health:            NewConnectionHealth(),
		done:              make(chan struct{}),
	}

	go s.reapIdleConnections()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPServerPort),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer
}

// reapIdleConnections periodically closes sockets that went silent past the
// configured timeout; the read loop then runs the normal disconnect cleanup.
func (s *Server) reapIdleConnections() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, connID := range s.health.InactiveConnections(s.cfg.ConnIdleTimeout) {
				if conn := s.connectionManager.GetConnection(connID); conn != nil {
					zap.L().Info("closing idle connection", zap.String("connection_id", connID))
					conn.Close(websocket.StatusPolicyViolation, "idle timeout")
				}
			}
			s.rateLimiter.Cleanup()
		case <-s.done:
			return
		}
	}
}

// Shutdown stops background tasks and closes every live connection so the
// HTTP server can drain. There is nothing to persist.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}

	for _, connID := range s.connectionManager.ConnectionIDs() {
		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}
		_ = s.sendMessage(conn, ctx, ServerMessage{
			Type:    "error",
			Payload: ErrorMessage{Message: "SERVER_SHUTDOWN: server is shutting down"},
		})
		conn.Close(websocket.StatusGoingAway, "Server shutting down")
	}
	return nil
}
