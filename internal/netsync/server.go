package netsync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/tiltmaze/internal/multiplayer"
)

// Coordinator receives the messages a connection produces.
// *multiplayer.Coordinator implements it.
type Coordinator interface {
	Send(msg multiplayer.CoordinatorMessage)
}

var _ Coordinator = (*multiplayer.Coordinator)(nil)

// Server bridges websocket connections to the barrier coordinator.
type Server struct {
	hub      *Hub
	coord    Coordinator
	sessions *multiplayer.SessionRegistry
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a server. Connections are registered in sessions so the
// coordinator can address them. A nil logger discards output.
func NewServer(coord Coordinator, sessions *multiplayer.SessionRegistry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		hub:      NewHub(logger),
		coord:    coord,
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.hub.OnMessage = s.handleMessage
	s.hub.OnDisconnect = s.handleDisconnect
	return s
}

// Hub returns the connection hub.
func (s *Server) Hub() *Hub { return s.hub }

// Run drives the hub until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.hub.Run(ctx)
}

// Handler returns the HTTP routes: /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe runs the hub and an HTTP server on addr until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("sync server shutdown", "error", err)
		}
	}()

	s.logger.Info("sync server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	conn := NewConn(multiplayer.SessionID(uuid.NewString()), s.hub, ws, s.logger)
	s.sessions.Register(conn)
	if !s.hub.Register(conn) {
		s.sessions.Unregister(conn.ID())
		ws.Close()
		return
	}

	go conn.WritePump()
	go conn.ReadPump()
}

func (s *Server) handleMessage(cm *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(cm.Data, &msg); err != nil {
		cm.Conn.SendMessage(NewErrorMessage("invalid message format"))
		return
	}

	switch msg.Type {
	case TypeJoinGroup:
		var p JoinGroupPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.GroupID == "" {
			cm.Conn.SendMessage(NewErrorMessage("invalid join_group payload"))
			return
		}
		cm.Conn.setPlayerID(p.PlayerID)
		s.logger.Debug("join group", "session", cm.Conn.ID(), "player", p.PlayerID, "group", p.GroupID)
		s.coord.Send(multiplayer.JoinGroupMsg{SessionID: cm.Conn.ID(), Group: multiplayer.GroupID(p.GroupID)})

	case TypeLevelComplete:
		var p LevelCompletePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			cm.Conn.SendMessage(NewErrorMessage("invalid level_complete payload"))
			return
		}
		s.coord.Send(multiplayer.LevelCompleteMsg{SessionID: cm.Conn.ID(), Level: p.Level})

	default:
		cm.Conn.SendMessage(NewErrorMessage("unknown message type: " + msg.Type))
	}
}

func (s *Server) handleDisconnect(conn *Conn) {
	s.sessions.Unregister(conn.ID())
	s.coord.Send(multiplayer.SessionDisconnectedMsg{SessionID: conn.ID()})
}
