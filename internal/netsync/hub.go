package netsync

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Hub maintains the set of active connections and routes their messages
// through a single goroutine.
type Hub struct {
	logger *log.Logger

	mu    sync.RWMutex
	conns map[*Conn]bool

	register chan *Conn
	leave    chan *Conn
	incoming chan *ClientMessage
	done     chan struct{}

	// OnMessage is called for each incoming client message.
	OnMessage func(cm *ClientMessage)
	// OnDisconnect is called when a client disconnects.
	OnDisconnect func(conn *Conn)
}

// NewHub creates a new Hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger:   logger,
		conns:    make(map[*Conn]bool),
		register: make(chan *Conn),
		leave:    make(chan *Conn),
		incoming: make(chan *ClientMessage, 256),
		done:     make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled and closes
// every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn] = true
			h.mu.Unlock()
			h.logger.Info("client connected", "session", conn.ID())

		case conn := <-h.leave:
			h.mu.Lock()
			_, ok := h.conns[conn]
			delete(h.conns, conn)
			h.mu.Unlock()
			if !ok {
				continue
			}
			conn.close()
			h.logger.Info("client disconnected", "session", conn.ID())
			if h.OnDisconnect != nil {
				h.OnDisconnect(conn)
			}

		case cm := <-h.incoming:
			if h.OnMessage != nil {
				h.OnMessage(cm)
			}

		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.conns {
				conn.close()
			}
			clear(h.conns)
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a connection. It reports false once the hub has stopped.
func (h *Hub) Register(conn *Conn) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(conn *Conn) {
	select {
	case h.leave <- conn:
	case <-h.done:
		conn.close()
	}
}

func (h *Hub) deliver(cm *ClientMessage) bool {
	select {
	case h.incoming <- cm:
		return true
	case <-h.done:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
