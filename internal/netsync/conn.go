package netsync

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/tiltmaze/internal/multiplayer"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Conn is one server-side websocket connection. It implements
// multiplayer.SessionHandle so the coordinator can address it directly.
type Conn struct {
	id     multiplayer.SessionID
	hub    *Hub
	ws     *websocket.Conn
	logger *log.Logger
	send   chan []byte

	done     chan struct{}
	doneOnce sync.Once

	mu       sync.Mutex
	playerID string
}

var _ multiplayer.SessionHandle = (*Conn)(nil)

// NewConn wraps an upgraded websocket.
func NewConn(id multiplayer.SessionID, hub *Hub, ws *websocket.Conn, logger *log.Logger) *Conn {
	return &Conn{
		id:     id,
		hub:    hub,
		ws:     ws,
		logger: logger,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier.
func (c *Conn) ID() multiplayer.SessionID { return c.id }

// Done closes when the connection is gone.
func (c *Conn) Done() <-chan struct{} { return c.done }

// PlayerID returns the name the client joined with.
func (c *Conn) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

func (c *Conn) setPlayerID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
}

// Send encodes a coordinator event and queues it without blocking.
func (c *Conn) Send(evt multiplayer.SessionEvent) {
	msg, err := encodeEvent(c.PlayerID(), evt)
	if err != nil {
		c.logger.Error("cannot encode event", "session", c.id, "error", err)
		return
	}
	c.SendMessage(msg)
}

// SendMessage queues a Message for this connection.
func (c *Conn) SendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal message", "error", err)
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("client send buffer full, dropping message", "session", c.id)
	}
}

func (c *Conn) close() {
	c.doneOnce.Do(func() { close(c.done) })
}

// ReadPump pumps messages from the websocket to the hub.
func (c *Conn) ReadPump() {
	defer func() {
		c.hub.unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "session", c.id, "error", err)
			}
			return
		}
		if !c.hub.deliver(&ClientMessage{Conn: c, Data: message}) {
			return
		}
	}
}

// WritePump pumps queued messages to the websocket and keeps it alive.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// ClientMessage wraps a raw message with its source connection.
type ClientMessage struct {
	Conn *Conn
	Data []byte
}
