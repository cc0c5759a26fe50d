package netsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// DefaultWaitTimeout bounds ReportLevelCompletion. It exceeds the server's
// own barrier timeout plus one cleanup period.
const DefaultWaitTimeout = 20 * time.Second

var (
	// ErrNotConnected is returned once the connection has been lost.
	ErrNotConnected = errors.New("netsync: not connected")
	// ErrWaitTimeout is returned when no level_result arrives in time.
	ErrWaitTimeout = errors.New("netsync: timed out waiting for peers")
)

// ClientOptions configures Dial.
type ClientOptions struct {
	PlayerID    string
	Group       string
	WaitTimeout time.Duration
	Logger      *log.Logger
}

// Client is the game's side of the barrier: it joins a group once and then
// reports completed levels, blocking until the server releases it.
type Client struct {
	ws          *websocket.Conn
	logger      *log.Logger
	playerID    string
	group       string
	waitTimeout time.Duration

	connected    atomic.Bool
	currentLevel atomic.Int64

	writeMu sync.Mutex
	report  sync.Mutex // one ReportLevelCompletion at a time

	mu      sync.Mutex
	pending *pendingReport
	joined  chan GroupJoinedPayload

	closed    chan struct{}
	closeOnce sync.Once
	err       error
}

type pendingReport struct {
	level  int
	result chan LevelResultPayload
	failed chan string
}

// Dial connects to url, joins opts.Group and waits for the confirmation.
func Dial(ctx context.Context, url string, opts ClientOptions) (*Client, error) {
	if opts.Group == "" {
		return nil, errors.New("netsync: group is required")
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultWaitTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("netsync: dial %s: %w", url, err)
	}

	c := &Client{
		ws:          ws,
		logger:      opts.Logger,
		playerID:    opts.PlayerID,
		group:       opts.Group,
		waitTimeout: opts.WaitTimeout,
		joined:      make(chan GroupJoinedPayload, 1),
		closed:      make(chan struct{}),
	}
	c.connected.Store(true)
	ws.SetReadLimit(maxMessageSize)
	go c.readLoop()

	if err := c.write(TypeJoinGroup, JoinGroupPayload{PlayerID: opts.PlayerID, GroupID: opts.Group}); err != nil {
		c.Close()
		return nil, err
	}

	select {
	case j := <-c.joined:
		c.currentLevel.Store(int64(j.CurrentLevel))
		c.logger.Info("joined sync group", "group", j.GroupID, "members", j.Members, "level", j.CurrentLevel)
		return c, nil
	case <-c.closed:
		return nil, c.closeErr()
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}
}

// IsConnected reports whether the connection is still up.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Group returns the joined group.
func (c *Client) Group() string { return c.group }

// CurrentLevel returns the group's level as last reported by the server.
func (c *Client) CurrentLevel() int {
	return int(c.currentLevel.Load())
}

// ReportLevelCompletion tells the server this player finished level and
// waits for the barrier. It returns true only when every member of the
// group completed the level.
func (c *Client) ReportLevelCompletion(ctx context.Context, level int) (bool, error) {
	if !c.IsConnected() {
		return false, ErrNotConnected
	}
	c.report.Lock()
	defer c.report.Unlock()

	p := &pendingReport{
		level:  level,
		result: make(chan LevelResultPayload, 1),
		failed: make(chan string, 1),
	}
	c.mu.Lock()
	c.pending = p
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
	}()

	if err := c.write(TypeLevelComplete, LevelCompletePayload{Level: level}); err != nil {
		return false, err
	}

	timer := time.NewTimer(c.waitTimeout)
	defer timer.Stop()

	select {
	case r := <-p.result:
		c.currentLevel.Store(int64(r.CurrentLevel))
		c.logger.Debug("level result", "level", r.Level, "all_completed", r.AllCompleted, "reason", r.Reason)
		return r.AllCompleted, nil
	case reason := <-p.failed:
		return false, fmt.Errorf("netsync: server rejected level %d: %s", level, reason)
	case <-timer.C:
		return false, ErrWaitTimeout
	case <-c.closed:
		return false, c.closeErr()
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	c.shutdown(ErrNotConnected)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		c.connected.Store(false)
		close(c.closed)
	})
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) write(msgType string, payload any) error {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.shutdown(fmt.Errorf("%w: %w", ErrNotConnected, err))
		return fmt.Errorf("netsync: write %s: %w", msgType, err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer c.ws.Close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				c.logger.Warn("sync connection lost", "error", err)
			}
			c.shutdown(fmt.Errorf("%w: %w", ErrNotConnected, err))
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("invalid sync message", "error", err)
		return
	}

	switch msg.Type {
	case TypeGroupJoined:
		var p GroupJoinedPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return
		}
		select {
		case c.joined <- p:
		default:
		}

	case TypeLevelWaiting:
		var p LevelWaitingPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return
		}
		c.logger.Info("waiting for other players", "level", p.Level, "completed", p.Completed, "members", p.Members)

	case TypeLevelResult:
		var p LevelResultPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return
		}
		c.mu.Lock()
		pending := c.pending
		c.mu.Unlock()
		if pending == nil || pending.level != p.Level {
			c.logger.Debug("ignoring stale level result", "level", p.Level)
			return
		}
		select {
		case pending.result <- p:
		default:
		}

	case TypeError:
		var p ErrorMessage
		_ = json.Unmarshal(msg.Data, &p)
		c.logger.Warn("sync server error", "message", p.Message)
		c.mu.Lock()
		pending := c.pending
		c.mu.Unlock()
		if pending != nil {
			select {
			case pending.failed <- p.Message:
			default:
			}
		}

	default:
		c.logger.Debug("unknown sync message", "type", msg.Type)
	}
}
