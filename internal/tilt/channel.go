package tilt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// State is the channel lifecycle.
type State int32

const (
	StateIdle      State = iota // not started
	StateListening              // waiting for the single client
	StateConnected              // reading frames
	StateFrozen                 // reader stopped after a socket failure; last sample kept
	StateClosed                 // shut down
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	case StateFrozen:
		return "frozen"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Channel listens on one port, accepts exactly one client and keeps the
// last decoded sample. Sample never blocks.
type Channel struct {
	addr   string
	logger *log.Logger

	sample  atomic.Uint32
	state   atomic.Int32
	frames  atomic.Uint64
	dropped atomic.Uint64

	mu      sync.Mutex
	ln      net.Listener
	conn    net.Conn
	cancel  context.CancelFunc
	err     error
	closeMu sync.Once
}

// New creates an idle channel for addr. A nil logger discards output.
func New(addr string, logger *log.Logger) *Channel {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Channel{addr: addr, logger: logger}
}

// Start binds the listening socket and launches the reader. Binding errors
// are returned; later failures freeze the channel instead. Cancelling ctx
// closes the channel.
func (c *Channel) Start(ctx context.Context) error {
	if c.State() != StateIdle {
		return fmt.Errorf("tilt: channel %s already started", c.addr)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("%w: listen %s: %w", ErrSocketFatal, c.addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.ln = ln
	c.cancel = cancel
	c.mu.Unlock()
	c.state.Store(int32(StateListening))

	c.logger.Info("tilt channel listening", "addr", ln.Addr().String())

	go c.run(ctx, ln)
	go func() {
		<-ctx.Done()
		c.Close()
	}()
	return nil
}

func (c *Channel) run(ctx context.Context, ln net.Listener) {
	conn, err := ln.Accept()
	if err != nil {
		c.fail(ctx, "accept", err)
		return
	}

	c.mu.Lock()
	if c.State() == StateClosed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state.Store(int32(StateConnected))
	c.mu.Unlock()

	c.logger.Info("tilt client connected", "addr", c.addr, "remote", conn.RemoteAddr().String())

	var buf [FrameSize]byte
	for {
		n, err := conn.Read(buf[:])
		if err != nil {
			c.fail(ctx, "read", err)
			return
		}
		if n != FrameSize {
			c.dropped.Add(1)
			c.logger.Warn("dropping tilt frame", "addr", c.addr, "bytes", n, "error", ErrShortFrame)
			continue
		}
		c.sample.Store(Decode(buf).pack())
		c.frames.Add(1)
	}
}

// fail freezes the channel unless it is being shut down.
func (c *Channel) fail(ctx context.Context, op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateClosed || ctx.Err() != nil {
		return
	}
	c.err = fmt.Errorf("%w: %s %s: %w", ErrSocketFatal, op, c.addr, err)
	c.state.Store(int32(StateFrozen))
	if errors.Is(err, io.EOF) {
		c.logger.Warn("tilt client disconnected, input frozen", "addr", c.addr)
		return
	}
	c.logger.Error("tilt reader stopped, input frozen", "addr", c.addr, "error", err)
}

// Sample returns the last received sample, or zero before the first frame.
func (c *Channel) Sample() Sample {
	return unpack(c.sample.Load())
}

// State returns the lifecycle state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

// Err returns the failure that froze the channel, if any.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Frames returns the number of decoded frames.
func (c *Channel) Frames() uint64 { return c.frames.Load() }

// Dropped returns the number of discarded short frames.
func (c *Channel) Dropped() uint64 { return c.dropped.Load() }

// Addr returns the bound address once started, else the configured one.
func (c *Channel) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ln != nil {
		return c.ln.Addr().String()
	}
	return c.addr
}

// Close closes both sockets and signals the reader. It does not wait for
// the reader to exit.
func (c *Channel) Close() error {
	var errs []error
	c.closeMu.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.state.Store(int32(StateClosed))
		if c.cancel != nil {
			c.cancel()
		}
		if c.conn != nil {
			errs = append(errs, c.conn.Close())
		}
		if c.ln != nil {
			errs = append(errs, c.ln.Close())
		}
	})
	return errors.Join(errs...)
}
