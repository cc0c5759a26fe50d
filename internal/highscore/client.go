package highscore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// Client talks to a score server. Every call opens a fresh connection.
type Client struct {
	addr    string
	timeout time.Duration
}

// NewClient creates a client. timeout bounds dialing and the exchange.
func NewClient(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{addr: addr, timeout: timeout}
}

// Addr returns the server address.
func (c *Client) Addr() string { return c.addr }

// ReportHighscore sends SET_HIGHSCORE and returns the reply line.
func (c *Client) ReportHighscore(ctx context.Context, user string, deaths int) (string, error) {
	return c.roundTrip(ctx, SetLine(user, deaths))
}

// GetHighscore sends GET_HIGHSCORE and parses the stored value.
func (c *Client) GetHighscore(ctx context.Context, user string) (int, error) {
	reply, err := c.roundTrip(ctx, GetLine(user))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(reply)
	if err != nil {
		return 0, fmt.Errorf("highscore: unexpected reply %q", reply)
	}
	return n, nil
}

func (c *Client) roundTrip(ctx context.Context, line string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return "", fmt.Errorf("highscore: dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := io.WriteString(conn, line+"\n"); err != nil {
		return "", fmt.Errorf("highscore: send: %w", err)
	}

	// The server may close without a trailing newline.
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && reply != "") {
		return "", fmt.Errorf("highscore: read reply: %w", err)
	}
	return strings.TrimRight(reply, "\r\n"), nil
}
