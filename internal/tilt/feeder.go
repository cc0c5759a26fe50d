package tilt

import (
	"context"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
)

// Feeder is the sending side of the wire protocol: it connects to a
// channel and writes raw frames.
type Feeder struct {
	conn net.Conn
}

// Dial connects to a listening channel.
func Dial(ctx context.Context, addr string) (*Feeder, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tilt: dial %s: %w", addr, err)
	}
	return &Feeder{conn: conn}, nil
}

// Send writes one frame.
func (f *Feeder) Send(s Sample) error {
	b := Encode(s)
	if _, err := f.conn.Write(b[:]); err != nil {
		return fmt.Errorf("tilt: send: %w", err)
	}
	return nil
}

// Close closes the connection.
func (f *Feeder) Close() error {
	return f.conn.Close()
}

// ParseReading extracts a sample from an accelerometer console line such
// as "Accelerometer Data: X=3, Y=-14, Z=238 - raw". Values outside the
// int16 range are clamped.
func ParseReading(line string) (Sample, error) {
	line, _, _ = strings.Cut(line, " - ")
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return Sample{}, fmt.Errorf("tilt: reading %q: expected X and Y", line)
	}
	x, err := readingValue(parts[0])
	if err != nil {
		return Sample{}, err
	}
	y, err := readingValue(parts[1])
	if err != nil {
		return Sample{}, err
	}
	return Sample{X: x, Y: y}, nil
}

func readingValue(field string) (int16, error) {
	_, v, ok := strings.Cut(field, "=")
	if !ok {
		return 0, fmt.Errorf("tilt: reading field %q: missing '='", strings.TrimSpace(field))
	}
	v = strings.TrimSpace(v)
	if i := strings.IndexAny(v, " \t"); i >= 0 {
		v = v[:i]
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("tilt: reading field %q: %w", strings.TrimSpace(field), err)
	}
	return int16(min(max(n, math.MinInt16), math.MaxInt16)), nil //#nosec G115 -- clamped above
}
