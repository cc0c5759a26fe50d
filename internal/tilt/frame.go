// Package tilt receives a hardware controller's two-axis orientation over a
// raw TCP stream of 4-byte frames and exposes the latest sample.
package tilt

import (
	"encoding/binary"
	"errors"
)

// FrameSize is the wire size of one sample: x and y as little-endian int16.
const FrameSize = 4

// DefaultThreshold is the per-axis dead zone used for steering.
const DefaultThreshold = 100

var (
	// ErrShortFrame marks a read that returned other than FrameSize bytes.
	// The frame is dropped and the connection kept.
	ErrShortFrame = errors.New("tilt: short frame")
	// ErrSocketFatal marks an accept or read failure that stops the reader.
	ErrSocketFatal = errors.New("tilt: socket failure")
)

// Sample is one orientation reading.
type Sample struct {
	X, Y int16
}

// Decode reads a frame laid out as [x_lo, x_hi, y_lo, y_hi].
func Decode(b [FrameSize]byte) Sample {
	return Sample{
		X: int16(binary.LittleEndian.Uint16(b[0:2])), //#nosec G115 -- two's complement reinterpretation
		Y: int16(binary.LittleEndian.Uint16(b[2:4])), //#nosec G115 -- two's complement reinterpretation
	}
}

// Encode is the inverse of Decode.
func Encode(s Sample) [FrameSize]byte {
	var b [FrameSize]byte
	binary.LittleEndian.PutUint16(b[0:2], uint16(s.X)) //#nosec G115 -- two's complement reinterpretation
	binary.LittleEndian.PutUint16(b[2:4], uint16(s.Y)) //#nosec G115 -- two's complement reinterpretation
	return b
}

func (s Sample) pack() uint32 {
	return uint32(uint16(s.X)) | uint32(uint16(s.Y))<<16 //#nosec G115 -- bit packing
}

func unpack(v uint32) Sample {
	return Sample{X: int16(uint16(v)), Y: int16(uint16(v >> 16))} //#nosec G115 -- bit packing
}

// Steer maps a sample to a movement direction per axis in {-1, 0, 1}.
// Only crossing the threshold matters, not the magnitude beyond it.
// The controller is mounted mirrored on x: negative tilt moves right.
func Steer(s Sample, threshold int) (dx, dy int) {
	x, y := int(s.X), int(s.Y)
	switch {
	case x < -threshold:
		dx = 1
	case x > threshold:
		dx = -1
	}
	switch {
	case y > threshold:
		dy = 1
	case y < -threshold:
		dy = -1
	}
	return dx, dy
}
