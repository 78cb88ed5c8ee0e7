// Package transport provides the duplex byte channel the serial link runs on.
package transport

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// ReadChunkSize is the most a single ReadAvailable call returns.
const ReadChunkSize = 1024

var (
	ErrShortWrite = errors.New("transport: short write")
	ErrClosed     = errors.New("transport: channel closed")
)

// Channel is a byte-oriented duplex link. ReadAvailable returns whatever
// arrived since the last call and may return an empty slice; it does not wait
// for data beyond the port's read timeout.
type Channel interface {
	ReadAvailable() ([]byte, error)
	Write(p []byte) error
	Close() error
}

// Port is the minimal interface needed from a serial port.
type Port interface {
	io.ReadWriteCloser
}

// TimeoutPort is implemented by ports that support a read timeout.
type TimeoutPort interface {
	Port
	SetReadTimeout(timeout time.Duration) error
}

// PortChannel adapts a Port to a Channel.
type PortChannel struct {
	port   Port
	buf    []byte
	closed bool
}

// NewPortChannel wraps port. When the port supports it, the read timeout is
// set so reads return promptly with no data.
func NewPortChannel(port Port, readTimeout time.Duration) (*PortChannel, error) {
	if tp, ok := port.(TimeoutPort); ok && readTimeout > 0 {
		if err := tp.SetReadTimeout(readTimeout); err != nil {
			return nil, fmt.Errorf("failed to set read timeout: %w", err)
		}
	}
	return &PortChannel{
		port: port,
		buf:  make([]byte, ReadChunkSize),
	}, nil
}

// ReadAvailable returns a copy of the bytes read by one port read.
func (c *PortChannel) ReadAvailable() ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	n, err := c.port.Read(c.buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, c.buf[:n])
		return out, nil
	}
	// A VMIN=0 termios read reports a timeout as EOF.
	if err == nil || errors.Is(err, io.EOF) {
		return nil, nil
	}
	return nil, err
}

func (c *PortChannel) Write(p []byte) error {
	if c.closed {
		return ErrClosed
	}
	n, err := c.port.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return ErrShortWrite
	}
	return nil
}

func (c *PortChannel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.port.Close()
}
