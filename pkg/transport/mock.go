package transport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// TestablePort implements TimeoutPort with scripted reads and captured
// writes. Reads never block: an empty read buffer returns (0, nil), the same
// as a real port whose read timeout expired.
type TestablePort struct {
	mu sync.Mutex

	chunks [][]byte
	writes bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by every Write call while set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	Closed      bool
	ReadCalls   int
	WriteCalls  int
	ReadTimeout time.Duration
}

func NewTestablePort() *TestablePort {
	return &TestablePort{}
}

// AddReadChunk queues data that a single Read call will return.
func (t *TestablePort) AddReadChunk(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chunks = append(t.chunks, append([]byte(nil), data...))
}

func (t *TestablePort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++
	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}
	if len(t.chunks) == 0 {
		return 0, nil
	}

	n := copy(p, t.chunks[0])
	if n < len(t.chunks[0]) {
		t.chunks[0] = t.chunks[0][n:]
	} else {
		t.chunks = t.chunks[1:]
	}
	return n, nil
}

func (t *TestablePort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++
	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.WriteError != nil {
		return 0, t.WriteError
	}
	return t.writes.Write(p)
}

func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return t.CloseError
}

func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadTimeout = timeout
	return nil
}

// Written returns everything written to the port so far.
func (t *TestablePort) Written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes.String()
}

// SetWriteError sets or clears the error returned by Write.
func (t *TestablePort) SetWriteError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.WriteError = err
}
