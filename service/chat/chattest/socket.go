// Package chattest provides an in-memory chat.Socket for tests.
package chattest

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var ErrWriteFailed = errors.New("chattest: write failed")

// Socket records every text frame written to it. It satisfies chat.Socket.
type Socket struct {
	frames chan []byte

	mu        sync.Mutex
	closed    bool
	closeSent bool
	pings     int
	failWrite bool
	block     chan struct{}
}

func NewSocket() *Socket {
	return &Socket{frames: make(chan []byte, 1024)}
}

// FailWrites makes every following WriteMessage return ErrWriteFailed.
func (s *Socket) FailWrites() {
	s.mu.Lock()
	s.failWrite = true
	s.mu.Unlock()
}

// Block makes WriteMessage hang until Unblock or Close, like a stalled peer.
func (s *Socket) Block() {
	s.mu.Lock()
	if s.block == nil {
		s.block = make(chan struct{})
	}
	s.mu.Unlock()
}

func (s *Socket) Unblock() {
	s.mu.Lock()
	if s.block != nil {
		close(s.block)
		s.block = nil
	}
	s.mu.Unlock()
}

func (s *Socket) WriteMessage(mt int, data []byte) error {
	s.mu.Lock()
	fail, block, closed := s.failWrite, s.block, s.closed
	s.mu.Unlock()
	if closed {
		return websocket.ErrCloseSent
	}
	if fail {
		return ErrWriteFailed
	}
	if block != nil {
		<-block
	}
	if mt != websocket.TextMessage {
		return nil
	}
	cp := append([]byte(nil), data...)
	select {
	case s.frames <- cp:
		return nil
	default:
		return errors.New("chattest: frame buffer full")
	}
}

func (s *Socket) WriteControl(mt int, _ []byte, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch mt {
	case websocket.CloseMessage:
		s.closeSent = true
	case websocket.PingMessage:
		s.pings++
	}
	return nil
}

func (s *Socket) SetWriteDeadline(time.Time) error { return nil }

func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		if s.block != nil {
			close(s.block)
			s.block = nil
		}
	}
	return nil
}

func (s *Socket) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Socket) Pings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

// Next waits up to timeout for the next frame and decodes it.
func (s *Socket) Next(t testing.TB, timeout time.Duration) map[string]any {
	t.Helper()
	select {
	case raw := <-s.frames:
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("chattest: frame is not JSON: %q", raw)
		}
		return m
	case <-time.After(timeout):
		t.Fatalf("chattest: no frame within %s", timeout)
		return nil
	}
}

// NextRaw is Next without decoding.
func (s *Socket) NextRaw(t testing.TB, timeout time.Duration) []byte {
	t.Helper()
	select {
	case raw := <-s.frames:
		return raw
	case <-time.After(timeout):
		t.Fatalf("chattest: no frame within %s", timeout)
		return nil
	}
}

// ExpectNone fails if a frame arrives within wait.
func (s *Socket) ExpectNone(t testing.TB, wait time.Duration) {
	t.Helper()
	select {
	case raw := <-s.frames:
		t.Fatalf("chattest: unexpected frame %s", raw)
	case <-time.After(wait):
	}
}

// Frames collects frames until none arrives for wait.
func (s *Socket) Frames(t testing.TB, wait time.Duration) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case raw := <-s.frames:
			var m map[string]any
			if err := json.Unmarshal(raw, &m); err != nil {
				t.Fatalf("chattest: frame is not JSON: %q", raw)
			}
			out = append(out, m)
		case <-time.After(wait):
			return out
		}
	}
}
