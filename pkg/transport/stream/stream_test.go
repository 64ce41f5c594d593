package stream

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStream is one end of a serial line: reads block on an io.Pipe fed
// by the test, writes are recorded, Close tears the read side down.
type fakeStream struct {
	r *io.PipeReader

	mu      sync.Mutex
	written []byte
	closes  int
}

func (s *fakeStream) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *fakeStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, p...)
	return len(p), nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.r.Close()
}

func (s *fakeStream) snapshot() ([]byte, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written...), s.closes
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunPumpsBothDirections(t *testing.T) {
	pr, pw := io.Pipe()
	fs := &fakeStream{r: pr}
	l := New(fs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	go pw.Write([]byte{0xBD, 1, 2})
	var got []byte
	waitFor(t, func() bool {
		if b, ok := l.ReadByte(); ok {
			got = append(got, b)
		}
		return len(got) == 3
	})
	require.Equal(t, []byte{0xBD, 1, 2}, got)

	require.True(t, l.Enqueue([]byte("ping")))
	waitFor(t, func() bool {
		w, _ := fs.snapshot()
		return string(w) == "ping"
	})

	txErr, rxErr := l.Status()
	require.False(t, txErr)
	require.False(t, rxErr)

	// Cancellation closes the stream to unblock the pinned read.
	cancel()
	require.Equal(t, context.Canceled, <-done)
	_, closes := fs.snapshot()
	require.Equal(t, 1, closes)
}
