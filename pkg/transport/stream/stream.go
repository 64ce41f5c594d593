// Package stream implements the byte transport over an io.ReadWriter,
// typically a serial line or a TCP connection.
package stream

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/seaslug/helm.go/pkg/framework"
)

// Queue depths. Inbound is sized for a few worst-case frames between
// control ticks; outbound for one full tick's byte budget backlog.
const (
	DefaultInboundDepth  = 1024
	DefaultOutboundDepth = 64
)

// Link pumps bytes between an io.ReadWriter and the control loop's
// bounded queues. The control loop is the only consumer of the inbound
// queue and the only producer of the outbound one; the pump goroutines
// own the opposite ends.
type Link struct {
	rw  io.ReadWriter
	in  chan byte
	out chan []byte

	txErr int32
	rxErr int32
}

// New creates a link over rw with the default queue depths.
func New(rw io.ReadWriter) *Link {
	return &Link{
		rw:  rw,
		in:  make(chan byte, DefaultInboundDepth),
		out: make(chan []byte, DefaultOutboundDepth),
	}
}

// Enqueue queues b for transmission without blocking. A full outbound
// queue drops the frame and raises the transmit error flag.
func (l *Link) Enqueue(b []byte) bool {
	select {
	case l.out <- b:
		return true
	default:
		atomic.StoreInt32(&l.txErr, 1)
		return false
	}
}

// ReadByte pops one inbound byte without blocking.
func (l *Link) ReadByte() (byte, bool) {
	select {
	case b := <-l.in:
		return b, true
	default:
		return 0, false
	}
}

// Status reports the transmit and receive error flags. Flags clear on
// the next successful transfer in the respective direction.
func (l *Link) Status() (txErr, rxErr bool) {
	return atomic.LoadInt32(&l.txErr) != 0, atomic.LoadInt32(&l.rxErr) != 0
}

// Run pumps both directions until the context is canceled. A closable
// stream is closed on cancellation so the blocked read ends; a stdio
// pair cannot be unblocked and its reader is abandoned to process exit.
func (l *Link) Run(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.writeLoop(subCtx)

	if closer, ok := l.rw.(io.Closer); ok {
		return framework.RunWithContextCloser(ctx, closer, l.readLoop)
	}
	go l.readLoop()
	<-ctx.Done()
	return ctx.Err()
}

func (l *Link) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-l.out:
			if _, err := l.rw.Write(b); err != nil {
				atomic.StoreInt32(&l.txErr, 1)
				glog.Warningf("stream write: %v", err)
			} else {
				atomic.StoreInt32(&l.txErr, 0)
			}
		}
	}
}

// readLoop reads until the stream errors or closes.
func (l *Link) readLoop() error {
	buf := make([]byte, 256)
	for {
		n, err := l.rw.Read(buf)
		for _, b := range buf[:n] {
			select {
			case l.in <- b:
			default:
				// The control loop is not draining; drop and flag.
				atomic.StoreInt32(&l.rxErr, 1)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			atomic.StoreInt32(&l.rxErr, 1)
			glog.Warningf("stream read: %v", err)
			return err
		}
		if n > 0 {
			atomic.StoreInt32(&l.rxErr, 0)
		}
	}
}
