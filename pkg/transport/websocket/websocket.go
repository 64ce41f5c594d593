// Package websocket implements the byte transport over a websocket
// connection, used by browser-based ground stations.
package websocket

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/seaslug/helm.go/pkg/framework"
)

// Queue depths, matching the stream transport.
const (
	inboundDepth  = 4096
	outboundDepth = 64
)

// Link pumps frame bytes over a websocket connection. Each outbound
// frame is one binary websocket message.
type Link struct {
	conn *websocket.Conn

	in  chan byte
	out chan []byte

	txErr int32
	rxErr int32
}

// New wraps an established connection.
func New(conn *websocket.Conn) *Link {
	return &Link{
		conn: conn,
		in:   make(chan byte, inboundDepth),
		out:  make(chan []byte, outboundDepth),
	}
}

// Enqueue queues b for transmission without blocking.
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

// Status reports the transmit and receive error flags.
func (l *Link) Status() (txErr, rxErr bool) {
	return atomic.LoadInt32(&l.txErr) != 0, atomic.LoadInt32(&l.rxErr) != 0
}

// Run pumps both directions until the context is canceled or the
// connection drops. Cancellation closes the connection to unblock the
// receive.
func (l *Link) Run(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.writeLoop(subCtx)

	return framework.RunWithContextCloser(ctx, l.conn, l.readLoop)
}

func (l *Link) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-l.out:
			if err := websocket.Message.Send(l.conn, b); err != nil {
				atomic.StoreInt32(&l.txErr, 1)
				glog.Warningf("websocket send: %v", err)
			} else {
				atomic.StoreInt32(&l.txErr, 0)
			}
		}
	}
}

// readLoop receives until the connection errors or closes.
func (l *Link) readLoop() error {
	for {
		var msg []byte
		if err := websocket.Message.Receive(l.conn, &msg); err != nil {
			atomic.StoreInt32(&l.rxErr, 1)
			glog.Warningf("websocket receive: %v", err)
			return err
		}
		atomic.StoreInt32(&l.rxErr, 0)
		for _, b := range msg {
			select {
			case l.in <- b:
			default:
				atomic.StoreInt32(&l.rxErr, 1)
			}
		}
	}
}
