package websocket

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// Server accepts ground-station connections on a listen address and
// bridges the most recent one to a stable Transport. The control loop
// keeps a single Server for the life of the process while ground
// stations come and go.
type Server struct {
	addr string

	in  chan byte
	out chan []byte

	txErr int32
	rxErr int32

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewServer creates a Server listening on addr.
func NewServer(addr string) *Server {
	return &Server{
		addr: addr,
		in:   make(chan byte, inboundDepth),
		out:  make(chan []byte, outboundDepth),
	}
}

// Enqueue queues b for transmission without blocking. Frames queued
// while no ground station is attached are dropped by the writer.
func (s *Server) Enqueue(b []byte) bool {
	select {
	case s.out <- b:
		return true
	default:
		atomic.StoreInt32(&s.txErr, 1)
		return false
	}
}

// ReadByte pops one inbound byte without blocking.
func (s *Server) ReadByte() (byte, bool) {
	select {
	case b := <-s.in:
		return b, true
	default:
		return 0, false
	}
}

// Status reports the transmit and receive error flags.
func (s *Server) Status() (txErr, rxErr bool) {
	return atomic.LoadInt32(&s.txErr) != 0, atomic.LoadInt32(&s.rxErr) != 0
}

// Run serves until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/gcs", websocket.Server{Handler: websocket.Handler(s.serve)})
	srv := &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	glog.Infof("websocket transport listening on %s", s.addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return ctx.Err()
	}
	return err
}

// serve bridges one connection. A newer connection displaces the
// current one.
func (s *Server) serve(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.mu.Unlock()
	glog.Infof("ground station connected from %s", conn.Request().RemoteAddr)

	done := make(chan struct{})
	go s.writeLoop(conn, done)

	for {
		var msg []byte
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			break
		}
		atomic.StoreInt32(&s.rxErr, 0)
		for _, b := range msg {
			select {
			case s.in <- b:
			default:
				atomic.StoreInt32(&s.rxErr, 1)
			}
		}
	}
	close(done)

	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		atomic.StoreInt32(&s.rxErr, 1)
	}
	s.mu.Unlock()
	glog.Info("ground station disconnected")
}

func (s *Server) writeLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case b := <-s.out:
			if err := websocket.Message.Send(conn, b); err != nil {
				atomic.StoreInt32(&s.txErr, 1)
				return
			}
			atomic.StoreInt32(&s.txErr, 0)
		}
	}
}
