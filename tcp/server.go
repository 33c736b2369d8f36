// Package tcp provides a minimal threaded TCP accept layer: a
// connection wrapper with blocking I/O, a bounded worker pool and an
// acceptor that sheds load at admission when the pool is saturated.
package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scope = "github.com/puzawa/webgo/tcp"

// ConnectionHandler runs one accepted connection to completion on a
// pool worker. The acceptor closes the connection when it returns.
type ConnectionHandler func(*Conn)

// Server owns the listening socket and the accept loop.
type Server struct {
	bindAddr string
	port     uint16
	handler  ConnectionHandler
	pool     *WorkerPool

	running  atomic.Bool
	listener net.Listener
	acceptWG sync.WaitGroup

	logger   *slog.Logger
	accepted metric.Int64Counter
	dropped  metric.Int64Counter
}

// NewServer builds a server that will hand each accepted connection to
// a pool of workerCount workers behind a queue bounded at maxQueue.
// Nothing is bound until Start.
func NewServer(bindAddr string, port uint16, handler ConnectionHandler, workerCount, maxQueue int) *Server {
	s := &Server{
		bindAddr: bindAddr,
		port:     port,
		handler:  handler,
		pool:     NewWorkerPool(workerCount, maxQueue),
		logger:   otelslog.NewLogger(scope),
	}

	meter := otel.Meter(scope)
	s.accepted, _ = meter.Int64Counter("tcp.connections.accepted",
		metric.WithDescription("Connections accepted by the listener"))
	s.dropped, _ = meter.Int64Counter("tcp.connections.dropped",
		metric.WithDescription("Connections closed at admission because the worker queue was full"))

	return s
}

// Start binds the listener and spawns the accept goroutine. A second
// call while running is a no-op. Bind or listen failure is returned to
// the caller; there is no retry.
func (s *Server) Start() error {
	if s.running.Swap(true) {
		return nil
	}

	listener, err := listen(s.bindAddr, s.port)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("tcp: listen on %s port %d: %w", s.bindAddr, s.port, err)
	}
	s.listener = listener

	s.acceptWG.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener, joins the accept goroutine and stops the
// pool so in-flight sessions drain. Idempotent.
func (s *Server) Stop() {
	if !s.running.Swap(false) {
		return
	}

	if s.listener != nil {
		s.listener.Close()
	}
	s.acceptWG.Wait()
	s.pool.Stop()
}

func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// Addr reports the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// listen prefers a dual-stack IPv6 socket. A wildcard or empty address
// binds all interfaces (the runtime disables IPV6_V6ONLY there, so
// IPv4-mapped peers work too); a specific address tries IPv6 first and
// falls back to plain IPv4.
func listen(addr string, port uint16) (net.Listener, error) {
	portStr := strconv.Itoa(int(port))

	if addr == "" || addr == "::" || addr == "0.0.0.0" {
		return net.Listen("tcp", net.JoinHostPort("", portStr))
	}

	listener, err := net.Listen("tcp6", net.JoinHostPort(addr, portStr))
	if err == nil {
		return listener, nil
	}
	return net.Listen("tcp4", net.JoinHostPort(addr, portStr))
}

func (s *Server) acceptLoop() {
	defer s.acceptWG.Done()

	ctx := context.Background()

	for s.running.Load() {
		sock, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			continue
		}

		conn := NewConn(sock)
		s.accepted.Add(ctx, 1)

		ok := s.pool.TryEnqueue(func() {
			defer conn.Close()
			s.handler(conn)
		})
		if !ok {
			// Admission drop: no queue space, the peer is cut loose
			// before any handler runs.
			conn.Close()
			s.dropped.Add(ctx, 1)
			s.logger.Debug("connection dropped at admission",
				"remote", conn.RemoteAddress(), "port", conn.RemotePort())
		}
	}
}
