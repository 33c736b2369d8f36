package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/puzawa/webgo/tcp"
)

const scope = "github.com/puzawa/webgo/http"

const (
	DefaultMaxHeaderSize = 64 * 1024        // 64 KiB
	DefaultMaxBodySize   = 10 * 1024 * 1024 // 10 MiB
	DefaultMaxQueueSize  = 1024
	DefaultSocketTimeout = 10 * time.Second

	readChunkSize = 4096
)

// Config is the full tuning surface of the server. Zero values fall
// back to the defaults above at construction time.
type Config struct {
	BindAddress string // empty binds all interfaces, IPv6 preferred
	Port        uint16

	ThreadCount  int // worker pool size
	MaxQueueSize int // pending connections before admission drops

	MaxHeaderSize int // cap on buffered bytes before a full header block
	MaxBodySize   int // cap on declared Content-Length

	SocketTimeout time.Duration // idle read/write timeout per connection

	EnableCORS       bool
	CORSAllowOrigin  string
	CORSAllowMethods string
	CORSAllowHeaders string
}

func DefaultConfig() Config {
	return Config{
		Port:             8080,
		ThreadCount:      runtime.NumCPU(),
		MaxQueueSize:     DefaultMaxQueueSize,
		MaxHeaderSize:    DefaultMaxHeaderSize,
		MaxBodySize:      DefaultMaxBodySize,
		SocketTimeout:    DefaultSocketTimeout,
		CORSAllowOrigin:  "*",
		CORSAllowMethods: "GET, POST, PUT, DELETE, OPTIONS, PATCH",
		CORSAllowHeaders: "Content-Type, Authorization",
	}
}

// Server composes the tcp acceptor, the request parser and the router
// into a keep-alive session loop.
type Server struct {
	config Config
	router *Router
	tcp    *tcp.Server

	logger   *slog.Logger
	tracer   trace.Tracer
	requests metric.Int64Counter
	panics   metric.Int64Counter
}

func NewServer(config Config) *Server {
	defaults := DefaultConfig()
	if config.ThreadCount < 1 {
		config.ThreadCount = defaults.ThreadCount
	}
	if config.MaxQueueSize < 1 {
		config.MaxQueueSize = defaults.MaxQueueSize
	}
	if config.MaxHeaderSize <= 0 {
		config.MaxHeaderSize = defaults.MaxHeaderSize
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = defaults.MaxBodySize
	}
	if config.CORSAllowOrigin == "" {
		config.CORSAllowOrigin = defaults.CORSAllowOrigin
	}
	if config.CORSAllowMethods == "" {
		config.CORSAllowMethods = defaults.CORSAllowMethods
	}
	if config.CORSAllowHeaders == "" {
		config.CORSAllowHeaders = defaults.CORSAllowHeaders
	}

	s := &Server{
		config: config,
		router: NewRouter(),
		logger: otelslog.NewLogger(scope),
		tracer: otel.Tracer(scope),
	}
	s.tcp = tcp.NewServer(config.BindAddress, config.Port, s.handleConnection,
		config.ThreadCount, config.MaxQueueSize)

	meter := otel.Meter(scope)
	s.requests, _ = meter.Int64Counter("http.server.requests",
		metric.WithDescription("Requests served, by status code"))
	s.panics, _ = meter.Int64Counter("http.server.handler_panics",
		metric.WithDescription("Handler panics converted to 500 responses"))

	return s
}

// Router exposes the route table for registration before Start.
func (s *Server) Router() *Router {
	return s.router
}

// Handle registers a route; sugar mirroring the Router's surface.
func (s *Server) Handle(method, pattern string, handler Handler, middleware ...Middleware) {
	s.router.Handle(method, pattern, handler, middleware...)
}

func (s *Server) Start() error {
	return s.tcp.Start()
}

func (s *Server) Stop() {
	s.tcp.Stop()
}

func (s *Server) IsRunning() bool {
	return s.tcp.IsRunning()
}

// Addr reports the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.tcp.Addr()
}

// Config returns the effective configuration.
func (s *Server) Config() Config {
	return s.config
}

// handleConnection runs one session: an iterative request loop over a
// single connection that ends on close, timeout, a framing fault or a
// negative keep-alive decision.
func (s *Server) handleConnection(conn *tcp.Conn) {
	if s.config.SocketTimeout > 0 {
		conn.SetTimeout(s.config.SocketTimeout)
	}

	buffer := make([]byte, 0, 8192)
	temp := make([]byte, readChunkSize)

	for {
		var req Request
		headerLen := 0

		// Accumulate bytes until a full header block is framed.
		for {
			if len(buffer) > s.config.MaxHeaderSize {
				s.sendError(conn, StatusRequestHeaderFieldsTooLarge, "Request headers too large")
				return
			}

			n, err := req.Parse(buffer)
			if err == nil {
				headerLen = n
				break
			}
			if !errors.Is(err, ErrIncomplete) {
				s.sendError(conn, StatusBadRequest, "Bad Request")
				return
			}

			read := conn.Receive(temp)
			if read == 0 {
				return // peer is done, or idle timeout fired
			}
			buffer = append(buffer, temp[:read]...)
		}

		if te, ok := req.Headers["transfer-encoding"]; ok &&
			strings.Contains(strings.ToLower(te), "chunked") {
			s.sendError(conn, StatusNotImplemented, "Chunked transfer encoding not supported")
			return
		}

		contentLength := 0
		if v, ok := req.Headers["content-length"]; ok {
			parsed, err := strconv.ParseUint(v, 10, 63)
			if err != nil {
				s.sendError(conn, StatusBadRequest, "Invalid Content-Length")
				return
			}
			if parsed > uint64(s.config.MaxBodySize) {
				s.sendError(conn, StatusRequestEntityTooLarge, "Payload Too Large")
				return
			}
			contentLength = int(parsed)
		}

		// Body bytes may already sit in the buffer past the header
		// block; read the rest straight off the socket.
		if contentLength > 0 {
			alreadyHave := len(buffer) - headerLen
			if alreadyHave >= contentLength {
				req.Body = append([]byte(nil), buffer[headerLen:headerLen+contentLength]...)
			} else {
				body := append([]byte(nil), buffer[headerLen:]...)
				for len(body) < contentLength {
					want := contentLength - len(body)
					if want > len(temp) {
						want = len(temp)
					}
					read := conn.Receive(temp[:want])
					if read == 0 {
						break
					}
					body = append(body, temp[:read]...)
				}
				if len(body) < contentLength {
					s.sendError(conn, StatusBadRequest, "Incomplete request body")
					return
				}
				req.Body = body
			}
		}

		// HTTP/1.0 closes unless asked to stay open; 1.1 and above
		// stay open unless asked to close.
		connHeader := strings.ToLower(req.Header("Connection"))
		var keepAlive bool
		if strings.EqualFold(req.Proto, "HTTP/1.0") {
			keepAlive = connHeader == "keep-alive"
		} else {
			keepAlive = connHeader != "close"
		}

		res := NewResponse()

		if s.config.EnableCORS {
			res.Headers["Access-Control-Allow-Origin"] = s.config.CORSAllowOrigin
			res.Headers["Access-Control-Allow-Methods"] = s.config.CORSAllowMethods
			res.Headers["Access-Control-Allow-Headers"] = s.config.CORSAllowHeaders
		}

		start := time.Now()
		if req.Method == MethodOptions {
			// CORS preflight convenience; never reaches the router.
			res.Status = StatusNoContent
			res.Reason = ""
			res.Body = nil
		} else {
			s.dispatch(&req, res)
		}

		if keepAlive {
			res.Headers["Connection"] = "keep-alive"
		} else {
			res.Headers["Connection"] = "close"
		}

		conn.Send(res.Bytes())

		s.requests.Add(context.Background(), 1,
			metric.WithAttributes(attribute.Int("http.response.status_code", res.Status)))
		s.logger.Info("request",
			"method", req.MethodRaw,
			"path", req.Path,
			"status", res.Status,
			"duration", time.Since(start),
			"remote", conn.RemoteAddress())

		// Drop the consumed request, keep any pipelined leftover.
		consumed := headerLen + contentLength
		if len(buffer) > consumed {
			rest := copy(buffer, buffer[consumed:])
			buffer = buffer[:rest]
		} else {
			buffer = buffer[:0]
		}

		if !keepAlive {
			return
		}
	}
}

// dispatch routes one request, converting a handler panic into a 500
// so no failure escapes the session loop.
func (s *Server) dispatch(req *Request, res *Response) {
	ctx, span := s.tracer.Start(context.Background(), req.MethodRaw+" "+req.Path,
		trace.WithAttributes(
			attribute.String("http.request.method", req.MethodRaw),
			attribute.String("url.path", req.Path),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(ctx, 1)
			s.logger.Error("handler panic",
				"method", req.MethodRaw, "path", req.Path, "panic", r)
			res.Status = StatusInternalServerError
			res.Reason = ""
			res.Headers["Content-Type"] = "text/plain"
			res.Body = []byte("Internal Server Error")
			span.SetAttributes(attribute.Int("http.response.status_code", res.Status))
		}
	}()

	s.router.Route(req, res)
	span.SetAttributes(attribute.Int("http.response.status_code", res.Status))
}

// sendError answers a framing fault and implies the end of the
// session; the caller returns right after.
func (s *Server) sendError(conn *tcp.Conn, status int, body string) {
	res := NewResponse()
	res.Status = status
	res.Reason = ""
	res.Headers["Content-Type"] = "text/plain"
	res.Body = []byte(body)
	conn.Send(res.Bytes())

	s.requests.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Int("http.response.status_code", status)))
	s.logger.Warn("session ended", "status", status, "reason", body,
		"remote", conn.RemoteAddress())
}
