package http

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// RecoverMiddleware converts a panic in the wrapped handler into a 500
// response. The server's session loop has its own recover; this one
// exists for callers who want recovery scoped to a single route.
func RecoverMiddleware() Middleware {
	logger := otelslog.NewLogger(scope)

	return func(next Handler) Handler {
		return func(req *Request, res *Response) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic",
						"method", req.MethodRaw, "path", req.Path, "panic", r)
					res.Status = StatusInternalServerError
					res.Reason = ""
					res.Headers["Content-Type"] = "text/plain"
					res.Body = []byte("Internal Server Error")
				}
			}()

			next(req, res)
		}
	}
}

// RequestIDMiddleware tags every response with an X-Request-Id,
// reusing the client's when present and minting a UUID otherwise.
func RequestIDMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(req *Request, res *Response) {
			id := req.Header("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
				req.Headers["x-request-id"] = id
			}
			res.Headers["X-Request-Id"] = id

			next(req, res)
		}
	}
}

// LoggingMiddleware emits one structured line per handled request.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = otelslog.NewLogger(scope)
	}

	return func(next Handler) Handler {
		return func(req *Request, res *Response) {
			start := time.Now()
			next(req, res)
			logger.Info("handled",
				"method", req.MethodRaw,
				"path", req.Path,
				"status", res.Status,
				"duration", time.Since(start))
		}
	}
}
