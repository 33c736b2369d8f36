// Package http implements an HTTP/1.1 layer on top of the tcp
// package: a request parser over raw byte buffers, a pattern router
// with path captures, a response serializer and a keep-alive session
// loop. Chunked transfer-encoding and anything newer than HTTP/1.1
// are out of scope.
package http

// Handler processes one parsed request and fills in the response. A
// handler never owns the connection and never does its own framing.
type Handler func(req *Request, res *Response)

// Middleware wraps a Handler. Applied inside-out at registration
// time.
type Middleware func(next Handler) Handler

// Method is the parsed request method. Unrecognized tokens map to
// MethodUnknown rather than being rejected; the raw token is kept on
// the request.
type Method uint8

const (
	MethodUnknown Method = iota
	MethodGet
	MethodPost
	MethodPut
	MethodDelete
	MethodPatch
	MethodOptions
	MethodHead
)

// ParseMethod maps an upper-cased method token to its Method.
func ParseMethod(s string) Method {
	switch s {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "PUT":
		return MethodPut
	case "DELETE":
		return MethodDelete
	case "PATCH":
		return MethodPatch
	case "OPTIONS":
		return MethodOptions
	case "HEAD":
		return MethodHead
	}
	return MethodUnknown
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	case MethodPatch:
		return "PATCH"
	case MethodOptions:
		return "OPTIONS"
	case MethodHead:
		return "HEAD"
	}
	return "UNKNOWN"
}
