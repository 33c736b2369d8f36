package http

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrIncomplete reports that the buffer does not yet contain a full
// header block. The caller should read more bytes and retry; it is not
// a protocol violation.
var ErrIncomplete = errors.New("http: incomplete request")

var headerSeparator = []byte("\r\n\r\n")

// Request is one parsed HTTP request. Header keys are stored
// lower-cased; PathParams is populated by the router, not the parser.
type Request struct {
	Method     Method
	MethodRaw  string
	Path       string
	RawQuery   string
	Query      QueryParams
	Proto      string
	Headers    map[string]string
	PathParams map[string]string
	Body       []byte
}

// Parse frames one request out of buf. It returns the byte length of
// the header block (through the blank line) on success, ErrIncomplete
// when the blank line has not arrived yet, and a hard error for a
// malformed request line. The body is not consumed here; the caller
// assembles it from the remaining bytes.
func (req *Request) Parse(buf []byte) (int, error) {
	idx := bytes.Index(buf, headerSeparator)
	if idx < 0 {
		return 0, ErrIncomplete
	}
	headerLen := idx + len(headerSeparator)

	lines := strings.Split(string(buf[:idx]), "\n")

	requestLine := strings.TrimSuffix(lines[0], "\r")
	fields := strings.Fields(requestLine)
	if len(fields) < 3 {
		return 0, fmt.Errorf("http: malformed request line %q", requestLine)
	}

	req.MethodRaw = strings.ToUpper(fields[0])
	req.Method = ParseMethod(req.MethodRaw)
	req.Proto = fields[2]

	target := fields[1]
	if q := strings.IndexByte(target, '?'); q >= 0 {
		req.Path = target[:q]
		req.RawQuery = target[q+1:]
		req.Query = ParseQuery(req.RawQuery)
	} else {
		req.Path = target
		req.RawQuery = ""
		req.Query = QueryParams{}
	}
	req.PathParams = nil
	req.Body = nil

	req.Headers = make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue // not a header line, skipped rather than rejected
		}
		name := strings.ToLower(strings.TrimSpace(line[:colon]))
		value := strings.TrimSpace(line[colon+1:])
		req.Headers[name] = value
	}

	return headerLen, nil
}

// Header looks a header up case-insensitively. Missing headers read as
// the empty string.
func (req *Request) Header(name string) string {
	return req.Headers[strings.ToLower(name)]
}

func (req *Request) HasQuery(key string) bool {
	return req.Query.Has(key)
}

func (req *Request) QueryParam(key string) (string, bool) {
	return req.Query.Get(key)
}

func (req *Request) QueryParamOr(key, defaultValue string) string {
	if v, ok := req.Query.Get(key); ok {
		return v
	}
	return defaultValue
}

func (req *Request) PathParam(key string) (string, bool) {
	v, ok := req.PathParams[key]
	return v, ok
}
