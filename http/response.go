package http

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Response is the structured reply a handler fills in. Serialization
// always emits a Content-Length so the peer can frame the body even
// when the handler never set one.
type Response struct {
	Status  int
	Reason  string
	Headers map[string]string
	Body    []byte
}

func NewResponse() *Response {
	return &Response{
		Status:  StatusOK,
		Headers: make(map[string]string),
	}
}

// SetStatus sets the code and an explicit reason phrase.
func (res *Response) SetStatus(code int, reason string) {
	res.Status = code
	res.Reason = reason
}

func (res *Response) SetHeader(name, value string) {
	res.Headers[name] = value
}

func (res *Response) WithStatus(code int) *Response {
	res.Status = code
	res.Reason = ""
	return res
}

func (res *Response) WithText(body string) *Response {
	res.Headers["Content-Type"] = "text/plain"
	res.Body = []byte(body)
	return res
}

func (res *Response) WithJSON(payload any) *Response {
	data, err := json.Marshal(payload)
	if err != nil {
		res.Status = StatusInternalServerError
		res.Reason = ""
		res.Headers["Content-Type"] = "text/plain"
		res.Body = []byte("Internal Server Error")
		return res
	}
	res.Headers["Content-Type"] = "application/json"
	res.Body = data
	return res
}

// Bytes serializes the response: status line, headers, auto
// Content-Length when the handler did not set one, blank line, body.
// An empty Reason falls back to the default phrase for the code.
func (res *Response) Bytes() []byte {
	reason := res.Reason
	if reason == "" {
		reason = ReasonPhrase(res.Status)
	}

	var buf bytes.Buffer
	buf.Grow(128 + len(res.Body))

	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(res.Status))
	buf.WriteByte(' ')
	buf.WriteString(reason)
	buf.WriteString("\r\n")

	hasContentLength := false
	for name, value := range res.Headers {
		if strings.EqualFold(name, "Content-Length") {
			hasContentLength = true
		}
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}
	if !hasContentLength {
		buf.WriteString("Content-Length: ")
		buf.WriteString(strconv.Itoa(len(res.Body)))
		buf.WriteString("\r\n")
	}

	buf.WriteString("\r\n")
	buf.Write(res.Body)

	return buf.Bytes()
}
