package http

import (
	"errors"
	"testing"
)

func TestRequestParseBasic(t *testing.T) {
	raw := "GET /hello/world?name=John&age=25 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: TestClient\r\n" +
		"\r\n"

	var req Request
	headerLen, err := req.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if headerLen != len(raw) {
		t.Errorf("headerLen = %d, want %d", headerLen, len(raw))
	}

	if req.Method != MethodGet {
		t.Errorf("Method = %v, want MethodGet", req.Method)
	}
	if req.MethodRaw != "GET" {
		t.Errorf("MethodRaw = %q, want GET", req.MethodRaw)
	}
	if req.Path != "/hello/world" {
		t.Errorf("Path = %q, want /hello/world", req.Path)
	}
	if req.RawQuery != "name=John&age=25" {
		t.Errorf("RawQuery = %q", req.RawQuery)
	}
	if req.Proto != "HTTP/1.1" {
		t.Errorf("Proto = %q, want HTTP/1.1", req.Proto)
	}
	if req.Header("host") != "example.com" {
		t.Errorf("host header = %q", req.Header("host"))
	}
	if req.Header("User-Agent") != "TestClient" {
		t.Errorf("case-insensitive lookup failed: %q", req.Header("User-Agent"))
	}

	if v, ok := req.QueryParam("name"); !ok || v != "John" {
		t.Errorf("name = %q, %v", v, ok)
	}
	if n, ok := req.Query.Int("age"); !ok || n != 25 {
		t.Errorf("age = %d, %v", n, ok)
	}
	if _, ok := req.QueryParam("missing"); ok {
		t.Error("missing key reported present")
	}
}

func TestRequestParseIncomplete(t *testing.T) {
	// Anything short of the blank line is incomplete, never malformed.
	partials := []string{
		"",
		"GET",
		"GET /path HTTP/1.1",
		"GET /path HTTP/1.1\r\n",
		"GET /path HTTP/1.1\r\nHost: a\r\n",
		"garbage without a separator",
	}
	for _, raw := range partials {
		var req Request
		_, err := req.Parse([]byte(raw))
		if !errors.Is(err, ErrIncomplete) {
			t.Errorf("Parse(%q) = %v, want ErrIncomplete", raw, err)
		}
	}
}

func TestRequestParseMalformedRequestLine(t *testing.T) {
	raw := "GET /missing-version\r\n\r\n"

	var req Request
	_, err := req.Parse([]byte(raw))
	if err == nil || errors.Is(err, ErrIncomplete) {
		t.Fatalf("Parse = %v, want a hard parse failure", err)
	}
}

func TestRequestParseUnknownMethod(t *testing.T) {
	raw := "BREW /coffee HTTP/1.1\r\n\r\n"

	var req Request
	if _, err := req.Parse([]byte(raw)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Method != MethodUnknown {
		t.Errorf("Method = %v, want MethodUnknown", req.Method)
	}
	if req.MethodRaw != "BREW" {
		t.Errorf("MethodRaw = %q, want BREW", req.MethodRaw)
	}
}

func TestRequestParseHeaders(t *testing.T) {
	raw := "GET / HTTP/1.1\r\n" +
		"  Padded-Name  :   padded value \r\n" +
		"X-Dup: first\r\n" +
		"X-Dup: second\r\n" +
		"this line has no colon and is ignored\r\n" +
		"Host: localhost\r\n" +
		"\r\n"

	var req Request
	if _, err := req.Parse([]byte(raw)); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if req.Header("padded-name") != "padded value" {
		t.Errorf("trimmed header = %q", req.Header("padded-name"))
	}
	if req.Header("x-dup") != "second" {
		t.Errorf("duplicate header = %q, want later value to win", req.Header("x-dup"))
	}
	if req.Header("host") != "localhost" {
		t.Errorf("host = %q", req.Header("host"))
	}
	if len(req.Headers) != 3 {
		t.Errorf("got %d headers, want 3: %v", len(req.Headers), req.Headers)
	}
}

func TestRequestParseQueryDecoding(t *testing.T) {
	raw := "GET /search?debug=1&verbose=false&pi=3.14159&tag=hello&tag=world+wide&encoded=hello%20world%21 HTTP/1.1\r\n\r\n"

	var req Request
	if _, err := req.Parse([]byte(raw)); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if v, ok := req.Query.Bool("debug"); !ok || v != true {
		t.Errorf("debug = %v, %v", v, ok)
	}
	if v, ok := req.Query.Bool("verbose"); !ok || v != false {
		t.Errorf("verbose = %v, %v", v, ok)
	}
	if f, ok := req.Query.Float("pi"); !ok || f < 3.14158 || f > 3.14160 {
		t.Errorf("pi = %v, %v", f, ok)
	}

	tags := req.Query.GetAll("tag")
	if len(tags) != 2 || tags[0] != "hello" || tags[1] != "world wide" {
		t.Errorf("tags = %v", tags)
	}

	if v, ok := req.QueryParam("encoded"); !ok || v != "hello world!" {
		t.Errorf("encoded = %q", v)
	}

	if req.QueryParamOr("missing", "default") != "default" {
		t.Error("QueryParamOr default not applied")
	}
}

func TestRequestParseLeavesBodyAlone(t *testing.T) {
	body := "field1=value1&field2=value2"
	raw := "POST /submit HTTP/1.1\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Length: 27\r\n" +
		"\r\n" + body

	var req Request
	headerLen, err := req.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := raw[headerLen:]; got != body {
		t.Errorf("bytes past header block = %q, want %q", got, body)
	}
	if req.Method != MethodPost {
		t.Errorf("Method = %v, want MethodPost", req.Method)
	}
}

func TestParseQueryEdgeCases(t *testing.T) {
	q := ParseQuery("&=dropped&key&a=1&a=2&bad=%zz")

	if q.Has("") {
		t.Error("empty key kept")
	}
	if v, ok := q.Get("key"); !ok || v != "" {
		t.Errorf("valueless key = %q, %v, want empty string present", v, ok)
	}
	if all := q.GetAll("a"); len(all) != 2 || all[0] != "1" || all[1] != "2" {
		t.Errorf("repeated key = %v", all)
	}
	// Invalid escapes pass through literally.
	if v, _ := q.Get("bad"); v != "%zz" {
		t.Errorf("invalid escape = %q, want %%zz literally", v)
	}
}

func BenchmarkRequestParse(b *testing.B) {
	raw := []byte("GET /test?x=1&y=2 HTTP/1.1\r\nAccept: text/css\r\nConnection: keep-alive\r\nContent-Length: 0\r\n\r\n")
	var req Request

	for i := 0; i < b.N; i++ {
		if _, err := req.Parse(raw); err != nil {
			b.Fatal(err)
		}
	}
}

func TestRequestParseLowercasesMethodToken(t *testing.T) {
	raw := "get /x HTTP/1.1\r\n\r\n"

	var req Request
	if _, err := req.Parse([]byte(raw)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.MethodRaw != "GET" || req.Method != MethodGet {
		t.Errorf("lower-case method token not normalized: %q %v", req.MethodRaw, req.Method)
	}
}
