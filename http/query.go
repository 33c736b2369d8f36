package http

import (
	"strconv"
	"strings"
)

// QueryParams holds decoded query parameters. Repeated keys accumulate
// values in wire order.
type QueryParams map[string][]string

// ParseQuery decodes a raw query string. Percent escapes and '+' are
// decoded in both keys and values; an invalid escape passes through
// literally. Pairs with an empty key are dropped; a key without '='
// gets an empty value.
func ParseQuery(raw string) QueryParams {
	out := QueryParams{}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		var key, value string
		if eq := strings.IndexByte(pair, '='); eq >= 0 {
			key = urlDecode(pair[:eq])
			value = urlDecode(pair[eq+1:])
		} else {
			key = urlDecode(pair)
		}
		if key == "" {
			continue
		}
		out[key] = append(out[key], value)
	}
	return out
}

func (q QueryParams) Has(key string) bool {
	_, ok := q[key]
	return ok
}

// Get returns the first value for key.
func (q QueryParams) Get(key string) (string, bool) {
	values, ok := q[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// GetAll returns every value for key in wire order.
func (q QueryParams) GetAll(key string) []string {
	return q[key]
}

func (q QueryParams) Int(key string) (int, bool) {
	v, ok := q.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (q QueryParams) Float(key string) (float64, bool) {
	v, ok := q.Get(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Bool recognizes 1/true/yes/on and 0/false/no/off, case-insensitive.
func (q QueryParams) Bool(key string) (bool, bool) {
	v, ok := q.Get(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func urlDecode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s):
			hi := hexToByte(s[i+1])
			lo := hexToByte(s[i+2])
			if hi != 255 && lo != 255 {
				b.WriteByte(hi<<4 | lo)
				i += 2
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func hexToByte(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 255 // invalid hex
}
