package tcp

import (
	"net"
	"strconv"
	"sync"
	"time"
)

// Conn owns one accepted socket. All I/O and the close path are
// serialized through a single mutex so a close racing an in-flight
// send or receive cannot corrupt the handle.
type Conn struct {
	mu      sync.Mutex
	sock    net.Conn
	closed  bool
	timeout time.Duration

	remoteAddr string
	remotePort uint16
}

// NewConn wraps an accepted net.Conn. The remote endpoint is captured
// up front so it stays readable after the socket is closed.
func NewConn(sock net.Conn) *Conn {
	c := &Conn{sock: sock}
	if addr := sock.RemoteAddr(); addr != nil {
		host, port, err := net.SplitHostPort(addr.String())
		if err != nil {
			c.remoteAddr = addr.String()
		} else {
			c.remoteAddr = host
			if p, err := strconv.ParseUint(port, 10, 16); err == nil {
				c.remotePort = uint16(p)
			}
		}
	}
	return c
}

// Send writes as much of data as possible, looping on partial writes.
// It returns the number of bytes actually written; a short count means
// the peer is gone or the socket timed out. It never reports an error.
func (c *Conn) Send(data []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}

	total := 0
	for total < len(data) {
		if c.timeout > 0 {
			c.sock.SetWriteDeadline(time.Now().Add(c.timeout))
		}
		n, err := c.sock.Write(data[total:])
		total += n
		if err != nil || n == 0 {
			break
		}
	}
	return total
}

// Receive issues one read into buf. A return of 0 covers error,
// timeout and orderly shutdown alike; the caller treats all three as
// "this session is over".
func (c *Conn) Receive(buf []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}

	if c.timeout > 0 {
		c.sock.SetReadDeadline(time.Now().Add(c.timeout))
	}
	n, err := c.sock.Read(buf)
	if err != nil && n <= 0 {
		return 0
	}
	return n
}

// Close shuts the socket down. Safe to call any number of times.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.sock.Close()
}

// SetTimeout arms a read/write deadline applied to each subsequent
// I/O operation. Zero disables it.
func (c *Conn) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

func (c *Conn) RemoteAddress() string {
	return c.remoteAddr
}

func (c *Conn) RemotePort() uint16 {
	return c.remotePort
}
