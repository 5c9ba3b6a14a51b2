package session

import (
	"errors"
	"net"
	"time"

	"github.com/danmuck/chattest/internal/protocol"
)

var (
	ErrConsumed = errors.New("session: transport already handed off")
	// ErrWriteAborted wraps the socket error of a write that closed the connection.
	ErrWriteAborted = errors.New("session: write aborted, connection closed")
)

// BlockingConn reads and writes whole messages synchronously. It is used for
// the name handshake only.
type BlockingConn struct {
	conn     net.Conn
	cfg      Config
	pre      []byte
	deadline time.Time
	consumed bool
}

func NewBlockingConn(conn net.Conn, cfg Config) *BlockingConn {
	return &BlockingConn{conn: conn, cfg: cfg.WithDefaults()}
}

// SetHandshakeDeadline bounds every later Read by t. The zero time restores
// a fresh HandshakeTimeout per Read.
func (c *BlockingConn) SetHandshakeDeadline(t time.Time) {
	c.deadline = t
}

// Read blocks until one full message arrives, the socket fails, or the
// handshake deadline expires.
func (c *BlockingConn) Read() (protocol.Message, error) {
	if c.consumed {
		return nil, ErrConsumed
	}
	deadline := c.deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(c.cfg.HandshakeTimeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	return protocol.Read(prefixedReader{c}, c.cfg.Limits)
}

// Write blocks until m is flushed to the socket.
func (c *BlockingConn) Write(m protocol.Message) error {
	if c.consumed {
		return ErrConsumed
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return protocol.Write(c.conn, m, c.cfg.Limits)
}

// Polling hands the socket to a PollingConn. c is unusable afterwards.
func (c *BlockingConn) Polling() (*PollingConn, error) {
	if c.consumed {
		return nil, ErrConsumed
	}
	c.consumed = true
	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}
	p := NewPollingConn(c.conn, c.cfg)
	p.asm.Feed(c.pre)
	c.pre = nil
	return p, nil
}

func (c *BlockingConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *BlockingConn) Close() error {
	return c.conn.Close()
}

// prefixedReader drains bytes inherited from a PollingConn before the socket.
type prefixedReader struct {
	c *BlockingConn
}

func (r prefixedReader) Read(p []byte) (int, error) {
	if len(r.c.pre) > 0 {
		n := copy(p, r.c.pre)
		r.c.pre = r.c.pre[n:]
		return n, nil
	}
	return r.c.conn.Read(p)
}
