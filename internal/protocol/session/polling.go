package session

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/chattest/internal/protocol"
	"github.com/danmuck/chattest/internal/protocol/frame"
)

const readChunk = 4096

// PollingConn reads without blocking and writes synchronously.
//
// Poll is not safe for concurrent use; one goroutine owns the read side.
// Write may be called from any goroutine and never interleaves frames.
type PollingConn struct {
	conn    net.Conn
	cfg     Config
	asm     *frame.Assembler
	scratch []byte
	readErr error

	writeMu  sync.Mutex
	writeErr error
	consumed atomic.Bool
}

func NewPollingConn(conn net.Conn, cfg Config) *PollingConn {
	cfg = cfg.WithDefaults()
	return &PollingConn{
		conn:    conn,
		cfg:     cfg,
		asm:     frame.NewAssembler(cfg.Limits),
		scratch: make([]byte, readChunk),
	}
}

// Poll makes at most one read attempt and returns at most one message.
//
// (nil, nil) means no complete message yet; partial bytes are kept for the
// next call. Errors are classified with Classify: diagnostics leave the
// connection usable, disconnects are terminal and repeat on every later call.
func (c *PollingConn) Poll() (protocol.Message, error) {
	if c.consumed.Load() {
		return nil, ErrConsumed
	}
	if msg, err := c.next(); msg != nil || err != nil {
		return msg, err
	}
	if err := c.readErr; err != nil {
		if !IsDisconnect(err) {
			c.readErr = nil
		}
		return nil, err
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PollWait)); err != nil {
		if IsDisconnect(err) {
			c.readErr = err
		}
		return nil, err
	}
	n, err := c.conn.Read(c.scratch)
	if n > 0 {
		c.asm.Feed(c.scratch[:n])
		if err != nil && Classify(err) != OutcomeWouldBlock {
			c.readErr = err
		}
		return c.next()
	}
	if err != nil {
		if Classify(err) == OutcomeWouldBlock {
			return nil, nil
		}
		if IsDisconnect(err) {
			c.readErr = err
		}
		return nil, err
	}
	return nil, nil
}

func (c *PollingConn) next() (protocol.Message, error) {
	f, ok, err := c.asm.Next()
	if err != nil {
		if IsDisconnect(err) {
			c.readErr = err
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return protocol.Decode(f)
}

// Write blocks until m is flushed to the socket or WriteTimeout expires.
//
// A failed socket write may leave part of a frame on the wire, so it closes
// the connection: every later Write returns the same error and Poll reports
// a disconnect. Encoding errors leave the connection untouched.
func (c *PollingConn) Write(m protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.consumed.Load() {
		return ErrConsumed
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	buf, err := protocol.Marshal(m, c.cfg.Limits)
	if err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return c.abort(err)
	}
	if _, err := c.conn.Write(buf); err != nil {
		return c.abort(err)
	}
	return nil
}

// abort closes the socket after a failed write. Callers hold writeMu.
func (c *PollingConn) abort(err error) error {
	c.writeErr = fmt.Errorf("%w: %w", ErrWriteAborted, err)
	_ = c.conn.Close()
	return c.writeErr
}

// Blocking hands the socket back to a BlockingConn, carrying any bytes that
// were read but not yet assembled into a message. c is unusable afterwards.
func (c *PollingConn) Blocking() (*BlockingConn, error) {
	if !c.consumed.CompareAndSwap(false, true) {
		return nil, ErrConsumed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}
	pre := c.asm.Unconsumed()
	c.asm.Reset()
	return &BlockingConn{conn: c.conn, cfg: c.cfg, pre: pre}, nil
}

// Buffered returns the number of received bytes not yet returned as a message.
func (c *PollingConn) Buffered() int {
	return c.asm.Buffered()
}

func (c *PollingConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *PollingConn) Close() error {
	return c.conn.Close()
}
