package session

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/danmuck/chattest/internal/protocol"
	"github.com/danmuck/chattest/internal/protocol/frame"
)

// Outcome classifies the result of one read.
type Outcome uint8

const (
	// OutcomeOK is a nil error.
	OutcomeOK Outcome = iota
	// OutcomeWouldBlock means no bytes arrived before the poll deadline.
	OutcomeWouldBlock
	// OutcomeDiagnostic is a malformed frame that was discarded; the stream
	// is still aligned.
	OutcomeDiagnostic
	// OutcomeTransient is any other I/O error; retry on the next poll.
	OutcomeTransient
	// OutcomeDisconnected is terminal; the caller must drop the connection.
	OutcomeDisconnected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeWouldBlock:
		return "would_block"
	case OutcomeDiagnostic:
		return "diagnostic"
	case OutcomeTransient:
		return "transient"
	case OutcomeDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Classify maps a read error to its Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrWriteAborted):
		return OutcomeDisconnected
	case errors.Is(err, os.ErrDeadlineExceeded):
		return OutcomeWouldBlock
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, frame.ErrPayloadTooLarge),
		errors.Is(err, ErrConsumed):
		return OutcomeDisconnected
	case errors.Is(err, protocol.ErrFraming),
		errors.Is(err, protocol.ErrUnsupportedCode):
		return OutcomeDiagnostic
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeWouldBlock
	}
	return OutcomeTransient
}

// IsDisconnect reports whether err means the peer is gone.
func IsDisconnect(err error) bool {
	return Classify(err) == OutcomeDisconnected
}
