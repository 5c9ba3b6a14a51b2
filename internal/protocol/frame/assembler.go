package frame

import (
	"encoding/binary"
	"fmt"
)

// State is the reassembly position inside the current frame.
type State uint8

const (
	// StateCode waits for the code byte of the next frame.
	StateCode State = iota
	// StateLength collects the 4-byte big-endian length field.
	StateLength
	// StatePayload collects exactly length payload bytes.
	StatePayload
)

func (s State) String() string {
	switch s {
	case StateCode:
		return "code"
	case StateLength:
		return "length"
	case StatePayload:
		return "payload"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Assembler rebuilds frames from arbitrarily split byte chunks.
//
// It owns no socket: callers Feed whatever bytes a read produced and call
// Next until it reports no complete frame. Feeding a stream one byte at a
// time or all at once yields the same ordered sequence of frames and
// diagnostics.
//
// A header-only code completes its frame on the code byte alone. The zero
// length field that follows it on the wire is skipped while waiting for the
// next code; code 0 is never valid so the skip cannot swallow a real frame.
type Assembler struct {
	limits Limits

	state   State
	code    Code
	lenBuf  [LengthLen]byte
	lenRead int
	length  uint32
	payload []byte

	padding int
	pending []byte
}

func NewAssembler(limits Limits) *Assembler {
	return &Assembler{limits: limits.WithDefaults()}
}

// State returns the current reassembly state.
func (a *Assembler) State() State {
	return a.state
}

// Buffered returns how many fed bytes have not produced a frame yet.
func (a *Assembler) Buffered() int {
	return len(a.Unconsumed())
}

// Feed queues bytes for reassembly.
func (a *Assembler) Feed(b []byte) {
	a.pending = append(a.pending, b...)
}

// Next consumes queued bytes until one frame completes or the queue is empty.
//
// It returns (frame, true, nil) for a complete frame and (Frame{}, false, nil)
// when more bytes are needed. An unsupported code is discarded and reported
// as an *UnsupportedCodeError; the assembler stays usable. A declared length
// above the limit returns ErrPayloadTooLarge and the stream cannot be
// resynchronised.
func (a *Assembler) Next() (Frame, bool, error) {
	for len(a.pending) > 0 {
		if a.state == StatePayload {
			need := int(a.length) - len(a.payload)
			take := min(need, len(a.pending))
			a.payload = append(a.payload, a.pending[:take]...)
			a.consume(take)
			if len(a.payload) == int(a.length) {
				return a.emit(), true, nil
			}
			continue
		}

		b := a.pending[0]
		a.consume(1)
		f, done, err := a.step(b)
		if err != nil || done {
			return f, done, err
		}
	}
	return Frame{}, false, nil
}

// Unconsumed returns the raw bytes fed so far that belong to no emitted
// frame, in wire order. It is used to hand a half-read stream over to a
// blocking reader.
func (a *Assembler) Unconsumed() []byte {
	var out []byte
	switch a.state {
	case StateLength:
		out = append(out, byte(a.code))
		out = append(out, a.lenBuf[:a.lenRead]...)
	case StatePayload:
		out = append(out, byte(a.code))
		out = append(out, a.lenBuf[:]...)
		out = append(out, a.payload...)
	}
	pending := a.pending
	for skip := a.padding; skip > 0 && len(pending) > 0 && pending[0] == 0; skip-- {
		pending = pending[1:]
	}
	return append(out, pending...)
}

// Reset drops any partial frame and queued bytes.
func (a *Assembler) Reset() {
	a.reset()
	a.padding = 0
	a.pending = nil
}

func (a *Assembler) step(b byte) (Frame, bool, error) {
	switch a.state {
	case StateCode:
		if a.padding > 0 {
			if b == 0 {
				a.padding--
				return Frame{}, false, nil
			}
			a.padding = 0
		}
		c := Code(b)
		if !c.Valid() {
			return Frame{}, false, &UnsupportedCodeError{Code: c}
		}
		if c.HeaderOnly() {
			a.padding = LengthLen
			return Frame{Code: c}, true, nil
		}
		a.code = c
		a.lenRead = 0
		a.state = StateLength
	case StateLength:
		a.lenBuf[a.lenRead] = b
		a.lenRead++
		if a.lenRead < LengthLen {
			return Frame{}, false, nil
		}
		length := binary.BigEndian.Uint32(a.lenBuf[:])
		if err := a.limits.check(uint64(length)); err != nil {
			a.reset()
			return Frame{}, false, err
		}
		a.length = length
		if length == 0 {
			return a.emit(), true, nil
		}
		a.payload = make([]byte, 0, length)
		a.state = StatePayload
	}
	return Frame{}, false, nil
}

func (a *Assembler) emit() Frame {
	f := Frame{Code: a.code, Payload: a.payload}
	if f.Payload == nil {
		f.Payload = []byte{}
	}
	a.reset()
	return f
}

func (a *Assembler) reset() {
	a.state = StateCode
	a.code = 0
	a.lenRead = 0
	a.length = 0
	a.payload = nil
}

func (a *Assembler) consume(n int) {
	a.pending = a.pending[n:]
	if len(a.pending) == 0 {
		a.pending = nil
	}
}
