package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	CodeLen   = 1
	LengthLen = 4
	HeaderLen = CodeLen + LengthLen
)

// Code is the 1-byte discriminant that starts every frame.
type Code uint8

const (
	CodeName        Code = 1
	CodeAlreadyHere Code = 2
	CodeMessageTo   Code = 3
	CodeMessageFrom Code = 4
	CodeWelcome     Code = 5
)

var (
	ErrPayloadTooLarge  = errors.New("frame: payload too large")
	ErrUnexpectedLength = errors.New("frame: non-zero length on header-only code")
	ErrUnsupportedCode  = errors.New("frame: unsupported code")
)

// UnsupportedCodeError reports a code byte outside the known set.
type UnsupportedCodeError struct {
	Code Code
}

func (e *UnsupportedCodeError) Error() string {
	return fmt.Sprintf("frame: unsupported code %d", uint8(e.Code))
}

func (e *UnsupportedCodeError) Is(target error) bool {
	return target == ErrUnsupportedCode
}

// Valid reports whether c names a known message variant.
func (c Code) Valid() bool {
	return c >= CodeName && c <= CodeWelcome
}

// HeaderOnly reports whether frames with code c never carry a payload.
func (c Code) HeaderOnly() bool {
	return c == CodeAlreadyHere
}

func (c Code) String() string {
	switch c {
	case CodeName:
		return "name"
	case CodeAlreadyHere:
		return "already_here"
	case CodeMessageTo:
		return "message_to"
	case CodeMessageFrom:
		return "message_from"
	case CodeWelcome:
		return "welcome"
	default:
		return fmt.Sprintf("code(%d)", uint8(c))
	}
}

// Frame is one complete wire message before variant decoding.
type Frame struct {
	Code    Code
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 64 * 1024,
	}
}

// WithDefaults fills unset limits.
func (l Limits) WithDefaults() Limits {
	if l.MaxPayloadBytes == 0 {
		l.MaxPayloadBytes = DefaultLimits().MaxPayloadBytes
	}
	return l
}

func (l Limits) check(length uint64) error {
	limit := l.WithDefaults().MaxPayloadBytes
	if length > uint64(limit) {
		return fmt.Errorf("%w: length=%d max=%d", ErrPayloadTooLarge, length, limit)
	}
	return nil
}

// ReadFrame blocks until one full frame has been read from r.
// A header-only code still consumes its zero length field.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var code [CodeLen]byte
	if _, err := io.ReadFull(r, code[:]); err != nil {
		return Frame{}, err
	}
	c := Code(code[0])
	if !c.Valid() {
		return Frame{}, &UnsupportedCodeError{Code: c}
	}

	var lengthField [LengthLen]byte
	if _, err := io.ReadFull(r, lengthField[:]); err != nil {
		return Frame{}, unexpectedEOF(err)
	}
	length := binary.BigEndian.Uint32(lengthField[:])
	if c.HeaderOnly() {
		if length != 0 {
			return Frame{}, fmt.Errorf("%w: code=%s length=%d", ErrUnexpectedLength, c, length)
		}
		return Frame{Code: c}, nil
	}
	if err := limits.check(uint64(length)); err != nil {
		return Frame{}, err
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, unexpectedEOF(err)
		}
	}
	return Frame{Code: c, Payload: payload}, nil
}

// WriteFrame writes f to w with a single Write call.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	buf, err := AppendFrame(nil, f, limits)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// AppendFrame appends the wire form of f to dst.
func AppendFrame(dst []byte, f Frame, limits Limits) ([]byte, error) {
	if !f.Code.Valid() {
		return dst, &UnsupportedCodeError{Code: f.Code}
	}
	if f.Code.HeaderOnly() && len(f.Payload) > 0 {
		return dst, fmt.Errorf("%w: code=%s length=%d", ErrUnexpectedLength, f.Code, len(f.Payload))
	}
	if err := limits.check(uint64(len(f.Payload))); err != nil {
		return dst, err
	}
	dst = append(dst, byte(f.Code))
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(f.Payload)))
	return append(dst, f.Payload...), nil
}

// A stream that ends after the code byte is truncated, not cleanly closed.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
