package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/chattest/internal/protocol/frame"
)

var (
	ErrFraming         = errors.New("protocol: framing error")
	ErrUnsupportedCode = frame.ErrUnsupportedCode
	ErrUnencodableText = errors.New("protocol: text not representable one byte per character")
	ErrNilMessage      = errors.New("protocol: nil message")
	ErrUnknownVariant  = errors.New("protocol: unknown message variant")
)

// UnsupportedCodeError reports an unrecognized code byte.
type UnsupportedCodeError = frame.UnsupportedCodeError

// FramingError reports length fields that disagree with the payload.
type FramingError struct {
	Code       frame.Code
	Length     uint64
	NameLength uint64
	Reason     string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("protocol: framing error code=%s length=%d name_length=%d: %s",
		e.Code, e.Length, e.NameLength, e.Reason)
}

func (e *FramingError) Is(target error) bool {
	return target == ErrFraming
}
