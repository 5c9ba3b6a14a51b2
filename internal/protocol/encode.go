package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/danmuck/chattest/internal/protocol/frame"
)

const nameLenSize = 4

// Encode converts m into a frame, checking text encodability and limits.
func Encode(m Message, limits frame.Limits) (frame.Frame, error) {
	var (
		payload []byte
		err     error
	)
	switch v := m.(type) {
	case nil:
		return frame.Frame{}, ErrNilMessage
	case Name:
		payload, err = encodeText(v.Text)
	case AlreadyHere:
		return frame.Frame{Code: frame.CodeAlreadyHere}, nil
	case MessageTo:
		payload, err = encodeText(v.Text)
	case MessageFrom:
		payload, err = encodePair(v.Name, v.Text)
	case Welcome:
		payload, err = encodePair(v.Room, v.Admin)
	default:
		return frame.Frame{}, fmt.Errorf("%w: %T", ErrUnknownVariant, m)
	}
	if err != nil {
		return frame.Frame{}, err
	}
	if uint64(len(payload)) > uint64(limits.WithDefaults().MaxPayloadBytes) {
		return frame.Frame{}, fmt.Errorf("%w: code=%s length=%d", frame.ErrPayloadTooLarge, m.Code(), len(payload))
	}
	return frame.Frame{Code: m.Code(), Payload: payload}, nil
}

// Marshal returns the complete wire bytes of m.
func Marshal(m Message, limits frame.Limits) ([]byte, error) {
	f, err := Encode(m, limits)
	if err != nil {
		return nil, err
	}
	return frame.AppendFrame(nil, f, limits)
}

// Write encodes m and writes it to w in one call.
func Write(w io.Writer, m Message, limits frame.Limits) error {
	buf, err := Marshal(m, limits)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Payload: 4-byte len(first) | first | second. The second length is implied.
func encodePair(first, second string) ([]byte, error) {
	a, err := encodeText(first)
	if err != nil {
		return nil, err
	}
	b, err := encodeText(second)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 0, nameLenSize+len(a)+len(b))
	payload = binary.BigEndian.AppendUint32(payload, uint32(len(a)))
	payload = append(payload, a...)
	return append(payload, b...), nil
}
