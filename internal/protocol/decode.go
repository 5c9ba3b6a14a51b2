package protocol

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/danmuck/chattest/internal/protocol/frame"
)

// Decode converts a complete frame into its message variant.
func Decode(f frame.Frame) (Message, error) {
	switch f.Code {
	case frame.CodeName:
		return Name{Text: decodeText(f.Payload)}, nil
	case frame.CodeAlreadyHere:
		if len(f.Payload) != 0 {
			return nil, &FramingError{
				Code:   f.Code,
				Length: uint64(len(f.Payload)),
				Reason: "already_here carries no payload",
			}
		}
		return AlreadyHere{}, nil
	case frame.CodeMessageTo:
		return MessageTo{Text: decodeText(f.Payload)}, nil
	case frame.CodeMessageFrom:
		name, text, err := decodePair(f)
		if err != nil {
			return nil, err
		}
		return MessageFrom{Name: name, Text: text}, nil
	case frame.CodeWelcome:
		room, admin, err := decodePair(f)
		if err != nil {
			return nil, err
		}
		return Welcome{Room: room, Admin: admin}, nil
	default:
		return nil, &UnsupportedCodeError{Code: f.Code}
	}
}

// Read blocks until one message has been read from r.
func Read(r io.Reader, limits frame.Limits) (Message, error) {
	f, err := frame.ReadFrame(r, limits)
	if err != nil {
		if errors.Is(err, frame.ErrUnexpectedLength) {
			return nil, &FramingError{Code: frame.CodeAlreadyHere, Reason: err.Error()}
		}
		return nil, err
	}
	return Decode(f)
}

func decodePair(f frame.Frame) (string, string, error) {
	total := uint64(len(f.Payload))
	if total < nameLenSize {
		return "", "", &FramingError{
			Code:   f.Code,
			Length: total,
			Reason: "length shorter than name length field",
		}
	}
	nameLen := uint64(binary.BigEndian.Uint32(f.Payload[:nameLenSize]))
	if nameLen >= total || nameLen > total-nameLenSize {
		return "", "", &FramingError{
			Code:       f.Code,
			Length:     total,
			NameLength: nameLen,
			Reason:     "name length exceeds payload",
		}
	}
	rest := f.Payload[nameLenSize:]
	return decodeText(rest[:nameLen]), decodeText(rest[nameLen:]), nil
}
