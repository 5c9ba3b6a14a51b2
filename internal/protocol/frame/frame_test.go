package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/chattest/internal/testutil/testlog"
)

func TestReadWriteFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := Frame{Code: CodeMessageTo, Payload: []byte("hello")}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	want := []byte{3, 0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("wire mismatch: got=%v want=%v", buf.Bytes(), want)
	}
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Code != in.Code || !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("frame mismatch: got=%+v want=%+v", out, in)
	}
}

func TestHeaderOnlyFrameCarriesZeroLength(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Frame{Code: CodeAlreadyHere}, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{2, 0, 0, 0, 0}) {
		t.Fatalf("unexpected wire bytes: %v", buf.Bytes())
	}
	// trailing frame proves the length field was consumed
	buf.Write([]byte{1, 0, 0, 0, 1, 'x'})
	first, err := ReadFrame(&buf, DefaultLimits())
	if err != nil || first.Code != CodeAlreadyHere {
		t.Fatalf("first frame: %+v err=%v", first, err)
	}
	second, err := ReadFrame(&buf, DefaultLimits())
	if err != nil || second.Code != CodeName || string(second.Payload) != "x" {
		t.Fatalf("second frame: %+v err=%v", second, err)
	}
}

func TestReadFrameRejectsLengthOnHeaderOnlyCode(t *testing.T) {
	testlog.Start(t)
	_, err := ReadFrame(bytes.NewReader([]byte{2, 0, 0, 0, 3, 'a', 'b', 'c'}), DefaultLimits())
	if !errors.Is(err, ErrUnexpectedLength) {
		t.Fatalf("expected ErrUnexpectedLength, got %v", err)
	}
}

func TestReadFrameUnsupportedCode(t *testing.T) {
	testlog.Start(t)
	_, err := ReadFrame(bytes.NewReader([]byte{9, 0, 0, 0, 0}), DefaultLimits())
	if !errors.Is(err, ErrUnsupportedCode) {
		t.Fatalf("expected ErrUnsupportedCode, got %v", err)
	}
	var codeErr *UnsupportedCodeError
	if !errors.As(err, &codeErr) || codeErr.Code != 9 {
		t.Fatalf("expected UnsupportedCodeError code=9, got %v", err)
	}
}

func TestReadFramePayloadTooLarge(t *testing.T) {
	testlog.Start(t)
	limits := Limits{MaxPayloadBytes: 8}
	_, err := ReadFrame(bytes.NewReader([]byte{3, 0xff, 0xff, 0xff, 0xff}), limits)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	err = WriteFrame(io.Discard, Frame{Code: CodeMessageTo, Payload: make([]byte, 9)}, limits)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on write, got %v", err)
	}
}

func TestReadFrameTruncation(t *testing.T) {
	testlog.Start(t)
	if _, err := ReadFrame(bytes.NewReader(nil), DefaultLimits()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on empty stream, got %v", err)
	}
	_, err := ReadFrame(bytes.NewReader([]byte{3, 0, 0}), DefaultLimits())
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF in length, got %v", err)
	}
	_, err = ReadFrame(bytes.NewReader([]byte{3, 0, 0, 0, 4, 'a'}), DefaultLimits())
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF in payload, got %v", err)
	}
}

func TestZeroLimitsUseDefaults(t *testing.T) {
	testlog.Start(t)
	if got := (Limits{}).WithDefaults().MaxPayloadBytes; got != DefaultLimits().MaxPayloadBytes {
		t.Fatalf("unexpected default limit: %d", got)
	}
}
