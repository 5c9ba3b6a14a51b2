package frame

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/danmuck/chattest/internal/testutil/testlog"
)

type assembled struct {
	code    Code
	payload string
	err     string
}

func drain(t *testing.T, a *Assembler) []assembled {
	t.Helper()
	var out []assembled
	for {
		f, ok, err := a.Next()
		if err != nil {
			out = append(out, assembled{err: err.Error()})
			if errors.Is(err, ErrPayloadTooLarge) {
				return out
			}
			continue
		}
		if !ok {
			return out
		}
		out = append(out, assembled{code: f.Code, payload: string(f.Payload)})
	}
}

func mixedStream(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	frames := []Frame{
		{Code: CodeName, Payload: []byte("bob")},
		{Code: CodeAlreadyHere},
		{Code: CodeMessageTo, Payload: []byte{}},
		{Code: CodeMessageFrom, Payload: []byte{0, 0, 0, 3, 'b', 'o', 'b', 'h', 'i'}},
	}
	for i, f := range frames {
		if err := WriteFrame(&buf, f, DefaultLimits()); err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}
		if i == 1 {
			buf.WriteByte(0x7f)
		}
	}
	if err := WriteFrame(&buf, Frame{Code: CodeWelcome, Payload: []byte{0, 0, 0, 1, 'r', 'a'}}, DefaultLimits()); err != nil {
		t.Fatalf("write welcome: %v", err)
	}
	return buf.Bytes()
}

func TestAssemblerByteAtATimeMatchesWholeStream(t *testing.T) {
	testlog.Start(t)
	stream := mixedStream(t)

	whole := NewAssembler(DefaultLimits())
	whole.Feed(stream)
	want := drain(t, whole)

	split := NewAssembler(DefaultLimits())
	var got []assembled
	for _, b := range stream {
		split.Feed([]byte{b})
		got = append(got, drain(t, split)...)
	}

	if len(want) != 6 {
		t.Fatalf("unexpected whole-stream result count=%d: %+v", len(want), want)
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("sequence mismatch:\n got=%+v\nwant=%+v", got, want)
	}
	if whole.State() != StateCode || split.State() != StateCode {
		t.Fatalf("expected idle state after full stream, whole=%s split=%s", whole.State(), split.State())
	}
}

func TestAssemblerChunkBoundariesDoNotMatter(t *testing.T) {
	testlog.Start(t)
	stream := mixedStream(t)
	whole := NewAssembler(DefaultLimits())
	whole.Feed(stream)
	want := fmt.Sprint(drain(t, whole))

	for chunk := 2; chunk <= 7; chunk++ {
		a := NewAssembler(DefaultLimits())
		var got []assembled
		for off := 0; off < len(stream); off += chunk {
			end := min(off+chunk, len(stream))
			a.Feed(stream[off:end])
			got = append(got, drain(t, a)...)
		}
		if fmt.Sprint(got) != want {
			t.Fatalf("chunk=%d mismatch:\n got=%+v\nwant=%s", chunk, got, want)
		}
	}
}

func TestAssemblerStates(t *testing.T) {
	testlog.Start(t)
	a := NewAssembler(DefaultLimits())
	if a.State() != StateCode {
		t.Fatalf("initial state=%s", a.State())
	}
	a.Feed([]byte{3})
	if _, ok, err := a.Next(); ok || err != nil || a.State() != StateLength {
		t.Fatalf("after code: ok=%v err=%v state=%s", ok, err, a.State())
	}
	a.Feed([]byte{0, 0, 0, 2})
	if _, ok, err := a.Next(); ok || err != nil || a.State() != StatePayload {
		t.Fatalf("after length: ok=%v err=%v state=%s", ok, err, a.State())
	}
	a.Feed([]byte{'h'})
	if _, ok, _ := a.Next(); ok {
		t.Fatalf("frame completed early")
	}
	if a.Buffered() != 6 {
		t.Fatalf("unexpected buffered=%d", a.Buffered())
	}
	a.Feed([]byte{'i'})
	f, ok, err := a.Next()
	if !ok || err != nil || string(f.Payload) != "hi" {
		t.Fatalf("unexpected frame=%+v ok=%v err=%v", f, ok, err)
	}
	if a.State() != StateCode || a.Buffered() != 0 {
		t.Fatalf("expected reset, state=%s buffered=%d", a.State(), a.Buffered())
	}
}

func TestAssemblerAlreadyHereShortCircuits(t *testing.T) {
	testlog.Start(t)
	a := NewAssembler(DefaultLimits())
	a.Feed([]byte{2})
	f, ok, err := a.Next()
	if !ok || err != nil || f.Code != CodeAlreadyHere {
		t.Fatalf("expected already_here on code byte, got=%+v ok=%v err=%v", f, ok, err)
	}
	a.Feed([]byte{0, 0, 0, 0, 1, 0, 0, 0, 1, 'z'})
	f, ok, err = a.Next()
	if !ok || err != nil || f.Code != CodeName || string(f.Payload) != "z" {
		t.Fatalf("padding not skipped, got=%+v ok=%v err=%v", f, ok, err)
	}
}

func TestAssemblerUnsupportedCodeIsRecoverable(t *testing.T) {
	testlog.Start(t)
	a := NewAssembler(DefaultLimits())
	a.Feed([]byte{0, 42, 3, 0, 0, 0, 1, 'k'})
	for _, code := range []Code{0, 42} {
		_, ok, err := a.Next()
		var codeErr *UnsupportedCodeError
		if ok || !errors.As(err, &codeErr) || codeErr.Code != code {
			t.Fatalf("expected unsupported code %d, ok=%v err=%v", code, ok, err)
		}
		if a.State() != StateCode {
			t.Fatalf("state after diagnostic=%s", a.State())
		}
	}
	f, ok, err := a.Next()
	if !ok || err != nil || string(f.Payload) != "k" {
		t.Fatalf("expected recovery frame, got=%+v ok=%v err=%v", f, ok, err)
	}
}

func TestAssemblerRejectsOversizeLength(t *testing.T) {
	testlog.Start(t)
	a := NewAssembler(Limits{MaxPayloadBytes: 16})
	a.Feed([]byte{3, 0x7f, 0xff, 0xff, 0xff})
	_, ok, err := a.Next()
	if ok || !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, ok=%v err=%v", ok, err)
	}
}

func TestAssemblerUnconsumedRebuildsPartialFrame(t *testing.T) {
	testlog.Start(t)
	a := NewAssembler(DefaultLimits())
	a.Feed([]byte{2, 0, 0, 0, 0, 1, 0, 0, 0, 3, 'a'})
	if f, ok, _ := a.Next(); !ok || f.Code != CodeAlreadyHere {
		t.Fatalf("expected already_here first, got=%+v", f)
	}
	if _, ok, _ := a.Next(); ok {
		t.Fatalf("partial frame emitted")
	}
	want := []byte{1, 0, 0, 0, 3, 'a'}
	if got := a.Unconsumed(); !bytes.Equal(got, want) {
		t.Fatalf("unconsumed mismatch: got=%v want=%v", got, want)
	}
	a.Reset()
	if a.Buffered() != 0 || a.State() != StateCode {
		t.Fatalf("reset left state=%s buffered=%d", a.State(), a.Buffered())
	}
}
