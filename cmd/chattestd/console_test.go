package main

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/chattest/internal/room"
	"github.com/danmuck/chattest/internal/testutil/testlog"
)

type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestConsoleAnnouncesAndPrints(t *testing.T) {
	testlog.Start(t)
	cfg := room.DefaultServiceConfig()
	cfg.Room, cfg.Admin = "lobby", "root"
	svc := room.NewServiceWithConfig(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		runConsole(ctx, svc, strings.NewReader("hello everyone\n\nsecond line\n"), out)
	}()

	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(out.String(), "  second line") {
		if time.Now().After(deadline) {
			t.Fatalf("console output missing announcements: %q", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if !strings.HasPrefix(out.String(), "  Room name: lobby\n  Admin: root\n") {
		t.Fatalf("missing header: %q", out.String())
	}
	if got := svc.Log().Len(); got != 2 {
		t.Fatalf("expected 2 admin entries, got=%d", got)
	}
}
