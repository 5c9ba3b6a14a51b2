package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/chattest/internal/config"
	"github.com/danmuck/chattest/internal/room"
	"github.com/danmuck/chattest/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/gookit/color"
)

func startRoom(t *testing.T) (*room.Service, string) {
	t.Helper()
	cfg := room.DefaultServiceConfig()
	cfg.Room, cfg.Admin = "lobby", "root"
	svc := room.NewServiceWithConfig(cfg)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return svc, ln.Addr().String()
}

func TestChatRenamesAndSends(t *testing.T) {
	testlog.Start(t)
	color.Enable = false
	svc, addr := startRoom(t)
	if err := svc.Registry().Reserve("alice", "root"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	cfg := config.DefaultClientConfig()
	cfg.Server = addr
	cfg.Name = "alice"
	var out strings.Builder
	err := chat(context.Background(), cfg, strings.NewReader("alicia\nhello room\n"), &out)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, `someone called "alice"`) || !strings.Contains(text, "Connected to room lobby") {
		t.Fatalf("unexpected output: %q", text)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		entries := svc.Log().Since(0)
		if len(entries) > 0 && entries[len(entries)-1].String() == "  alicia> hello room" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("message never logged: %v", entries)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMembersTable(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	svc, addr := startRoom(t)
	cfg := config.DefaultClientConfig()
	cfg.Server = addr
	cfg.Name = "bob"

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = chat(context.Background(), cfg, pr, io.Discard)
	}()
	defer func() {
		_ = pw.Close()
		<-done
	}()
	deadline := time.Now().Add(3 * time.Second)
	for svc.Registry().Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("bob never joined")
		}
		time.Sleep(5 * time.Millisecond)
	}

	srv := httptest.NewServer(svc.AdminRouter())
	defer srv.Close()
	var out strings.Builder
	if err := members(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("members: %v", err)
	}
	if !strings.Contains(out.String(), "room lobby, 1 member(s)") || !strings.Contains(out.String(), "bob") {
		t.Fatalf("unexpected table: %q", out.String())
	}
}

func TestMembersRequiresAdminURL(t *testing.T) {
	testlog.Start(t)
	if err := members(context.Background(), " ", &strings.Builder{}); !errors.Is(err, errNoAdminURL) {
		t.Fatalf("expected errNoAdminURL, got %v", err)
	}
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if err := members(context.Background(), srv.URL, &strings.Builder{}); err == nil {
		t.Fatalf("404 accepted")
	}
}
