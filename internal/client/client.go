package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/danmuck/chattest/internal/protocol"
	"github.com/danmuck/chattest/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnexpectedReply = errors.New("client: unexpected handshake reply")
	ErrNameRejected    = errors.New("client: name rejected")
	ErrConnectionLost  = errors.New("client: connection lost")
)

const DefaultPort = "7357"

// Config describes one client connection.
type Config struct {
	Addr         string
	Name         string
	DialAttempts int
	Session      session.Config
}

func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:" + DefaultPort,
		DialAttempts: 3,
		Session:      session.DefaultConfig(),
	}
}

// Renamer is asked for a new name after the server rejects one. Returning
// an error abandons the handshake.
type Renamer func(ctx context.Context, rejected string) (string, error)

// Join dials the server and completes the name handshake.
func Join(ctx context.Context, cfg Config, rename Renamer) (*Session, error) {
	conn, err := Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := Handshake(ctx, conn, cfg.Session, cfg.Name, rename)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Dial connects to cfg.Addr, retrying with backoff. A bare host gets the
// default port.
func Dial(ctx context.Context, cfg Config) (net.Conn, error) {
	cfg.Session = cfg.Session.WithDefaults()
	addr := withDefaultPort(cfg.Addr)
	attempts := cfg.DialAttempts
	if attempts <= 0 {
		attempts = 1
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := net.Dialer{Timeout: cfg.Session.ConnectTimeout}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		delay := cfg.Session.Backoff.Delay(attempt, rng)
		log.Debug().Err(err).Str("addr", addr).Int("attempt", attempt).Dur("retry_in", delay).Msg("client.Dial retry")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("client: dial %s after %d attempts: %w", addr, attempts, lastErr)
}

func withDefaultPort(addr string) string {
	addr = strings.TrimSpace(addr)
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, DefaultPort)
}

// Handshake sends name and retries through rename until the server
// welcomes the client. A nil rename fails on the first rejection.
func Handshake(ctx context.Context, conn net.Conn, cfg session.Config, name string, rename Renamer) (*Session, error) {
	bc := session.NewBlockingConn(conn, cfg)
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()
	for {
		if err := protocol.ValidateText(name); err != nil {
			return nil, err
		}
		if err := bc.Write(protocol.Name{Text: name}); err != nil {
			return nil, err
		}
		reply, err := bc.Read()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		switch m := reply.(type) {
		case protocol.Welcome:
			pc, err := bc.Polling()
			if err != nil {
				return nil, err
			}
			log.Info().Str("name", name).Str("room", m.Room).Str("admin", m.Admin).Msg("client.Handshake welcomed")
			return &Session{conn: pc, name: name, room: m.Room, admin: m.Admin}, nil
		case protocol.AlreadyHere:
			if rename == nil {
				return nil, fmt.Errorf("%w: %q", ErrNameRejected, name)
			}
			next, err := rename(ctx, name)
			if err != nil {
				return nil, err
			}
			name = next
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Code())
		}
	}
}
