package room

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/chattest/internal/observability"
	"github.com/danmuck/chattest/internal/protocol"
	"github.com/danmuck/chattest/internal/protocol/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Service runs one chat room: accept loop, broadcast loop and the optional
// admin HTTP server.
type Service struct {
	cfg      ServiceConfig
	registry *Registry
	log      *Log
	started  time.Time

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	handshakes  sync.WaitGroup
	handshaking atomic.Int64
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	def := DefaultServiceConfig()
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.Room == "" {
		cfg.Room = def.Room
	}
	if cfg.Admin == "" {
		cfg.Admin = def.Admin
	}
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = def.IdleWait
	}
	cfg.Session = cfg.Session.WithDefaults()
	return &Service{
		cfg:      cfg,
		registry: NewRegistry(),
		log:      NewLog(),
		started:  time.Now(),
		conns:    make(map[net.Conn]struct{}),
	}
}

func (s *Service) Config() ServiceConfig {
	return s.cfg
}

func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) Log() *Log {
	return s.log
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the room on an existing listener. It returns after ctx is
// cancelled and every loop has stopped, or when a loop fails.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	log.Warn().
		Str("addr", ln.Addr().String()).
		Str("room", s.cfg.Room).
		Str("admin", s.cfg.Admin).
		Msg("room.Service.Serve listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		_ = ln.Close()
		s.shutdown()
		return nil
	})
	g.Go(func() error {
		return s.acceptLoop(gctx, ln)
	})
	g.Go(func() error {
		return s.broadcastLoop(gctx)
	})
	if addr := strings.TrimSpace(s.cfg.AdminListenAddr); addr != "" {
		g.Go(func() error {
			return s.serveAdmin(gctx, addr)
		})
	}
	err := g.Wait()
	s.handshakes.Wait()
	s.drainMembers()
	return err
}

func (s *Service) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		s.handshakes.Add(1)
		go func() {
			defer s.handshakes.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn runs the name handshake. On success the connection moves into
// the registry in polling mode; otherwise it is closed.
func (s *Service) handleConn(ctx context.Context, conn net.Conn) {
	defer s.untrackConn(conn)
	remote := conn.RemoteAddr().String()
	active := s.handshaking.Add(1)
	log.Debug().Str("remote", remote).Int64("handshaking", active).Msg("room.handleConn client connected")
	defer s.handshaking.Add(-1)

	bc := session.NewBlockingConn(conn, s.cfg.Session)
	// Only a name attempt restarts the clock; other frames do not.
	bc.SetHandshakeDeadline(time.Now().Add(s.cfg.Session.HandshakeTimeout))
	for {
		msg, err := bc.Read()
		if err != nil {
			log.Warn().Err(err).Str("remote", remote).Str("outcome", session.Classify(err).String()).
				Msg("room.handleConn handshake read failed")
			observability.RecordHandshake("failed")
			_ = conn.Close()
			return
		}
		req, ok := msg.(protocol.Name)
		if !ok {
			log.Warn().Str("remote", remote).Stringer("code", msg.Code()).Msg("room.handleConn ignored message before name")
			continue
		}

		if err := s.registry.Reserve(req.Text, s.cfg.Admin); err != nil {
			outcome := "name_taken"
			if errors.Is(err, ErrInvalidName) {
				outcome = "invalid_name"
			}
			observability.RecordHandshake(outcome)
			log.Info().Err(err).Str("remote", remote).Msg("room.handleConn name rejected")
			if err := bc.Write(protocol.AlreadyHere{}); err != nil {
				log.Warn().Err(err).Str("remote", remote).Msg("room.handleConn write already_here")
				_ = conn.Close()
				return
			}
			bc.SetHandshakeDeadline(time.Now().Add(s.cfg.Session.HandshakeTimeout))
			continue
		}

		if err := s.join(ctx, bc, req.Text); err != nil {
			s.registry.Release(req.Text)
			observability.RecordHandshake("failed")
			log.Warn().Err(err).Str("remote", remote).Str("name", req.Text).Msg("room.handleConn join failed")
			_ = conn.Close()
		}
		return
	}
}

// join finishes an accepted handshake for a reserved name.
func (s *Service) join(ctx context.Context, bc *session.BlockingConn, name string) error {
	if err := bc.Write(protocol.Welcome{Room: s.cfg.Room, Admin: s.cfg.Admin}); err != nil {
		return fmt.Errorf("write welcome: %w", err)
	}
	pc, err := bc.Polling()
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m := newMember(name, pc)
	existing := s.registry.Commit(m)
	observability.RecordHandshake("accepted")
	observability.SetMembers(s.registry.Len())
	s.log.Append(EntryJoined, m.Name, "", m.RemoteAddr)
	log.Info().Str("name", m.Name).Str("remote", m.RemoteAddr).Str("id", m.ID.String()).Msg("room.join accepted")

	s.fanOut(existing, protocol.MessageTo{Text: fmt.Sprintf("User %s connected!", m.Name)}, "notice")
	return nil
}

func (s *Service) broadcastLoop(ctx context.Context) error {
	idle := time.NewTimer(s.cfg.IdleWait)
	defer idle.Stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.pass() {
			continue
		}
		idle.Reset(s.cfg.IdleWait)
		select {
		case <-ctx.Done():
			return nil
		case <-idle.C:
		}
	}
}

// pass polls every member once in registry order and relays text. It
// reports whether any message or disconnect was handled.
func (s *Service) pass() bool {
	var (
		gone   []*Member
		active bool
	)
	s.registry.Scan(func(members []*Member) {
		for _, m := range members {
			if lo.Contains(gone, m) {
				continue
			}
			msg, err := m.poll()
			if err != nil {
				outcome := session.Classify(err)
				if outcome == session.OutcomeDisconnected {
					gone = append(gone, m)
					continue
				}
				observability.RecordPollDiagnostic(outcome.String())
				log.Debug().Err(err).Str("name", m.Name).Str("outcome", outcome.String()).Msg("room.pass poll")
				continue
			}
			if msg == nil {
				continue
			}
			active = true
			observability.RecordFrameReceived(msg.Code().String())
			text, ok := msg.(protocol.MessageTo)
			if !ok {
				log.Debug().Str("name", m.Name).Stringer("code", msg.Code()).Msg("room.pass ignored message")
				continue
			}
			relay := protocol.MessageFrom{Name: m.Name, Text: text.Text}
			if _, err := protocol.Encode(relay, s.cfg.Session.Limits); err != nil {
				observability.RecordPollDiagnostic("relay_too_large")
				log.Warn().Err(err).Str("name", m.Name).Int("text_bytes", len(text.Text)).Msg("room.pass relay dropped")
				continue
			}
			s.log.Append(EntryText, m.Name, text.Text, m.RemoteAddr)
			for _, other := range members {
				if other == m || lo.Contains(gone, other) {
					continue
				}
				s.deliver(other, relay, "relay")
			}
		}
	})
	if len(gone) == 0 {
		return active
	}

	evicted := s.registry.Compact(lo.Map(gone, func(m *Member, _ int) uuid.UUID { return m.ID }))
	remaining := s.registry.Members()
	observability.SetMembers(len(remaining))
	for _, m := range evicted {
		_ = m.close()
		observability.RecordEviction()
		s.log.Append(EntryLeft, m.Name, "", m.RemoteAddr)
		log.Info().Str("name", m.Name).Str("remote", m.RemoteAddr).Msg("room.pass member disconnected")
		s.fanOut(remaining, protocol.MessageTo{Text: fmt.Sprintf("User %s disconnected!", m.Name)}, "notice")
	}
	return true
}

// Announce sends an admin line to every member and logs it.
func (s *Service) Announce(text string) error {
	if err := protocol.ValidateText(text); err != nil {
		return err
	}
	s.log.Append(EntryAdmin, s.cfg.Admin, text, "")
	s.fanOut(s.registry.Members(), protocol.MessageTo{Text: text}, "admin")
	return nil
}

func (s *Service) fanOut(members []*Member, msg protocol.Message, kind string) {
	for _, m := range members {
		s.deliver(m, msg, kind)
	}
}

// deliver writes msg to one member. Failures are logged and counted. A failed
// write closes the member's connection; the broadcast loop evicts it once its
// poll reports the disconnect.
func (s *Service) deliver(m *Member, msg protocol.Message, kind string) {
	err := m.Send(msg)
	observability.RecordDelivery(kind, err == nil)
	if err != nil {
		log.Warn().Err(err).Str("name", m.Name).Str("kind", kind).Msg("room.deliver write failed")
	}
}

func (s *Service) shutdown() {
	s.closeAllConns()
	s.drainMembers()
	log.Warn().Str("room", s.cfg.Room).Msg("room.Service shutdown")
}

func (s *Service) drainMembers() {
	for _, m := range s.registry.Drain() {
		_ = m.close()
	}
	observability.SetMembers(0)
}

func (s *Service) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Service) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

// closeAllConns closes connections still in the handshake.
func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}
