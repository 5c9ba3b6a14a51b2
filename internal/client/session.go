package client

import (
	"context"
	"fmt"

	"github.com/danmuck/chattest/internal/protocol"
	"github.com/danmuck/chattest/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

// Session is a joined client connection in polling mode.
type Session struct {
	conn  *session.PollingConn
	name  string
	room  string
	admin string
}

func (s *Session) Name() string  { return s.name }
func (s *Session) Room() string  { return s.room }
func (s *Session) Admin() string { return s.admin }

// Poll returns at most one message without blocking.
func (s *Session) Poll() (protocol.Message, error) {
	return s.conn.Poll()
}

// Send posts text to the room.
func (s *Session) Send(text string) error {
	if err := protocol.ValidateText(text); err != nil {
		return err
	}
	return s.conn.Write(protocol.MessageTo{Text: text})
}

func (s *Session) Close() error {
	return s.conn.Close()
}

// Format renders a received message as a chat line. It returns false for
// variants that are not shown to the user.
func (s *Session) Format(m protocol.Message) (string, bool) {
	switch v := m.(type) {
	case protocol.MessageFrom:
		return fmt.Sprintf("  %s> %s", v.Name, v.Text), true
	case protocol.MessageTo:
		return fmt.Sprintf("  %s# %s", s.admin, v.Text), true
	default:
		return "", false
	}
}

// Pump sends every line from lines and hands every rendered incoming
// message to emit until ctx ends, lines closes or the server goes away.
func (s *Session) Pump(ctx context.Context, lines <-chan string, emit func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if err := s.Send(line); err != nil {
				if session.IsDisconnect(err) {
					return fmt.Errorf("%w: %v", ErrConnectionLost, err)
				}
				log.Warn().Err(err).Msg("client.Pump send failed")
				continue
			}
			emit("  " + line)
		default:
		}

		msg, err := s.Poll()
		if err != nil {
			outcome := session.Classify(err)
			if outcome == session.OutcomeDisconnected {
				return fmt.Errorf("%w: %v", ErrConnectionLost, err)
			}
			log.Debug().Err(err).Str("outcome", outcome.String()).Msg("client.Pump poll")
			continue
		}
		if msg == nil {
			continue
		}
		if line, ok := s.Format(msg); ok {
			emit(line)
		} else {
			log.Warn().Stringer("code", msg.Code()).Msg("client.Pump unexpected message")
		}
	}
}
