package room

import (
	"fmt"
	"time"

	"github.com/danmuck/chattest/internal/protocol"
	"github.com/danmuck/chattest/internal/protocol/session"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ServiceConfig configures one room server.
type ServiceConfig struct {
	ListenAddr      string `validate:"required"`
	Room            string `validate:"required,max=256"`
	Admin           string `validate:"required,max=256"`
	AdminListenAddr string
	IdleWait        time.Duration `validate:"gt=0"`
	Session         session.Config
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:      ":7357",
		Room:            "chattest",
		Admin:           "admin",
		AdminListenAddr: "",
		IdleWait:        5 * time.Millisecond,
		Session:         session.DefaultConfig(),
	}
}

// Validate checks required fields and that room and admin names can be sent
// on the wire.
func (c ServiceConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("room: invalid config: %w", err)
	}
	if err := protocol.ValidateText(c.Room); err != nil {
		return fmt.Errorf("room: room name: %w", err)
	}
	if err := protocol.ValidateText(c.Admin); err != nil {
		return fmt.Errorf("room: admin name: %w", err)
	}
	return nil
}
