package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	env "github.com/Netflix/go-env"
	"github.com/danmuck/chattest/internal/config"
	"github.com/danmuck/chattest/internal/room"
)

// envConfig lists the environment keys that override config.toml.
type envConfig struct {
	Addr            string `env:"CHATTEST_ADDR"`
	Room            string `env:"CHATTEST_ROOM"`
	Admin           string `env:"CHATTEST_ADMIN"`
	AdminListenAddr string `env:"CHATTEST_ADMIN_LISTEN_ADDR"`
	MaxFrameBytes   uint32 `env:"CHATTEST_MAX_FRAME_BYTES"`
}

// chattestd loader: defaults, then config.toml when present, then the
// environment.
func loadServiceConfig(path string) (room.ServiceConfig, error) {
	cfg := room.DefaultServiceConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := config.LoadServerConfig(path)
		if err != nil {
			return room.ServiceConfig{}, err
		}
		cfg = loaded
	} else if !errors.Is(err, fs.ErrNotExist) {
		return room.ServiceConfig{}, fmt.Errorf("load chattestd config: %w", err)
	}

	var raw envConfig
	set, err := env.UnmarshalFromEnviron(&raw)
	if err != nil {
		return room.ServiceConfig{}, fmt.Errorf("load chattestd env: %w", err)
	}
	if _, ok := set["CHATTEST_ADDR"]; ok {
		cfg.ListenAddr = strings.TrimSpace(raw.Addr)
	}
	if _, ok := set["CHATTEST_ROOM"]; ok {
		cfg.Room = raw.Room
	}
	if _, ok := set["CHATTEST_ADMIN"]; ok {
		cfg.Admin = raw.Admin
	}
	if _, ok := set["CHATTEST_ADMIN_LISTEN_ADDR"]; ok {
		cfg.AdminListenAddr = strings.TrimSpace(raw.AdminListenAddr)
	}
	if _, ok := set["CHATTEST_MAX_FRAME_BYTES"]; ok {
		cfg.Session.Limits.MaxPayloadBytes = raw.MaxFrameBytes
	}

	cfg.Session = cfg.Session.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return room.ServiceConfig{}, err
	}
	return cfg, nil
}
