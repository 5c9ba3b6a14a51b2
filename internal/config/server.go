package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/chattest/internal/room"
)

// serverFile maps chattestd config.toml keys onto room settings.
type serverFile struct {
	Addr             string `toml:"addr"`
	Room             string `toml:"room"`
	Admin            string `toml:"admin"`
	AdminListenAddr  string `toml:"admin_listen_addr"`
	IdleWait         string `toml:"idle_wait"`
	MaxFrameBytes    uint32 `toml:"max_frame_bytes"`
	HandshakeTimeout string `toml:"handshake_timeout"`
	WriteTimeout     string `toml:"write_timeout"`
	PollWait         string `toml:"poll_wait"`
}

// LoadServerConfig overlays keys present in the TOML file at path onto
// room.DefaultServiceConfig. Absent keys keep their defaults.
func LoadServerConfig(path string) (room.ServiceConfig, error) {
	cfg := room.DefaultServiceConfig()

	var raw serverFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return room.ServiceConfig{}, fmt.Errorf("load server config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return room.ServiceConfig{}, fmt.Errorf("load server config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("room") {
		cfg.Room = raw.Room
	}
	if meta.IsDefined("admin") {
		cfg.Admin = raw.Admin
	}
	if meta.IsDefined("admin_listen_addr") {
		cfg.AdminListenAddr = strings.TrimSpace(raw.AdminListenAddr)
	}
	if meta.IsDefined("max_frame_bytes") {
		cfg.Session.Limits.MaxPayloadBytes = raw.MaxFrameBytes
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"idle_wait", raw.IdleWait, &cfg.IdleWait},
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.Session.HandshakeTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Session.WriteTimeout},
		{"poll_wait", raw.PollWait, &cfg.Session.PollWait},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return room.ServiceConfig{}, fmt.Errorf("load server config: %s: %w", d.key, err)
		}
		*d.dst = v
	}

	cfg.Session = cfg.Session.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return room.ServiceConfig{}, fmt.Errorf("load server config: %w", err)
	}
	return cfg, nil
}
