package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "server":
		return serverTemplate, nil
	case "client":
		return clientTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

// DefaultPath is where configgen writes and validates each kind.
func DefaultPath(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "server":
		return "cmd/chattestd/config.toml", nil
	case "client":
		return "cmd/chattest/client.toml", nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

// Validate loads the file at path as the given kind.
func Validate(kind, path string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "server":
		_, err := LoadServerConfig(path)
		return err
	case "client":
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config load failed (%s): %w", path, err)
		}
		_, err := LoadClientConfig(path)
		return err
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serverTemplate = `addr = ":7357"
room = "chattest"
admin = "admin"
# admin_listen_addr = "127.0.0.1:7358"
idle_wait = "5ms"
max_frame_bytes = 65536
handshake_timeout = "2m"
write_timeout = "5s"
poll_wait = "2ms"
`

const clientTemplate = `server = "127.0.0.1:7357"
name = ""
dial_attempts = 3
# admin_url = "http://127.0.0.1:7358"
no_color = false
`
