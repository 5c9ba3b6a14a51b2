package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

var validate = validator.New()

// ClientConfig is the chattest client.toml file. Every key can be overridden
// with CHATTEST_<KEY> in the environment.
type ClientConfig struct {
	Server       string `toml:"server" envconfig:"SERVER" validate:"required"`
	Name         string `toml:"name" envconfig:"NAME" validate:"max=256"`
	DialAttempts int    `toml:"dial_attempts" envconfig:"DIAL_ATTEMPTS" validate:"gte=1,lte=50"`
	AdminURL     string `toml:"admin_url" envconfig:"ADMIN_URL" validate:"omitempty,url"`
	NoColor      bool   `toml:"no_color" envconfig:"NO_COLOR"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Server:       "127.0.0.1:7357",
		DialAttempts: 3,
	}
}

// LoadClientConfig reads path (skipped when empty or missing), applies the
// environment and validates the result.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return ClientConfig{}, err
		}
	}
	if err := envconfig.Process("CHATTEST", &cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("config env overlay failed: %w", err)
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("client config invalid: %w", err)
	}
	return nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
