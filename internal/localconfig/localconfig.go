// Package localconfig reads and writes the client config file ~/.genv.conf.
package localconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the config file name inside the home directory
const FileName = ".genv.conf"

const (
	KeyServer = "server"
	KeySecret = "secret"
)

var (
	// ErrInvalidKey is returned by Set for keys other than server and secret
	ErrInvalidKey = errors.New("valid config values are server and secret")
	// ErrNoServer is returned by Validate when no server is configured
	ErrNoServer = errors.New("no server specified, run genv config server <SERVER_URL>")
	// ErrNoSecret is returned by Validate when no secret is configured
	ErrNoSecret = errors.New("no secret specified, run genv config secret <SECRET>")
)

// Config is the client configuration
type Config struct {
	Server string `json:"server,omitempty"`
	Secret string `json:"secret,omitempty"`
}

// Path returns the config file path under home
func Path(home string) string {
	return filepath.Join(home, FileName)
}

// Load reads the config at path. A missing file yields an empty config.
// A file that cannot be parsed also yields an empty config, together with
// the parse error so the caller can warn about it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return &Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return &Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Set assigns one of the two known keys
func (c *Config) Set(key, value string) error {
	switch key {
	case KeyServer:
		c.Server = value
	case KeySecret:
		c.Secret = value
	default:
		return ErrInvalidKey
	}
	return nil
}

// Validate reports the first missing setting
func (c *Config) Validate() error {
	if c.Server == "" {
		return ErrNoServer
	}
	if c.Secret == "" {
		return ErrNoSecret
	}
	return nil
}

// Save writes the config to path readable only by its owner
func (c *Config) Save(path string) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(path, 0600)
}
