// Package common provides shared utilities for the launchpad CLI commands.
//
// It contains configuration loading for the daemon and key handling helpers
// used by both binaries.
package common

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/CabinBranis/fhe-ido-launchpad/identity"
	"github.com/CabinBranis/fhe-ido-launchpad/services"
)

// Config holds the daemon configuration, loadable from YAML with flag
// overrides on top.
type Config struct {
	// HTTPAddr is the listen address for the transition API.
	HTTPAddr string `yaml:"http_addr"`

	// AdminToken guards admin endpoints as "user:pass" basic auth
	// credentials. Empty disables the admin surface.
	AdminToken string `yaml:"admin_token"`

	// Postgres configures the event journal. Nil runs with the in-memory
	// journal, losing state on restart.
	Postgres *services.PostgresConfig `yaml:"postgres"`

	// EnablePprof enables the pprof debugging API.
	EnablePprof bool `yaml:"enable_pprof"`

	// LogJSON switches log output from text to JSON.
	LogJSON bool `yaml:"log_json"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr: ":8080",
	}
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// NewLogger creates the process logger.
func NewLogger(json bool) *slog.Logger {
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// LoadOrGenerateSigningKey loads an Ed25519 private key from a hex string,
// or generates a new key pair if hexKey is empty.
func LoadOrGenerateSigningKey(hexKey string) (identity.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return identity.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := identity.GenerateKeyPair()
	return privKey, err
}
